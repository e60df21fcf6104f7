package api

import (
	"net/http"
	"time"

	"codecampus/internal/api/handler"
	"codecampus/internal/app/service"
	"codecampus/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	challengeService *service.ChallengeService,
	submissionService *service.SubmissionService,
	examService *service.ExamService,
	leaderboardService *service.LeaderboardService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies the Authorization bearer token and puts claims in context.
	// Routes that require authentication add middleware.Authenticator on top.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		challengeHandler := handler.NewChallengeHandler(challengeService)
		v1.Route("/challenges", challengeHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		examHandler := handler.NewExamHandler(examService)
		v1.Route("/exams", examHandler.RegisterRoutes)

		leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
		v1.Route("/leaderboards", leaderboardHandler.RegisterRoutes)
	})

	return r
}
