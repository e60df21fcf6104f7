package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codecampus/internal/api"
	"codecampus/internal/app/dispatch"
	"codecampus/internal/app/service"
	"codecampus/internal/app/worker"
	"codecampus/internal/common/security"
	"codecampus/internal/domain/repository"
	"codecampus/internal/platform/config"
	"codecampus/internal/platform/database"
	"codecampus/internal/platform/queue"
	"codecampus/internal/platform/sandbox"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	challengeRepo := repository.NewPgChallengeRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	examRepo := repository.NewPgExamRepository(database.DB)

	// 6. Sandbox client and per-language executors
	runner := sandbox.NewClient(config.AppConfig.SandboxBaseURL, config.AppConfig.SandboxHTTPTimeout)
	registry := worker.NewRegistry(runner)
	languages := worker.RegisteredLanguages(registry)

	// 7. Dispatcher and Services
	dispatcher := dispatch.NewDispatcher(
		queue.RDB, submissionRepo,
		config.AppConfig.QueuePrefix, config.AppConfig.EnqueueMarkerTTL,
		languages,
	)

	leaderboardService := service.NewLeaderboardService(submissionRepo, examRepo, queue.RDB, config.AppConfig.LeaderboardCacheTTL)
	authService := service.NewAuthService(userRepo)
	challengeService := service.NewChallengeService(challengeRepo, database.DB)
	submissionService := service.NewSubmissionService(submissionRepo, challengeRepo, examRepo, dispatcher)
	examService := service.NewExamService(examRepo, submissionRepo, database.DB, leaderboardService)

	// 8. Worker pools, one per registered language
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var pools sync.WaitGroup
	for _, lang := range languages {
		size := config.AppConfig.WorkerPoolSizes[string(lang)]
		pool := worker.NewPool(
			lang, size,
			queue.RDB, dispatcher, registry[lang],
			submissionRepo, challengeRepo,
			config.AppConfig.InfraRetryMax, config.AppConfig.InfraRetryBackoff,
			leaderboardService,
		)
		pools.Add(1)
		go func() {
			defer pools.Done()
			pool.Start(workerCtx)
		}()
	}
	fmt.Println("Worker pools started.")

	// 9. Router & HTTP Server
	router := api.NewRouter(authService, challengeService, submissionService, examService, leaderboardService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop

	log.Println("Shutting down server...")
	workerCancel()
	pools.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and workers stopped gracefully.")
}
