package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"codecampus/internal/api/middleware"
	"codecampus/internal/app/service"
	"codecampus/internal/common"
	"codecampus/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ChallengeHandler struct {
	challengeService *service.ChallengeService
}

func NewChallengeHandler(cs *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: cs}
}

func (h *ChallengeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listChallenges)            // GET /api/v1/challenges
	r.Get("/{challengeID}", h.getChallenge) // GET /api/v1/challenges/{id}

	r.Group(func(authoring chi.Router) {
		authoring.Use(middleware.Authenticator)
		authoring.Use(middleware.RequireRole(model.RoleInstructor, model.RoleAdmin))
		authoring.Post("/", h.createChallenge)
		authoring.Post("/{challengeID}/test-cases", h.addTestCases)
		authoring.Post("/{challengeID}/publish", h.publishChallenge)
		authoring.Post("/{challengeID}/archive", h.archiveChallenge)
	})
}

func (h *ChallengeHandler) createChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	challenge, err := h.challengeService.CreateChallenge(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, challenge)
}

func (h *ChallengeHandler) addTestCases(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")

	var inputs []service.TestCaseInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	testCases, err := h.challengeService.AddTestCases(r.Context(), challengeID, inputs)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, testCases)
}

func (h *ChallengeHandler) publishChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.challengeService.Publish(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}

func (h *ChallengeHandler) archiveChallenge(w http.ResponseWriter, r *http.Request) {
	if err := h.challengeService.Archive(r.Context(), chi.URLParam(r, "challengeID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

func (h *ChallengeHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	challenges, err := h.challengeService.ListPublished(r.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenges)
}

func (h *ChallengeHandler) getChallenge(w http.ResponseWriter, r *http.Request) {
	// Role may be empty on this public route; redaction treats that as
	// student visibility.
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	challenge, err := h.challengeService.GetChallenge(r.Context(), chi.URLParam(r, "challengeID"), role)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}
