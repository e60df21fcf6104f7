package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"codecampus/internal/api/middleware"
	"codecampus/internal/app/service"
	"codecampus/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.createSubmission)            // POST /api/v1/submissions
	r.Get("/{submissionID}", h.getSubmission)  // GET /api/v1/submissions/{id}
	r.Get("/mine", h.listMySubmissions)        // GET /api/v1/submissions/mine?challenge_id=...
}

func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	submission, err := h.submissionService.CreateSubmission(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	// 202: the row is persisted but grading happens asynchronously.
	common.RespondWithJSON(w, http.StatusAccepted, submission)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	submission, err := h.submissionService.GetSubmission(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}

func (h *SubmissionHandler) listMySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	challengeID := r.URL.Query().Get("challenge_id")
	if challengeID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "challenge_id query parameter is required")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	subs, err := h.submissionService.ListMySubmissions(r.Context(), userID, challengeID, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}
