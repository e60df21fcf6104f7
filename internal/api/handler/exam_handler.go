package handler

import (
	"encoding/json"
	"net/http"

	"codecampus/internal/api/middleware"
	"codecampus/internal/app/service"
	"codecampus/internal/common"
	"codecampus/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ExamHandler struct {
	examService *service.ExamService
}

func NewExamHandler(es *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: es}
}

func (h *ExamHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/{examID}", h.getExam)
	r.Post("/{examID}/attempts", h.startAttempt)
	r.Get("/attempts/{attemptID}", h.getAttempt)
	r.Post("/attempts/{attemptID}/submit", h.submitAttempt)

	r.Group(func(authoring chi.Router) {
		authoring.Use(middleware.RequireRole(model.RoleInstructor, model.RoleAdmin))
		authoring.Post("/", h.createExam)
		authoring.Get("/{examID}/results", h.results)
	})
}

func (h *ExamHandler) createExam(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	exam, err := h.examService.CreateExam(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, exam)
}

func (h *ExamHandler) getExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.examService.GetExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, exam)
}

func (h *ExamHandler) startAttempt(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	attempt, err := h.examService.StartAttempt(r.Context(), userID, chi.URLParam(r, "examID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, attempt)
}

func (h *ExamHandler) getAttempt(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	attempt, err := h.examService.GetAttempt(r.Context(), userID, role, chi.URLParam(r, "attemptID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, attempt)
}

func (h *ExamHandler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	attempt, err := h.examService.SubmitAttempt(r.Context(), userID, chi.URLParam(r, "attemptID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, attempt)
}

func (h *ExamHandler) results(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.examService.Results(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, attempts)
}
