package handler

import (
	"net/http"

	"codecampus/internal/app/service"
	"codecampus/internal/common"
	"codecampus/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewLeaderboardHandler(ls *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{type}/{subjectID}", h.getLeaderboard) // GET /api/v1/leaderboards/challenge/{id}
}

func (h *LeaderboardHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	typ := model.LeaderboardType(chi.URLParam(r, "type"))
	subjectID := chi.URLParam(r, "subjectID")

	entries, err := h.leaderboardService.Get(r.Context(), typ, subjectID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
