package handlers

import (
	"net/http"

	"github.com/marchpool/bracket-pool/services"
)

type ScoreHandler struct {
	scoreService services.ScoreService
}

func NewScoreHandler(scoreService services.ScoreService) *ScoreHandler {
	return &ScoreHandler{
		scoreService: scoreService,
	}
}

// RecalculateAll re-derives every bracket's points from recorded winners,
// the admin escape hatch after manual data fixes.
func (h *ScoreHandler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	if err := h.scoreService.RecalculateAll(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "recalculated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
