package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marchpool/bracket-pool/middleware"
	"github.com/marchpool/bracket-pool/services"
)

type PoolHandler struct {
	poolService  services.PoolService
	scoreService services.ScoreService
}

func NewPoolHandler(poolService services.PoolService, scoreService services.ScoreService) *PoolHandler {
	return &PoolHandler{
		poolService:  poolService,
		scoreService: scoreService,
	}
}

func (h *PoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreatePoolInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Name == "" || input.TournamentID == "" {
		badRequestResponse(w, r, errors.New("name and tournament_id are required"))
		return
	}

	pool, err := h.poolService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"pool": pool}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PoolHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	pool, err := h.poolService.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pool": pool}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PoolHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	pools, err := h.poolService.ListForUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pools": pools}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PoolHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		InviteCode string `json:"invite_code"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.InviteCode == "" {
		badRequestResponse(w, r, errors.New("invite_code is required"))
		return
	}

	pool, err := h.poolService.JoinByInviteCode(r.Context(), userID, input.InviteCode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pool": pool}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PoolHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		UserID string `json:"user_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID == "" {
		badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	member, err := h.poolService.AddMember(r.Context(), callerID, chi.URLParam(r, "id"), input.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"member": member}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PoolHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := h.poolService.RemoveMember(r.Context(), callerID, chi.URLParam(r, "id"), chi.URLParam(r, "userID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PoolHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := h.poolService.Leave(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PoolHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	entries, err := h.poolService.Leaderboard(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PoolHandler) RecalculateScores(w http.ResponseWriter, r *http.Request) {
	if err := h.scoreService.RecalculateForPool(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "recalculated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
