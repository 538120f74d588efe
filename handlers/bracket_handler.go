package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marchpool/bracket-pool/middleware"
	"github.com/marchpool/bracket-pool/services"
)

type BracketHandler struct {
	bracketService services.BracketService
	scoreService   services.ScoreService
}

func NewBracketHandler(bracketService services.BracketService, scoreService services.ScoreService) *BracketHandler {
	return &BracketHandler{
		bracketService: bracketService,
		scoreService:   scoreService,
	}
}

func (h *BracketHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreateBracketInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.PoolID == "" {
		badRequestResponse(w, r, errors.New("pool_id is required"))
		return
	}
	if len(input.Picks) == 0 {
		badRequestResponse(w, r, errors.New("picks are required"))
		return
	}

	bracket, err := h.bracketService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	bracket, err := h.bracketService.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	list, err := h.bracketService.ListByUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"brackets": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.UpdateBracketInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Name == nil && input.Picks == nil {
		badRequestResponse(w, r, errors.New("nothing to update"))
		return
	}

	bracket, err := h.bracketService.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := h.bracketService.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetLock is the administrator override: lock a bracket ahead of the
// tournament, or clear the override again.
func (h *BracketHandler) SetLock(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Locked *bool `json:"locked"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Locked == nil {
		badRequestResponse(w, r, errors.New("locked is required"))
		return
	}

	bracket, err := h.bracketService.SetLock(r.Context(), chi.URLParam(r, "id"), *input.Locked)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	// Visibility rules live in the bracket service; reuse them before
	// exposing the score.
	if _, err := h.bracketService.GetByID(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	score, err := h.scoreService.GetByBracket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
