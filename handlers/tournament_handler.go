package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marchpool/bracket-pool/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	gameService       services.GameService
}

func NewTournamentHandler(tournamentService services.TournamentService, gameService services.GameService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		gameService:       gameService,
	}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Name == "" || input.StartDate.IsZero() {
		badRequestResponse(w, r, errors.New("name and start_date are required"))
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournamentService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) AssignTeams(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Teams []services.TeamSeedInput `json:"teams"`
	}

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.Teams) == 0 {
		badRequestResponse(w, r, errors.New("at least one team assignment is required"))
		return
	}

	assignments, err := h.tournamentService.AssignTeams(r.Context(), chi.URLParam(r, "id"), input.Teams)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"teams": assignments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.tournamentService.ListTeams(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": assignments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	games, err := h.tournamentService.GenerateBracket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	// Ensure the tournament exists so an unknown id is a 404, not an empty list.
	if _, err := h.tournamentService.GetByID(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	games, err := h.gameService.ListByTournament(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
