package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marchpool/bracket-pool/brackets"
	"github.com/marchpool/bracket-pool/models"
	"github.com/marchpool/bracket-pool/repositories"
)

var ErrInvalidSeeding = errors.New("seed assignments cannot produce a bracket")

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	AssignTeams(ctx context.Context, tournamentID string, assignments []TeamSeedInput) ([]*models.TournamentTeam, error)
	ListTeams(ctx context.Context, tournamentID string) ([]*models.TournamentTeam, error)
	// GenerateBracket builds the tournament's full elimination tree from its
	// seed assignments. One-shot: a tournament that already has games keeps
	// them, bracket picks reference game ids and must never dangle.
	GenerateBracket(ctx context.Context, tournamentID string) ([]*models.Game, error)
}

type CreateTournamentInput struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
}

type TeamSeedInput struct {
	TeamID string `json:"team_id"`
	Seed   int    `json:"seed"`
	Region string `json:"region"`
}

type tournamentService struct {
	db                 *sql.DB
	tournamentRepo     repositories.TournamentRepository
	tournamentTeamRepo repositories.TournamentTeamRepository
	gameRepo           repositories.GameRepository
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	tournamentTeamRepo repositories.TournamentTeamRepository,
	gameRepo repositories.GameRepository,
) TournamentService {
	return &tournamentService{
		db:                 db,
		tournamentRepo:     tournamentRepo,
		tournamentTeamRepo: tournamentTeamRepo,
		gameRepo:           gameRepo,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	tournament := &models.Tournament{
		Name:      input.Name,
		StartDate: input.StartDate,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) AssignTeams(ctx context.Context, tournamentID string, assignments []TeamSeedInput) ([]*models.TournamentTeam, error) {
	if _, err := s.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := make([]*models.TournamentTeam, 0, len(assignments))
	for _, a := range assignments {
		tt := &models.TournamentTeam{
			TournamentID: tournamentID,
			TeamID:       a.TeamID,
			Seed:         a.Seed,
			Region:       a.Region,
		}
		if err := s.tournamentTeamRepo.Create(ctx, tx, tt); err != nil {
			switch {
			case errors.Is(err, repositories.ErrTournamentTeamConflict):
				return nil, ErrTournamentTeamConflict
			case errors.Is(err, repositories.ErrTournamentTeamInvalid):
				return nil, ErrTeamNotFound
			}
			return nil, fmt.Errorf("failed to assign team %s: %w", a.TeamID, err)
		}
		created = append(created, tt)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit team assignments: %w", err)
	}
	return created, nil
}

func (s *tournamentService) ListTeams(ctx context.Context, tournamentID string) ([]*models.TournamentTeam, error) {
	if _, err := s.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	assignments, err := s.tournamentTeamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament teams: %w", err)
	}
	return assignments, nil
}

func (s *tournamentService) GenerateBracket(ctx context.Context, tournamentID string) ([]*models.Game, error) {
	tournament, err := s.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	count, err := s.gameRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tournament games: %w", err)
	}
	if count > 0 {
		return nil, ErrBracketAlreadyGenerated
	}

	assignments, err := s.tournamentTeamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament teams: %w", err)
	}

	entries := make([]brackets.SeedEntry, 0, len(assignments))
	for _, tt := range assignments {
		entries = append(entries, brackets.SeedEntry{
			TeamID: tt.TeamID,
			Seed:   tt.Seed,
			Region: tt.Region,
		})
	}

	games, err := brackets.GenerateGames(tournamentID, entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeeding, err)
	}

	// Round-1 games inherit the tournament start; the lock policy keys off
	// the earliest of them.
	for _, g := range games {
		if g.Round == 1 {
			startDate := tournament.StartDate
			g.GameDate = &startDate
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.gameRepo.CreateBatch(ctx, tx, games); err != nil {
		return nil, fmt.Errorf("failed to persist generated games: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit generated games: %w", err)
	}
	return games, nil
}
