package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/marchpool/bracket-pool/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentTeamConflict = errors.New("team is already assigned to this tournament")
	ErrTournamentTeamInvalid  = errors.New("tournament-team assignment references a missing tournament or team")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
}

type TournamentTeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tt *models.TournamentTeam) error
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.TournamentTeam, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	if tournament.ID == "" {
		tournament.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tournaments (id, name, start_date)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		tournament.ID,
		tournament.Name,
		tournament.StartDate,
	).Scan(&tournament.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	query := `SELECT id, name, start_date, created_at FROM tournaments WHERE id = $1`
	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.StartDate, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %s: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context) ([]*models.Tournament, error) {
	query := `SELECT id, name, start_date, created_at FROM tournaments ORDER BY start_date DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t := &models.Tournament{}
		if err := rows.Scan(&t.ID, &t.Name, &t.StartDate, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

type postgresTournamentTeamRepository struct {
	db *sql.DB
}

func NewPostgresTournamentTeamRepository(db *sql.DB) TournamentTeamRepository {
	return &postgresTournamentTeamRepository{db: db}
}

func (r *postgresTournamentTeamRepository) Create(ctx context.Context, exec SQLExecutor, tt *models.TournamentTeam) error {
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tournament_teams (id, tournament_id, team_id, seed, region)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := exec.ExecContext(ctx, query, tt.ID, tt.TournamentID, tt.TeamID, tt.Seed, tt.Region)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation on (tournament_id, team_id)
				return ErrTournamentTeamConflict
			case "23503": // foreign_key_violation
				return ErrTournamentTeamInvalid
			}
		}
		return fmt.Errorf("failed to create tournament team: %w", err)
	}
	return nil
}

func (r *postgresTournamentTeamRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.TournamentTeam, error) {
	query := `
		SELECT tt.id, tt.tournament_id, tt.team_id, tt.seed, tt.region,
		       t.id, t.name, t.logo_key, t.created_at
		FROM tournament_teams tt
		JOIN teams t ON tt.team_id = t.id
		WHERE tt.tournament_id = $1
		ORDER BY tt.region ASC, tt.seed ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament teams for %s: %w", tournamentID, err)
	}
	defer rows.Close()

	assignments := make([]*models.TournamentTeam, 0)
	for rows.Next() {
		tt := &models.TournamentTeam{}
		team := &models.Team{}
		if err := rows.Scan(
			&tt.ID, &tt.TournamentID, &tt.TeamID, &tt.Seed, &tt.Region,
			&team.ID, &team.Name, &team.LogoKey, &team.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tournament team row: %w", err)
		}
		seed := tt.Seed
		region := tt.Region
		team.Seed = &seed
		team.Region = &region
		tt.Team = team
		assignments = append(assignments, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament team rows iteration: %w", err)
	}
	return assignments, nil
}
