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
	ErrPickNotFound   = errors.New("pick not found")
	ErrPickConflict   = errors.New("bracket already has a pick for this game")
	ErrPickInvalidRef = errors.New("pick references a missing bracket, game, or team")
)

type PickRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, picks []*models.Pick) error
	// ReplaceForBracket deletes every existing pick of the bracket and inserts
	// the given set. Callers must supply a transaction executor so a crash
	// cannot leave the bracket partially picked.
	ReplaceForBracket(ctx context.Context, exec SQLExecutor, bracketID string, picks []*models.Pick) error
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID string) ([]*models.Pick, error)
	ListByBracketWithGames(ctx context.Context, bracketID string) ([]*models.Pick, error)
	ListByGame(ctx context.Context, exec SQLExecutor, gameID string) ([]*models.Pick, error)
	UpdatePoints(ctx context.Context, exec SQLExecutor, id string, points int) error
}

type postgresPickRepository struct {
	db *sql.DB
}

func NewPostgresPickRepository(db *sql.DB) PickRepository {
	return &postgresPickRepository{db: db}
}

func (r *postgresPickRepository) CreateBatch(ctx context.Context, exec SQLExecutor, picks []*models.Pick) error {
	query := `
		INSERT INTO picks (id, bracket_id, game_id, predicted_winner_id, points_earned)
		VALUES ($1, $2, $3, $4, $5)`

	for _, p := range picks {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, err := exec.ExecContext(ctx, query, p.ID, p.BracketID, p.GameID, p.PredictedWinnerID, p.PointsEarned); err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				switch pqErr.Code {
				case "23505": // unique_violation on (bracket_id, game_id)
					return ErrPickConflict
				case "23503":
					return ErrPickInvalidRef
				}
			}
			return fmt.Errorf("failed to create pick: %w", err)
		}
	}
	return nil
}

func (r *postgresPickRepository) ReplaceForBracket(ctx context.Context, exec SQLExecutor, bracketID string, picks []*models.Pick) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM picks WHERE bracket_id = $1`, bracketID); err != nil {
		return fmt.Errorf("failed to delete picks for bracket %s: %w", bracketID, err)
	}
	return r.CreateBatch(ctx, exec, picks)
}

func (r *postgresPickRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID string) ([]*models.Pick, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT id, bracket_id, game_id, predicted_winner_id, points_earned
		FROM picks
		WHERE bracket_id = $1`

	rows, err := exec.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for bracket %s: %w", bracketID, err)
	}
	return collectPicks(rows)
}

func (r *postgresPickRepository) ListByBracketWithGames(ctx context.Context, bracketID string) ([]*models.Pick, error) {
	query := `
		SELECT p.id, p.bracket_id, p.game_id, p.predicted_winner_id, p.points_earned,
		       g.id, g.tournament_id, g.round, g.game_number, g.parent_game1_id, g.parent_game2_id,
		       g.team1_id, g.team2_id, g.winner_id, g.score_team1, g.score_team2, g.game_date, g.status, g.created_at,
		       w.id, w.name, w.logo_key, w.created_at
		FROM picks p
		JOIN games g ON p.game_id = g.id
		JOIN teams w ON p.predicted_winner_id = w.id
		WHERE p.bracket_id = $1
		ORDER BY g.round ASC, g.game_number ASC`

	rows, err := r.db.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks with games for bracket %s: %w", bracketID, err)
	}
	defer rows.Close()

	picks := make([]*models.Pick, 0)
	for rows.Next() {
		p := &models.Pick{}
		g := &models.Game{}
		w := &models.Team{}
		if err := rows.Scan(
			&p.ID, &p.BracketID, &p.GameID, &p.PredictedWinnerID, &p.PointsEarned,
			&g.ID, &g.TournamentID, &g.Round, &g.GameNumber, &g.ParentGame1ID, &g.ParentGame2ID,
			&g.Team1ID, &g.Team2ID, &g.WinnerID, &g.ScoreTeam1, &g.ScoreTeam2, &g.GameDate, &g.Status, &g.CreatedAt,
			&w.ID, &w.Name, &w.LogoKey, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pick row: %w", err)
		}
		p.Game = g
		p.PredictedWinner = w
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during pick rows iteration: %w", err)
	}
	return picks, nil
}

func (r *postgresPickRepository) ListByGame(ctx context.Context, exec SQLExecutor, gameID string) ([]*models.Pick, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT id, bracket_id, game_id, predicted_winner_id, points_earned
		FROM picks
		WHERE game_id = $1`

	rows, err := exec.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for game %s: %w", gameID, err)
	}
	return collectPicks(rows)
}

func (r *postgresPickRepository) UpdatePoints(ctx context.Context, exec SQLExecutor, id string, points int) error {
	result, err := exec.ExecContext(ctx, `UPDATE picks SET points_earned = $1 WHERE id = $2`, points, id)
	if err != nil {
		return fmt.Errorf("failed to update pick points: %w", err)
	}
	return checkAffectedRows(result, ErrPickNotFound)
}

func collectPicks(rows *sql.Rows) ([]*models.Pick, error) {
	defer rows.Close()

	picks := make([]*models.Pick, 0)
	for rows.Next() {
		p := &models.Pick{}
		if err := rows.Scan(&p.ID, &p.BracketID, &p.GameID, &p.PredictedWinnerID, &p.PointsEarned); err != nil {
			return nil, fmt.Errorf("failed to scan pick row: %w", err)
		}
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during pick rows iteration: %w", err)
	}
	return picks, nil
}
