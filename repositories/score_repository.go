package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/marchpool/bracket-pool/models"
)

var ErrScoreNotFound = errors.New("score not found")

type ScoreRepository interface {
	// Upsert writes the recomputed total for a bracket, creating the row on
	// first recomputation. Last writer wins; totals are always recomputed
	// from the full pick set, so a lost race heals on the next write.
	Upsert(ctx context.Context, exec SQLExecutor, bracketID string, totalPoints int) error
	GetByBracket(ctx context.Context, bracketID string) (*models.Score, error)
	ListByBrackets(ctx context.Context, bracketIDs []string) ([]*models.Score, error)
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) Upsert(ctx context.Context, exec SQLExecutor, bracketID string, totalPoints int) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO scores (id, bracket_id, total_points, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bracket_id)
		DO UPDATE SET total_points = EXCLUDED.total_points, last_updated = EXCLUDED.last_updated`

	_, err := exec.ExecContext(ctx, query, uuid.NewString(), bracketID, totalPoints, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert score for bracket %s: %w", bracketID, err)
	}
	return nil
}

func (r *postgresScoreRepository) GetByBracket(ctx context.Context, bracketID string) (*models.Score, error) {
	query := `SELECT id, bracket_id, total_points, last_updated FROM scores WHERE bracket_id = $1`
	s := &models.Score{}
	err := r.db.QueryRowContext(ctx, query, bracketID).Scan(&s.ID, &s.BracketID, &s.TotalPoints, &s.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to scan score for bracket %s: %w", bracketID, err)
	}
	return s, nil
}

func (r *postgresScoreRepository) ListByBrackets(ctx context.Context, bracketIDs []string) ([]*models.Score, error) {
	if len(bracketIDs) == 0 {
		return []*models.Score{}, nil
	}
	query := `SELECT id, bracket_id, total_points, last_updated FROM scores WHERE bracket_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(bracketIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	scores := make([]*models.Score, 0)
	for rows.Next() {
		s := &models.Score{}
		if err := rows.Scan(&s.ID, &s.BracketID, &s.TotalPoints, &s.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during score rows iteration: %w", err)
	}
	return scores, nil
}
