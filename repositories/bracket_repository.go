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

var (
	ErrBracketNotFound = errors.New("bracket not found")
	// ErrBracketConflict comes from the (user_id, pool_id) unique constraint.
	// Uniqueness is enforced here and not with a prior existence check: two
	// concurrent creates race past any check-then-act, the constraint does not.
	ErrBracketConflict   = errors.New("user already has a bracket in this pool")
	ErrBracketInvalidRef = errors.New("bracket references a missing user or pool")
)

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByID(ctx context.Context, id string) (*models.Bracket, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Bracket, error)
	ListByPool(ctx context.Context, poolID string) ([]*models.Bracket, error)
	ListAll(ctx context.Context) ([]*models.Bracket, error)
	UpdateName(ctx context.Context, exec SQLExecutor, id, name string) error
	UpdateLockedAt(ctx context.Context, id string, lockedAt *time.Time) error
	// Delete removes the bracket; its picks go with it via ON DELETE CASCADE.
	Delete(ctx context.Context, id string) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error {
	if bracket.ID == "" {
		bracket.ID = uuid.NewString()
	}
	query := `
		INSERT INTO brackets (id, user_id, pool_id, name, locked_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := exec.QueryRowContext(ctx, query,
		bracket.ID,
		bracket.UserID,
		bracket.PoolID,
		bracket.Name,
		bracket.LockedAt,
	).Scan(&bracket.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrBracketConflict
			case "23503":
				return ErrBracketInvalidRef
			}
		}
		return fmt.Errorf("failed to create bracket: %w", err)
	}
	return nil
}

const bracketColumns = `id, user_id, pool_id, name, locked_at, created_at`

func scanBracket(scanner interface{ Scan(dest ...interface{}) error }, b *models.Bracket) error {
	return scanner.Scan(&b.ID, &b.UserID, &b.PoolID, &b.Name, &b.LockedAt, &b.CreatedAt)
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, id string) (*models.Bracket, error) {
	query := `SELECT ` + bracketColumns + ` FROM brackets WHERE id = $1`
	b := &models.Bracket{}
	if err := scanBracket(r.db.QueryRowContext(ctx, query, id), b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket %s: %w", id, err)
	}
	return b, nil
}

func (r *postgresBracketRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Bracket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list brackets: %w", err)
	}
	defer rows.Close()

	brackets := make([]*models.Bracket, 0)
	for rows.Next() {
		b := &models.Bracket{}
		if err := scanBracket(rows, b); err != nil {
			return nil, fmt.Errorf("failed to scan bracket row: %w", err)
		}
		brackets = append(brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during bracket rows iteration: %w", err)
	}
	return brackets, nil
}

func (r *postgresBracketRepository) ListByUser(ctx context.Context, userID string) ([]*models.Bracket, error) {
	query := `SELECT ` + bracketColumns + ` FROM brackets WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *postgresBracketRepository) ListByPool(ctx context.Context, poolID string) ([]*models.Bracket, error) {
	query := `SELECT ` + bracketColumns + ` FROM brackets WHERE pool_id = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, poolID)
}

func (r *postgresBracketRepository) ListAll(ctx context.Context) ([]*models.Bracket, error) {
	query := `SELECT ` + bracketColumns + ` FROM brackets ORDER BY created_at ASC`
	return r.list(ctx, query)
}

func (r *postgresBracketRepository) UpdateName(ctx context.Context, exec SQLExecutor, id, name string) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `UPDATE brackets SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update bracket name: %w", err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) UpdateLockedAt(ctx context.Context, id string, lockedAt *time.Time) error {
	query := `UPDATE brackets SET locked_at = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, lockedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update bracket lock: %w", err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM brackets WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete bracket: %w", err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}
