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
	ErrPoolNotFound           = errors.New("pool not found")
	ErrPoolInviteCodeConflict = errors.New("invite code is already in use")
	ErrPoolMemberNotFound     = errors.New("pool member not found")
	ErrPoolMemberConflict     = errors.New("user is already a member of this pool")
)

type PoolRepository interface {
	Create(ctx context.Context, pool *models.Pool) error
	GetByID(ctx context.Context, id string) (*models.Pool, error)
	GetByInviteCode(ctx context.Context, inviteCode string) (*models.Pool, error)
	ListByMember(ctx context.Context, userID string) ([]*models.Pool, error)
}

type PoolMemberRepository interface {
	Create(ctx context.Context, member *models.PoolMember) error
	FindByPoolAndUser(ctx context.Context, poolID, userID string) (*models.PoolMember, error)
	ListByPool(ctx context.Context, poolID string) ([]*models.PoolMember, error)
	UpdateStatus(ctx context.Context, id string, status models.PoolMemberStatus) error
}

type postgresPoolRepository struct {
	db *sql.DB
}

func NewPostgresPoolRepository(db *sql.DB) PoolRepository {
	return &postgresPoolRepository{db: db}
}

func (r *postgresPoolRepository) Create(ctx context.Context, pool *models.Pool) error {
	if pool.ID == "" {
		pool.ID = uuid.NewString()
	}
	query := `
		INSERT INTO pools (id, name, tournament_id, creator_id, invite_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		pool.ID,
		pool.Name,
		pool.TournamentID,
		pool.CreatorID,
		pool.InviteCode,
	).Scan(&pool.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPoolInviteCodeConflict
		}
		return fmt.Errorf("failed to create pool: %w", err)
	}
	return nil
}

func (r *postgresPoolRepository) scanPool(row *sql.Row) (*models.Pool, error) {
	pool := &models.Pool{}
	err := row.Scan(&pool.ID, &pool.Name, &pool.TournamentID, &pool.CreatorID, &pool.InviteCode, &pool.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to scan pool: %w", err)
	}
	return pool, nil
}

func (r *postgresPoolRepository) GetByID(ctx context.Context, id string) (*models.Pool, error) {
	query := `SELECT id, name, tournament_id, creator_id, invite_code, created_at FROM pools WHERE id = $1`
	return r.scanPool(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPoolRepository) GetByInviteCode(ctx context.Context, inviteCode string) (*models.Pool, error) {
	query := `SELECT id, name, tournament_id, creator_id, invite_code, created_at FROM pools WHERE invite_code = $1`
	return r.scanPool(r.db.QueryRowContext(ctx, query, inviteCode))
}

func (r *postgresPoolRepository) ListByMember(ctx context.Context, userID string) ([]*models.Pool, error) {
	query := `
		SELECT p.id, p.name, p.tournament_id, p.creator_id, p.invite_code, p.created_at
		FROM pools p
		JOIN pool_members pm ON pm.pool_id = p.id
		WHERE pm.user_id = $1 AND pm.status = $2
		ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, models.PoolMemberActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools for user %s: %w", userID, err)
	}
	defer rows.Close()

	pools := make([]*models.Pool, 0)
	for rows.Next() {
		pool := &models.Pool{}
		if err := rows.Scan(&pool.ID, &pool.Name, &pool.TournamentID, &pool.CreatorID, &pool.InviteCode, &pool.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pool row: %w", err)
		}
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during pool rows iteration: %w", err)
	}
	return pools, nil
}

type postgresPoolMemberRepository struct {
	db *sql.DB
}

func NewPostgresPoolMemberRepository(db *sql.DB) PoolMemberRepository {
	return &postgresPoolMemberRepository{db: db}
}

func (r *postgresPoolMemberRepository) Create(ctx context.Context, member *models.PoolMember) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	query := `
		INSERT INTO pool_members (id, pool_id, user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at`

	err := r.db.QueryRowContext(ctx, query,
		member.ID,
		member.PoolID,
		member.UserID,
		member.Status,
	).Scan(&member.JoinedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPoolMemberConflict
		}
		return fmt.Errorf("failed to create pool member: %w", err)
	}
	return nil
}

func (r *postgresPoolMemberRepository) FindByPoolAndUser(ctx context.Context, poolID, userID string) (*models.PoolMember, error) {
	query := `
		SELECT id, pool_id, user_id, status, joined_at, left_at
		FROM pool_members
		WHERE pool_id = $1 AND user_id = $2`

	m := &models.PoolMember{}
	err := r.db.QueryRowContext(ctx, query, poolID, userID).Scan(
		&m.ID, &m.PoolID, &m.UserID, &m.Status, &m.JoinedAt, &m.LeftAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolMemberNotFound
		}
		return nil, fmt.Errorf("failed to scan pool member: %w", err)
	}
	return m, nil
}

func (r *postgresPoolMemberRepository) ListByPool(ctx context.Context, poolID string) ([]*models.PoolMember, error) {
	query := `
		SELECT pm.id, pm.pool_id, pm.user_id, pm.status, pm.joined_at, pm.left_at,
		       u.id, u.username, u.role, u.created_at
		FROM pool_members pm
		JOIN users u ON pm.user_id = u.id
		WHERE pm.pool_id = $1
		ORDER BY pm.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members for pool %s: %w", poolID, err)
	}
	defer rows.Close()

	members := make([]*models.PoolMember, 0)
	for rows.Next() {
		m := &models.PoolMember{}
		u := &models.User{}
		if err := rows.Scan(
			&m.ID, &m.PoolID, &m.UserID, &m.Status, &m.JoinedAt, &m.LeftAt,
			&u.ID, &u.Username, &u.Role, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pool member row: %w", err)
		}
		m.User = u
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during pool member rows iteration: %w", err)
	}
	return members, nil
}

func (r *postgresPoolMemberRepository) UpdateStatus(ctx context.Context, id string, status models.PoolMemberStatus) error {
	// left_at tracks the most recent departure only.
	query := `
		UPDATE pool_members
		SET status = $1,
		    left_at = CASE WHEN $1 = 'left' THEN NOW() ELSE NULL END
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update pool member status: %w", err)
	}
	return checkAffectedRows(result, ErrPoolMemberNotFound)
}
