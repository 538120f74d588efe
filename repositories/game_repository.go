package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/marchpool/bracket-pool/models"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameNumberConflict = errors.New("game number is already used in this tournament")
	ErrGameInvalidRef     = errors.New("game references a missing tournament, team, or parent game")
)

type GameRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, games []*models.Game) error
	GetByID(ctx context.Context, id string) (*models.Game, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Game, error)
	CountByTournament(ctx context.Context, tournamentID string) (int, error)
	// FirstRoundOpener returns the round-1 game with the lowest game number,
	// the tournament's start signal for the lock policy. Takes an executor so
	// lock re-checks can share the caller's transaction.
	FirstRoundOpener(ctx context.Context, exec SQLExecutor, tournamentID string) (*models.Game, error)
	// ChildGame returns the game fed by the given parent, or ErrGameNotFound
	// for the championship game.
	ChildGame(ctx context.Context, exec SQLExecutor, parentGameID string) (*models.Game, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, game *models.Game) error
	UpdateTeamSlots(ctx context.Context, exec SQLExecutor, game *models.Game) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

const gameColumns = `id, tournament_id, round, game_number, parent_game1_id, parent_game2_id,
	team1_id, team2_id, winner_id, score_team1, score_team2, game_date, status, created_at`

func scanGame(scanner interface{ Scan(dest ...interface{}) error }, g *models.Game) error {
	return scanner.Scan(
		&g.ID,
		&g.TournamentID,
		&g.Round,
		&g.GameNumber,
		&g.ParentGame1ID,
		&g.ParentGame2ID,
		&g.Team1ID,
		&g.Team2ID,
		&g.WinnerID,
		&g.ScoreTeam1,
		&g.ScoreTeam2,
		&g.GameDate,
		&g.Status,
		&g.CreatedAt,
	)
}

func (r *postgresGameRepository) CreateBatch(ctx context.Context, exec SQLExecutor, games []*models.Game) error {
	query := `
		INSERT INTO games
			(id, tournament_id, round, game_number, parent_game1_id, parent_game2_id,
			 team1_id, team2_id, winner_id, score_team1, score_team2, game_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	for _, g := range games {
		err := exec.QueryRowContext(ctx, query,
			g.ID,
			g.TournamentID,
			g.Round,
			g.GameNumber,
			g.ParentGame1ID,
			g.ParentGame2ID,
			g.Team1ID,
			g.Team2ID,
			g.WinnerID,
			g.ScoreTeam1,
			g.ScoreTeam2,
			g.GameDate,
			g.Status,
		).Scan(&g.CreatedAt)
		if err != nil {
			return r.handleGameError(err)
		}
	}
	return nil
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	g := &models.Game{}
	if err := scanGame(r.db.QueryRowContext(ctx, query, id), g); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to scan game %s: %w", id, err)
	}
	return g, nil
}

func (r *postgresGameRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE tournament_id = $1 ORDER BY round ASC, game_number ASC`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		g := &models.Game{}
		if err := scanGame(rows, g); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during game rows iteration: %w", err)
	}
	return games, nil
}

func (r *postgresGameRepository) CountByTournament(ctx context.Context, tournamentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games for tournament %s: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresGameRepository) FirstRoundOpener(ctx context.Context, exec SQLExecutor, tournamentID string) (*models.Game, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + gameColumns + ` FROM games
		WHERE tournament_id = $1 AND round = 1
		ORDER BY game_number ASC
		LIMIT 1`

	g := &models.Game{}
	if err := scanGame(exec.QueryRowContext(ctx, query, tournamentID), g); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to scan opening game for tournament %s: %w", tournamentID, err)
	}
	return g, nil
}

func (r *postgresGameRepository) ChildGame(ctx context.Context, exec SQLExecutor, parentGameID string) (*models.Game, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + gameColumns + ` FROM games
		WHERE parent_game1_id = $1 OR parent_game2_id = $1`

	g := &models.Game{}
	if err := scanGame(exec.QueryRowContext(ctx, query, parentGameID), g); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to scan child game of %s: %w", parentGameID, err)
	}
	return g, nil
}

func (r *postgresGameRepository) UpdateResult(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	query := `
		UPDATE games
		SET winner_id = $1, score_team1 = $2, score_team2 = $3, status = $4, game_date = $5
		WHERE id = $6`

	result, err := exec.ExecContext(ctx, query,
		game.WinnerID,
		game.ScoreTeam1,
		game.ScoreTeam2,
		game.Status,
		game.GameDate,
		game.ID,
	)
	if err != nil {
		return r.handleGameError(err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) UpdateTeamSlots(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	query := `UPDATE games SET team1_id = $1, team2_id = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, game.Team1ID, game.Team2ID, game.ID)
	if err != nil {
		return r.handleGameError(err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) handleGameError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation on (tournament_id, game_number)
			return ErrGameNumberConflict
		case "23503": // foreign_key_violation
			return ErrGameInvalidRef
		}
	}
	return err
}
