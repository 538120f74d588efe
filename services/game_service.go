package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marchpool/bracket-pool/models"
	"github.com/marchpool/bracket-pool/repositories"
)

var (
	ErrResultWinnerNotInGame = errors.New("winner must be one of the game's teams")
	ErrGameNotReady          = errors.New("game does not have both teams assigned yet")
)

type GameService interface {
	GetByID(ctx context.Context, id string) (*models.Game, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Game, error)
	// RecordResult applies an admin result update: winner, scores, status,
	// schedule. The winner advances into its slot of the child game, and the
	// scoring engine runs in the same transaction when the winner changed.
	RecordResult(ctx context.Context, input RecordResultInput) (*models.Game, error)
}

type RecordResultInput struct {
	GameID     string     `json:"-"`
	WinnerID   *string    `json:"winner_id"`
	ScoreTeam1 *int       `json:"score_team1"`
	ScoreTeam2 *int       `json:"score_team2"`
	Status     *string    `json:"status"`
	GameDate   *time.Time `json:"game_date"`
}

type gameService struct {
	db           *sql.DB
	gameRepo     repositories.GameRepository
	scoreService ScoreService
}

func NewGameService(db *sql.DB, gameRepo repositories.GameRepository, scoreService ScoreService) GameService {
	return &gameService{
		db:           db,
		gameRepo:     gameRepo,
		scoreService: scoreService,
	}
}

func (s *gameService) GetByID(ctx context.Context, id string) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %s: %w", id, err)
	}
	return game, nil
}

func (s *gameService) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Game, error) {
	games, err := s.gameRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for tournament %s: %w", tournamentID, err)
	}
	return games, nil
}

func (s *gameService) RecordResult(ctx context.Context, input RecordResultInput) (*models.Game, error) {
	game, err := s.GetByID(ctx, input.GameID)
	if err != nil {
		return nil, err
	}

	previousWinner := game.WinnerID

	if input.WinnerID != nil {
		if game.Team1ID == nil || game.Team2ID == nil {
			return nil, ErrGameNotReady
		}
		winner := *input.WinnerID
		if winner != *game.Team1ID && winner != *game.Team2ID {
			return nil, ErrResultWinnerNotInGame
		}
		game.WinnerID = input.WinnerID
		game.Status = models.GameStatusCompleted
	}
	if input.ScoreTeam1 != nil {
		game.ScoreTeam1 = input.ScoreTeam1
	}
	if input.ScoreTeam2 != nil {
		game.ScoreTeam2 = input.ScoreTeam2
	}
	if input.Status != nil {
		status := models.GameStatus(*input.Status)
		switch status {
		case models.GameStatusScheduled, models.GameStatusInProgress, models.GameStatusCompleted:
			game.Status = status
		default:
			return nil, fmt.Errorf("invalid game status %q", *input.Status)
		}
	}
	if input.GameDate != nil {
		game.GameDate = input.GameDate
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.gameRepo.UpdateResult(ctx, tx, game); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to update game result: %w", err)
	}

	winnerChanged := !equalID(previousWinner, game.WinnerID)
	if winnerChanged && game.WinnerID != nil {
		if err := s.advanceWinner(ctx, tx, game); err != nil {
			return nil, err
		}
		if err := s.scoreService.ScoreGame(ctx, tx, game); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit game result: %w", err)
	}
	return game, nil
}

// advanceWinner fills the winner into its slot of the child game. Parent 1
// feeds slot 1, parent 2 feeds slot 2, so re-recording a result overwrites
// the same slot instead of duplicating the team.
func (s *gameService) advanceWinner(ctx context.Context, exec repositories.SQLExecutor, game *models.Game) error {
	child, err := s.gameRepo.ChildGame(ctx, exec, game.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load child of game %s: %w", game.ID, err)
	}

	if child.ParentGame1ID != nil && *child.ParentGame1ID == game.ID {
		child.Team1ID = game.WinnerID
	} else {
		child.Team2ID = game.WinnerID
	}

	if err := s.gameRepo.UpdateTeamSlots(ctx, exec, child); err != nil {
		return fmt.Errorf("failed to advance winner into game %s: %w", child.ID, err)
	}
	return nil
}

func equalID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
