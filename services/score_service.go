package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marchpool/bracket-pool/models"
	"github.com/marchpool/bracket-pool/repositories"
)

// PointsForRound is the value of one correct pick: doubling per round, so a
// correct champion pick in a 64-team field is worth 32.
func PointsForRound(round int) int {
	return 1 << (round - 1)
}

type ScoreService interface {
	// OnGameResultRecorded rescores every pick of the given game. Missing
	// game or missing winner are silent no-ops so callers can fire it after
	// any game mutation.
	OnGameResultRecorded(ctx context.Context, gameID string) error
	// ScoreGame is OnGameResultRecorded running inside the caller's
	// transaction, against a game the caller already holds. GameService uses
	// it so result and scores commit atomically.
	ScoreGame(ctx context.Context, exec repositories.SQLExecutor, game *models.Game) error
	GetByBracket(ctx context.Context, bracketID string) (*models.Score, error)
	RecalculateAll(ctx context.Context) error
	RecalculateForPool(ctx context.Context, poolID string) error
}

type scoreService struct {
	db          *sql.DB
	gameRepo    repositories.GameRepository
	pickRepo    repositories.PickRepository
	bracketRepo repositories.BracketRepository
	scoreRepo   repositories.ScoreRepository
	poolRepo    repositories.PoolRepository
}

func NewScoreService(
	db *sql.DB,
	gameRepo repositories.GameRepository,
	pickRepo repositories.PickRepository,
	bracketRepo repositories.BracketRepository,
	scoreRepo repositories.ScoreRepository,
	poolRepo repositories.PoolRepository,
) ScoreService {
	return &scoreService{
		db:          db,
		gameRepo:    gameRepo,
		pickRepo:    pickRepo,
		bracketRepo: bracketRepo,
		scoreRepo:   scoreRepo,
		poolRepo:    poolRepo,
	}
}

func (s *scoreService) OnGameResultRecorded(ctx context.Context, gameID string) error {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load game %s for scoring: %w", gameID, err)
	}
	if game.WinnerID == nil {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin scoring transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ScoreGame(ctx, tx, game); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scoring for game %s: %w", gameID, err)
	}
	return nil
}

func (s *scoreService) ScoreGame(ctx context.Context, exec repositories.SQLExecutor, game *models.Game) error {
	if game.WinnerID == nil {
		return nil
	}

	points := PointsForRound(game.Round)
	picks, err := s.pickRepo.ListByGame(ctx, exec, game.ID)
	if err != nil {
		return fmt.Errorf("failed to list picks for game %s: %w", game.ID, err)
	}

	for _, pick := range picks {
		earned := 0
		if pick.PredictedWinnerID == *game.WinnerID {
			earned = points
		}
		if earned == pick.PointsEarned {
			continue
		}
		if err := s.pickRepo.UpdatePoints(ctx, exec, pick.ID, earned); err != nil {
			return fmt.Errorf("failed to update points for pick %s: %w", pick.ID, err)
		}
		if err := s.recomputeBracketScore(ctx, exec, pick.BracketID); err != nil {
			return err
		}
	}
	return nil
}

// recomputeBracketScore rebuilds the bracket total from its full pick set.
// No incremental deltas: a recompute after any partial failure converges on
// the correct total.
func (s *scoreService) recomputeBracketScore(ctx context.Context, exec repositories.SQLExecutor, bracketID string) error {
	picks, err := s.pickRepo.ListByBracket(ctx, exec, bracketID)
	if err != nil {
		return fmt.Errorf("failed to list picks for bracket %s: %w", bracketID, err)
	}

	total := 0
	for _, p := range picks {
		total += p.PointsEarned
	}

	if err := s.scoreRepo.Upsert(ctx, exec, bracketID, total); err != nil {
		return fmt.Errorf("failed to upsert score for bracket %s: %w", bracketID, err)
	}
	return nil
}

func (s *scoreService) GetByBracket(ctx context.Context, bracketID string) (*models.Score, error) {
	if _, err := s.bracketRepo.GetByID(ctx, bracketID); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to get bracket %s: %w", bracketID, err)
	}

	score, err := s.scoreRepo.GetByBracket(ctx, bracketID)
	if err != nil {
		if errors.Is(err, repositories.ErrScoreNotFound) {
			// A bracket with no scored picks yet simply has zero points.
			return &models.Score{BracketID: bracketID}, nil
		}
		return nil, fmt.Errorf("failed to get score for bracket %s: %w", bracketID, err)
	}
	return score, nil
}

func (s *scoreService) RecalculateAll(ctx context.Context) error {
	allBrackets, err := s.bracketRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list brackets: %w", err)
	}
	return s.recalculateBrackets(ctx, allBrackets)
}

func (s *scoreService) RecalculateForPool(ctx context.Context, poolID string) error {
	if _, err := s.poolRepo.GetByID(ctx, poolID); err != nil {
		if errors.Is(err, repositories.ErrPoolNotFound) {
			return ErrPoolNotFound
		}
		return fmt.Errorf("failed to get pool %s: %w", poolID, err)
	}

	poolBrackets, err := s.bracketRepo.ListByPool(ctx, poolID)
	if err != nil {
		return fmt.Errorf("failed to list brackets for pool %s: %w", poolID, err)
	}
	return s.recalculateBrackets(ctx, poolBrackets)
}

// recalculateBrackets re-derives every pick's points from recorded winners,
// one transaction per bracket so a failure mid-run leaves whole brackets
// either rescored or untouched.
func (s *scoreService) recalculateBrackets(ctx context.Context, list []*models.Bracket) error {
	for _, b := range list {
		if err := s.recalculateBracket(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *scoreService) recalculateBracket(ctx context.Context, bracketID string) error {
	picks, err := s.pickRepo.ListByBracketWithGames(ctx, bracketID)
	if err != nil {
		return fmt.Errorf("failed to list picks for bracket %s: %w", bracketID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin recalculation transaction: %w", err)
	}
	defer tx.Rollback()

	total := 0
	for _, p := range picks {
		earned := 0
		if p.Game != nil && p.Game.WinnerID != nil && *p.Game.WinnerID == p.PredictedWinnerID {
			earned = PointsForRound(p.Game.Round)
		}
		if earned != p.PointsEarned {
			if err := s.pickRepo.UpdatePoints(ctx, tx, p.ID, earned); err != nil {
				return fmt.Errorf("failed to update points for pick %s: %w", p.ID, err)
			}
		}
		total += earned
	}

	if err := s.scoreRepo.Upsert(ctx, tx, bracketID, total); err != nil {
		return fmt.Errorf("failed to upsert score for bracket %s: %w", bracketID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recalculation for bracket %s: %w", bracketID, err)
	}
	return nil
}
