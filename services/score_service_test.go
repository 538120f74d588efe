package services

import (
	"context"
	"testing"

	"github.com/marchpool/bracket-pool/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsForRound(t *testing.T) {
	assert.Equal(t, 1, PointsForRound(1))
	assert.Equal(t, 2, PointsForRound(2))
	assert.Equal(t, 4, PointsForRound(3))
	assert.Equal(t, 8, PointsForRound(4))
	assert.Equal(t, 16, PointsForRound(5))
	assert.Equal(t, 32, PointsForRound(6))
}

type scoreFixture struct {
	svc      ScoreService
	gameRepo *fakeGameRepo
	pickRepo *fakePickRepo
	scores   *fakeScoreRepo
}

// newScoreFixture builds a 4-team tournament (g1: a vs b, g2: c vs d, g3
// final) with two brackets: "optimist" picks a, c, a and "contrarian" picks
// b, d, d.
func newScoreFixture(t *testing.T) *scoreFixture {
	t.Helper()

	gameRepo := newFakeGameRepo()
	gameRepo.add(
		&models.Game{ID: "g1", TournamentID: "t1", Round: 1, GameNumber: 1, Team1ID: ptr("a"), Team2ID: ptr("b"), Status: models.GameStatusScheduled},
		&models.Game{ID: "g2", TournamentID: "t1", Round: 1, GameNumber: 2, Team1ID: ptr("c"), Team2ID: ptr("d"), Status: models.GameStatusScheduled},
		&models.Game{ID: "g3", TournamentID: "t1", Round: 2, GameNumber: 3, ParentGame1ID: ptr("g1"), ParentGame2ID: ptr("g2"), Status: models.GameStatusScheduled},
	)

	bracketRepo := newFakeBracketRepo()
	require.NoError(t, bracketRepo.Create(context.Background(), nil, &models.Bracket{ID: "optimist", UserID: "u1", PoolID: "p1"}))
	require.NoError(t, bracketRepo.Create(context.Background(), nil, &models.Bracket{ID: "contrarian", UserID: "u2", PoolID: "p1"}))

	pickRepo := newFakePickRepo(gameRepo)
	require.NoError(t, pickRepo.CreateBatch(context.Background(), nil, []*models.Pick{
		{BracketID: "optimist", GameID: "g1", PredictedWinnerID: "a"},
		{BracketID: "optimist", GameID: "g2", PredictedWinnerID: "c"},
		{BracketID: "optimist", GameID: "g3", PredictedWinnerID: "a"},
		{BracketID: "contrarian", GameID: "g1", PredictedWinnerID: "b"},
		{BracketID: "contrarian", GameID: "g2", PredictedWinnerID: "d"},
		{BracketID: "contrarian", GameID: "g3", PredictedWinnerID: "d"},
	}))

	scores := newFakeScoreRepo()
	svc := NewScoreService(nil, gameRepo, pickRepo, bracketRepo, scores, newFakePoolRepo())

	return &scoreFixture{svc: svc, gameRepo: gameRepo, pickRepo: pickRepo, scores: scores}
}

func ptr[T any](v T) *T { return &v }

func (f *scoreFixture) recordWinner(t *testing.T, gameID, winnerID string) {
	t.Helper()
	game, err := f.gameRepo.GetByID(context.Background(), gameID)
	require.NoError(t, err)
	game.WinnerID = &winnerID
	game.Status = models.GameStatusCompleted
	require.NoError(t, f.gameRepo.UpdateResult(context.Background(), nil, game))
	require.NoError(t, f.svc.ScoreGame(context.Background(), nil, game))
}

func (f *scoreFixture) total(t *testing.T, bracketID string) int {
	t.Helper()
	score, err := f.svc.GetByBracket(context.Background(), bracketID)
	require.NoError(t, err)
	return score.TotalPoints
}

func TestScoreGameAwardsRoundPoints(t *testing.T) {
	f := newScoreFixture(t)

	f.recordWinner(t, "g1", "a")

	assert.Equal(t, 1, f.total(t, "optimist"))
	assert.Equal(t, 0, f.total(t, "contrarian"))
}

func TestScoreGameIsIdempotent(t *testing.T) {
	f := newScoreFixture(t)

	f.recordWinner(t, "g1", "a")
	f.recordWinner(t, "g1", "a")
	f.recordWinner(t, "g1", "a")

	assert.Equal(t, 1, f.total(t, "optimist"))
	assert.Equal(t, 0, f.total(t, "contrarian"))
}

func TestScoreGameLaterRoundsWorthMore(t *testing.T) {
	f := newScoreFixture(t)

	f.recordWinner(t, "g1", "a")
	f.recordWinner(t, "g2", "d")
	f.recordWinner(t, "g3", "a")

	// optimist: g1 (1) + g3 (2); contrarian: g2 (1).
	assert.Equal(t, 3, f.total(t, "optimist"))
	assert.Equal(t, 1, f.total(t, "contrarian"))
}

func TestScoreGameWinnerCorrectionRescores(t *testing.T) {
	f := newScoreFixture(t)

	f.recordWinner(t, "g1", "a")
	assert.Equal(t, 1, f.total(t, "optimist"))

	// Admin corrects the result; the point must move to the other bracket.
	f.recordWinner(t, "g1", "b")
	assert.Equal(t, 0, f.total(t, "optimist"))
	assert.Equal(t, 1, f.total(t, "contrarian"))
}

func TestScoreGameWithoutWinnerIsNoop(t *testing.T) {
	f := newScoreFixture(t)

	game, err := f.gameRepo.GetByID(context.Background(), "g1")
	require.NoError(t, err)
	require.NoError(t, f.svc.ScoreGame(context.Background(), nil, game))

	assert.Equal(t, 0, f.total(t, "optimist"))
	assert.Equal(t, 0, f.total(t, "contrarian"))
}

func TestOnGameResultRecordedMissingGameIsNoop(t *testing.T) {
	f := newScoreFixture(t)

	assert.NoError(t, f.svc.OnGameResultRecorded(context.Background(), "no-such-game"))
}

func TestOnGameResultRecordedWithoutWinnerIsNoop(t *testing.T) {
	f := newScoreFixture(t)

	assert.NoError(t, f.svc.OnGameResultRecorded(context.Background(), "g1"))
}

func TestGetByBracketDefaultsToZero(t *testing.T) {
	f := newScoreFixture(t)

	score, err := f.svc.GetByBracket(context.Background(), "optimist")
	require.NoError(t, err)
	assert.Equal(t, 0, score.TotalPoints)
	assert.Equal(t, "optimist", score.BracketID)
}

func TestGetByBracketUnknownBracket(t *testing.T) {
	f := newScoreFixture(t)

	_, err := f.svc.GetByBracket(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBracketNotFound)
}
