package services

import (
	"context"
	"testing"
	"time"

	"github.com/marchpool/bracket-pool/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolFixture struct {
	svc         PoolService
	poolRepo    *fakePoolRepo
	memberRepo  *fakePoolMemberRepo
	bracketRepo *fakeBracketRepo
	scoreRepo   *fakeScoreRepo
	userRepo    *fakeUserRepo
}

func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()
	ctx := context.Background()

	tournamentRepo := newFakeTournamentRepo()
	require.NoError(t, tournamentRepo.Create(ctx, &models.Tournament{ID: "t1", Name: "March Madness", StartDate: time.Now().Add(48 * time.Hour)}))

	userRepo := newFakeUserRepo()
	require.NoError(t, userRepo.Create(ctx, &models.User{ID: "creator", Username: "creator", Role: models.RolePlayer}))

	poolRepo := newFakePoolRepo()
	memberRepo := newFakePoolMemberRepo()
	bracketRepo := newFakeBracketRepo()
	scoreRepo := newFakeScoreRepo()

	svc := NewPoolService(nil, poolRepo, memberRepo, bracketRepo, scoreRepo, tournamentRepo, userRepo)

	return &poolFixture{
		svc:         svc,
		poolRepo:    poolRepo,
		memberRepo:  memberRepo,
		bracketRepo: bracketRepo,
		scoreRepo:   scoreRepo,
		userRepo:    userRepo,
	}
}

func TestCreatePool(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	pool, err := f.svc.Create(ctx, "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "t1"})
	require.NoError(t, err)
	assert.NotEmpty(t, pool.ID)
	assert.Len(t, pool.InviteCode, 8)
	for _, c := range pool.InviteCode {
		assert.Contains(t, inviteCodeAlphabet, string(c))
	}

	// Creating a pool makes the creator its first active member.
	member, err := f.memberRepo.FindByPoolAndUser(ctx, pool.ID, "creator")
	require.NoError(t, err)
	assert.Equal(t, models.PoolMemberActive, member.Status)
}

func TestCreatePoolUnknownTournament(t *testing.T) {
	f := newPoolFixture(t)

	_, err := f.svc.Create(context.Background(), "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "nope"})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestJoinByInviteCode(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	pool, err := f.svc.Create(ctx, "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "t1"})
	require.NoError(t, err)

	joined, err := f.svc.JoinByInviteCode(ctx, "friend", pool.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, pool.ID, joined.ID)

	_, err = f.svc.JoinByInviteCode(ctx, "friend", pool.InviteCode)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.svc.JoinByInviteCode(ctx, "friend", "WRONGCOD")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestLeaveAndRejoinPool(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	pool, err := f.svc.Create(ctx, "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "t1"})
	require.NoError(t, err)

	_, err = f.svc.JoinByInviteCode(ctx, "friend", pool.InviteCode)
	require.NoError(t, err)

	require.NoError(t, f.svc.Leave(ctx, "friend", pool.ID))
	member, err := f.memberRepo.FindByPoolAndUser(ctx, pool.ID, "friend")
	require.NoError(t, err)
	assert.Equal(t, models.PoolMemberLeft, member.Status)
	assert.NotNil(t, member.LeftAt)

	// Leaving twice is not a membership.
	assert.ErrorIs(t, f.svc.Leave(ctx, "friend", pool.ID), ErrNotAMember)
	assert.ErrorIs(t, f.svc.Leave(ctx, "stranger", pool.ID), ErrNotAMember)

	// Rejoining reactivates the old row instead of duplicating it.
	_, err = f.svc.JoinByInviteCode(ctx, "friend", pool.InviteCode)
	require.NoError(t, err)
	member, err = f.memberRepo.FindByPoolAndUser(ctx, pool.ID, "friend")
	require.NoError(t, err)
	assert.Equal(t, models.PoolMemberActive, member.Status)
	assert.Nil(t, member.LeftAt)
}

func TestAddMemberCreatorOnly(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	require.NoError(t, f.userRepo.Create(ctx, &models.User{ID: "friend", Username: "friend", Role: models.RolePlayer}))
	pool, err := f.svc.Create(ctx, "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "t1"})
	require.NoError(t, err)

	member, err := f.svc.AddMember(ctx, "creator", pool.ID, "friend")
	require.NoError(t, err)
	assert.Equal(t, models.PoolMemberActive, member.Status)

	_, err = f.svc.AddMember(ctx, "creator", pool.ID, "friend")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.svc.AddMember(ctx, "friend", pool.ID, "creator")
	assert.ErrorIs(t, err, ErrNotPoolCreator)

	_, err = f.svc.AddMember(ctx, "creator", pool.ID, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRemoveMember(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	pool, err := f.svc.Create(ctx, "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "t1"})
	require.NoError(t, err)
	_, err = f.svc.JoinByInviteCode(ctx, "friend", pool.InviteCode)
	require.NoError(t, err)

	// Only the creator may remove someone else.
	assert.ErrorIs(t, f.svc.RemoveMember(ctx, "friend", pool.ID, "creator"), ErrNotPoolCreator)

	require.NoError(t, f.svc.RemoveMember(ctx, "creator", pool.ID, "friend"))
	member, err := f.memberRepo.FindByPoolAndUser(ctx, pool.ID, "friend")
	require.NoError(t, err)
	assert.Equal(t, models.PoolMemberLeft, member.Status)

	assert.ErrorIs(t, f.svc.RemoveMember(ctx, "creator", pool.ID, "friend"), ErrNotAMember)
}

func TestGetPoolAggregatesDetail(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	pool, err := f.svc.Create(ctx, "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "t1"})
	require.NoError(t, err)
	require.NoError(t, f.bracketRepo.Create(ctx, nil, &models.Bracket{ID: "b1", UserID: "creator", PoolID: pool.ID}))

	got, err := f.svc.GetByID(ctx, "creator", pool.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Tournament)
	assert.Equal(t, "March Madness", got.Tournament.Name)
	require.NotNil(t, got.Creator)
	assert.Empty(t, got.Creator.PasswordHash)
	assert.Len(t, got.Members, 1)
	assert.Len(t, got.Brackets, 1)

	_, err = f.svc.GetByID(ctx, "stranger", pool.ID)
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestLeaderboardOrderingAndTies(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	pool, err := f.svc.Create(ctx, "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "t1"})
	require.NoError(t, err)
	for _, u := range []string{"u1", "u2", "u3"} {
		_, err := f.svc.JoinByInviteCode(ctx, u, pool.InviteCode)
		require.NoError(t, err)
	}

	// Created in order b1, b2, b3; b1 and b3 tie on points.
	require.NoError(t, f.bracketRepo.Create(ctx, nil, &models.Bracket{ID: "b1", UserID: "u1", PoolID: pool.ID}))
	require.NoError(t, f.bracketRepo.Create(ctx, nil, &models.Bracket{ID: "b2", UserID: "u2", PoolID: pool.ID}))
	require.NoError(t, f.bracketRepo.Create(ctx, nil, &models.Bracket{ID: "b3", UserID: "u3", PoolID: pool.ID}))
	require.NoError(t, f.bracketRepo.Create(ctx, nil, &models.Bracket{ID: "b4", UserID: "creator", PoolID: pool.ID}))
	require.NoError(t, f.scoreRepo.Upsert(ctx, nil, "b1", 4))
	require.NoError(t, f.scoreRepo.Upsert(ctx, nil, "b2", 7))
	require.NoError(t, f.scoreRepo.Upsert(ctx, nil, "b3", 4))

	entries, err := f.svc.Leaderboard(ctx, "u1", pool.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, "b2", entries[0].Bracket.ID)
	assert.Equal(t, 7, entries[0].TotalPoints)
	assert.Equal(t, 1, entries[0].Rank)

	// Tied brackets share a rank; the earlier submission lists first.
	assert.Equal(t, "b1", entries[1].Bracket.ID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "b3", entries[2].Bracket.ID)
	assert.Equal(t, 2, entries[2].Rank)

	// The creator's scoreless bracket trails with zero points.
	assert.Equal(t, "b4", entries[3].Bracket.ID)
	assert.Equal(t, 0, entries[3].TotalPoints)
	assert.Equal(t, 4, entries[3].Rank)
}

func TestLeaderboardRequiresMembership(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	pool, err := f.svc.Create(ctx, "creator", CreatePoolInput{Name: "Office Pool", TournamentID: "t1"})
	require.NoError(t, err)

	_, err = f.svc.Leaderboard(ctx, "stranger", pool.ID)
	assert.ErrorIs(t, err, ErrNotAMember)

	_, err = f.svc.Leaderboard(ctx, "creator", "no-such-pool")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}
