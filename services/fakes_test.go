package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marchpool/bracket-pool/models"
	"github.com/marchpool/bracket-pool/repositories"
	"github.com/stretchr/testify/require"
)

// In-memory repository fakes. Executors are ignored: the fakes are always
// their own storage, which keeps service logic testable without a database.

// stubDriver backs a *sql.DB whose transactions begin, commit and roll back
// as no-ops. Services only use the handle to bracket repository calls, so
// the repository fakes carry the actual state.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func init() {
	sql.Register("servicefakes", stubDriver{})
}

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("servicefakes", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Username == user.Username {
			return repositories.ErrUserUsernameConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

type fakeTournamentRepo struct {
	tournaments map[string]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[string]*models.Tournament)}
}

func (f *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	stored := *t
	f.tournaments[t.ID] = &stored
	return nil
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, id string) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	out := *t
	return &out, nil
}

func (f *fakeTournamentRepo) List(_ context.Context) ([]*models.Tournament, error) {
	out := make([]*models.Tournament, 0, len(f.tournaments))
	for _, t := range f.tournaments {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

type fakeTournamentTeamRepo struct {
	assignments []*models.TournamentTeam
}

func newFakeTournamentTeamRepo() *fakeTournamentTeamRepo {
	return &fakeTournamentTeamRepo{}
}

func (f *fakeTournamentTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, tt *models.TournamentTeam) error {
	for _, existing := range f.assignments {
		if existing.TournamentID == tt.TournamentID && existing.TeamID == tt.TeamID {
			return repositories.ErrTournamentTeamConflict
		}
	}
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	stored := *tt
	f.assignments = append(f.assignments, &stored)
	return nil
}

func (f *fakeTournamentTeamRepo) ListByTournament(_ context.Context, tournamentID string) ([]*models.TournamentTeam, error) {
	out := make([]*models.TournamentTeam, 0)
	for _, tt := range f.assignments {
		if tt.TournamentID == tournamentID {
			c := *tt
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeGameRepo struct {
	games map[string]*models.Game
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{games: make(map[string]*models.Game)}
}

func (f *fakeGameRepo) add(games ...*models.Game) {
	for _, g := range games {
		stored := *g
		f.games[g.ID] = &stored
	}
}

func (f *fakeGameRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, games []*models.Game) error {
	for _, g := range games {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		g.CreatedAt = time.Now()
		stored := *g
		f.games[g.ID] = &stored
	}
	return nil
}

func (f *fakeGameRepo) GetByID(_ context.Context, id string) (*models.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	out := *g
	return &out, nil
}

func (f *fakeGameRepo) ListByTournament(_ context.Context, tournamentID string) ([]*models.Game, error) {
	out := make([]*models.Game, 0)
	for _, g := range f.games {
		if g.TournamentID == tournamentID {
			c := *g
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].GameNumber < out[j].GameNumber
	})
	return out, nil
}

func (f *fakeGameRepo) CountByTournament(_ context.Context, tournamentID string) (int, error) {
	count := 0
	for _, g := range f.games {
		if g.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeGameRepo) FirstRoundOpener(ctx context.Context, _ repositories.SQLExecutor, tournamentID string) (*models.Game, error) {
	games, _ := f.ListByTournament(ctx, tournamentID)
	for _, g := range games {
		if g.Round == 1 {
			return g, nil
		}
	}
	return nil, repositories.ErrGameNotFound
}

func (f *fakeGameRepo) ChildGame(_ context.Context, _ repositories.SQLExecutor, parentGameID string) (*models.Game, error) {
	for _, g := range f.games {
		if (g.ParentGame1ID != nil && *g.ParentGame1ID == parentGameID) ||
			(g.ParentGame2ID != nil && *g.ParentGame2ID == parentGameID) {
			out := *g
			return &out, nil
		}
	}
	return nil, repositories.ErrGameNotFound
}

func (f *fakeGameRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, game *models.Game) error {
	stored, ok := f.games[game.ID]
	if !ok {
		return repositories.ErrGameNotFound
	}
	stored.WinnerID = game.WinnerID
	stored.ScoreTeam1 = game.ScoreTeam1
	stored.ScoreTeam2 = game.ScoreTeam2
	stored.Status = game.Status
	stored.GameDate = game.GameDate
	return nil
}

func (f *fakeGameRepo) UpdateTeamSlots(_ context.Context, _ repositories.SQLExecutor, game *models.Game) error {
	stored, ok := f.games[game.ID]
	if !ok {
		return repositories.ErrGameNotFound
	}
	stored.Team1ID = game.Team1ID
	stored.Team2ID = game.Team2ID
	return nil
}

type fakePoolRepo struct {
	pools map[string]*models.Pool
}

func newFakePoolRepo() *fakePoolRepo {
	return &fakePoolRepo{pools: make(map[string]*models.Pool)}
}

func (f *fakePoolRepo) Create(_ context.Context, pool *models.Pool) error {
	for _, p := range f.pools {
		if p.InviteCode == pool.InviteCode {
			return repositories.ErrPoolInviteCodeConflict
		}
	}
	if pool.ID == "" {
		pool.ID = uuid.NewString()
	}
	pool.CreatedAt = time.Now()
	stored := *pool
	f.pools[pool.ID] = &stored
	return nil
}

func (f *fakePoolRepo) GetByID(_ context.Context, id string) (*models.Pool, error) {
	p, ok := f.pools[id]
	if !ok {
		return nil, repositories.ErrPoolNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakePoolRepo) GetByInviteCode(_ context.Context, inviteCode string) (*models.Pool, error) {
	for _, p := range f.pools {
		if p.InviteCode == inviteCode {
			out := *p
			return &out, nil
		}
	}
	return nil, repositories.ErrPoolNotFound
}

func (f *fakePoolRepo) ListByMember(_ context.Context, _ string) ([]*models.Pool, error) {
	out := make([]*models.Pool, 0, len(f.pools))
	for _, p := range f.pools {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

type fakePoolMemberRepo struct {
	members map[string]*models.PoolMember
}

func newFakePoolMemberRepo() *fakePoolMemberRepo {
	return &fakePoolMemberRepo{members: make(map[string]*models.PoolMember)}
}

func (f *fakePoolMemberRepo) Create(_ context.Context, member *models.PoolMember) error {
	for _, m := range f.members {
		if m.PoolID == member.PoolID && m.UserID == member.UserID {
			return repositories.ErrPoolMemberConflict
		}
	}
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	member.JoinedAt = time.Now()
	stored := *member
	f.members[member.ID] = &stored
	return nil
}

func (f *fakePoolMemberRepo) FindByPoolAndUser(_ context.Context, poolID, userID string) (*models.PoolMember, error) {
	for _, m := range f.members {
		if m.PoolID == poolID && m.UserID == userID {
			out := *m
			return &out, nil
		}
	}
	return nil, repositories.ErrPoolMemberNotFound
}

func (f *fakePoolMemberRepo) ListByPool(_ context.Context, poolID string) ([]*models.PoolMember, error) {
	out := make([]*models.PoolMember, 0)
	for _, m := range f.members {
		if m.PoolID == poolID {
			c := *m
			c.User = &models.User{ID: m.UserID, Username: "user-" + m.UserID}
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakePoolMemberRepo) UpdateStatus(_ context.Context, id string, status models.PoolMemberStatus) error {
	m, ok := f.members[id]
	if !ok {
		return repositories.ErrPoolMemberNotFound
	}
	m.Status = status
	if status == models.PoolMemberLeft {
		now := time.Now()
		m.LeftAt = &now
	} else {
		m.LeftAt = nil
	}
	return nil
}

type fakeBracketRepo struct {
	brackets map[string]*models.Bracket
	seq      int
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{brackets: make(map[string]*models.Bracket)}
}

func (f *fakeBracketRepo) Create(_ context.Context, _ repositories.SQLExecutor, bracket *models.Bracket) error {
	for _, b := range f.brackets {
		if b.UserID == bracket.UserID && b.PoolID == bracket.PoolID {
			return repositories.ErrBracketConflict
		}
	}
	if bracket.ID == "" {
		bracket.ID = uuid.NewString()
	}
	f.seq++
	bracket.CreatedAt = time.Unix(int64(f.seq), 0)
	stored := *bracket
	f.brackets[bracket.ID] = &stored
	return nil
}

func (f *fakeBracketRepo) GetByID(_ context.Context, id string) (*models.Bracket, error) {
	b, ok := f.brackets[id]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	out := *b
	return &out, nil
}

func (f *fakeBracketRepo) sorted(filter func(*models.Bracket) bool) []*models.Bracket {
	out := make([]*models.Bracket, 0)
	for _, b := range f.brackets {
		if filter(b) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *fakeBracketRepo) ListByUser(_ context.Context, userID string) ([]*models.Bracket, error) {
	return f.sorted(func(b *models.Bracket) bool { return b.UserID == userID }), nil
}

func (f *fakeBracketRepo) ListByPool(_ context.Context, poolID string) ([]*models.Bracket, error) {
	return f.sorted(func(b *models.Bracket) bool { return b.PoolID == poolID }), nil
}

func (f *fakeBracketRepo) ListAll(_ context.Context) ([]*models.Bracket, error) {
	return f.sorted(func(*models.Bracket) bool { return true }), nil
}

func (f *fakeBracketRepo) UpdateName(_ context.Context, _ repositories.SQLExecutor, id, name string) error {
	b, ok := f.brackets[id]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	b.Name = name
	return nil
}

func (f *fakeBracketRepo) UpdateLockedAt(_ context.Context, id string, lockedAt *time.Time) error {
	b, ok := f.brackets[id]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	b.LockedAt = lockedAt
	return nil
}

func (f *fakeBracketRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.brackets[id]; !ok {
		return repositories.ErrBracketNotFound
	}
	delete(f.brackets, id)
	return nil
}

type fakePickRepo struct {
	picks map[string]*models.Pick
	games *fakeGameRepo
}

func newFakePickRepo(games *fakeGameRepo) *fakePickRepo {
	return &fakePickRepo{picks: make(map[string]*models.Pick), games: games}
}

func (f *fakePickRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, picks []*models.Pick) error {
	for _, p := range picks {
		for _, existing := range f.picks {
			if existing.BracketID == p.BracketID && existing.GameID == p.GameID {
				return repositories.ErrPickConflict
			}
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		stored := *p
		f.picks[p.ID] = &stored
	}
	return nil
}

func (f *fakePickRepo) ReplaceForBracket(ctx context.Context, exec repositories.SQLExecutor, bracketID string, picks []*models.Pick) error {
	for id, p := range f.picks {
		if p.BracketID == bracketID {
			delete(f.picks, id)
		}
	}
	return f.CreateBatch(ctx, exec, picks)
}

func (f *fakePickRepo) ListByBracket(_ context.Context, _ repositories.SQLExecutor, bracketID string) ([]*models.Pick, error) {
	out := make([]*models.Pick, 0)
	for _, p := range f.picks {
		if p.BracketID == bracketID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakePickRepo) ListByBracketWithGames(ctx context.Context, bracketID string) ([]*models.Pick, error) {
	picks, _ := f.ListByBracket(ctx, nil, bracketID)
	for _, p := range picks {
		if g, err := f.games.GetByID(ctx, p.GameID); err == nil {
			p.Game = g
		}
	}
	sort.Slice(picks, func(i, j int) bool {
		return picks[i].Game.GameNumber < picks[j].Game.GameNumber
	})
	return picks, nil
}

func (f *fakePickRepo) ListByGame(_ context.Context, _ repositories.SQLExecutor, gameID string) ([]*models.Pick, error) {
	out := make([]*models.Pick, 0)
	for _, p := range f.picks {
		if p.GameID == gameID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakePickRepo) UpdatePoints(_ context.Context, _ repositories.SQLExecutor, id string, points int) error {
	p, ok := f.picks[id]
	if !ok {
		return repositories.ErrPickNotFound
	}
	p.PointsEarned = points
	return nil
}

type fakeScoreRepo struct {
	scores map[string]*models.Score
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{scores: make(map[string]*models.Score)}
}

func (f *fakeScoreRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, bracketID string, totalPoints int) error {
	s, ok := f.scores[bracketID]
	if !ok {
		s = &models.Score{ID: uuid.NewString(), BracketID: bracketID}
		f.scores[bracketID] = s
	}
	s.TotalPoints = totalPoints
	s.LastUpdated = time.Now()
	return nil
}

func (f *fakeScoreRepo) GetByBracket(_ context.Context, bracketID string) (*models.Score, error) {
	s, ok := f.scores[bracketID]
	if !ok {
		return nil, repositories.ErrScoreNotFound
	}
	out := *s
	return &out, nil
}

func (f *fakeScoreRepo) ListByBrackets(_ context.Context, bracketIDs []string) ([]*models.Score, error) {
	out := make([]*models.Score, 0)
	for _, id := range bracketIDs {
		if s, ok := f.scores[id]; ok {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}
