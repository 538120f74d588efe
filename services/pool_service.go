package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/marchpool/bracket-pool/models"
	"github.com/marchpool/bracket-pool/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLength   = 8
	inviteCodeMaxTries = 5
)

type PoolService interface {
	Create(ctx context.Context, creatorID string, input CreatePoolInput) (*models.Pool, error)
	GetByID(ctx context.Context, callerID, poolID string) (*models.Pool, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Pool, error)
	JoinByInviteCode(ctx context.Context, userID, inviteCode string) (*models.Pool, error)
	// AddMember enrolls a user directly, bypassing the invite code. Creator
	// only.
	AddMember(ctx context.Context, callerID, poolID, userID string) (*models.PoolMember, error)
	// RemoveMember marks a membership as left. The creator can remove anyone;
	// everyone can remove themselves.
	RemoveMember(ctx context.Context, callerID, poolID, userID string) error
	Leave(ctx context.Context, userID, poolID string) error
	// Leaderboard ranks the pool's brackets by total points. Ties share a
	// rank; among tied brackets the earlier submission lists first.
	Leaderboard(ctx context.Context, callerID, poolID string) ([]*models.LeaderboardEntry, error)
}

type CreatePoolInput struct {
	Name         string `json:"name"`
	TournamentID string `json:"tournament_id"`
}

type poolService struct {
	db             *sql.DB
	poolRepo       repositories.PoolRepository
	memberRepo     repositories.PoolMemberRepository
	bracketRepo    repositories.BracketRepository
	scoreRepo      repositories.ScoreRepository
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
}

func NewPoolService(
	db *sql.DB,
	poolRepo repositories.PoolRepository,
	memberRepo repositories.PoolMemberRepository,
	bracketRepo repositories.BracketRepository,
	scoreRepo repositories.ScoreRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
) PoolService {
	return &poolService{
		db:             db,
		poolRepo:       poolRepo,
		memberRepo:     memberRepo,
		bracketRepo:    bracketRepo,
		scoreRepo:      scoreRepo,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
	}
}

func (s *poolService) Create(ctx context.Context, creatorID string, input CreatePoolInput) (*models.Pool, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, input.TournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", input.TournamentID, err)
	}

	pool := &models.Pool{
		Name:         input.Name,
		TournamentID: input.TournamentID,
		CreatorID:    creatorID,
	}

	// The code space is 36^8; a collision retry is a formality.
	var err error
	for attempt := 0; attempt < inviteCodeMaxTries; attempt++ {
		pool.InviteCode, err = generateInviteCode()
		if err != nil {
			return nil, err
		}
		err = s.poolRepo.Create(ctx, pool)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrPoolInviteCodeConflict) {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
		pool.ID = ""
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	member := &models.PoolMember{
		PoolID: pool.ID,
		UserID: creatorID,
		Status: models.PoolMemberActive,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add creator to pool: %w", err)
	}

	return pool, nil
}

func (s *poolService) GetByID(ctx context.Context, callerID, poolID string) (*models.Pool, error) {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveMember(ctx, pool.ID, callerID); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tournament, err := s.tournamentRepo.GetByID(gctx, pool.TournamentID)
		if err != nil {
			return fmt.Errorf("failed to get tournament %s: %w", pool.TournamentID, err)
		}
		pool.Tournament = tournament
		return nil
	})
	g.Go(func() error {
		creator, err := s.userRepo.GetByID(gctx, pool.CreatorID)
		if err != nil {
			return fmt.Errorf("failed to get creator %s: %w", pool.CreatorID, err)
		}
		creator.PasswordHash = ""
		pool.Creator = creator
		return nil
	})
	g.Go(func() error {
		members, err := s.memberRepo.ListByPool(gctx, pool.ID)
		if err != nil {
			return fmt.Errorf("failed to list pool members: %w", err)
		}
		pool.Members = dereferenceMembers(members)
		return nil
	})
	g.Go(func() error {
		list, err := s.bracketRepo.ListByPool(gctx, pool.ID)
		if err != nil {
			return fmt.Errorf("failed to list pool brackets: %w", err)
		}
		pool.Brackets = dereferenceBrackets(list)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *poolService) ListForUser(ctx context.Context, userID string) ([]*models.Pool, error) {
	pools, err := s.poolRepo.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools for user %s: %w", userID, err)
	}
	return pools, nil
}

func (s *poolService) JoinByInviteCode(ctx context.Context, userID, inviteCode string) (*models.Pool, error) {
	pool, err := s.poolRepo.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, repositories.ErrPoolNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to find pool by invite code: %w", err)
	}

	if _, err := s.enrollMember(ctx, pool.ID, userID); err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *poolService) AddMember(ctx context.Context, callerID, poolID, userID string) (*models.PoolMember, error) {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool.CreatorID != callerID {
		return nil, ErrNotPoolCreator
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	return s.enrollMember(ctx, pool.ID, userID)
}

// enrollMember makes a user an active member, reactivating a left membership
// through its original row instead of duplicating it.
func (s *poolService) enrollMember(ctx context.Context, poolID, userID string) (*models.PoolMember, error) {
	existing, err := s.memberRepo.FindByPoolAndUser(ctx, poolID, userID)
	switch {
	case err == nil:
		if existing.Status == models.PoolMemberActive {
			return nil, ErrAlreadyMember
		}
		if err := s.memberRepo.UpdateStatus(ctx, existing.ID, models.PoolMemberActive); err != nil {
			return nil, fmt.Errorf("failed to reactivate pool membership: %w", err)
		}
		existing.Status = models.PoolMemberActive
		existing.LeftAt = nil
		return existing, nil
	case errors.Is(err, repositories.ErrPoolMemberNotFound):
		member := &models.PoolMember{
			PoolID: poolID,
			UserID: userID,
			Status: models.PoolMemberActive,
		}
		if err := s.memberRepo.Create(ctx, member); err != nil {
			if errors.Is(err, repositories.ErrPoolMemberConflict) {
				return nil, ErrAlreadyMember
			}
			return nil, fmt.Errorf("failed to join pool: %w", err)
		}
		return member, nil
	default:
		return nil, fmt.Errorf("failed to check pool membership: %w", err)
	}
}

func (s *poolService) RemoveMember(ctx context.Context, callerID, poolID, userID string) error {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return err
	}
	if callerID != userID && pool.CreatorID != callerID {
		return ErrNotPoolCreator
	}

	member, err := s.memberRepo.FindByPoolAndUser(ctx, poolID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrPoolMemberNotFound) {
			return ErrNotAMember
		}
		return fmt.Errorf("failed to check pool membership: %w", err)
	}
	if member.Status != models.PoolMemberActive {
		return ErrNotAMember
	}

	if err := s.memberRepo.UpdateStatus(ctx, member.ID, models.PoolMemberLeft); err != nil {
		return fmt.Errorf("failed to leave pool: %w", err)
	}
	return nil
}

func (s *poolService) Leave(ctx context.Context, userID, poolID string) error {
	return s.RemoveMember(ctx, userID, poolID, userID)
}

func (s *poolService) Leaderboard(ctx context.Context, callerID, poolID string) ([]*models.LeaderboardEntry, error) {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveMember(ctx, pool.ID, callerID); err != nil {
		return nil, err
	}

	// ListByPool orders by created_at then id; the stable sort below keeps
	// that order inside every points group, which is the tie-break.
	list, err := s.bracketRepo.ListByPool(ctx, pool.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool brackets: %w", err)
	}

	ids := make([]string, 0, len(list))
	for _, b := range list {
		ids = append(ids, b.ID)
	}
	scores, err := s.scoreRepo.ListByBrackets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	pointsByBracket := make(map[string]int, len(scores))
	for _, sc := range scores {
		pointsByBracket[sc.BracketID] = sc.TotalPoints
	}

	members, err := s.memberRepo.ListByPool(ctx, pool.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool members: %w", err)
	}
	usersByID := make(map[string]*models.User, len(members))
	for _, m := range members {
		usersByID[m.UserID] = m.User
	}

	entries := make([]*models.LeaderboardEntry, 0, len(list))
	for _, b := range list {
		b.User = usersByID[b.UserID]
		entries = append(entries, &models.LeaderboardEntry{
			Bracket:     *b,
			TotalPoints: pointsByBracket[b.ID],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalPoints > entries[j].TotalPoints
	})

	for i, e := range entries {
		if i > 0 && e.TotalPoints == entries[i-1].TotalPoints {
			e.Rank = entries[i-1].Rank
			continue
		}
		e.Rank = i + 1
	}

	return entries, nil
}

func (s *poolService) loadPool(ctx context.Context, poolID string) (*models.Pool, error) {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		if errors.Is(err, repositories.ErrPoolNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool %s: %w", poolID, err)
	}
	return pool, nil
}

func (s *poolService) requireActiveMember(ctx context.Context, poolID, userID string) error {
	member, err := s.memberRepo.FindByPoolAndUser(ctx, poolID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrPoolMemberNotFound) {
			return ErrNotAMember
		}
		return fmt.Errorf("failed to check pool membership: %w", err)
	}
	if member.Status != models.PoolMemberActive {
		return ErrNotAMember
	}
	return nil
}

func generateInviteCode() (string, error) {
	b := make([]byte, inviteCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	for i, rb := range b {
		b[i] = inviteCodeAlphabet[int(rb)%len(inviteCodeAlphabet)]
	}
	return string(b), nil
}

func dereferenceMembers(members []*models.PoolMember) []models.PoolMember {
	out := make([]models.PoolMember, 0, len(members))
	for _, m := range members {
		out = append(out, *m)
	}
	return out
}

func dereferenceBrackets(list []*models.Bracket) []models.Bracket {
	out := make([]models.Bracket, 0, len(list))
	for _, b := range list {
		out = append(out, *b)
	}
	return out
}
