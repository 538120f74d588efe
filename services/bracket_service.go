package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marchpool/bracket-pool/brackets"
	"github.com/marchpool/bracket-pool/models"
	"github.com/marchpool/bracket-pool/repositories"
)

var ErrNoGamesGenerated = errors.New("tournament games have not been generated yet")

type BracketService interface {
	// Create submits a complete bracket: one pick per game, validated as a
	// whole, rejected once the tournament has started.
	Create(ctx context.Context, userID string, input CreateBracketInput) (*models.Bracket, error)
	GetByID(ctx context.Context, callerID, bracketID string) (*models.Bracket, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Bracket, error)
	// Update replaces the bracket's pick set with the submitted one. Picks
	// run through the same validation as creation.
	Update(ctx context.Context, userID, bracketID string, input UpdateBracketInput) (*models.Bracket, error)
	Delete(ctx context.Context, userID, bracketID string) error
	// SetLock applies or clears the administrator lock override. A bracket
	// carrying the override is locked regardless of the tournament's state.
	SetLock(ctx context.Context, bracketID string, locked bool) (*models.Bracket, error)
}

type CreateBracketInput struct {
	PoolID string                  `json:"pool_id"`
	Name   string                  `json:"name"`
	Picks  []brackets.ProposedPick `json:"picks"`
}

type UpdateBracketInput struct {
	Name  *string                 `json:"name"`
	Picks []brackets.ProposedPick `json:"picks"`
}

type bracketService struct {
	db                 *sql.DB
	bracketRepo        repositories.BracketRepository
	pickRepo           repositories.PickRepository
	gameRepo           repositories.GameRepository
	poolRepo           repositories.PoolRepository
	memberRepo         repositories.PoolMemberRepository
	tournamentTeamRepo repositories.TournamentTeamRepository
}

func NewBracketService(
	db *sql.DB,
	bracketRepo repositories.BracketRepository,
	pickRepo repositories.PickRepository,
	gameRepo repositories.GameRepository,
	poolRepo repositories.PoolRepository,
	memberRepo repositories.PoolMemberRepository,
	tournamentTeamRepo repositories.TournamentTeamRepository,
) BracketService {
	return &bracketService{
		db:                 db,
		bracketRepo:        bracketRepo,
		pickRepo:           pickRepo,
		gameRepo:           gameRepo,
		poolRepo:           poolRepo,
		memberRepo:         memberRepo,
		tournamentTeamRepo: tournamentTeamRepo,
	}
}

func (s *bracketService) Create(ctx context.Context, userID string, input CreateBracketInput) (*models.Bracket, error) {
	pool, err := s.poolRepo.GetByID(ctx, input.PoolID)
	if err != nil {
		if errors.Is(err, repositories.ErrPoolNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool %s: %w", input.PoolID, err)
	}

	if err := s.requireActiveMember(ctx, pool.ID, userID); err != nil {
		return nil, err
	}

	games, err := s.gameRepo.ListByTournament(ctx, pool.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament games: %w", err)
	}
	if len(games) == 0 {
		return nil, ErrNoGamesGenerated
	}

	now := time.Now()
	if tournamentStarted(firstRoundOpener(games), now) {
		return nil, ErrBracketLocked
	}

	if err := brackets.ValidatePicks(games, input.Picks, true); err != nil {
		return nil, mapPickValidationError(err)
	}

	bracket := &models.Bracket{
		UserID: userID,
		PoolID: pool.ID,
		Name:   input.Name,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.bracketRepo.Create(ctx, tx, bracket); err != nil {
		if errors.Is(err, repositories.ErrBracketConflict) {
			return nil, ErrBracketConflict
		}
		return nil, fmt.Errorf("failed to create bracket: %w", err)
	}

	picks := make([]*models.Pick, 0, len(input.Picks))
	for _, p := range input.Picks {
		picks = append(picks, &models.Pick{
			BracketID:         bracket.ID,
			GameID:            p.GameID,
			PredictedWinnerID: p.PredictedWinnerID,
		})
	}
	if err := s.pickRepo.CreateBatch(ctx, tx, picks); err != nil {
		if errors.Is(err, repositories.ErrPickInvalidRef) {
			return nil, ErrInvalidReference
		}
		return nil, fmt.Errorf("failed to create picks: %w", err)
	}

	// The pre-check above raced against the opener tipping over; re-read it
	// inside the transaction so a bracket can never commit after the start.
	opener, err := s.gameRepo.FirstRoundOpener(ctx, tx, pool.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check tournament start: %w", err)
	}
	if tournamentStarted(opener, time.Now()) {
		return nil, ErrBracketLocked
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket: %w", err)
	}

	bracket.Picks = dereferencePicks(picks)
	return bracket, nil
}

func (s *bracketService) GetByID(ctx context.Context, callerID, bracketID string) (*models.Bracket, error) {
	bracket, err := s.loadBracket(ctx, bracketID)
	if err != nil {
		return nil, err
	}

	if bracket.UserID != callerID {
		if err := s.requireActiveMember(ctx, bracket.PoolID, callerID); err != nil {
			return nil, err
		}
	}

	pool, err := s.poolRepo.GetByID(ctx, bracket.PoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool %s: %w", bracket.PoolID, err)
	}

	picks, err := s.pickRepo.ListByBracketWithGames(ctx, bracket.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for bracket %s: %w", bracket.ID, err)
	}
	bracket.Picks = dereferencePicks(picks)

	assignments, err := s.tournamentTeamRepo.ListByTournament(ctx, pool.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament teams: %w", err)
	}
	attachSeedAssignments(bracket.Picks, assignments)

	opener, err := s.openerForTournament(ctx, pool.TournamentID)
	if err != nil {
		return nil, err
	}
	bracket.IsLocked = bracketLocked(bracket, opener, time.Now())

	return bracket, nil
}

func (s *bracketService) ListByUser(ctx context.Context, userID string) ([]*models.Bracket, error) {
	list, err := s.bracketRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list brackets for user %s: %w", userID, err)
	}
	return list, nil
}

func (s *bracketService) Update(ctx context.Context, userID, bracketID string, input UpdateBracketInput) (*models.Bracket, error) {
	bracket, err := s.loadBracket(ctx, bracketID)
	if err != nil {
		return nil, err
	}
	if bracket.UserID != userID {
		return nil, ErrNotOwner
	}

	pool, err := s.poolRepo.GetByID(ctx, bracket.PoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool %s: %w", bracket.PoolID, err)
	}

	now := time.Now()
	opener, err := s.openerForTournament(ctx, pool.TournamentID)
	if err != nil {
		return nil, err
	}
	if bracketLocked(bracket, opener, now) {
		return nil, ErrBracketLocked
	}

	var games []*models.Game
	if input.Picks != nil {
		games, err = s.gameRepo.ListByTournament(ctx, pool.TournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list tournament games: %w", err)
		}
		if err := brackets.ValidatePicks(games, input.Picks, true); err != nil {
			return nil, mapPickValidationError(err)
		}
		gamesByID := make(map[string]*models.Game, len(games))
		for _, g := range games {
			gamesByID[g.ID] = g
		}
		for _, p := range input.Picks {
			if gameStarted(gamesByID[p.GameID], now) {
				return nil, ErrGameAlreadyStarted
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if input.Name != nil && *input.Name != bracket.Name {
		if err := s.bracketRepo.UpdateName(ctx, tx, bracket.ID, *input.Name); err != nil {
			return nil, fmt.Errorf("failed to rename bracket: %w", err)
		}
		bracket.Name = *input.Name
	}

	if input.Picks != nil {
		picks := make([]*models.Pick, 0, len(input.Picks))
		for _, p := range input.Picks {
			picks = append(picks, &models.Pick{
				BracketID:         bracket.ID,
				GameID:            p.GameID,
				PredictedWinnerID: p.PredictedWinnerID,
			})
		}
		if err := s.pickRepo.ReplaceForBracket(ctx, tx, bracket.ID, picks); err != nil {
			if errors.Is(err, repositories.ErrPickInvalidRef) {
				return nil, ErrInvalidReference
			}
			return nil, fmt.Errorf("failed to replace picks: %w", err)
		}

		// Same race as creation: re-check the opener inside the transaction.
		opener, err = s.gameRepo.FirstRoundOpener(ctx, tx, pool.TournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-check tournament start: %w", err)
		}
		if bracketLocked(bracket, opener, time.Now()) {
			return nil, ErrBracketLocked
		}

		bracket.Picks = dereferencePicks(picks)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket update: %w", err)
	}
	return bracket, nil
}

func (s *bracketService) Delete(ctx context.Context, userID, bracketID string) error {
	bracket, err := s.loadBracket(ctx, bracketID)
	if err != nil {
		return err
	}
	if bracket.UserID != userID {
		return ErrNotOwner
	}

	pool, err := s.poolRepo.GetByID(ctx, bracket.PoolID)
	if err != nil {
		return fmt.Errorf("failed to get pool %s: %w", bracket.PoolID, err)
	}
	opener, err := s.openerForTournament(ctx, pool.TournamentID)
	if err != nil {
		return err
	}
	if bracketLocked(bracket, opener, time.Now()) {
		return ErrBracketLocked
	}

	if err := s.bracketRepo.Delete(ctx, bracketID); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return ErrBracketNotFound
		}
		return fmt.Errorf("failed to delete bracket %s: %w", bracketID, err)
	}
	return nil
}

func (s *bracketService) SetLock(ctx context.Context, bracketID string, locked bool) (*models.Bracket, error) {
	bracket, err := s.loadBracket(ctx, bracketID)
	if err != nil {
		return nil, err
	}

	var lockedAt *time.Time
	if locked {
		now := time.Now()
		lockedAt = &now
	}
	if err := s.bracketRepo.UpdateLockedAt(ctx, bracketID, lockedAt); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to update lock for bracket %s: %w", bracketID, err)
	}
	bracket.LockedAt = lockedAt

	pool, err := s.poolRepo.GetByID(ctx, bracket.PoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool %s: %w", bracket.PoolID, err)
	}
	opener, err := s.openerForTournament(ctx, pool.TournamentID)
	if err != nil {
		return nil, err
	}
	bracket.IsLocked = bracketLocked(bracket, opener, time.Now())

	return bracket, nil
}

func (s *bracketService) loadBracket(ctx context.Context, bracketID string) (*models.Bracket, error) {
	bracket, err := s.bracketRepo.GetByID(ctx, bracketID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to get bracket %s: %w", bracketID, err)
	}
	return bracket, nil
}

func (s *bracketService) requireActiveMember(ctx context.Context, poolID, userID string) error {
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

// openerForTournament tolerates a tournament without games: no opener means
// nothing can have started, so nothing is implicitly locked.
func (s *bracketService) openerForTournament(ctx context.Context, tournamentID string) (*models.Game, error) {
	opener, err := s.gameRepo.FirstRoundOpener(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load opening game: %w", err)
	}
	return opener, nil
}

// firstRoundOpener finds the round-1 game with the lowest game number in an
// already loaded list, saving a query when the caller holds the full tree.
func firstRoundOpener(games []*models.Game) *models.Game {
	var opener *models.Game
	for _, g := range games {
		if g.Round != 1 {
			continue
		}
		if opener == nil || g.GameNumber < opener.GameNumber {
			opener = g
		}
	}
	return opener
}

// bracketLocked is the lock policy: any explicit lock timestamp, whatever
// its value, or the tournament's opening game having started. Evaluated on
// reads and writes, never stored.
func bracketLocked(b *models.Bracket, opener *models.Game, now time.Time) bool {
	if b.LockedAt != nil {
		return true
	}
	return tournamentStarted(opener, now)
}

func tournamentStarted(opener *models.Game, now time.Time) bool {
	return gameStarted(opener, now)
}

func gameStarted(g *models.Game, now time.Time) bool {
	if g == nil {
		return false
	}
	if g.Status == models.GameStatusInProgress || g.Status == models.GameStatusCompleted {
		return true
	}
	return g.GameDate != nil && !g.GameDate.After(now)
}

func mapPickValidationError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrInvalidGameReference):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	case errors.Is(err, brackets.ErrIllegalPick):
		return fmt.Errorf("%w: %v", ErrIllegalPick, err)
	case errors.Is(err, brackets.ErrIncompleteBracket):
		return fmt.Errorf("%w: %v", ErrIncompleteBracket, err)
	}
	return err
}

// attachSeedAssignments fills tournament-scoped seed and region onto every
// team the picks reference. The same team can carry a different seed in
// another tournament, so this is display data resolved per read.
func attachSeedAssignments(picks []models.Pick, assignments []*models.TournamentTeam) {
	if len(assignments) == 0 {
		return
	}
	byTeam := make(map[string]*models.TournamentTeam, len(assignments))
	for _, tt := range assignments {
		byTeam[tt.TeamID] = tt
	}
	decorate := func(team *models.Team) {
		if team == nil {
			return
		}
		if tt, ok := byTeam[team.ID]; ok {
			seed := tt.Seed
			region := tt.Region
			team.Seed = &seed
			team.Region = &region
		}
	}

	for i := range picks {
		p := &picks[i]
		if p.PredictedWinner == nil {
			p.PredictedWinner = &models.Team{ID: p.PredictedWinnerID}
		}
		decorate(p.PredictedWinner)
		if g := p.Game; g != nil {
			if g.Team1 == nil && g.Team1ID != nil {
				g.Team1 = &models.Team{ID: *g.Team1ID}
			}
			if g.Team2 == nil && g.Team2ID != nil {
				g.Team2 = &models.Team{ID: *g.Team2ID}
			}
			decorate(g.Team1)
			decorate(g.Team2)
		}
	}
}

func dereferencePicks(picks []*models.Pick) []models.Pick {
	out := make([]models.Pick, 0, len(picks))
	for _, p := range picks {
		out = append(out, *p)
	}
	return out
}
