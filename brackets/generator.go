package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/marchpool/bracket-pool/models"
)

// SeedEntry is one (team, seed, region) assignment used as generation input.
type SeedEntry struct {
	TeamID string
	Seed   int
	Region string
}

var (
	ErrNoEntries          = errors.New("cannot generate a bracket with zero teams")
	ErrUnevenRegions      = errors.New("every region must hold the same number of teams")
	ErrRegionSizeNotPow2  = errors.New("region size must be a power of two of at least 2")
	ErrBadSeedSequence    = errors.New("region seeds must be exactly 1..N with no gaps or duplicates")
	ErrDuplicateTeamEntry = errors.New("team assigned more than once")
)

// GenerateGames builds the full single-elimination tree for a tournament from
// its seed/region assignments. Round 1 pairs seed i against seed N+1-i within
// each region (1v16, 2v15, ... for N=16); every later round pairs the two
// adjacent games whose winners feed it, so regions resolve internally before
// inter-region play, ending in a single championship game. Game numbers are
// assigned sequentially across the whole tree and ids are assigned up front so
// parent references are valid before anything is persisted.
//
// The pairing and numbering scheme is load-bearing: brackets created against a
// generated tree reference games by id and order by game number.
func GenerateGames(tournamentID string, entries []SeedEntry) ([]*models.Game, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	byRegion := make(map[string][]SeedEntry)
	regionOrder := make([]string, 0, 4)
	seenTeams := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seenTeams[e.TeamID]; dup {
			return nil, fmt.Errorf("%w: team %s", ErrDuplicateTeamEntry, e.TeamID)
		}
		seenTeams[e.TeamID] = struct{}{}
		if _, ok := byRegion[e.Region]; !ok {
			regionOrder = append(regionOrder, e.Region)
		}
		byRegion[e.Region] = append(byRegion[e.Region], e)
	}

	regionSize := len(byRegion[regionOrder[0]])
	if regionSize < 2 || regionSize&(regionSize-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrRegionSizeNotPow2, regionSize)
	}
	for _, region := range regionOrder {
		teams := byRegion[region]
		if len(teams) != regionSize {
			return nil, fmt.Errorf("%w: region %q has %d, region %q has %d",
				ErrUnevenRegions, regionOrder[0], regionSize, region, len(teams))
		}
		sort.Slice(teams, func(i, j int) bool { return teams[i].Seed < teams[j].Seed })
		for i, e := range teams {
			if e.Seed != i+1 {
				return nil, fmt.Errorf("%w: region %q", ErrBadSeedSequence, region)
			}
		}
	}
	if n := len(regionOrder); n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: %d regions cannot merge into one final", ErrUnevenRegions, len(regionOrder))
	}

	games := make([]*models.Game, 0, len(entries)-1)
	gameNumber := 1

	// Round 1: region play, top seed against bottom seed and inward.
	currentRound := make([]*models.Game, 0, len(entries)/2)
	for _, region := range regionOrder {
		teams := byRegion[region]
		for i := 0; i < regionSize/2; i++ {
			team1 := teams[i].TeamID
			team2 := teams[regionSize-1-i].TeamID
			game := &models.Game{
				ID:           uuid.NewString(),
				TournamentID: tournamentID,
				Round:        1,
				GameNumber:   gameNumber,
				Team1ID:      &team1,
				Team2ID:      &team2,
				Status:       models.GameStatusScheduled,
			}
			gameNumber++
			currentRound = append(currentRound, game)
		}
	}
	games = append(games, currentRound...)

	// Later rounds: adjacent winners meet, halving each round down to the
	// championship game, which is the only game without a child.
	round := 2
	for len(currentRound) > 1 {
		nextRound := make([]*models.Game, 0, len(currentRound)/2)
		for i := 0; i < len(currentRound); i += 2 {
			parent1 := currentRound[i].ID
			parent2 := currentRound[i+1].ID
			game := &models.Game{
				ID:            uuid.NewString(),
				TournamentID:  tournamentID,
				Round:         round,
				GameNumber:    gameNumber,
				ParentGame1ID: &parent1,
				ParentGame2ID: &parent2,
				Status:        models.GameStatusScheduled,
			}
			gameNumber++
			nextRound = append(nextRound, game)
		}
		games = append(games, nextRound...)
		currentRound = nextRound
		round++
	}

	return games, nil
}
