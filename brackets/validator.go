package brackets

import (
	"errors"
	"fmt"

	"github.com/marchpool/bracket-pool/models"
)

// ProposedPick is a single submitted prediction, before persistence.
type ProposedPick struct {
	GameID            string `json:"game_id"`
	PredictedWinnerID string `json:"predicted_winner_id"`
}

var (
	ErrInvalidGameReference = errors.New("pick references a game outside the tournament")
	ErrIllegalPick          = errors.New("predicted winner is not a possible winner of the game")
	ErrIncompleteBracket    = errors.New("bracket must contain exactly one pick per game")
)

// ValidatePicks checks a proposed pick set against a tournament's game tree.
// For round-1 games the predicted winner must be one of the game's two teams.
// For every later game it must equal the predicted winner of one of the two
// parent-game picks in the same submission: a bracket is a complete hypothesis
// made before play, so parent picks are consulted, never recorded results.
// With requireComplete set, the set must cover every game exactly once.
//
// Pure over its inputs; started-game and lock checks belong to the caller.
func ValidatePicks(games []*models.Game, picks []ProposedPick, requireComplete bool) error {
	gamesByID := make(map[string]*models.Game, len(games))
	for _, g := range games {
		gamesByID[g.ID] = g
	}

	picksByGame := make(map[string]ProposedPick, len(picks))
	for _, p := range picks {
		if _, dup := picksByGame[p.GameID]; dup {
			return fmt.Errorf("%w: duplicate pick for game %s", ErrInvalidGameReference, p.GameID)
		}
		picksByGame[p.GameID] = p
	}

	for _, p := range picks {
		game, ok := gamesByID[p.GameID]
		if !ok {
			return fmt.Errorf("%w: game %s", ErrInvalidGameReference, p.GameID)
		}

		if game.Round == 1 {
			if !matchesTeamSlot(game.Team1ID, p.PredictedWinnerID) &&
				!matchesTeamSlot(game.Team2ID, p.PredictedWinnerID) {
				return fmt.Errorf("%w: game %s: winner must be one of the game's teams", ErrIllegalPick, game.ID)
			}
			continue
		}

		if !parentPickPredicts(picksByGame, game.ParentGame1ID, p.PredictedWinnerID) &&
			!parentPickPredicts(picksByGame, game.ParentGame2ID, p.PredictedWinnerID) {
			return fmt.Errorf("%w: game %s: winner must come from a parent game's predicted winner", ErrIllegalPick, game.ID)
		}
	}

	if requireComplete {
		if len(picks) != len(games) {
			return fmt.Errorf("%w: got %d picks for %d games", ErrIncompleteBracket, len(picks), len(games))
		}
		for _, g := range games {
			if _, ok := picksByGame[g.ID]; !ok {
				return fmt.Errorf("%w: missing pick for game %s", ErrIncompleteBracket, g.ID)
			}
		}
	}

	return nil
}

func matchesTeamSlot(teamID *string, predicted string) bool {
	return teamID != nil && *teamID == predicted
}

func parentPickPredicts(picksByGame map[string]ProposedPick, parentGameID *string, predicted string) bool {
	if parentGameID == nil {
		return false
	}
	pick, ok := picksByGame[*parentGameID]
	return ok && pick.PredictedWinnerID == predicted
}
