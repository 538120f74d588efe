package models

import "time"

type GameStatus string

const (
	GameStatusScheduled  GameStatus = "scheduled"
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusCompleted  GameStatus = "completed"
)

// Game is one node of a tournament's elimination tree. Round-1 games carry
// both team slots and no parent references; every later game carries both
// parent references and team slots stay null (the occupant is implied by the
// parent game's winner). GameNumber is unique within a tournament and orders
// games inside a round.
type Game struct {
	ID            string     `json:"id" db:"id"`
	TournamentID  string     `json:"tournament_id" db:"tournament_id"`
	Round         int        `json:"round" db:"round"`
	GameNumber    int        `json:"game_number" db:"game_number"`
	ParentGame1ID *string    `json:"parent_game1_id,omitempty" db:"parent_game1_id"`
	ParentGame2ID *string    `json:"parent_game2_id,omitempty" db:"parent_game2_id"`
	Team1ID       *string    `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID       *string    `json:"team2_id,omitempty" db:"team2_id"`
	WinnerID      *string    `json:"winner_id,omitempty" db:"winner_id"`
	ScoreTeam1    *int       `json:"score_team1,omitempty" db:"score_team1"`
	ScoreTeam2    *int       `json:"score_team2,omitempty" db:"score_team2"`
	GameDate      *time.Time `json:"game_date,omitempty" db:"game_date"`
	Status        GameStatus `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	Team1  *Team `json:"team1,omitempty" db:"-"`
	Team2  *Team `json:"team2,omitempty" db:"-"`
	Winner *Team `json:"winner,omitempty" db:"-"`
}
