package models

import "time"

// Bracket is one user's full set of predictions for a pool's tournament.
// At most one bracket per (user, pool), enforced by a unique constraint.
type Bracket struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	PoolID    string     `json:"pool_id" db:"pool_id"`
	Name      string     `json:"name" db:"name"`
	LockedAt  *time.Time `json:"locked_at,omitempty" db:"locked_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`

	User  *User  `json:"user,omitempty" db:"-"`
	Pool  *Pool  `json:"pool,omitempty" db:"-"`
	Picks []Pick `json:"picks,omitempty" db:"-"`

	// Computed by the lock policy on reads, never stored.
	IsLocked bool `json:"is_locked" db:"-"`
}

// Pick names a predicted winner for one game. Unique per (bracket, game).
// PointsEarned is derived data owned by the scoring engine.
type Pick struct {
	ID                string `json:"id" db:"id"`
	BracketID         string `json:"bracket_id" db:"bracket_id"`
	GameID            string `json:"game_id" db:"game_id"`
	PredictedWinnerID string `json:"predicted_winner_id" db:"predicted_winner_id"`
	PointsEarned      int    `json:"points_earned" db:"points_earned"`

	Game            *Game `json:"game,omitempty" db:"-"`
	PredictedWinner *Team `json:"predicted_winner,omitempty" db:"-"`
}
