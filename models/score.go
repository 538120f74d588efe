package models

import "time"

// Score is the materialized total for one bracket, one row per bracket.
// Always reconstructible by summing the bracket's picks; recomputed in full
// by the scoring engine, never adjusted incrementally.
type Score struct {
	ID          string    `json:"id" db:"id"`
	BracketID   string    `json:"bracket_id" db:"bracket_id"`
	TotalPoints int       `json:"total_points" db:"total_points"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

type LeaderboardEntry struct {
	Bracket     Bracket `json:"bracket"`
	TotalPoints int     `json:"total_points"`
	Rank        int     `json:"rank"`
}
