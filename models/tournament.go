package models

import "time"

type Tournament struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Games []Game `json:"games,omitempty" db:"-"`
}

// TournamentTeam binds a team to a tournament with its seed and region.
// Unique per (tournament, team).
type TournamentTeam struct {
	ID           string `json:"id" db:"id"`
	TournamentID string `json:"tournament_id" db:"tournament_id"`
	TeamID       string `json:"team_id" db:"team_id"`
	Seed         int    `json:"seed" db:"seed"`
	Region       string `json:"region" db:"region"`

	Team *Team `json:"team,omitempty" db:"-"`
}
