package models

import "time"

type Team struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	// Tournament-scoped display fields, populated from the team's
	// tournament_teams assignment. The same team can carry a different
	// seed and region in another tournament.
	Seed   *int    `json:"seed,omitempty" db:"-"`
	Region *string `json:"region,omitempty" db:"-"`
}
