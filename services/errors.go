package services

import "errors"

// Errors shared across services and mapped to HTTP statuses in one place.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Relationship errors
	ErrNotAMember     = errors.New("caller is not an active member of the pool")
	ErrNotOwner       = errors.New("caller does not own this bracket")
	ErrNotPoolCreator = errors.New("caller is not the pool's creator")
	ErrAdminOnly      = errors.New("operation requires administrator role")

	// Conflicts
	ErrBracketConflict         = errors.New("user already has a bracket in this pool")
	ErrPickConflict            = errors.New("bracket already has a pick for this game")
	ErrTournamentTeamConflict  = errors.New("team is already seeded in this tournament")
	ErrAlreadyMember           = errors.New("user is already a member of this pool")
	ErrBracketAlreadyGenerated = errors.New("tournament games have already been generated")
	ErrUsernameConflict        = errors.New("username is already taken")
	ErrTeamNameConflict        = errors.New("team name is already in use")

	// Validator rejections
	ErrIllegalPick       = errors.New("pick is not legal for its game")
	ErrInvalidReference  = errors.New("pick references a game outside the tournament")
	ErrIncompleteBracket = errors.New("bracket must contain exactly one pick per game")

	// Lock-state errors
	ErrBracketLocked      = errors.New("bracket is locked and cannot be changed")
	ErrGameAlreadyStarted = errors.New("game has already started or completed")

	// Entity-specific not-found variants, kept for caller context
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrPoolNotFound       = errors.New("pool not found")
	ErrBracketNotFound    = errors.New("bracket not found")

	// Authentication
	ErrAuthInvalidCredentials = errors.New("invalid username or password")
)
