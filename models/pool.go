package models

import "time"

type PoolMemberStatus string

const (
	PoolMemberActive PoolMemberStatus = "active"
	PoolMemberLeft   PoolMemberStatus = "left"
)

type Pool struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	CreatorID    string    `json:"creator_id" db:"creator_id"`
	InviteCode   string    `json:"invite_code" db:"invite_code"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Tournament *Tournament  `json:"tournament,omitempty" db:"-"`
	Creator    *User        `json:"creator,omitempty" db:"-"`
	Members    []PoolMember `json:"members,omitempty" db:"-"`
	Brackets   []Bracket    `json:"brackets,omitempty" db:"-"`
}

type PoolMember struct {
	ID       string           `json:"id" db:"id"`
	PoolID   string           `json:"pool_id" db:"pool_id"`
	UserID   string           `json:"user_id" db:"user_id"`
	Status   PoolMemberStatus `json:"status" db:"status"`
	JoinedAt time.Time        `json:"joined_at" db:"joined_at"`
	LeftAt   *time.Time       `json:"left_at,omitempty" db:"left_at"`

	User *User `json:"user,omitempty" db:"-"`
}
