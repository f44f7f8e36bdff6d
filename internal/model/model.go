package model

import (
	"slices"
	"time"
)

type PlayerStatus string

const (
	StatusAvailable PlayerStatus = "available"
	StatusSold      PlayerStatus = "sold"
	StatusUnsold    PlayerStatus = "unsold"
)

// Team is one auction roster. RemainingBudget and FilledSlots are maintained
// counters; MemberPlayerIDs is the authoritative member set. Version is the
// optimistic-lock revision checked on every save.
type Team struct {
	ID              string   `gorm:"primaryKey" json:"id"`
	OwnerID         string   `gorm:"index" json:"owner_id"`
	Name            string   `json:"name"`
	Budget          int64    `json:"budget"`
	RemainingBudget int64    `json:"remaining_budget"`
	TotalSlots      int      `json:"total_slots"`
	FilledSlots     int      `json:"filled_slots"`
	MemberPlayerIDs []string `gorm:"serializer:json" json:"member_player_ids"`
	Version         int      `json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (t *Team) HasMember(playerID string) bool {
	return slices.Contains(t.MemberPlayerIDs, playerID)
}

func (t *Team) AddMember(playerID string) {
	if !t.HasMember(playerID) {
		t.MemberPlayerIDs = append(t.MemberPlayerIDs, playerID)
	}
	t.FilledSlots = len(t.MemberPlayerIDs)
}

func (t *Team) RemoveMember(playerID string) {
	t.MemberPlayerIDs = slices.DeleteFunc(t.MemberPlayerIDs, func(id string) bool {
		return id == playerID
	})
	t.FilledSlots = len(t.MemberPlayerIDs)
}

// Player. TeamID and SoldAmount are set iff Status is sold.
type Player struct {
	ID         string       `gorm:"primaryKey" json:"id"`
	OwnerID    string       `gorm:"index" json:"owner_id"`
	Name       string       `json:"name"`
	Status     PlayerStatus `json:"status"`
	TeamID     *string      `gorm:"index" json:"team_id,omitempty"`
	SoldAmount *int64       `json:"sold_amount,omitempty"`
	Version    int          `json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
