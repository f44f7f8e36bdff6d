// Package types holds the JSON shapes exchanged with clients.
package types

import "github.com/auctionhq/auction-backend/internal/model"

// Client -> Server (HTTP)

type CreateTeamRequest struct {
	Name       string `json:"name"`
	Budget     int64  `json:"budget"`
	TotalSlots int    `json:"total_slots"`
}

type CreatePlayerRequest struct {
	Name string `json:"name"`
}

type SellRequest struct {
	TeamID string `json:"team_id"`
	Amount int64  `json:"amount"`
}

type ChangeTeamRequest struct {
	TeamID string `json:"team_id"`
}

// Server -> Client

// ServerMessage is the websocket event envelope. Type is one of the
// engine.EventKind names; only the fields relevant to that kind are set.
type ServerMessage struct {
	Type     string        `json:"type"`
	Player   *model.Player `json:"player,omitempty"`
	Team     *model.Team   `json:"team,omitempty"`
	FromTeam *model.Team   `json:"from_team,omitempty"`
	ToTeam   *model.Team   `json:"to_team,omitempty"`
	Deleted  bool          `json:"deleted,omitempty"`
	OwnerID  string        `json:"owner_id,omitempty"`
}

type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
