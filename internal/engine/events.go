package engine

import "github.com/auctionhq/auction-backend/internal/model"

type EventKind string

const (
	EvtPlayerSold            EventKind = "PlayerSold"
	EvtPlayerMarkedUnsold    EventKind = "PlayerMarkedUnsold"
	EvtPlayerRemovedFromTeam EventKind = "PlayerRemovedFromTeam"
	EvtPlayerTeamChanged     EventKind = "PlayerTeamChanged"
	EvtTeamUpdated           EventKind = "TeamUpdated"
	EvtDataReset             EventKind = "DataReset"
)

// Event is the closed set of change notifications. Each variant carries only
// the entities that changed, in their post-commit form.
type Event interface{ Kind() EventKind }

type PlayerSold struct {
	Player model.Player
	Team   model.Team
}

type PlayerMarkedUnsold struct {
	Player model.Player
}

type PlayerRemovedFromTeam struct {
	Player model.Player
	Team   model.Team
}

type PlayerTeamChanged struct {
	Player   model.Player
	FromTeam model.Team
	ToTeam   model.Team
}

type TeamUpdated struct {
	Team    model.Team
	Deleted bool
}

type DataReset struct {
	OwnerID string
}

func (PlayerSold) Kind() EventKind            { return EvtPlayerSold }
func (PlayerMarkedUnsold) Kind() EventKind    { return EvtPlayerMarkedUnsold }
func (PlayerRemovedFromTeam) Kind() EventKind { return EvtPlayerRemovedFromTeam }
func (PlayerTeamChanged) Kind() EventKind     { return EvtPlayerTeamChanged }
func (TeamUpdated) Kind() EventKind           { return EvtTeamUpdated }
func (DataReset) Kind() EventKind             { return EvtDataReset }
