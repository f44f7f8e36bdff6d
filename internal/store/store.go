package store

import (
	"context"
	"errors"

	"github.com/auctionhq/auction-backend/internal/model"
)

var ErrNotFound = errors.New("record not found")
var ErrVersionConflict = errors.New("version conflict")
var ErrDuplicate = errors.New("duplicate record")

// Tx is the view of the ledger inside one atomic unit. Saves are
// compare-and-swap on the entity's Version: a stale Version returns
// ErrVersionConflict and nothing in the transaction commits.
type Tx interface {
	GetTeam(id string) (*model.Team, error)
	GetPlayer(id string) (*model.Player, error)
	TeamsForOwner(ownerID string) ([]model.Team, error)
	PlayersForOwner(ownerID string) ([]model.Player, error)
	CreateTeam(t *model.Team) error
	CreatePlayer(p *model.Player) error
	SaveTeam(t *model.Team) error
	SavePlayer(p *model.Player) error
	DeleteTeam(t *model.Team) error
}

// Ledger is the durable per-tenant state. InTx runs fn as one atomic unit:
// either every write inside fn commits, or none do.
type Ledger interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetTeam(ctx context.Context, id string) (*model.Team, error)
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	TeamsForOwner(ctx context.Context, ownerID string) ([]model.Team, error)
	PlayersForOwner(ctx context.Context, ownerID string) ([]model.Player, error)
}
