package store

import (
	"context"
	"sync"

	"github.com/auctionhq/auction-backend/internal/model"
)

// MemoryLedger keeps the ledger in process memory with the same Version
// semantics as the gorm implementation. Transactions run against a copy and
// swap in on success, so a failed fn leaves nothing behind.
type MemoryLedger struct {
	mu      sync.Mutex
	teams   map[string]model.Team
	players map[string]model.Player
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		teams:   make(map[string]model.Team),
		players: make(map[string]model.Player),
	}
}

func (l *MemoryLedger) InTx(ctx context.Context, fn func(tx Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		teams:   cloneTeams(l.teams),
		players: clonePlayers(l.players),
	}
	if err := fn(tx); err != nil {
		return err
	}
	l.teams = tx.teams
	l.players = tx.players
	return nil
}

func (l *MemoryLedger) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (&memTx{teams: l.teams, players: l.players}).GetTeam(id)
}

func (l *MemoryLedger) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (&memTx{teams: l.teams, players: l.players}).GetPlayer(id)
}

func (l *MemoryLedger) TeamsForOwner(ctx context.Context, ownerID string) ([]model.Team, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (&memTx{teams: l.teams, players: l.players}).TeamsForOwner(ownerID)
}

func (l *MemoryLedger) PlayersForOwner(ctx context.Context, ownerID string) ([]model.Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (&memTx{teams: l.teams, players: l.players}).PlayersForOwner(ownerID)
}

type memTx struct {
	teams   map[string]model.Team
	players map[string]model.Player
}

func (t *memTx) GetTeam(id string) (*model.Team, error) {
	team, ok := t.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := cloneTeam(team)
	return &copied, nil
}

func (t *memTx) GetPlayer(id string) (*model.Player, error) {
	player, ok := t.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := clonePlayer(player)
	return &copied, nil
}

func (t *memTx) TeamsForOwner(ownerID string) ([]model.Team, error) {
	var teams []model.Team
	for _, team := range t.teams {
		if team.OwnerID == ownerID {
			teams = append(teams, cloneTeam(team))
		}
	}
	return teams, nil
}

func (t *memTx) PlayersForOwner(ownerID string) ([]model.Player, error) {
	var players []model.Player
	for _, player := range t.players {
		if player.OwnerID == ownerID {
			players = append(players, clonePlayer(player))
		}
	}
	return players, nil
}

func (t *memTx) CreateTeam(team *model.Team) error {
	if _, ok := t.teams[team.ID]; ok {
		return ErrDuplicate
	}
	t.teams[team.ID] = cloneTeam(*team)
	return nil
}

func (t *memTx) CreatePlayer(player *model.Player) error {
	if _, ok := t.players[player.ID]; ok {
		return ErrDuplicate
	}
	t.players[player.ID] = clonePlayer(*player)
	return nil
}

func (t *memTx) SaveTeam(team *model.Team) error {
	current, ok := t.teams[team.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != team.Version {
		return ErrVersionConflict
	}
	team.Version++
	t.teams[team.ID] = cloneTeam(*team)
	return nil
}

func (t *memTx) SavePlayer(player *model.Player) error {
	current, ok := t.players[player.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != player.Version {
		return ErrVersionConflict
	}
	player.Version++
	t.players[player.ID] = clonePlayer(*player)
	return nil
}

func (t *memTx) DeleteTeam(team *model.Team) error {
	current, ok := t.teams[team.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != team.Version {
		return ErrVersionConflict
	}
	delete(t.teams, team.ID)
	return nil
}

func cloneTeam(t model.Team) model.Team {
	copied := t
	copied.MemberPlayerIDs = append([]string(nil), t.MemberPlayerIDs...)
	return copied
}

func clonePlayer(p model.Player) model.Player {
	copied := p
	if p.TeamID != nil {
		id := *p.TeamID
		copied.TeamID = &id
	}
	if p.SoldAmount != nil {
		amount := *p.SoldAmount
		copied.SoldAmount = &amount
	}
	return copied
}

func cloneTeams(in map[string]model.Team) map[string]model.Team {
	out := make(map[string]model.Team, len(in))
	for id, t := range in {
		out[id] = cloneTeam(t)
	}
	return out
}

func clonePlayers(in map[string]model.Player) map[string]model.Player {
	out := make(map[string]model.Player, len(in))
	for id, p := range in {
		out[id] = clonePlayer(p)
	}
	return out
}
