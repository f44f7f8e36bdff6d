package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/auctionhq/auction-backend/internal/model"
	"github.com/auctionhq/auction-backend/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxTxAttempts bounds optimistic-lock retries before the caller sees
// ErrConflict.
const maxTxAttempts = 3

// Publisher receives one event per committed transaction.
type Publisher interface {
	Publish(ownerID string, evt Event) error
}

// Receipt describes exactly which entities a committed operation changed,
// with their post-commit values. It doubles as the event payload source.
type Receipt struct {
	Player *model.Player `json:"player,omitempty"`
	Teams  []model.Team  `json:"teams,omitempty"`
}

// Engine applies the auction's state-changing operations as atomic units
// against the ledger and publishes a change event after each commit.
type Engine struct {
	ledger store.Ledger
	bus    Publisher
	log    *zap.Logger
}

func New(ledger store.Ledger, bus Publisher, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{ledger: ledger, bus: bus, log: log}
}

// Sell assigns an available (or unsold, on re-auction) player to a team for
// amount, debiting the team's remaining budget and taking one slot.
func (e *Engine) Sell(ctx context.Context, ownerID, playerID, teamID string, amount int64) (*Receipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("sale amount must be positive: %w", ErrInvalidState)
	}

	var rcpt *Receipt
	err := e.inTx(ctx, func(tx store.Tx) error {
		rcpt = nil
		player, err := e.player(tx, ownerID, playerID)
		if err != nil {
			return err
		}
		team, err := e.team(tx, ownerID, teamID)
		if err != nil {
			return err
		}
		if player.Status == model.StatusSold {
			return fmt.Errorf("player %s: %w", playerID, ErrAlreadySold)
		}
		if team.RemainingBudget < amount {
			return fmt.Errorf("team %s has %d left, needs %d: %w",
				teamID, team.RemainingBudget, amount, ErrInsufficientBudget)
		}
		if team.FilledSlots >= team.TotalSlots {
			return fmt.Errorf("team %s: %w", teamID, ErrNoSlotsAvailable)
		}

		player.Status = model.StatusSold
		player.TeamID = &team.ID
		player.SoldAmount = &amount
		team.RemainingBudget -= amount
		team.AddMember(player.ID)

		if err := tx.SaveTeam(team); err != nil {
			return err
		}
		if err := tx.SavePlayer(player); err != nil {
			return err
		}
		rcpt = &Receipt{Player: player, Teams: []model.Team{*team}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ownerID, PlayerSold{Player: *rcpt.Player, Team: rcpt.Teams[0]})
	return rcpt, nil
}

// MarkUnsold flags an available player as unsold (no bids). No budget or
// slot effect.
func (e *Engine) MarkUnsold(ctx context.Context, ownerID, playerID string) (*Receipt, error) {
	var rcpt *Receipt
	err := e.inTx(ctx, func(tx store.Tx) error {
		rcpt = nil
		player, err := e.player(tx, ownerID, playerID)
		if err != nil {
			return err
		}
		if player.Status != model.StatusAvailable {
			return fmt.Errorf("player %s is %s: %w", playerID, player.Status, ErrInvalidState)
		}
		player.Status = model.StatusUnsold
		if err := tx.SavePlayer(player); err != nil {
			return err
		}
		rcpt = &Receipt{Player: player}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ownerID, PlayerMarkedUnsold{Player: *rcpt.Player})
	return rcpt, nil
}

// RemoveFromTeam returns a sold player to the pool, refunding the full sold
// amount to the owning team. If the player's team reference is stale the
// refund target is resolved by scanning the tenant's teams for the one still
// listing the player; a sold player no team lists is surfaced as
// ErrOrphanedRecord.
func (e *Engine) RemoveFromTeam(ctx context.Context, ownerID, playerID string) (*Receipt, error) {
	var rcpt *Receipt
	var repaired bool
	err := e.inTx(ctx, func(tx store.Tx) error {
		rcpt, repaired = nil, false
		player, err := e.player(tx, ownerID, playerID)
		if err != nil {
			return err
		}
		if player.Status != model.StatusSold {
			return fmt.Errorf("player %s is %s: %w", playerID, player.Status, ErrInvalidState)
		}

		var team *model.Team
		if player.TeamID != nil {
			t, err := tx.GetTeam(*player.TeamID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			if t != nil && t.OwnerID == ownerID && t.HasMember(player.ID) {
				team = t
			}
		}
		if team == nil {
			// Stale or missing team reference from legacy drift. Fall back to
			// scanning the tenant's teams for one still listing the player.
			repaired = true
			teams, err := tx.TeamsForOwner(ownerID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			for i := range teams {
				if teams[i].HasMember(player.ID) {
					team = &teams[i]
					break
				}
			}
		}
		if team == nil {
			return fmt.Errorf("player %s: %w", playerID, ErrOrphanedRecord)
		}

		var amount int64
		if player.SoldAmount != nil {
			amount = *player.SoldAmount
		}
		team.RemainingBudget += amount
		team.RemoveMember(player.ID)
		player.Status = model.StatusAvailable
		player.TeamID = nil
		player.SoldAmount = nil

		if err := tx.SaveTeam(team); err != nil {
			return err
		}
		if err := tx.SavePlayer(player); err != nil {
			return err
		}
		rcpt = &Receipt{Player: player, Teams: []model.Team{*team}}
		return nil
	})
	if repaired {
		// Drift means the membership invariant was violated upstream. Signal
		// for a reconciliation pass over this tenant's ledger.
		e.log.Warn("resolved refund team by scan",
			zap.String("owner_id", ownerID),
			zap.String("player_id", playerID),
			zap.Bool("found", err == nil))
	}
	if err != nil {
		return nil, err
	}

	e.publish(ownerID, PlayerRemovedFromTeam{Player: *rcpt.Player, Team: rcpt.Teams[0]})
	return rcpt, nil
}

// ChangeTeam moves a sold player to a different team, refunding the old team
// and debiting the new one by the original sold amount. The amount is a
// historical auction result; moving a player corrects the assignment, it
// does not renegotiate the price.
func (e *Engine) ChangeTeam(ctx context.Context, ownerID, playerID, newTeamID string) (*Receipt, error) {
	var rcpt *Receipt
	err := e.inTx(ctx, func(tx store.Tx) error {
		rcpt = nil
		player, err := e.player(tx, ownerID, playerID)
		if err != nil {
			return err
		}
		if player.Status != model.StatusSold || player.SoldAmount == nil {
			return fmt.Errorf("player %s is %s: %w", playerID, player.Status, ErrInvalidState)
		}
		if player.TeamID != nil && *player.TeamID == newTeamID {
			return fmt.Errorf("player %s: %w", playerID, ErrSameTeam)
		}

		newTeam, err := e.team(tx, ownerID, newTeamID)
		if err != nil {
			return err
		}

		var oldTeam *model.Team
		if player.TeamID != nil {
			t, err := tx.GetTeam(*player.TeamID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			if t != nil && t.HasMember(player.ID) {
				oldTeam = t
			}
		}
		if oldTeam == nil {
			return fmt.Errorf("player %s: %w", playerID, ErrOrphanedRecord)
		}

		amount := *player.SoldAmount
		if newTeam.RemainingBudget < amount {
			return fmt.Errorf("team %s has %d left, needs %d: %w",
				newTeamID, newTeam.RemainingBudget, amount, ErrInsufficientBudget)
		}
		if newTeam.FilledSlots >= newTeam.TotalSlots {
			return fmt.Errorf("team %s: %w", newTeamID, ErrNoSlotsAvailable)
		}

		oldTeam.RemainingBudget += amount
		oldTeam.RemoveMember(player.ID)
		newTeam.RemainingBudget -= amount
		newTeam.AddMember(player.ID)
		player.TeamID = &newTeam.ID

		// Write teams in id order so concurrent moves touching the same pair
		// conflict instead of deadlocking.
		first, second := oldTeam, newTeam
		if second.ID < first.ID {
			first, second = second, first
		}
		if err := tx.SaveTeam(first); err != nil {
			return err
		}
		if err := tx.SaveTeam(second); err != nil {
			return err
		}
		if err := tx.SavePlayer(player); err != nil {
			return err
		}
		rcpt = &Receipt{Player: player, Teams: []model.Team{*oldTeam, *newTeam}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ownerID, PlayerTeamChanged{
		Player:   *rcpt.Player,
		FromTeam: rcpt.Teams[0],
		ToTeam:   rcpt.Teams[1],
	})
	return rcpt, nil
}

// CreateTeam registers a team with its full budget remaining and no members.
// Team names are unique within a tenant.
func (e *Engine) CreateTeam(ctx context.Context, ownerID, name string, budget int64, totalSlots int) (*model.Team, error) {
	if name == "" || budget <= 0 || totalSlots <= 0 {
		return nil, fmt.Errorf("team needs a name, a positive budget and at least one slot: %w", ErrInvalidState)
	}

	team := &model.Team{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Name:            name,
		Budget:          budget,
		RemainingBudget: budget,
		TotalSlots:      totalSlots,
		MemberPlayerIDs: []string{},
	}
	err := e.inTx(ctx, func(tx store.Tx) error {
		existing, err := tx.TeamsForOwner(ownerID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for _, t := range existing {
			if t.Name == name {
				return fmt.Errorf("team name %q already in use: %w", name, ErrInvalidState)
			}
		}
		return tx.CreateTeam(team)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ownerID, TeamUpdated{Team: *team})
	return team, nil
}

// CreatePlayer registers a player in the available pool.
func (e *Engine) CreatePlayer(ctx context.Context, ownerID, name string) (*model.Player, error) {
	if name == "" {
		return nil, fmt.Errorf("player needs a name: %w", ErrInvalidState)
	}

	player := &model.Player{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Status:  model.StatusAvailable,
	}
	err := e.inTx(ctx, func(tx store.Tx) error {
		return tx.CreatePlayer(player)
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// DeleteTeam removes a team that has no members. Teams still holding players
// must be emptied first.
func (e *Engine) DeleteTeam(ctx context.Context, ownerID, teamID string) error {
	var deleted model.Team
	err := e.inTx(ctx, func(tx store.Tx) error {
		team, err := e.team(tx, ownerID, teamID)
		if err != nil {
			return err
		}
		if team.FilledSlots > 0 || len(team.MemberPlayerIDs) > 0 {
			return fmt.Errorf("team %s has %d players: %w", teamID, team.FilledSlots, ErrTeamNotEmpty)
		}
		deleted = *team
		return tx.DeleteTeam(team)
	})
	if err != nil {
		return err
	}

	e.publish(ownerID, TeamUpdated{Team: deleted, Deleted: true})
	return nil
}

// Reset returns every player of a tenant to the available pool and restores
// every team's full budget, then signals a bulk invalidation.
func (e *Engine) Reset(ctx context.Context, ownerID string) error {
	err := e.inTx(ctx, func(tx store.Tx) error {
		players, err := tx.PlayersForOwner(ownerID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for i := range players {
			p := &players[i]
			if p.Status == model.StatusAvailable && p.TeamID == nil {
				continue
			}
			p.Status = model.StatusAvailable
			p.TeamID = nil
			p.SoldAmount = nil
			if err := tx.SavePlayer(p); err != nil {
				return err
			}
		}
		teams, err := tx.TeamsForOwner(ownerID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for i := range teams {
			t := &teams[i]
			t.RemainingBudget = t.Budget
			t.MemberPlayerIDs = []string{}
			t.FilledSlots = 0
			if err := tx.SaveTeam(t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.publish(ownerID, DataReset{OwnerID: ownerID})
	return nil
}

// inTx runs fn as one atomic unit, retrying a bounded number of times when
// it loses an optimistic-lock race. fn must be safe to re-run from scratch.
func (e *Engine) inTx(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = e.ledger.InTx(ctx, fn)
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		e.log.Debug("transaction lost version race, retrying",
			zap.Int("attempt", attempt))
	}
	return fmt.Errorf("gave up after %d attempts: %w", maxTxAttempts, ErrConflict)
}

func (e *Engine) player(tx store.Tx, ownerID, playerID string) (*model.Player, error) {
	player, err := tx.GetPlayer(playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if player.OwnerID != ownerID {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrTenantMismatch)
	}
	return player, nil
}

func (e *Engine) team(tx store.Tx, ownerID, teamID string) (*model.Team, error) {
	team, err := tx.GetTeam(teamID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("team %s: %w", teamID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if team.OwnerID != ownerID {
		return nil, fmt.Errorf("team %s: %w", teamID, ErrTenantMismatch)
	}
	return team, nil
}

// publish runs after commit. A failure here never rolls anything back; the
// committed state stays authoritative and clients reconcile on reconnect.
func (e *Engine) publish(ownerID string, evt Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ownerID, evt); err != nil {
		e.log.Error("event publish failed",
			zap.String("owner_id", ownerID),
			zap.String("kind", string(evt.Kind())),
			zap.Error(err))
	}
}
