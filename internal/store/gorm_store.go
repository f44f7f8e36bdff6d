package store

import (
	"context"
	"errors"

	"github.com/auctionhq/auction-backend/internal/model"
	"gorm.io/gorm"
)

type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Migrate() error {
	return l.db.AutoMigrate(&model.Team{}, &model.Player{})
}

func (l *GormLedger) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (l *GormLedger) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	return (&gormTx{db: l.db.WithContext(ctx)}).GetTeam(id)
}

func (l *GormLedger) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	return (&gormTx{db: l.db.WithContext(ctx)}).GetPlayer(id)
}

func (l *GormLedger) TeamsForOwner(ctx context.Context, ownerID string) ([]model.Team, error) {
	return (&gormTx{db: l.db.WithContext(ctx)}).TeamsForOwner(ownerID)
}

func (l *GormLedger) PlayersForOwner(ctx context.Context, ownerID string) ([]model.Player, error) {
	return (&gormTx{db: l.db.WithContext(ctx)}).PlayersForOwner(ownerID)
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) GetTeam(id string) (*model.Team, error) {
	var team model.Team
	if err := t.db.Where("id = ?", id).First(&team).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return &team, nil
}

func (t *gormTx) GetPlayer(id string) (*model.Player, error) {
	var player model.Player
	if err := t.db.Where("id = ?", id).First(&player).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return &player, nil
}

func (t *gormTx) TeamsForOwner(ownerID string) ([]model.Team, error) {
	var teams []model.Team
	err := t.db.Where("owner_id = ?", ownerID).Order("name").Find(&teams).Error
	return teams, err
}

func (t *gormTx) PlayersForOwner(ownerID string) ([]model.Player, error) {
	var players []model.Player
	err := t.db.Where("owner_id = ?", ownerID).Order("name").Find(&players).Error
	return players, err
}

func (t *gormTx) CreateTeam(team *model.Team) error {
	return mapGormErr(t.db.Create(team).Error)
}

func (t *gormTx) CreatePlayer(player *model.Player) error {
	return mapGormErr(t.db.Create(player).Error)
}

// SaveTeam writes every mutable column guarded by the version the caller
// read. RowsAffected == 0 means someone committed first.
func (t *gormTx) SaveTeam(team *model.Team) error {
	res := t.db.Model(&model.Team{}).
		Where("id = ? AND version = ?", team.ID, team.Version).
		Select("name", "remaining_budget", "filled_slots", "member_player_ids", "version").
		Updates(model.Team{
			Name:            team.Name,
			RemainingBudget: team.RemainingBudget,
			FilledSlots:     team.FilledSlots,
			MemberPlayerIDs: team.MemberPlayerIDs,
			Version:         team.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	team.Version++
	return nil
}

func (t *gormTx) SavePlayer(player *model.Player) error {
	res := t.db.Model(&model.Player{}).
		Where("id = ? AND version = ?", player.ID, player.Version).
		Select("name", "status", "team_id", "sold_amount", "version").
		Updates(model.Player{
			Name:       player.Name,
			Status:     player.Status,
			TeamID:     player.TeamID,
			SoldAmount: player.SoldAmount,
			Version:    player.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	player.Version++
	return nil
}

func (t *gormTx) DeleteTeam(team *model.Team) error {
	res := t.db.Where("id = ? AND version = ?", team.ID, team.Version).
		Delete(&model.Team{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func mapGormErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
