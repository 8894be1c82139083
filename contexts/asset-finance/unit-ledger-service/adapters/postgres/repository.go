package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rentshare/contexts/asset-finance/unit-ledger-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const supplyRowID = 1

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// InTransaction runs fn inside one database transaction. Repository
// calls made with the fn context join that transaction through conn.
func (r *Repository) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

type txKey struct{}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *Repository) GetBalance(ctx context.Context, holderID string) (int64, error) {
	var row unitBalanceModel
	err := r.conn(ctx).
		Where("holder_id = ?", strings.TrimSpace(holderID)).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, r.logError("unit_repo_get_balance_failed", err,
			"holder_id", strings.TrimSpace(holderID),
		)
	}
	return row.Units, nil
}

func (r *Repository) PutBalance(ctx context.Context, holderID string, units int64) error {
	row := unitBalanceModel{
		HolderID:  strings.TrimSpace(holderID),
		Units:     units,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "holder_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error; err != nil {
		return r.logError("unit_repo_put_balance_failed", err,
			"holder_id", row.HolderID,
		)
	}
	return nil
}

func (r *Repository) GetTotalSupply(ctx context.Context) (int64, error) {
	var row unitSupplyModel
	err := r.conn(ctx).
		Where("id = ?", supplyRowID).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, r.logError("unit_repo_get_supply_failed", err)
	}
	return row.Units, nil
}

func (r *Repository) PutTotalSupply(ctx context.Context, units int64) error {
	row := unitSupplyModel{
		ID:        supplyRowID,
		Units:     units,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error; err != nil {
		return r.logError("unit_repo_put_supply_failed", err)
	}
	return nil
}

func (r *Repository) GetAllowance(ctx context.Context, ownerID string, spenderID string) (int64, error) {
	var row unitAllowanceModel
	err := r.conn(ctx).
		Where("owner_id = ?", strings.TrimSpace(ownerID)).
		Where("spender_id = ?", strings.TrimSpace(spenderID)).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, r.logError("unit_repo_get_allowance_failed", err,
			"owner_id", strings.TrimSpace(ownerID),
			"spender_id", strings.TrimSpace(spenderID),
		)
	}
	return row.Units, nil
}

func (r *Repository) PutAllowance(ctx context.Context, ownerID string, spenderID string, units int64) error {
	row := unitAllowanceModel{
		OwnerID:   strings.TrimSpace(ownerID),
		SpenderID: strings.TrimSpace(spenderID),
		Units:     units,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "spender_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error; err != nil {
		return r.logError("unit_repo_put_allowance_failed", err,
			"owner_id", row.OwnerID,
			"spender_id", row.SpenderID,
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "asset-finance/unit-ledger-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("unit ledger repository failure", fields...)
	return err
}

type unitBalanceModel struct {
	HolderID  string    `gorm:"column:holder_id;primaryKey"`
	Units     int64     `gorm:"column:units"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (unitBalanceModel) TableName() string {
	return "unit_balances"
}

type unitSupplyModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Units     int64     `gorm:"column:units"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (unitSupplyModel) TableName() string {
	return "unit_supply"
}

type unitAllowanceModel struct {
	OwnerID   string    `gorm:"column:owner_id;primaryKey"`
	SpenderID string    `gorm:"column:spender_id;primaryKey"`
	Units     int64     `gorm:"column:units"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (unitAllowanceModel) TableName() string {
	return "unit_allowances"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.UnitOfWork = (*Repository)(nil)
