package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rentshare/contexts/asset-finance/rent-distribution-service/domain/entities"
	domainerrors "rentshare/contexts/asset-finance/rent-distribution-service/domain/errors"
	"rentshare/contexts/asset-finance/rent-distribution-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const statsRowID = 1

// Repository persists the distribution log, holder accrual state,
// global stats, the custody account row, and the outbox.
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
// calls made with the fn context join that transaction through conn,
// so a multi-write sequence commits or rolls back as a unit.
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

func (r *Repository) AppendRecord(ctx context.Context, record entities.DistributionRecord) error {
	if record.Index <= 0 || record.Amount <= 0 || record.SupplySnapshot <= 0 {
		return domainerrors.ErrInvalidDeposit
	}
	row := distributionRecordModel{
		Index:          record.Index,
		Amount:         record.Amount,
		RecordedAt:     record.RecordedAt.UTC(),
		SupplySnapshot: record.SupplySnapshot,
	}
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("rent_repo_append_record_index_conflict",
				"distribution_index", record.Index,
			)
			return domainerrors.ErrIndexOutOfRange
		}
		return r.logError("rent_repo_append_record_failed", err,
			"distribution_index", record.Index,
		)
	}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, index int64) (entities.DistributionRecord, error) {
	var row distributionRecordModel
	err := r.conn(ctx).
		Where("index = ?", index).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.DistributionRecord{}, domainerrors.ErrIndexOutOfRange
	}
	if err != nil {
		return entities.DistributionRecord{}, r.logError("rent_repo_get_record_failed", err,
			"distribution_index", index,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListRecordsAfter(ctx context.Context, checkpoint int64) ([]entities.DistributionRecord, error) {
	var rows []distributionRecordModel
	if err := r.conn(ctx).
		Where("index > ?", checkpoint).
		Order("index asc").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("rent_repo_list_records_failed", err,
			"checkpoint", checkpoint,
		)
	}
	records := make([]entities.DistributionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toEntity())
	}
	return records, nil
}

func (r *Repository) RecordCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&distributionRecordModel{}).
		Count(&count).
		Error; err != nil {
		return 0, r.logError("rent_repo_record_count_failed", err)
	}
	return count, nil
}

func (r *Repository) GetHolderState(ctx context.Context, holderID string) (entities.HolderAccrualState, error) {
	holderID = strings.TrimSpace(holderID)
	var row holderAccrualStateModel
	err := r.conn(ctx).
		Where("holder_id = ?", holderID).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.HolderAccrualState{HolderID: holderID}, nil
	}
	if err != nil {
		return entities.HolderAccrualState{}, r.logError("rent_repo_get_holder_state_failed", err,
			"holder_id", holderID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) PutHolderState(ctx context.Context, state entities.HolderAccrualState) error {
	row := holderAccrualStateModel{
		HolderID:          strings.TrimSpace(state.HolderID),
		Withdrawable:      state.Withdrawable,
		Checkpoint:        state.Checkpoint,
		LifetimeWithdrawn: state.LifetimeWithdrawn,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "holder_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error; err != nil {
		return r.logError("rent_repo_put_holder_state_failed", err,
			"holder_id", row.HolderID,
		)
	}
	return nil
}

func (r *Repository) GetStats(ctx context.Context) (entities.AccrualStats, error) {
	var row accrualStatsModel
	err := r.conn(ctx).
		Where("id = ?", statsRowID).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.AccrualStats{}, nil
	}
	if err != nil {
		return entities.AccrualStats{}, r.logError("rent_repo_get_stats_failed", err)
	}
	return entities.AccrualStats{
		TotalAvailable:   row.TotalAvailable,
		TotalDistributed: row.TotalDistributed,
	}, nil
}

func (r *Repository) PutStats(ctx context.Context, stats entities.AccrualStats) error {
	row := accrualStatsModel{
		ID:               statsRowID,
		TotalAvailable:   stats.TotalAvailable,
		TotalDistributed: stats.TotalDistributed,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error; err != nil {
		return r.logError("rent_repo_put_stats_failed", err)
	}
	return nil
}

func (r *Repository) Balance(ctx context.Context) (int64, error) {
	var row custodyAccountModel
	err := r.conn(ctx).
		Where("id = ?", statsRowID).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, r.logError("rent_repo_custody_balance_failed", err)
	}
	return row.Balance, nil
}

func (r *Repository) Credit(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return domainerrors.ErrInvalidDeposit
	}
	return r.adjustCustody(ctx, amount)
}

func (r *Repository) PayOut(ctx context.Context, holderID string, amount int64) error {
	balance, err := r.Balance(ctx)
	if err != nil {
		return err
	}
	if amount <= 0 || balance < amount {
		return domainerrors.ErrInsufficientCustody
	}
	if err := r.adjustCustody(ctx, -amount); err != nil {
		return err
	}
	r.logger.Info("custody payout recorded",
		"event", "rent_repo_custody_payout",
		"module", "asset-finance/rent-distribution-service",
		"layer", "adapter",
		"holder_id", strings.TrimSpace(holderID),
		"amount", amount,
	)
	return nil
}

func (r *Repository) adjustCustody(ctx context.Context, delta int64) error {
	balance, err := r.Balance(ctx)
	if err != nil {
		return err
	}
	row := custodyAccountModel{
		ID:        statsRowID,
		Balance:   balance + delta,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error; err != nil {
		return r.logError("rent_repo_adjust_custody_failed", err,
			"delta", delta,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	row := rentOutboxModel{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if err := r.conn(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).
		Error; err != nil {
		return r.logError("rent_repo_append_outbox_failed", err,
			"outbox_id", outboxID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []rentOutboxModel
	if err := r.conn(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("rent_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	timestamp := publishedAt.UTC()
	result := r.conn(ctx).
		Model(&rentOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &timestamp,
		})
	if result.Error != nil {
		return r.logError("rent_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "asset-finance/rent-distribution-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("rent distribution repository failure", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "asset-finance/rent-distribution-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("rent distribution repository warning", fields...)
}

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type distributionRecordModel struct {
	Index          int64     `gorm:"column:index;primaryKey"`
	Amount         int64     `gorm:"column:amount"`
	RecordedAt     time.Time `gorm:"column:recorded_at"`
	SupplySnapshot int64     `gorm:"column:supply_snapshot"`
}

func (distributionRecordModel) TableName() string {
	return "distribution_records"
}

func (m distributionRecordModel) toEntity() entities.DistributionRecord {
	return entities.DistributionRecord{
		Index:          m.Index,
		Amount:         m.Amount,
		RecordedAt:     m.RecordedAt.UTC(),
		SupplySnapshot: m.SupplySnapshot,
	}
}

type holderAccrualStateModel struct {
	HolderID          string    `gorm:"column:holder_id;primaryKey"`
	Withdrawable      int64     `gorm:"column:withdrawable"`
	Checkpoint        int64     `gorm:"column:checkpoint"`
	LifetimeWithdrawn int64     `gorm:"column:lifetime_withdrawn"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (holderAccrualStateModel) TableName() string {
	return "holder_accrual_states"
}

func (m holderAccrualStateModel) toEntity() entities.HolderAccrualState {
	return entities.HolderAccrualState{
		HolderID:          m.HolderID,
		Withdrawable:      m.Withdrawable,
		Checkpoint:        m.Checkpoint,
		LifetimeWithdrawn: m.LifetimeWithdrawn,
	}
}

type accrualStatsModel struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	TotalAvailable   int64     `gorm:"column:total_available"`
	TotalDistributed int64     `gorm:"column:total_distributed"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (accrualStatsModel) TableName() string {
	return "accrual_stats"
}

type custodyAccountModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Balance   int64     `gorm:"column:balance"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (custodyAccountModel) TableName() string {
	return "custody_account"
}

type rentOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (rentOutboxModel) TableName() string {
	return "rent_distribution_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.UnitOfWork = (*Repository)(nil)
var _ ports.DistributionLog = (*Repository)(nil)
var _ ports.HolderLedger = (*Repository)(nil)
var _ ports.StatsStore = (*Repository)(nil)
var _ ports.CustodyAccount = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
