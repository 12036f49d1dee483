package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository stores outbox entries in outbox_events
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormOutboxRepository) WithTx(tx *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: tx}
}

func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEventModel, len(entries))
	for i, e := range entries {
		rows[i] = models.NewOutboxEventModel(e)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// FindPending returns never-attempted entries in commit order
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return r.find(r.db.WithContext(ctx).
		Where("status = ?", shared.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit))
}

// FindRetryable returns failed entries whose backoff ended before the given time
func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return r.find(r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", shared.OutboxStatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit))
}

// MarkProcessing claims the pending or failed entries among ids. On
// PostgreSQL rows locked by another relay are skipped, not waited for.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var claimed []*shared.OutboxEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("id IN ? AND status IN ?", ids, []shared.OutboxStatus{
			shared.OutboxStatusPending,
			shared.OutboxStatusFailed,
		})
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		entries, err := r.find(query)
		if err != nil || len(entries) == 0 {
			return err
		}

		now := time.Now()
		won := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			won[i] = e.ID
			e.Status = shared.OutboxStatusProcessing
			e.UpdatedAt = now
		}
		if err := tx.Model(&models.OutboxEventModel{}).
			Where("id IN ?", won).
			Updates(map[string]any{"status": shared.OutboxStatusProcessing, "updated_at": now}).Error; err != nil {
			return err
		}
		claimed = entries
		return nil
	})
	return claimed, err
}

func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.NewOutboxEventModel(entry)).Error
}

// DeleteOlderThan purges sent entries delivered before the cutoff. Dead
// entries stay until an admin replays them.
func (r *GormOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&models.OutboxEventModel{})
	return result.RowsAffected, result.Error
}

// FindDead pages through dead entries, newest first
func (r *GormOutboxRepository) FindDead(ctx context.Context, q shared.DeadLetterQuery) ([]*shared.OutboxEntry, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("status = ?", shared.OutboxStatusDead)
		if q.Family != "" {
			db = db.Where("event_family = ?", q.Family)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.OutboxEventModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	entries, err := r.find(r.db.WithContext(ctx).Scopes(scope).
		Order("updated_at DESC").
		Offset(q.Offset()).
		Limit(q.PageSize))
	return entries, total, err
}

func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var row models.OutboxEventModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError("outbox entry")
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// CountByStatus counts every entry per delivery status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	counts, err := r.countBy(ctx, "status", nil)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[shared.OutboxStatus]int64, len(counts))
	for status, n := range counts {
		byStatus[shared.OutboxStatus(status)] = n
	}
	return byStatus, nil
}

// CountDeadByFamily counts dead entries per event family
func (r *GormOutboxRepository) CountDeadByFamily(ctx context.Context) (map[string]int64, error) {
	return r.countBy(ctx, "event_family", func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", shared.OutboxStatusDead)
	})
}

func (r *GormOutboxRepository) countBy(ctx context.Context, column string, scope func(*gorm.DB) *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		GroupKey string
		Count    int64
	}
	query := r.db.WithContext(ctx).Model(&models.OutboxEventModel{})
	if scope != nil {
		query = query.Scopes(scope)
	}
	if err := query.
		Select(column + " AS group_key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.GroupKey] = row.Count
	}
	return counts, nil
}

func (r *GormOutboxRepository) find(query *gorm.DB) ([]*shared.OutboxEntry, error) {
	var rows []models.OutboxEventModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
