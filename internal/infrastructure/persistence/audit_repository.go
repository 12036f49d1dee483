package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository implements audit.Repository using GORM. Entries are
// only ever inserted.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts an entry. An entry written twice from the same source
// event is a DuplicateError.
func (r *GormAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	if err := r.db.WithContext(ctx).Create(models.AuditEntryModelFromDomain(entry)).Error; err != nil {
		return translateError(err, "append audit entry", "audit entry")
	}
	return nil
}

// FindByEntity lists the entries of one entity, oldest first
func (r *GormAuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]audit.Entry, error) {
	var rows []models.AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return toAuditEntries(rows), nil
}

// FindByAction lists entries of one action, newest first
func (r *GormAuditRepository) FindByAction(ctx context.Context, action audit.Action, filter shared.Filter) ([]audit.Entry, error) {
	var rows []models.AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("action = ?", action).
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return toAuditEntries(rows), nil
}

func toAuditEntries(rows []models.AuditEntryModel) []audit.Entry {
	entries := make([]audit.Entry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries
}

// Ensure GormAuditRepository implements audit.Repository
var _ audit.Repository = (*GormAuditRepository)(nil)
