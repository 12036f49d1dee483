package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormOrderMetricsProvider implements OrderMetricsProvider using GORM.
// It queries the orders and payments tables directly for aggregated metrics.
type GormOrderMetricsProvider struct {
	db *gorm.DB
}

// NewGormOrderMetricsProvider creates a new GormOrderMetricsProvider.
func NewGormOrderMetricsProvider(db *gorm.DB) *GormOrderMetricsProvider {
	return &GormOrderMetricsProvider{db: db}
}

// CountOrdersByStatus returns the number of orders per status.
func (p *GormOrderMetricsProvider) CountOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	type result struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("orders").
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.Status] = r.Count
	}
	return m, nil
}

// CountUnattributedPayments returns payments not yet counted by a daily closing.
func (p *GormOrderMetricsProvider) CountUnattributedPayments(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("payments").
		Where("daily_closing_id IS NULL").
		Count(&count).Error

	return count, err
}
