package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultDeadPageSize = 20
	maxDeadPageSize     = 100
)

// DeadLetterRepository is the outbox storage behind the admin operations
type DeadLetterRepository interface {
	FindDead(ctx context.Context, q shared.DeadLetterQuery) ([]*shared.OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
	CountDeadByFamily(ctx context.Context) (map[string]int64, error)
}

// OutboxService lets admins triage and replay events the relay gave up on.
// Every operation requires the ADMIN role.
type OutboxService struct {
	repo   DeadLetterRepository
	logger *zap.Logger
}

func NewOutboxService(repo DeadLetterRepository, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxEntryDTO is an outbox entry as shown to admins
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type" example:"DailyClosed"`
	Family        string     `json:"family,omitempty" example:"closing"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type" example:"DailyClosing"`
	Status        string     `json:"status" example:"DEAD"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxFilter selects a page of the dead letter queue
type OutboxFilter struct {
	Family   string `form:"family" binding:"omitempty,oneof=order payment closing"`
	Page     int    `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

// query normalises paging to page >= 1 and 1..100 entries
func (f OutboxFilter) query() shared.DeadLetterQuery {
	q := shared.DeadLetterQuery{Family: f.Family, Page: max(f.Page, 1), PageSize: f.PageSize}
	switch {
	case q.PageSize < 1:
		q.PageSize = defaultDeadPageSize
	case q.PageSize > maxDeadPageSize:
		q.PageSize = maxDeadPageSize
	}
	return q
}

// OutboxListResult is one page of dead entries
type OutboxListResult struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// OutboxStatsDTO counts entries per status, and dead entries per family
type OutboxStatsDTO struct {
	Pending      int64            `json:"pending"`
	Processing   int64            `json:"processing"`
	Sent         int64            `json:"sent"`
	Failed       int64            `json:"failed"`
	Dead         int64            `json:"dead"`
	Total        int64            `json:"total"`
	DeadByFamily map[string]int64 `json:"dead_by_family"`
}

// GetDeadLetterEntries lists dead entries, newest first
func (s *OutboxService) GetDeadLetterEntries(ctx context.Context, filter OutboxFilter) (*OutboxListResult, error) {
	if _, err := shared.RequireRole(ctx, shared.RoleAdmin); err != nil {
		return nil, err
	}

	q := filter.query()
	entries, total, err := s.repo.FindDead(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list dead letter entries", zap.String("family", q.Family), zap.Error(err))
		return nil, err
	}

	dtos := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toOutboxEntryDTO(entry)
	}
	return &OutboxListResult{
		Entries:    dtos,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}

// RetryDeadEntry puts one dead entry back in the relay queue with a fresh
// retry budget. Entries that are not dead fail with a precondition error.
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	op, err := shared.RequireRole(ctx, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requeue(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Dead letter entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("family", entry.Family),
		zap.String("operator_id", op.ID.String()),
	)
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries requeues every dead entry of family, or of every
// family when it is empty, and returns how many went back
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context, family string) (int64, error) {
	op, err := shared.RequireRole(ctx, shared.RoleAdmin)
	if err != nil {
		return 0, err
	}

	q := shared.DeadLetterQuery{Family: family, Page: 1, PageSize: maxDeadPageSize}
	var requeued int64
	for {
		// Requeued entries leave the dead set, so page one is always the next batch
		entries, _, err := s.repo.FindDead(ctx, q)
		if err != nil {
			s.logger.Error("Failed to list dead letter entries", zap.String("family", family), zap.Error(err))
			return requeued, err
		}

		batch := 0
		for _, entry := range entries {
			if s.requeue(ctx, entry) == nil {
				batch++
			}
		}
		requeued += int64(batch)

		if batch == 0 || len(entries) < q.PageSize {
			break
		}
	}

	s.logger.Info("Dead letter entries requeued",
		zap.Int64("count", requeued),
		zap.String("family", family),
		zap.String("operator_id", op.ID.String()),
	)
	return requeued, nil
}

func (s *OutboxService) requeue(ctx context.Context, entry *shared.OutboxEntry) error {
	if err := entry.ResetForRetry(); err != nil {
		return shared.NewPreconditionError(err.Error()).WithDetail("status", string(entry.Status))
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Failed to requeue outbox entry", zap.String("id", entry.ID.String()), zap.Error(err))
		return err
	}
	return nil
}

// GetStats counts entries per status and dead entries per family
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	if _, err := shared.RequireRole(ctx, shared.RoleAdmin); err != nil {
		return nil, err
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to count outbox entries", zap.Error(err))
		return nil, err
	}
	deadByFamily, err := s.repo.CountDeadByFamily(ctx)
	if err != nil {
		s.logger.Error("Failed to count dead letters by family", zap.Error(err))
		return nil, err
	}

	stats := &OutboxStatsDTO{
		Pending:      counts[shared.OutboxStatusPending],
		Processing:   counts[shared.OutboxStatusProcessing],
		Sent:         counts[shared.OutboxStatusSent],
		Failed:       counts[shared.OutboxStatusFailed],
		Dead:         counts[shared.OutboxStatusDead],
		DeadByFamily: deadByFamily,
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		Family:        entry.Family,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
