package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/workshop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation.
// gorm translates it when TranslateError is on; raw pgconn errors are
// checked for callers that bypass the translator.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// translateError maps storage errors onto domain errors. entity names the
// row for NotFound and Duplicate; other errors are wrapped with op.
func translateError(err error, op, entity string) error {
	switch {
	case err == nil:
		return nil
	case shared.IsDomainError(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound.WithDetail("entity", entity)
	case isUniqueViolation(err):
		return shared.NewDuplicateError(entity, entity+" already exists")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// isPostgres reports whether row locks are available on db
func isPostgres(db *gorm.DB) bool {
	return db.Dialector != nil && db.Dialector.Name() == "postgres"
}
