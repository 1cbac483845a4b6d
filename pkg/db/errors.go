package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

// IsUniqueViolation reports whether err is a duplicate-key failure, optionally
// restricted to one constraint. Postgres errors are matched on SQLSTATE; the
// message fallback covers SQLite in tests.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PostgresError(err); ok {
		if pg.Code != pkgerrors.SQLStateUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsNotFound reports whether err is GORM's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
