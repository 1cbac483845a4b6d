// Package pagination implements keyset (timestamp, id) cursors for list endpoints.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of a page: its sort timestamp
// (created_at, joined_at, start_time...) and id as tiebreaker.
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

// Keyset names the column pair a listing is ordered by. Columns must be
// qualified when the query joins other tables.
type Keyset struct {
	Column   string
	IDColumn string
	Desc     bool
}

// NormalizeLimit enforces the default and maximum page sizes.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Apply decodes the cursor in params and adds the keyset predicate, ordering
// and a one-row lookahead to query. The returned limit is what Trim expects.
func Apply(query *gorm.DB, keys Keyset, params Params) (*gorm.DB, int, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, 0, err
	}
	limit := NormalizeLimit(params.Limit)

	idCol := keys.IDColumn
	if idCol == "" {
		idCol = "id"
	}
	op, dir := ">", "ASC"
	if keys.Desc {
		op, dir = "<", "DESC"
	}
	if cursor != nil {
		query = query.Where(
			fmt.Sprintf("(%s %s ?) OR (%s = ? AND %s %s ?)", keys.Column, op, keys.Column, idCol, op),
			cursor.At, cursor.At, cursor.ID,
		)
	}
	query = query.
		Order(keys.Column + " " + dir).
		Order(idCol + " " + dir).
		Limit(limit + 1)
	return query, limit, nil
}

// Trim drops the lookahead row and returns the cursor of the last kept row,
// or "" when rows is the final page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[limit-1]))
}

// EncodeCursor renders the cursor as a URL-safe token.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.At.UTC().Format(time.RFC3339Nano) + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a token from EncodeCursor. Empty input means first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, invalidCursor(err)
	}
	at, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, invalidCursor(nil)
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, invalidCursor(err)
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidCursor(err)
	}
	return &Cursor{At: t, ID: uid}, nil
}

// IsInvalidCursor reports whether err came from a cursor that failed to parse.
func IsInvalidCursor(err error) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == pkgerrors.CodeValidation && typed.Message() == invalidCursorMessage
}

const invalidCursorMessage = "invalid cursor"

func invalidCursor(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, invalidCursorMessage)
}
