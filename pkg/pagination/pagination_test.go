package pagination

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/db/dbtest"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

func TestParseCursorRejectsGarbageAsValidation(t *testing.T) {
	for _, raw := range []string{"%%%", "bm8tc2VwYXJhdG9y", EncodeCursor(Cursor{})[:4]} {
		_, err := ParseCursor(raw)
		require.Error(t, err, raw)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), raw)
		assert.True(t, IsInvalidCursor(err), raw)
	}
	assert.False(t, IsInvalidCursor(pkgerrors.New(pkgerrors.CodeValidation, "limit too large")))
	assert.False(t, IsInvalidCursor(errors.New("invalid cursor")))

	cursor, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestEncodeCursorIsURLSafe(t *testing.T) {
	at := time.Date(2026, 3, 1, 18, 30, 0, 123456789, time.FixedZone("AZT", 4*3600))
	id := uuid.New()
	token := EncodeCursor(Cursor{At: at, ID: id})
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	decoded, err := ParseCursor(token)
	require.NoError(t, err)
	assert.True(t, decoded.At.Equal(at))
	assert.Equal(t, id, decoded.ID)
}

func TestTrimKeepsLimitAndPointsAtLastRow(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	key := func(i int) Cursor { return Cursor{At: base.Add(time.Duration(i) * time.Hour), ID: ids[i]} }

	rows, next := Trim([]int{0, 1, 2}, 2, key)
	assert.Equal(t, []int{0, 1}, rows)
	cursor, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, ids[1], cursor.ID)

	rows, next = Trim([]int{0, 1}, 2, key)
	assert.Len(t, rows, 2)
	assert.Empty(t, next)
}

func TestApplyBuildsKeysetQuery(t *testing.T) {
	db := dbtest.Open(t).Session(&gorm.Session{DryRun: true})
	cursor := EncodeCursor(Cursor{At: time.Now(), ID: uuid.New()})

	query, limit, err := Apply(db.Table("events"), Keyset{Column: "start_time"}, Params{Limit: 500, Cursor: cursor})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, limit)

	var rows []map[string]any
	stmt := query.Find(&rows).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "(start_time > ?) OR (start_time = ? AND id > ?)")
	assert.Contains(t, sql, "ORDER BY start_time ASC,id ASC")
	assert.True(t, strings.Contains(sql, "LIMIT"), sql)

	query, _, err = Apply(db.Table("community_members"), Keyset{
		Column:   "community_members.joined_at",
		IDColumn: "community_members.id",
		Desc:     true,
	}, Params{})
	require.NoError(t, err)
	sql = query.Find(&rows).Statement.SQL.String()
	assert.NotContains(t, sql, "WHERE")
	assert.Contains(t, sql, "ORDER BY community_members.joined_at DESC,community_members.id DESC")
}
