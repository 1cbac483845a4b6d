package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

type reviewRequest struct {
	Status    enums.WaitlistStatus `json:"status" validate:"required,enum"`
	Community string               `json:"community_slug,omitempty" validate:"omitempty,slug"`
	Timezone  string               `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Note      string               `json:"note,omitempty" validate:"max=10"`
}

func decode(t *testing.T, body string) (reviewRequest, error) {
	t.Helper()
	var dest reviewRequest
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	return dest, err
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"status":"approved","community_slug":"go-baku","timezone":"Asia/Baku"}`)
	require.NoError(t, err)
	assert.Equal(t, enums.WaitlistStatus("approved"), got.Status)
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	_, err := decode(t, `{"status":"maybe","community_slug":"Go Baku","timezone":"Mars/Olympus","note":"far too long a note"}`)
	details := detailsOf(t, err)
	assert.Contains(t, details["status"], "not a valid value")
	assert.Contains(t, details, "community_slug")
	assert.Equal(t, "must be an IANA timezone", details["timezone"])
	assert.Equal(t, "must be at most 10", details["note"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"syntax":         `{"status":`,
		"unknown field":  `{"status":"approved","extra":1}`,
		"wrong type":     `{"status":42}`,
		"trailing value": `{"status":"approved"} {"status":"approved"}`,
		"oversized":      `{"note":"` + strings.Repeat("x", maxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestCleanToken(t *testing.T) {
	assert.Equal(t, "abc", CleanToken("  abc ", 10))
	assert.Equal(t, "ğüş", CleanToken("ğüşçö", 3), "truncates on rune boundaries")
	assert.Empty(t, CleanToken("abc\x00def", 10))
}

func TestParseQueryTime(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?since=2026-03-01T10:00:00%2B04:00&bad=yesterday", nil)
	ts, err := ParseQueryTime(req, "since")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T06:00:00Z", ts.Format("2006-01-02T15:04:05Z07:00"))

	_, err = ParseQueryTime(req, "bad")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	ts, err = ParseQueryTime(req, "missing")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}
