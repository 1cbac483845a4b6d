package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded to
// [min, max], returning def when it is absent.
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a whole number").
			WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" is out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryTime reads an optional RFC 3339 timestamp. The zero time means
// the parameter was absent.
func ParseQueryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, key+" must be an RFC 3339 timestamp").
			WithDetails(map[string]any{"field": key})
	}
	return ts.UTC(), nil
}

// CleanToken trims input, rejects control characters and caps it at max
// runes. Used for opaque client identifiers such as visitor keys.
func CleanToken(input string, max int) string {
	input = strings.TrimSpace(input)
	if strings.IndexFunc(input, unicode.IsControl) >= 0 {
		return ""
	}
	if max > 0 && utf8.RuneCountInString(input) > max {
		input = string([]rune(input)[:max])
	}
	return input
}
