package events

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultNotificationOffsets apply when an event is created without explicit offsets.
var DefaultNotificationOffsets = []string{"1d", "1h"}

const maxOffset = 30 * 24 * time.Hour

// ParseOffset reads a reminder lead time such as "30m", "2h", "1d" or "1w".
func ParseOffset(value string) (time.Duration, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if len(value) < 2 {
		return 0, fmt.Errorf("invalid offset %q", value)
	}
	n, err := strconv.Atoi(value[:len(value)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid offset %q", value)
	}
	var unit time.Duration
	switch value[len(value)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid offset unit in %q", value)
	}
	d := time.Duration(n) * unit
	if d > maxOffset {
		return 0, fmt.Errorf("offset %q exceeds 30 days", value)
	}
	return d, nil
}

// NormalizeOffsets validates, lowercases and de-duplicates offsets.
func NormalizeOffsets(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, v := range values {
		v = strings.TrimSpace(strings.ToLower(v))
		if _, err := ParseOffset(v); err != nil {
			return nil, err
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// HumanizeLead renders a lead time the way reminder emails phrase it.
func HumanizeLead(d time.Duration) string {
	switch {
	case d <= 0:
		return "now"
	case d < time.Hour:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Round(time.Hour)/time.Hour), "hour")
	default:
		return plural(int(d.Round(24*time.Hour)/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "in 1 " + unit
	}
	return fmt.Sprintf("in %d %ss", n, unit)
}
