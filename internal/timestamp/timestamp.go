// Package timestamp converts the timestamp shapes seen in webhook payloads
// and typed requests into UTC instants.
package timestamp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/foxseedlab/attendance/internal/apperror"
	"github.com/foxseedlab/attendance/internal/logging"
)

// Mode selects how unusable input is treated.
type Mode int

const (
	// Strict rejects anything that is not epoch milliseconds or a zoned
	// ISO-8601 string.
	Strict Mode = iota
	// Lenient substitutes the current time for input it cannot use.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

var zonedLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Instants outside [MinInstant, MaxInstant] are rejected so every accepted
// value renders with a four-digit year.
var (
	MinInstant = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxInstant = time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC)
)

type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock is used where the fallback instant must be fixed.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

func (n *Normalizer) Now() time.Time {
	return n.now().UTC()
}

// Normalize converts v to a UTC instant. nil yields the current time in both
// modes; numbers are epoch milliseconds; strings are ISO-8601 with a zone.
func (n *Normalizer) Normalize(ctx context.Context, v any, mode Mode) (time.Time, error) {
	if v == nil {
		return n.Now(), nil
	}
	var (
		t   time.Time
		err error
	)
	switch x := v.(type) {
	case string:
		t, err = ParseISO(x)
	case json.Number:
		t, err = fromNumber(x)
	case float64:
		t, err = fromMillisFloat(x)
	case float32:
		t, err = fromMillisFloat(float64(x))
	case int:
		t = time.UnixMilli(int64(x)).UTC()
	case int32:
		t = time.UnixMilli(int64(x)).UTC()
	case int64:
		t = time.UnixMilli(x).UTC()
	case uint32:
		t = time.UnixMilli(int64(x)).UTC()
	case time.Time:
		t = x.UTC()
	default:
		err = apperror.NewInvalidTimestamp(fmt.Sprintf("unsupported timestamp type %T", v))
	}
	if err == nil {
		err = checkRange(t)
	}
	if err == nil {
		return t, nil
	}
	if mode == Lenient {
		slog.WarnContext(ctx, "unusable timestamp replaced with current time", "value", fmt.Sprint(v), logging.ErrKey, err)
		return n.Now(), nil
	}
	return time.Time{}, err
}

// ParseISO parses an ISO-8601 timestamp that carries a zone designator.
// A trailing Z is read as +00:00.
func ParseISO(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, apperror.NewInvalidTimestamp("timestamp is empty")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return time.Time{}, apperror.NewInvalidTimestamp("timestamp must include timezone information")
		}
	}
	return time.Time{}, apperror.NewInvalidTimestamp(fmt.Sprintf("timestamp %q is not ISO-8601", value))
}

func fromNumber(n json.Number) (time.Time, error) {
	if ms, err := n.Int64(); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	f, err := n.Float64()
	if err != nil {
		return time.Time{}, apperror.NewInvalidTimestamp(fmt.Sprintf("timestamp %q is not a number", n.String()), err)
	}
	return fromMillisFloat(f)
}

func checkRange(t time.Time) error {
	if t.Before(MinInstant) || t.After(MaxInstant) {
		return apperror.NewInvalidTimestamp(fmt.Sprintf("timestamp year %d is outside 0001-9999", t.Year()))
	}
	return nil
}

func fromMillisFloat(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, apperror.NewInvalidTimestamp("timestamp is not a finite number")
	}
	if ms < float64(MinInstant.UnixMilli()) || ms > float64(MaxInstant.UnixMilli()) {
		return time.Time{}, apperror.NewInvalidTimestamp("timestamp is outside years 0001-9999")
	}
	sec := math.Floor(ms / 1000)
	nsec := math.Round((ms - sec*1000) * 1e6)
	return time.Unix(int64(sec), int64(nsec)).UTC(), nil
}
