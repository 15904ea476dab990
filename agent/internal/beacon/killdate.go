package beacon

import (
	"fmt"
	"strings"
	"time"

	"beacon/agent/internal/fault"
)

const killDateLayout = "2006-01-02"

// KillDate is a calendar date after which the agent stops. The zero value
// never expires.
type KillDate struct {
	at time.Time
}

// ParseKillDate parses YYYY-MM-DD in local time. An empty string disables
// the feature. An unparseable string also disables it but returns a
// configuration fault so the caller can warn the operator.
func ParseKillDate(s string) (KillDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KillDate{}, nil
	}
	t, err := time.ParseInLocation(killDateLayout, s, time.Local)
	if err != nil {
		return KillDate{}, fault.Configuration("kill date", fmt.Errorf("%q: %w", s, err))
	}
	return KillDate{at: t}, nil
}

func (k KillDate) Set() bool { return !k.at.IsZero() }

// Expired reports whether now is past the start of the kill date.
func (k KillDate) Expired(now time.Time) bool {
	return k.Set() && now.After(k.at)
}

func (k KillDate) String() string {
	if !k.Set() {
		return "none"
	}
	return k.at.Format(killDateLayout)
}
