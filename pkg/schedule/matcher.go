// Package schedule holds the pure delivery-timing and rotation logic: deciding
// whether a user is due now, and which prompt their rotation serves next.
// Nothing in this package reads the clock or touches storage.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/db"
)

// ToleranceMinutes is how far either side of the user's preferred minute a
// cycle still counts as a match. The trigger cadence is coarser than a
// minute, so without the window users whose minute falls between two ticks
// would never be caught.
const ToleranceMinutes = 10

type Decision struct {
	Due      bool
	LocalNow time.Time
}

// ParseClock parses the stored 12-hour "H:MM AM/PM" preference.
func ParseClock(value string) (hour, minute int, err error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	t, err := time.Parse("3:04 PM", normalized)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid notification time %q: %w", value, err)
	}
	return t.Hour(), t.Minute(), nil
}

// IsDue reports whether the user's chosen local delivery moment falls within
// the tolerance window of nowUTC. Malformed schedule data never panics: the
// user is reported not-due and the parse error is returned for the caller to
// log. The conversion uses the real IANA zone database, so DST transitions
// are handled rather than approximated with a fixed offset.
func IsDue(profile db.UserScheduleProfile, nowUTC time.Time) (Decision, error) {
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		return Decision{LocalNow: nowUTC}, fmt.Errorf("invalid timezone %q: %w", profile.Timezone, err)
	}
	localNow := nowUTC.In(loc)

	days, err := profile.DaySet()
	if err != nil {
		return Decision{LocalNow: localNow}, fmt.Errorf("invalid notification days: %w", err)
	}
	weekday := strings.ToLower(localNow.Weekday().String())
	if !days[weekday] {
		return Decision{LocalNow: localNow}, nil
	}

	hour, minute, err := ParseClock(profile.NotificationTime)
	if err != nil {
		return Decision{LocalNow: localNow}, err
	}

	preferred := hour*60 + minute
	current := localNow.Hour()*60 + localNow.Minute()
	diff := current - preferred
	if diff < 0 {
		diff = -diff
	}
	return Decision{Due: diff < ToleranceMinutes, LocalNow: localNow}, nil
}

// LocalDayBounds returns the [start, end) instants of the calendar day that
// contains localNow, in that day's zone. The idempotency guard evaluates
// "already sent today" against these bounds so the day boundary matches the
// one the due-check used.
func LocalDayBounds(localNow time.Time) (start, end time.Time) {
	year, month, day := localNow.Date()
	start = time.Date(year, month, day, 0, 0, 0, 0, localNow.Location())
	return start, start.AddDate(0, 0, 1)
}
