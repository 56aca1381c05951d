package availability

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/salonhq/booking-api/internal/model"
)

// Window is a concrete [Start, End) working window on a calendar date.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether [start, end) fits entirely inside the window.
func (w *Window) Contains(start, end time.Time) bool {
	return w != nil && !start.Before(w.Start) && !end.After(w.End)
}

// OperatingWindow resolves a vendor's operating hours for a date.
// Returns nil when the vendor is closed that day. Malformed stored data
// (bad HH:mm, open >= close) is treated as closed and logged; it must
// never take the resolver down.
func OperatingWindow(hours model.OperatingHours, date time.Time) *Window {
	entry, ok := hours[model.WeekdayKey(date)]
	if !ok || entry.IsClosed {
		return nil
	}

	open, err := model.ParseClock(entry.Open)
	if err != nil {
		log.Warn().Err(err).Str("weekday", model.WeekdayKey(date)).Msg("malformed operating hours, treating as closed")
		return nil
	}
	closeAt, err := model.ParseClock(entry.Close)
	if err != nil {
		log.Warn().Err(err).Str("weekday", model.WeekdayKey(date)).Msg("malformed operating hours, treating as closed")
		return nil
	}
	if open >= closeAt {
		log.Warn().
			Str("weekday", model.WeekdayKey(date)).
			Str("open", entry.Open).
			Str("close", entry.Close).
			Msg("inverted operating hours, treating as closed")
		return nil
	}

	return &Window{
		Start: open.OnDate(date, date.Location()),
		End:   closeAt.OnDate(date, date.Location()),
	}
}

// WorkerWindow resolves a worker's effective working window for a date.
// A date override takes precedence over the weekly rule; an override
// marking a day off, a weekly rule with is_available=false, or the
// absence of both yields nil (unavailable all day).
func WorkerWindow(weekly []*model.WorkerAvailability, override *model.WorkerScheduleOverride, date time.Time) *Window {
	if override != nil {
		if override.IsDayOff {
			return nil
		}
		return windowFromClocks(override.StartTime, override.EndTime, date)
	}

	weekday := int(date.Weekday())
	for _, rule := range weekly {
		if rule.DayOfWeek != weekday {
			continue
		}
		if !rule.IsAvailable {
			return nil
		}
		return windowFromClocks(rule.StartTime, rule.EndTime, date)
	}
	return nil
}

func windowFromClocks(startStr, endStr string, date time.Time) *Window {
	start, err := model.ParseClock(startStr)
	if err != nil {
		log.Warn().Err(err).Msg("malformed availability window, treating as unavailable")
		return nil
	}
	end, err := model.ParseClock(endStr)
	if err != nil {
		log.Warn().Err(err).Msg("malformed availability window, treating as unavailable")
		return nil
	}
	if start >= end {
		return nil
	}
	return &Window{
		Start: start.OnDate(date, date.Location()),
		End:   end.OnDate(date, date.Location()),
	}
}
