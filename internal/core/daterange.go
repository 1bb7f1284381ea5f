package core

import (
	"fmt"
	"time"
)

// MaxWindowDays is the widest span the reporting API accepts per query.
const MaxWindowDays = 31

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Name  RangeName `json:"range"`
	Start Date      `json:"start_date"`
	End   Date      `json:"end_date"`
}

// Window is one reporting query span, from the first instant of its first
// day to the last second of its last day.
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveRange maps a named range onto concrete days relative to now (UTC).
func ResolveRange(name RangeName, now time.Time) (DateRange, error) {
	today := DateOf(now.UTC())
	r := DateRange{Name: name, End: today}
	switch name {
	case Range30Days:
		r.Start = today.AddDays(-30)
	case Range90Days:
		r.Start = today.AddDays(-90)
	case RangeYTD:
		r.Start = NewDate(today.Year(), 1, 1)
	case RangeOneYear:
		r.Start = NewDate(today.Year(), 1, 1)
		r.End = NewDate(today.Year(), 12, 31)
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, name)
	}
	return r, nil
}

// Days returns the number of calendar days in the range, inclusive.
func (r DateRange) Days() int {
	if r.End.Before(r.Start.Time) {
		return 0
	}
	return int(r.End.Sub(r.Start.Time).Hours()/24) + 1
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// Chunks splits the range into consecutive windows of at most maxDays days.
func (r DateRange) Chunks(maxDays int) []Window {
	if maxDays <= 0 {
		maxDays = MaxWindowDays
	}
	var windows []Window
	for start := r.Start; !start.After(r.End.Time); start = start.AddDays(maxDays) {
		end := start.AddDays(maxDays - 1)
		if end.After(r.End.Time) {
			end = r.End
		}
		windows = append(windows, Window{
			Start: start.Time,
			End:   end.Add(24*time.Hour - time.Second),
		})
	}
	return windows
}

// FetchWindows returns the chunks that can be queried at now: windows that
// start in the future are dropped and the last one is clamped to now.
func (r DateRange) FetchWindows(now time.Time) []Window {
	now = now.UTC().Truncate(time.Second)
	all := r.Chunks(MaxWindowDays)
	windows := make([]Window, 0, len(all))
	for _, w := range all {
		if w.Start.After(now) {
			break
		}
		if w.End.After(now) {
			w.End = now
		}
		windows = append(windows, w)
	}
	return windows
}
