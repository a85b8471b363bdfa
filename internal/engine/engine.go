// Package engine holds the hours calculator and the auto-checkout policy.
// Everything here is synchronous arithmetic over an already-resolved entry;
// it never touches storage and never fails on a structurally valid entry.
package engine

import (
	"time"

	"pointage-service/internal/clock"
	"pointage-service/internal/model"
)

// WorkdayHours is the cap on net hours. Time beyond it is discarded unless
// overtime has been started, in which case it flows to OvertimeHours.
const WorkdayHours = 8.0

// Recalculate derives TotalHours, BreakHours, NetHours, OvertimeHours and
// Status from the entry's raw timestamps as of now. If the entry is still
// open it first runs the auto-checkout policy; the return value reports
// whether the policy closed the entry (callers on read paths must persist
// that side effect).
func Recalculate(e *model.DailyEntry, now time.Time) bool {
	if e.CheckIn == nil {
		e.TotalHours = 0
		e.BreakHours = 0
		e.NetHours = 0
		e.OvertimeHours = 0
		return false
	}

	autoClosed := false
	if e.CheckOut == nil {
		if at, due := autoCheckoutInstant(e, now); due {
			closeAt(e, at)
			autoClosed = true
		}
	}

	end := now
	if e.CheckOut != nil {
		end = *e.CheckOut
	}
	e.TotalHours = nonNegative(end.Sub(*e.CheckIn).Hours())
	e.BreakHours = breakHours(e.Breaks, now)

	rawNet := nonNegative(e.TotalHours - e.BreakHours)
	if e.OvertimeStarted {
		e.NetHours = WorkdayHours
		e.OvertimeHours = nonNegative(rawNet - WorkdayHours)
	} else {
		e.NetHours = rawNet
		if e.NetHours > WorkdayHours {
			e.NetHours = WorkdayHours
		}
		e.OvertimeHours = 0
	}

	if e.CheckOut == nil {
		e.Status = model.StatusInProgress
	} else {
		switch {
		case e.NetHours+e.OvertimeHours >= WorkdayHours:
			e.Status = model.StatusCompleted
		case e.NetHours >= WorkdayHours/2:
			e.Status = model.StatusPartial
		default:
			e.Status = model.StatusPresent
		}
	}
	return autoClosed
}

// autoCheckoutInstant decides whether an open entry must be force-closed and
// at which instant. The new-day case wins over the midnight case: when the
// Madagascar calendar day has moved past the entry's day, the entry closes at
// 23:59:59.999 of its own day so the hours stay attributed to the day they
// were earned. At midnight of the same day (local hour 0) it closes at now.
func autoCheckoutInstant(e *model.DailyEntry, now time.Time) (time.Time, bool) {
	if clock.DateKey(now) > e.Date {
		if end, err := clock.EndOfDay(e.Date); err == nil {
			return end, true
		}
	}
	if clock.HourOf(now) == 0 {
		return now, true
	}
	return time.Time{}, false
}

// closeAt force-closes the entry: every still-open break ends at the chosen
// checkout instant and the entry is no longer paused.
func closeAt(e *model.DailyEntry, at time.Time) {
	for i := range e.Breaks {
		if e.Breaks[i].End == nil {
			end := at
			e.Breaks[i].End = &end
			e.Breaks[i].Duration = nonNegative(end.Sub(e.Breaks[i].Start).Minutes())
		}
	}
	e.CheckOut = &at
	e.IsPaused = false
}

func breakHours(breaks []model.Break, now time.Time) float64 {
	var total float64
	for _, b := range breaks {
		end := now
		if b.End != nil {
			end = *b.End
		}
		total += nonNegative(end.Sub(b.Start).Hours())
	}
	return total
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
