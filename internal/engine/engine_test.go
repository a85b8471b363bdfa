package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointage-service/internal/clock"
	"pointage-service/internal/engine"
	"pointage-service/internal/model"
)

func tp(t time.Time) *time.Time { return &t }

func TestRecalculateNoCheckIn(t *testing.T) {
	e := &model.DailyEntry{Date: "2024-03-01", Status: model.StatusAbsent}
	closed := engine.Recalculate(e, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	assert.False(t, closed)
	assert.Zero(t, e.TotalHours)
	assert.Zero(t, e.BreakHours)
	assert.Zero(t, e.NetHours)
	assert.Zero(t, e.OvertimeHours)
	assert.Equal(t, model.StatusAbsent, e.Status)
}

func TestRecalculateClosedDayWithBreak(t *testing.T) {
	// Check-in 06:00 UTC = 09:00 Madagascar, break 10:00-10:30 local,
	// checkout 14:00 UTC = 17:00 local.
	e := &model.DailyEntry{
		Date:     "2024-03-01",
		CheckIn:  tp(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)),
		CheckOut: tp(time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)),
		Breaks: []model.Break{{
			Start:    time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC),
			End:      tp(time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC)),
			Duration: 30,
		}},
	}
	closed := engine.Recalculate(e, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC))

	assert.False(t, closed)
	assert.InDelta(t, 8.0, e.TotalHours, 1e-9)
	assert.InDelta(t, 0.5, e.BreakHours, 1e-9)
	assert.InDelta(t, 7.5, e.NetHours, 1e-9)
	assert.Zero(t, e.OvertimeHours)
	assert.Equal(t, model.StatusPartial, e.Status)
}

func TestRecalculateExactEightHours(t *testing.T) {
	e := &model.DailyEntry{
		Date:     "2024-03-01",
		CheckIn:  tp(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)),
		CheckOut: tp(time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)),
	}
	engine.Recalculate(e, time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC))

	assert.InDelta(t, 8.0, e.NetHours, 1e-9)
	assert.Equal(t, model.StatusCompleted, e.Status)
}

func TestRecalculateCapsNetWithoutOvertime(t *testing.T) {
	// 10 worked hours without started overtime: net caps at 8, excess is
	// discarded.
	e := &model.DailyEntry{
		Date:     "2024-03-01",
		CheckIn:  tp(time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)),
		CheckOut: tp(time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)),
	}
	engine.Recalculate(e, time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC))

	assert.InDelta(t, 10.0, e.TotalHours, 1e-9)
	assert.InDelta(t, 8.0, e.NetHours, 1e-9)
	assert.Zero(t, e.OvertimeHours)
	assert.Equal(t, model.StatusCompleted, e.Status)
}

func TestRecalculateOvertimeStarted(t *testing.T) {
	e := &model.DailyEntry{
		Date:            "2024-03-01",
		CheckIn:         tp(time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)),
		CheckOut:        tp(time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)),
		OvertimeStarted: true,
		Breaks: []model.Break{{
			Start:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			End:      tp(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)),
			Duration: 30,
		}},
	}
	engine.Recalculate(e, time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC))

	assert.InDelta(t, 8.0, e.NetHours, 1e-9)
	assert.InDelta(t, 1.5, e.OvertimeHours, 1e-9)
	assert.Equal(t, model.StatusCompleted, e.Status)
}

func TestRecalculateOvertimeStartedPinsNetEvenBelowCap(t *testing.T) {
	// Overtime started with only 6 raw net hours: net is pinned to 8,
	// overtime floors at 0.
	e := &model.DailyEntry{
		Date:            "2024-03-01",
		CheckIn:         tp(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)),
		CheckOut:        tp(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		OvertimeStarted: true,
	}
	engine.Recalculate(e, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC))

	assert.InDelta(t, 8.0, e.NetHours, 1e-9)
	assert.Zero(t, e.OvertimeHours)
}

func TestRecalculateIdempotentOnClosedEntry(t *testing.T) {
	e := &model.DailyEntry{
		Date:     "2024-03-01",
		CheckIn:  tp(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)),
		CheckOut: tp(time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)),
		Breaks: []model.Break{{
			Start:    time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC),
			End:      tp(time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC)),
			Duration: 30,
		}},
	}
	now := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	engine.Recalculate(e, now)
	first := *e
	engine.Recalculate(e, now.Add(3*time.Hour))
	second := *e

	assert.Equal(t, first.TotalHours, second.TotalHours)
	assert.Equal(t, first.BreakHours, second.BreakHours)
	assert.Equal(t, first.NetHours, second.NetHours)
	assert.Equal(t, first.OvertimeHours, second.OvertimeHours)
	assert.Equal(t, first.Status, second.Status)
}

func TestAutoCheckoutNewDayClosesAtEndOfEntryDay(t *testing.T) {
	// Checked in at 23:00 Madagascar time on day D, recomputed at 00:30
	// local on D+1: closes at D 23:59:59.999 local, not at the recompute
	// instant.
	checkIn := time.Date(2024, 3, 5, 23, 0, 0, 0, clock.Zone)
	e := &model.DailyEntry{Date: "2024-03-05", CheckIn: tp(checkIn)}

	now := time.Date(2024, 3, 6, 0, 30, 0, 0, clock.Zone)
	closed := engine.Recalculate(e, now)

	require.True(t, closed)
	require.NotNil(t, e.CheckOut)
	want := time.Date(2024, 3, 5, 23, 59, 59, 999e6, clock.Zone)
	assert.True(t, e.CheckOut.Equal(want), "checkout %v, want %v", e.CheckOut, want)
	assert.False(t, e.IsPaused)
	assert.InDelta(t, 1.0, e.TotalHours, 1e-3)
	assert.Equal(t, model.StatusPresent, e.Status)
}

func TestAutoCheckoutNewDayClosesOpenBreaks(t *testing.T) {
	checkIn := time.Date(2024, 3, 5, 22, 0, 0, 0, clock.Zone)
	breakStart := time.Date(2024, 3, 5, 23, 30, 0, 0, clock.Zone)
	e := &model.DailyEntry{
		Date:     "2024-03-05",
		CheckIn:  tp(checkIn),
		Breaks:   []model.Break{{Start: breakStart}},
		IsPaused: true,
	}

	closed := engine.Recalculate(e, time.Date(2024, 3, 6, 8, 0, 0, 0, clock.Zone))

	require.True(t, closed)
	require.NotNil(t, e.Breaks[0].End)
	want := time.Date(2024, 3, 5, 23, 59, 59, 999e6, clock.Zone)
	assert.True(t, e.Breaks[0].End.Equal(want))
	assert.InDelta(t, 30.0, e.Breaks[0].Duration, 0.1)
	assert.False(t, e.IsPaused)
}

func TestAutoCheckoutMidnightSameDayClosesAtNow(t *testing.T) {
	// Checked in a few minutes past midnight local; at 00:30 the midnight
	// branch fires and closes at now.
	checkIn := time.Date(2024, 3, 6, 0, 5, 0, 0, clock.Zone)
	e := &model.DailyEntry{Date: "2024-03-06", CheckIn: tp(checkIn)}

	now := time.Date(2024, 3, 6, 0, 30, 0, 0, clock.Zone)
	closed := engine.Recalculate(e, now)

	require.True(t, closed)
	require.NotNil(t, e.CheckOut)
	assert.True(t, e.CheckOut.Equal(now))
	assert.InDelta(t, 25.0/60, e.TotalHours, 1e-9)
}

func TestNoAutoCheckoutDuringTheDay(t *testing.T) {
	checkIn := time.Date(2024, 3, 5, 9, 0, 0, 0, clock.Zone)
	e := &model.DailyEntry{Date: "2024-03-05", CheckIn: tp(checkIn)}

	closed := engine.Recalculate(e, time.Date(2024, 3, 5, 15, 0, 0, 0, clock.Zone))

	assert.False(t, closed)
	assert.Nil(t, e.CheckOut)
	assert.Equal(t, model.StatusInProgress, e.Status)
	assert.InDelta(t, 6.0, e.TotalHours, 1e-9)
}

func TestOpenBreakCountsUpToNow(t *testing.T) {
	checkIn := time.Date(2024, 3, 5, 9, 0, 0, 0, clock.Zone)
	e := &model.DailyEntry{
		Date:     "2024-03-05",
		CheckIn:  tp(checkIn),
		Breaks:   []model.Break{{Start: time.Date(2024, 3, 5, 12, 0, 0, 0, clock.Zone)}},
		IsPaused: true,
	}
	engine.Recalculate(e, time.Date(2024, 3, 5, 13, 0, 0, 0, clock.Zone))

	assert.InDelta(t, 4.0, e.TotalHours, 1e-9)
	assert.InDelta(t, 1.0, e.BreakHours, 1e-9)
	assert.InDelta(t, 3.0, e.NetHours, 1e-9)
}
