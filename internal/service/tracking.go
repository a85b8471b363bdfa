package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pointage-service/internal/clock"
	"pointage-service/internal/engine"
	"pointage-service/internal/model"
)

// Store is the persistence needed by the tracking service: whole-document
// reads and writes of monthly tracking records. Concurrent mutations of the
// same document are read-modify-write, last write wins; only the uniqueness
// of (user, month_key) is enforced by the store itself.
type Store interface {
	// GetMonthly returns (nil, nil) when no document exists.
	GetMonthly(ctx context.Context, userID, monthKey string) (*model.MonthlyTracking, error)
	// CreateMonthly returns an error wrapping ErrDuplicateMonth when the
	// (user, month_key) document already exists.
	CreateMonthly(ctx context.Context, mt *model.MonthlyTracking) error
	UpdateMonthly(ctx context.Context, mt *model.MonthlyTracking) error
	// GetMonthlyRange returns documents with fromKey <= month_key <= toKey,
	// ascending.
	GetMonthlyRange(ctx context.Context, userID, fromKey, toKey string) ([]*model.MonthlyTracking, error)
}

type TrackingService struct {
	store Store
	clock clock.Clock
}

func NewTrackingService(store Store, clk clock.Clock) *TrackingService {
	return &TrackingService{store: store, clock: clk}
}

// CheckOutResult is the caller-facing summary of a checkout.
type CheckOutResult struct {
	CheckOut             time.Time `json:"check_out"`
	NetHours             float64   `json:"net_hours"`
	HasReachedEightHours bool      `json:"has_reached_eight_hours"`
}

// StatusSnapshot is the real-time view of a user's current day.
type StatusSnapshot struct {
	Entry             *model.DailyEntry `json:"entry,omitempty"`
	CurrentTime       time.Time         `json:"current_time"`
	TotalHours        float64           `json:"total_hours"`
	BreakHours        float64           `json:"break_hours"`
	NetHours          float64           `json:"net_hours"`
	OvertimeHours     float64           `json:"overtime_hours"`
	IsWorking         bool              `json:"is_working"`
	IsPaused          bool              `json:"is_paused"`
	TimeToEightHours  int               `json:"time_to_eight_hours"` // minutes
	OvertimeRequested bool              `json:"overtime_requested"`
	OvertimeApproved  bool              `json:"overtime_approved"`
	OvertimeStarted   bool              `json:"overtime_started"`
}

// at defaults a zero instant to the injected clock.
func (s *TrackingService) at(at time.Time) time.Time {
	if at.IsZero() {
		return s.clock.Now()
	}
	return at
}

// CheckIn opens (or creates) today's entry for the user.
func (s *TrackingService) CheckIn(ctx context.Context, userID string, when time.Time) (*model.DailyEntry, error) {
	when = s.at(when)
	mt, err := s.resolveMonth(ctx, userID, when)
	if err != nil {
		return nil, err
	}
	s.closeStale(mt, when)

	e := resolveEntry(mt, when)
	if e.CheckIn != nil {
		return nil, fmt.Errorf("%w: already checked in on %s", ErrInvalidState, e.Date)
	}
	checkIn := when
	e.CheckIn = &checkIn
	e.Status = model.StatusPresent
	engine.Recalculate(e, when)

	if err := s.save(ctx, mt); err != nil {
		return nil, err
	}
	return copyEntry(e), nil
}

// CheckOut closes today's open entry. A still-open break is closed at the
// checkout instant first.
func (s *TrackingService) CheckOut(ctx context.Context, userID string, when time.Time) (*CheckOutResult, error) {
	when = s.at(when)
	mt, e, err := s.requireEntry(ctx, userID, when)
	if err != nil {
		return nil, err
	}
	s.closeStale(mt, when)
	if e.CheckIn == nil {
		return nil, fmt.Errorf("%w: no check-in on %s", ErrInvalidState, e.Date)
	}
	if e.CheckOut != nil {
		return nil, fmt.Errorf("%w: already checked out on %s", ErrInvalidState, e.Date)
	}

	if b := e.CurrentBreak(); b != nil {
		end := when
		b.End = &end
		b.Duration = nonNegativeMinutes(end.Sub(b.Start))
		e.IsPaused = false
	}
	checkOut := when
	e.CheckOut = &checkOut
	engine.Recalculate(e, when)

	if err := s.save(ctx, mt); err != nil {
		return nil, err
	}
	return &CheckOutResult{
		CheckOut:             *e.CheckOut,
		NetHours:             e.NetHours,
		HasReachedEightHours: e.NetHours+e.OvertimeHours >= engine.WorkdayHours,
	}, nil
}

// StartBreak pauses today's open entry.
func (s *TrackingService) StartBreak(ctx context.Context, userID string, when time.Time) (*model.DailyEntry, error) {
	when = s.at(when)
	mt, e, err := s.requireEntry(ctx, userID, when)
	if err != nil {
		return nil, err
	}
	s.closeStale(mt, when)
	if !e.Open() {
		return nil, fmt.Errorf("%w: no open check-in on %s", ErrInvalidState, e.Date)
	}
	if e.IsPaused {
		return nil, fmt.Errorf("%w: already on break", ErrInvalidState)
	}

	e.Breaks = append(e.Breaks, model.Break{Start: when})
	e.IsPaused = true
	engine.Recalculate(e, when)

	if err := s.save(ctx, mt); err != nil {
		return nil, err
	}
	return copyEntry(e), nil
}

// EndBreak resumes work by closing the current open break.
func (s *TrackingService) EndBreak(ctx context.Context, userID string, when time.Time) (*model.DailyEntry, error) {
	when = s.at(when)
	mt, e, err := s.requireEntry(ctx, userID, when)
	if err != nil {
		return nil, err
	}
	s.closeStale(mt, when)
	b := e.CurrentBreak()
	if b == nil {
		return nil, fmt.Errorf("%w: no open break", ErrInvalidState)
	}

	end := when
	b.End = &end
	b.Duration = nonNegativeMinutes(end.Sub(b.Start))
	e.IsPaused = false
	resume := when
	e.LastResumeTime = &resume
	engine.Recalculate(e, when)

	if err := s.save(ctx, mt); err != nil {
		return nil, err
	}
	return copyEntry(e), nil
}

// ContinueWork reopens a checked-out entry so the user can keep accumulating
// toward the 8-hour day. The gap between the old checkout and now is kept as
// a break.
func (s *TrackingService) ContinueWork(ctx context.Context, userID string, when time.Time) (*model.DailyEntry, error) {
	when = s.at(when)
	mt, e, err := s.requireEntry(ctx, userID, when)
	if err != nil {
		return nil, err
	}
	if e.CheckOut == nil {
		return nil, fmt.Errorf("%w: entry on %s is still open", ErrInvalidState, e.Date)
	}

	gapStart := *e.CheckOut
	gapEnd := when
	e.Breaks = append(e.Breaks, model.Break{
		Start:    gapStart,
		End:      &gapEnd,
		Duration: nonNegativeMinutes(gapEnd.Sub(gapStart)),
	})
	e.CheckOut = nil
	e.IsPaused = false
	engine.Recalculate(e, when)

	if err := s.save(ctx, mt); err != nil {
		return nil, err
	}
	return copyEntry(e), nil
}

// RequestOvertime flags today's entry as requesting hours beyond the cap.
func (s *TrackingService) RequestOvertime(ctx context.Context, userID string, when time.Time) (*model.DailyEntry, error) {
	when = s.at(when)
	mt, e, err := s.requireEntry(ctx, userID, when)
	if err != nil {
		return nil, err
	}
	if e.CheckIn == nil {
		return nil, fmt.Errorf("%w: no check-in on %s", ErrInvalidState, e.Date)
	}
	if e.OvertimeRequested {
		return nil, fmt.Errorf("%w: overtime already requested", ErrInvalidState)
	}

	e.OvertimeRequested = true
	engine.Recalculate(e, when)
	if err := s.save(ctx, mt); err != nil {
		return nil, err
	}
	return copyEntry(e), nil
}

// ApproveOvertime marks a requested overtime as approved.
func (s *TrackingService) ApproveOvertime(ctx context.Context, userID string, when time.Time) (*model.DailyEntry, error) {
	when = s.at(when)
	mt, e, err := s.requireEntry(ctx, userID, when)
	if err != nil {
		return nil, err
	}
	if !e.OvertimeRequested {
		return nil, fmt.Errorf("%w: overtime was not requested", ErrInvalidState)
	}
	if e.OvertimeApproved {
		return nil, fmt.Errorf("%w: overtime already approved", ErrInvalidState)
	}

	e.OvertimeApproved = true
	engine.Recalculate(e, when)
	if err := s.save(ctx, mt); err != nil {
		return nil, err
	}
	return copyEntry(e), nil
}

// StartOvertime lifts the 8-hour cap on today's entry: net hours pin to 8 and
// the excess flows to overtime hours from here on.
func (s *TrackingService) StartOvertime(ctx context.Context, userID string, when time.Time) (*model.DailyEntry, error) {
	when = s.at(when)
	mt, e, err := s.requireEntry(ctx, userID, when)
	if err != nil {
		return nil, err
	}
	if !e.OvertimeApproved {
		return nil, fmt.Errorf("%w: overtime is not approved", ErrInvalidState)
	}
	if e.OvertimeStarted {
		return nil, fmt.Errorf("%w: overtime already started", ErrInvalidState)
	}

	e.OvertimeStarted = true
	engine.Recalculate(e, when)
	if err := s.save(ctx, mt); err != nil {
		return nil, err
	}
	return copyEntry(e), nil
}

// RealTimeStatus returns the live view of the user's current day. Although
// nominally a read, it runs the auto-checkout policy over any open entries of
// the current and previous month and persists what it closes, so a day is
// never left open once its calendar day has passed.
func (s *TrackingService) RealTimeStatus(ctx context.Context, userID string) (*StatusSnapshot, error) {
	now := s.clock.Now()

	lt := now.In(clock.Zone)
	firstOfMonth := time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, clock.Zone)
	prevKey := clock.MonthKey(firstOfMonth.AddDate(0, 0, -1))
	prev, err := s.store.GetMonthly(ctx, userID, prevKey)
	if err != nil {
		return nil, err
	}
	if prev != nil && s.closeStale(prev, now) {
		if err := s.save(ctx, prev); err != nil {
			return nil, err
		}
	}

	mt, err := s.store.GetMonthly(ctx, userID, clock.MonthKey(now))
	if err != nil {
		return nil, err
	}
	snap := &StatusSnapshot{CurrentTime: now, TimeToEightHours: int(engine.WorkdayHours * 60)}
	if mt == nil {
		return snap, nil
	}
	if s.closeStale(mt, now) {
		if err := s.save(ctx, mt); err != nil {
			return nil, err
		}
	}

	e := mt.EntryFor(clock.DateKey(now))
	if e == nil {
		return snap, nil
	}
	engine.Recalculate(e, now)

	snap.Entry = copyEntry(e)
	snap.TotalHours = e.TotalHours
	snap.BreakHours = e.BreakHours
	snap.NetHours = e.NetHours
	snap.OvertimeHours = e.OvertimeHours
	snap.IsWorking = e.Open() && !e.IsPaused
	snap.IsPaused = e.IsPaused
	snap.OvertimeRequested = e.OvertimeRequested
	snap.OvertimeApproved = e.OvertimeApproved
	snap.OvertimeStarted = e.OvertimeStarted
	remaining := (engine.WorkdayHours - (e.NetHours + e.OvertimeHours)) * 60
	if remaining < 0 {
		remaining = 0
	}
	snap.TimeToEightHours = int(remaining)
	return snap, nil
}

// GetMonthlyTracking returns the document for the given month, defaulting to
// the current Madagascar month. Stale open entries are closed and persisted
// before returning.
func (s *TrackingService) GetMonthlyTracking(ctx context.Context, userID string, month time.Month, year int) (*model.MonthlyTracking, error) {
	now := s.clock.Now()
	if month == 0 || year == 0 {
		month, year = clock.MonthYear(now)
	}
	key := clock.MonthKeyOf(month, year)
	mt, err := s.store.GetMonthly(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, fmt.Errorf("%w: monthly tracking %s for user %s", ErrNotFound, key, userID)
	}
	if s.closeStale(mt, now) {
		if err := s.save(ctx, mt); err != nil {
			return nil, err
		}
	}
	return mt, nil
}

// GetHistory returns the monthly documents between the months of from and to
// inclusive, closing and persisting stale open entries along the way.
func (s *TrackingService) GetHistory(ctx context.Context, userID string, from, to time.Time) ([]*model.MonthlyTracking, error) {
	now := s.clock.Now()
	months, err := s.store.GetMonthlyRange(ctx, userID, clock.MonthKey(from), clock.MonthKey(to))
	if err != nil {
		return nil, err
	}
	for _, mt := range months {
		if s.closeStale(mt, now) {
			if err := s.save(ctx, mt); err != nil {
				return nil, err
			}
		}
	}
	return months, nil
}

// resolveMonth finds or creates the monthly document for the instant. A
// duplicate-key failure on create means another request inserted it first;
// re-fetch once, then give up.
func (s *TrackingService) resolveMonth(ctx context.Context, userID string, when time.Time) (*model.MonthlyTracking, error) {
	key := clock.MonthKey(when)
	mt, err := s.store.GetMonthly(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("get monthly tracking: %w", err)
	}
	if mt != nil {
		return mt, nil
	}

	month, year := clock.MonthYear(when)
	mt = &model.MonthlyTracking{
		UserID:   userID,
		MonthKey: key,
		Month:    month,
		Year:     year,
		Entries:  []model.DailyEntry{},
	}
	err = s.store.CreateMonthly(ctx, mt)
	if err == nil {
		return mt, nil
	}
	if !errors.Is(err, ErrDuplicateMonth) {
		return nil, fmt.Errorf("create monthly tracking: %w", err)
	}

	mt, err = s.store.GetMonthly(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("refetch monthly tracking: %w", err)
	}
	if mt == nil {
		return nil, fmt.Errorf("%w: monthly tracking %s for user %s", ErrConstraintViolation, key, userID)
	}
	return mt, nil
}

// requireEntry fetches the month and day entry for the instant without
// creating anything; missing month or entry is ErrNotFound.
func (s *TrackingService) requireEntry(ctx context.Context, userID string, when time.Time) (*model.MonthlyTracking, *model.DailyEntry, error) {
	key := clock.MonthKey(when)
	mt, err := s.store.GetMonthly(ctx, userID, key)
	if err != nil {
		return nil, nil, fmt.Errorf("get monthly tracking: %w", err)
	}
	if mt == nil {
		return nil, nil, fmt.Errorf("%w: monthly tracking %s for user %s", ErrNotFound, key, userID)
	}
	date := clock.DateKey(when)
	e := mt.EntryFor(date)
	if e == nil {
		return nil, nil, fmt.Errorf("%w: entry %s for user %s", ErrNotFound, date, userID)
	}
	return mt, e, nil
}

// resolveEntry finds or appends the entry for the instant's Madagascar day.
func resolveEntry(mt *model.MonthlyTracking, when time.Time) *model.DailyEntry {
	date := clock.DateKey(when)
	if e := mt.EntryFor(date); e != nil {
		return e
	}
	mt.Entries = append(mt.Entries, model.DailyEntry{
		Date:   date,
		Status: model.StatusAbsent,
		Breaks: []model.Break{},
	})
	return &mt.Entries[len(mt.Entries)-1]
}

// closeStale runs the auto-checkout policy over every open entry of the
// document. Reports whether anything was closed.
func (s *TrackingService) closeStale(mt *model.MonthlyTracking, now time.Time) bool {
	changed := false
	for i := range mt.Entries {
		e := &mt.Entries[i]
		if e.Open() {
			if engine.Recalculate(e, now) {
				changed = true
			}
		}
	}
	return changed
}

// save recomputes the monthly total and writes the whole document back.
// Overtime hours are not part of the monthly total.
func (s *TrackingService) save(ctx context.Context, mt *model.MonthlyTracking) error {
	var total float64
	for i := range mt.Entries {
		total += mt.Entries[i].NetHours
	}
	mt.TotalHoursMonth = total
	if err := s.store.UpdateMonthly(ctx, mt); err != nil {
		return fmt.Errorf("update monthly tracking: %w", err)
	}
	return nil
}

func copyEntry(e *model.DailyEntry) *model.DailyEntry {
	c := *e
	c.Breaks = append([]model.Break(nil), e.Breaks...)
	return &c
}

func nonNegativeMinutes(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Minutes()
}
