package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type EntryStatus string

const (
	StatusAbsent     EntryStatus = "absent"
	StatusPresent    EntryStatus = "present"
	StatusPartial    EntryStatus = "partial"
	StatusInProgress EntryStatus = "in_progress"
	StatusCompleted  EntryStatus = "completed"
	StatusLate       EntryStatus = "late"
)

// Break is a single pause within a working day. Open while End is nil.
type Break struct {
	Start    time.Time  `bson:"start" json:"start"`
	End      *time.Time `bson:"end,omitempty" json:"end,omitempty"`
	Duration float64    `bson:"duration" json:"duration"` // minutes
}

// DailyEntry is one user's record for one Madagascar calendar day. All hour
// fields are derived; they are only ever written by the hours calculator.
type DailyEntry struct {
	Date           string      `bson:"date" json:"date"` // YYYY-MM-DD, Madagascar time
	CheckIn        *time.Time  `bson:"check_in,omitempty" json:"check_in,omitempty"`
	CheckOut       *time.Time  `bson:"check_out,omitempty" json:"check_out,omitempty"`
	Breaks         []Break     `bson:"breaks" json:"breaks"`
	TotalHours     float64     `bson:"total_hours" json:"total_hours"`
	BreakHours     float64     `bson:"break_hours" json:"break_hours"`
	NetHours       float64     `bson:"net_hours" json:"net_hours"`
	OvertimeHours  float64     `bson:"overtime_hours" json:"overtime_hours"`
	Status         EntryStatus `bson:"status" json:"status"`
	IsPaused       bool        `bson:"is_paused" json:"is_paused"`
	LastResumeTime *time.Time  `bson:"last_resume_time,omitempty" json:"last_resume_time,omitempty"`

	OvertimeRequested bool `bson:"overtime_requested" json:"overtime_requested"`
	OvertimeApproved  bool `bson:"overtime_approved" json:"overtime_approved"`
	OvertimeStarted   bool `bson:"overtime_started" json:"overtime_started"`
}

// Open reports whether the day has a check-in and no check-out yet.
func (e *DailyEntry) Open() bool {
	return e.CheckIn != nil && e.CheckOut == nil
}

// CurrentBreak returns the last break if it is still open, else nil.
func (e *DailyEntry) CurrentBreak() *Break {
	if len(e.Breaks) == 0 {
		return nil
	}
	last := &e.Breaks[len(e.Breaks)-1]
	if last.End != nil {
		return nil
	}
	return last
}

// MonthlyTracking is the persisted document: one per (user, month, year),
// embedding every entry and break of that month.
type MonthlyTracking struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string        `bson:"user_id" json:"user_id"`
	MonthKey        string        `bson:"month_key" json:"month_key"` // YYYY-MM
	Month           time.Month    `bson:"month" json:"month"`
	Year            int           `bson:"year" json:"year"`
	Entries         []DailyEntry  `bson:"entries" json:"entries"`
	TotalHoursMonth float64       `bson:"total_hours_month" json:"total_hours_month"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at" json:"updated_at"`
}

// EntryFor returns the entry for a YYYY-MM-DD date key, or nil. Entries are
// scanned linearly; a month holds at most 31 of them.
func (m *MonthlyTracking) EntryFor(date string) *DailyEntry {
	for i := range m.Entries {
		if m.Entries[i].Date == date {
			return &m.Entries[i]
		}
	}
	return nil
}
