package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DailyLog owns every entry recorded on one calendar day plus free-text
// notes for that day. Counts and totals are derived on read.
type DailyLog struct {
	ID      uuid.UUID
	Date    time.Time
	Entries []LogEntry
	Notes   string

	// unreadable holds entries from the file that failed to decode. They are
	// written back as read.
	unreadable []json.RawMessage
}

// NewDailyLog returns an empty log for the day starting at date.
func NewDailyLog(date time.Time) *DailyLog {
	return &DailyLog{
		ID:      uuid.New(),
		Date:    date,
		Entries: []LogEntry{},
	}
}

// Add appends e to the log.
func (l *DailyLog) Add(e LogEntry) {
	l.Entries = append(l.Entries, e.Clone())
}

// Remove deletes the entry with the given id and reports whether it existed.
func (l *DailyLog) Remove(id uuid.UUID) bool {
	for i, e := range l.Entries {
		if e.ID == id {
			l.Entries = append(l.Entries[:i], l.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the entry with the given id.
func (l *DailyLog) Find(id uuid.UUID) (LogEntry, bool) {
	for _, e := range l.Entries {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return LogEntry{}, false
}

// IsEmpty reports whether the log holds no entries.
func (l *DailyLog) IsEmpty() bool { return len(l.Entries) == 0 }

// FeedingCount is the number of feeding entries.
func (l *DailyLog) FeedingCount() int { return l.count(TypeFeeding) }

// DiaperCount is the number of diaper entries.
func (l *DailyLog) DiaperCount() int { return l.count(TypeDiaper) }

func (l *DailyLog) count(t EntryType) int {
	n := 0
	for _, e := range l.Entries {
		if e.Type() == t {
			n++
		}
	}
	return n
}

// TotalSleepMinutes sums TotalMinutes over sleep entries. Sleep entries
// without a recorded total contribute nothing.
func (l *DailyLog) TotalSleepMinutes() int {
	total := 0
	for _, e := range l.Entries {
		if s, ok := e.Sleep(); ok && s.TotalMinutes != nil {
			total += *s.TotalMinutes
		}
	}
	return total
}

// SleepSummary describes the day's total sleep.
func (l *DailyLog) SleepSummary() string {
	total := l.TotalSleepMinutes()
	if total == 0 {
		return "No sleep recorded"
	}
	h, m := total/60, total%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm total", h, m)
	}
	return fmt.Sprintf("%dm total", m)
}

// SortedEntries returns a copy of the entries in ascending timestamp order.
func (l *DailyLog) SortedEntries() []LogEntry {
	out := make([]LogEntry, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Unreadable counts the stored entries that could not be decoded.
func (l *DailyLog) Unreadable() int { return len(l.unreadable) }

// Clone returns a deep copy that shares no state with l.
func (l *DailyLog) Clone() *DailyLog {
	c := &DailyLog{
		ID:      l.ID,
		Date:    l.Date,
		Notes:   l.Notes,
		Entries: make([]LogEntry, len(l.Entries)),
	}
	if len(l.unreadable) > 0 {
		c.unreadable = append([]json.RawMessage(nil), l.unreadable...)
	}
	for i, e := range l.Entries {
		c.Entries[i] = e.Clone()
	}
	return c
}
