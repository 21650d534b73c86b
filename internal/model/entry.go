package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntryType tags what kind of event a LogEntry records.
type EntryType string

const (
	TypeFeeding EntryType = "feeding"
	TypeSleep   EntryType = "sleep"
	TypeDiaper  EntryType = "diaper"
	TypeNote    EntryType = "note"
)

// EntryTypes lists every valid entry type.
var EntryTypes = []EntryType{TypeFeeding, TypeSleep, TypeDiaper, TypeNote}

// ParseEntryType maps a raw tag onto a known EntryType.
func ParseEntryType(s string) (EntryType, bool) {
	for _, t := range EntryTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// DisplayName returns the human-readable name of the type.
func (t EntryType) DisplayName() string {
	switch t {
	case TypeFeeding:
		return "Feeding"
	case TypeSleep:
		return "Sleep"
	case TypeDiaper:
		return "Diaper"
	case TypeNote:
		return "Note"
	}
	return string(t)
}

// FeedingMethod is how a feeding was given.
type FeedingMethod string

const (
	MethodNurseLeft  FeedingMethod = "nurse_left"
	MethodNurseRight FeedingMethod = "nurse_right"
	MethodBottle     FeedingMethod = "bottle"
)

// ParseFeedingMethod maps a raw method onto a known FeedingMethod.
func ParseFeedingMethod(s string) (FeedingMethod, bool) {
	switch FeedingMethod(s) {
	case MethodNurseLeft, MethodNurseRight, MethodBottle:
		return FeedingMethod(s), true
	}
	return "", false
}

// DisplayName returns the human-readable name of the method.
func (m FeedingMethod) DisplayName() string {
	switch m {
	case MethodNurseLeft:
		return "Nurse Left"
	case MethodNurseRight:
		return "Nurse Right"
	case MethodBottle:
		return "Bottle"
	}
	return string(m)
}

var (
	// ErrDetailsMismatch is returned when a details variant is attached to an
	// entry of a different type, or when details are attached to a note.
	ErrDetailsMismatch = errors.New("details do not match entry type")
	// ErrUnknownType is returned for an entry type outside EntryTypes.
	ErrUnknownType = errors.New("unknown entry type")
)

// Details is the type-specific payload of a LogEntry. It is implemented only
// by FeedingDetails, SleepDetails and DiaperDetails.
type Details interface {
	EntryType() EntryType
	clone() Details
}

// FeedingDetails describes a feeding.
type FeedingDetails struct {
	Method          FeedingMethod `json:"method"`
	Amount          *float64      `json:"amount,omitempty"`
	DurationMinutes *int          `json:"duration,omitempty"`
	Unit            *string       `json:"unit,omitempty"`
}

func (FeedingDetails) EntryType() EntryType { return TypeFeeding }

func (d FeedingDetails) clone() Details {
	d.Amount = clonePtr(d.Amount)
	d.DurationMinutes = clonePtr(d.DurationMinutes)
	d.Unit = clonePtr(d.Unit)
	return d
}

// SleepDetails describes a sleep session. TotalMinutes may be supplied
// independently of Start/End; the two are never reconciled.
type SleepDetails struct {
	Start        time.Time
	End          *time.Time
	TotalMinutes *int
}

func (SleepDetails) EntryType() EntryType { return TypeSleep }

func (d SleepDetails) clone() Details {
	d.End = clonePtr(d.End)
	d.TotalMinutes = clonePtr(d.TotalMinutes)
	return d
}

// DerivedMinutes returns End-Start in whole minutes when End is known.
func (d SleepDetails) DerivedMinutes() (int, bool) {
	if d.End == nil || d.End.Before(d.Start) {
		return 0, false
	}
	return int(d.End.Sub(d.Start) / time.Minute), true
}

// DiaperDetails describes a diaper change.
type DiaperDetails struct {
	Wet   bool `json:"wet"`
	Dirty bool `json:"dirty"`
}

func (DiaperDetails) EntryType() EntryType { return TypeDiaper }

func (d DiaperDetails) clone() Details { return d }

// LogEntry is one tracked event. The type tag and the details variant always
// agree; details may be absent, notes never carry details.
type LogEntry struct {
	ID        uuid.UUID
	BabyID    uuid.UUID
	Timestamp time.Time
	Notes     string
	CreatedAt time.Time

	kind    EntryType
	details Details
}

// NewEntry creates an entry of the given type without details.
func NewEntry(babyID uuid.UUID, ts time.Time, t EntryType, notes string) (LogEntry, error) {
	if _, ok := ParseEntryType(string(t)); !ok {
		return LogEntry{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return LogEntry{
		ID:        uuid.New(),
		BabyID:    babyID,
		Timestamp: ts,
		Notes:     notes,
		CreatedAt: time.Now(),
		kind:      t,
	}, nil
}

// NewFeeding creates a feeding entry.
func NewFeeding(babyID uuid.UUID, ts time.Time, d FeedingDetails, notes string) LogEntry {
	return newWithDetails(babyID, ts, d, notes)
}

// NewSleep creates a sleep entry.
func NewSleep(babyID uuid.UUID, ts time.Time, d SleepDetails, notes string) LogEntry {
	return newWithDetails(babyID, ts, d, notes)
}

// NewDiaper creates a diaper entry.
func NewDiaper(babyID uuid.UUID, ts time.Time, d DiaperDetails, notes string) LogEntry {
	return newWithDetails(babyID, ts, d, notes)
}

// NewNote creates a free-text note entry.
func NewNote(babyID uuid.UUID, ts time.Time, text string) LogEntry {
	e, _ := NewEntry(babyID, ts, TypeNote, text)
	return e
}

func newWithDetails(babyID uuid.UUID, ts time.Time, d Details, notes string) LogEntry {
	e, _ := NewEntry(babyID, ts, d.EntryType(), notes)
	e.details = d.clone()
	return e
}

// Type returns the entry's type tag.
func (e LogEntry) Type() EntryType { return e.kind }

// Details returns the entry's details, or nil when none were recorded.
func (e LogEntry) Details() Details { return e.details }

// HasDetails reports whether the entry carries type-specific details.
func (e LogEntry) HasDetails() bool { return e.details != nil }

// SetDetails attaches d, which must match the entry's type. A nil d clears
// the details.
func (e *LogEntry) SetDetails(d Details) error {
	if d == nil {
		e.details = nil
		return nil
	}
	if e.kind == TypeNote || d.EntryType() != e.kind {
		return fmt.Errorf("%w: %s entry cannot hold %s details", ErrDetailsMismatch, e.kind, d.EntryType())
	}
	e.details = d.clone()
	return nil
}

// Feeding returns the feeding details if present.
func (e LogEntry) Feeding() (FeedingDetails, bool) {
	d, ok := e.details.(FeedingDetails)
	return d, ok
}

// Sleep returns the sleep details if present.
func (e LogEntry) Sleep() (SleepDetails, bool) {
	d, ok := e.details.(SleepDetails)
	return d, ok
}

// Diaper returns the diaper details if present.
func (e LogEntry) Diaper() (DiaperDetails, bool) {
	d, ok := e.details.(DiaperDetails)
	return d, ok
}

// Clone returns a deep copy of e.
func (e LogEntry) Clone() LogEntry {
	if e.details != nil {
		e.details = e.details.clone()
	}
	return e
}

// TimeString formats the entry's clock time in loc.
func (e LogEntry) TimeString(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return e.Timestamp.In(loc).Format("15:04")
}

// DisplaySummary renders a one-line description of the entry.
func (e LogEntry) DisplaySummary() string {
	switch e.kind {
	case TypeFeeding:
		f, ok := e.Feeding()
		if !ok {
			return "Feeding"
		}
		summary := f.Method.DisplayName()
		if f.DurationMinutes != nil {
			summary += fmt.Sprintf(" • %d min", *f.DurationMinutes)
		}
		if f.Amount != nil && f.Unit != nil {
			summary += " • " + FormatAmount(*f.Amount) + *f.Unit
		}
		return summary

	case TypeSleep:
		s, ok := e.Sleep()
		if !ok {
			return "Sleep"
		}
		if s.TotalMinutes == nil {
			return "Sleep started"
		}
		h, m := *s.TotalMinutes/60, *s.TotalMinutes%60
		if h > 0 {
			return fmt.Sprintf("Slept %dh %dm", h, m)
		}
		return fmt.Sprintf("Slept %dm", m)

	case TypeDiaper:
		d, ok := e.Diaper()
		if !ok {
			return "Diaper change"
		}
		var parts []string
		if d.Wet {
			parts = append(parts, "Wet")
		}
		if d.Dirty {
			parts = append(parts, "Dirty")
		}
		if len(parts) == 0 {
			return "Diaper change"
		}
		return strings.Join(parts, " & ")

	case TypeNote:
		if e.Notes == "" {
			return "Note"
		}
		r := []rune(e.Notes)
		if len(r) > 50 {
			r = r[:50]
		}
		return string(r)
	}
	return string(e.kind)
}

// FormatAmount renders an amount with as few decimals as needed: 4 → "4",
// 4.5 → "4.5".
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
