package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is written into every persisted day and profile file.
// Files without it are legacy files and are read the same way.
const SchemaVersion = 1

// legacyEpoch is the reference date of numeric timestamps in legacy files.
var legacyEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// stamp encodes as RFC 3339 and decodes either RFC 3339 strings or legacy
// numeric seconds since legacyEpoch.
type stamp time.Time

func (s stamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(s).Format(time.RFC3339Nano))
}

func (s *stamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = stamp(time.Time{})
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", str, err)
		}
		*s = stamp(t)
		return nil
	}
	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: not a string or number", data)
	}
	*s = stamp(legacyEpoch.Add(time.Duration(secs * float64(time.Second))))
	return nil
}

func stampPtr(t *time.Time) *stamp {
	if t == nil {
		return nil
	}
	s := stamp(*t)
	return &s
}

func timePtr(s *stamp) *time.Time {
	if s == nil {
		return nil
	}
	t := time.Time(*s)
	return &t
}

type sleepJSON struct {
	StartTime    stamp  `json:"startTime"`
	EndTime      *stamp `json:"endTime,omitempty"`
	TotalMinutes *int   `json:"totalMinutes,omitempty"`
}

func (d SleepDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(sleepJSON{
		StartTime:    stamp(d.Start),
		EndTime:      stampPtr(d.End),
		TotalMinutes: d.TotalMinutes,
	})
}

func (d *SleepDetails) UnmarshalJSON(data []byte) error {
	var w sleepJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.Start = time.Time(w.StartTime)
	d.End = timePtr(w.EndTime)
	d.TotalMinutes = w.TotalMinutes
	return nil
}

type entryJSON struct {
	ID             uuid.UUID       `json:"id"`
	BabyID         uuid.UUID       `json:"babyId"`
	Timestamp      stamp           `json:"timestamp"`
	Type           EntryType       `json:"type"`
	FeedingDetails *FeedingDetails `json:"feedingDetails,omitempty"`
	SleepDetails   *SleepDetails   `json:"sleepDetails,omitempty"`
	DiaperDetails  *DiaperDetails  `json:"diaperDetails,omitempty"`
	Notes          string          `json:"notes"`
	CreatedAt      stamp           `json:"createdAt"`
}

func (e LogEntry) MarshalJSON() ([]byte, error) {
	w := entryJSON{
		ID:        e.ID,
		BabyID:    e.BabyID,
		Timestamp: stamp(e.Timestamp),
		Type:      e.kind,
		Notes:     e.Notes,
		CreatedAt: stamp(e.CreatedAt),
	}
	switch d := e.details.(type) {
	case FeedingDetails:
		w.FeedingDetails = &d
	case SleepDetails:
		w.SleepDetails = &d
	case DiaperDetails:
		w.DiaperDetails = &d
	}
	return json.Marshal(w)
}

// UnmarshalJSON keeps only the detail block that matches the type tag, so a
// file written with independent optional blocks can never produce a
// mismatched entry.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var w entryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, ok := ParseEntryType(string(w.Type))
	if !ok {
		return fmt.Errorf("entry %s: %w: %q", w.ID, ErrUnknownType, w.Type)
	}
	*e = LogEntry{
		ID:        w.ID,
		BabyID:    w.BabyID,
		Timestamp: time.Time(w.Timestamp),
		Notes:     w.Notes,
		CreatedAt: time.Time(w.CreatedAt),
		kind:      kind,
	}
	switch {
	case kind == TypeFeeding && w.FeedingDetails != nil:
		e.details = *w.FeedingDetails
	case kind == TypeSleep && w.SleepDetails != nil:
		e.details = *w.SleepDetails
	case kind == TypeDiaper && w.DiaperDetails != nil:
		e.details = *w.DiaperDetails
	}
	return nil
}

type dayJSON struct {
	SchemaVersion int               `json:"schemaVersion,omitempty"`
	ID            uuid.UUID         `json:"id"`
	Date          stamp             `json:"date"`
	Entries       []json.RawMessage `json:"entries"`
	Notes         string            `json:"notes"`
}

// MarshalJSON writes the readable entries followed by any entries that could
// not be decoded, unchanged.
func (l DailyLog) MarshalJSON() ([]byte, error) {
	entries := make([]json.RawMessage, 0, len(l.Entries)+len(l.unreadable))
	for _, e := range l.Entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		entries = append(entries, data)
	}
	entries = append(entries, l.unreadable...)
	return json.Marshal(dayJSON{
		SchemaVersion: SchemaVersion,
		ID:            l.ID,
		Date:          stamp(l.Date),
		Entries:       entries,
		Notes:         l.Notes,
	})
}

// UnmarshalJSON fails only when the day itself is malformed. An entry that
// cannot be decoded is set aside and reported by Unreadable.
func (l *DailyLog) UnmarshalJSON(data []byte) error {
	var w dayJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = DailyLog{
		ID:      w.ID,
		Date:    time.Time(w.Date),
		Entries: make([]LogEntry, 0, len(w.Entries)),
		Notes:   w.Notes,
	}
	for _, raw := range w.Entries {
		var e LogEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			l.unreadable = append(l.unreadable, raw)
			continue
		}
		l.Entries = append(l.Entries, e)
	}
	return nil
}

type profileJSON struct {
	SchemaVersion int       `json:"schemaVersion,omitempty"`
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	BirthDate     stamp     `json:"birthDate"`
	CreatedAt     stamp     `json:"createdAt"`
}

func (p BabyProfile) MarshalJSON() ([]byte, error) {
	return json.Marshal(profileJSON{
		SchemaVersion: SchemaVersion,
		ID:            p.ID,
		Name:          p.Name,
		BirthDate:     stamp(p.BirthDate),
		CreatedAt:     stamp(p.CreatedAt),
	})
}

func (p *BabyProfile) UnmarshalJSON(data []byte) error {
	var w profileJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = BabyProfile{
		ID:        w.ID,
		Name:      w.Name,
		BirthDate: time.Time(w.BirthDate),
		CreatedAt: time.Time(w.CreatedAt),
	}
	return nil
}
