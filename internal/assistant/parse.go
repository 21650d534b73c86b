package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/babytalk/internal/model"
)

// ErrInvalidStructure is returned when the completion text is not JSON or
// lacks a recognised "type".
var ErrInvalidStructure = errors.New("unable to parse structured response")

// ParseStructured turns a completion into a LogEntry for babyID. Missing
// timestamps and sleep start times become now. A missing detail block
// leaves the entry without details. An unknown feeding method falls back
// to bottle.
func ParseStructured(text string, babyID uuid.UUID, now time.Time, loc *time.Location) (model.LogEntry, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return model.LogEntry{}, fmt.Errorf("%w: no JSON object in response", ErrInvalidStructure)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: %w", ErrInvalidStructure, err)
	}

	typeName, _ := obj["type"].(string)
	entryType, ok := model.ParseEntryType(strings.ToLower(strings.TrimSpace(typeName)))
	if !ok {
		return model.LogEntry{}, fmt.Errorf("%w: unrecognised type %q", ErrInvalidStructure, typeName)
	}

	ts := parseTime(obj["timestamp"], loc)
	if ts == nil {
		ts = &now
	}
	notes, _ := obj["notes"].(string)

	entry, err := model.NewEntry(babyID, *ts, entryType, strings.TrimSpace(notes))
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: %w", ErrInvalidStructure, err)
	}

	var details model.Details
	switch entryType {
	case model.TypeFeeding:
		if m, ok := obj["feeding"].(map[string]any); ok {
			details = parseFeeding(m)
		}
	case model.TypeSleep:
		if m, ok := obj["sleep"].(map[string]any); ok {
			details = parseSleep(m, now, loc)
		}
	case model.TypeDiaper:
		if m, ok := obj["diaper"].(map[string]any); ok {
			wet, _ := m["wet"].(bool)
			dirty, _ := m["dirty"].(bool)
			details = model.DiaperDetails{Wet: wet, Dirty: dirty}
		}
	}
	if details != nil {
		if err := entry.SetDetails(details); err != nil {
			return model.LogEntry{}, fmt.Errorf("%w: %w", ErrInvalidStructure, err)
		}
	}
	return entry, nil
}

func parseFeeding(m map[string]any) model.FeedingDetails {
	methodName, _ := m["method"].(string)
	method, ok := model.ParseFeedingMethod(methodName)
	if !ok {
		method = model.MethodBottle
	}
	d := model.FeedingDetails{Method: method}
	if v, ok := m["amount"].(float64); ok {
		d.Amount = model.Ptr(v)
	}
	if v, ok := m["duration"].(float64); ok {
		d.DurationMinutes = model.Ptr(int(math.Round(v)))
	}
	if v, ok := m["unit"].(string); ok && strings.TrimSpace(v) != "" {
		d.Unit = model.Ptr(strings.TrimSpace(v))
	}
	return d
}

func parseSleep(m map[string]any, now time.Time, loc *time.Location) model.SleepDetails {
	d := model.SleepDetails{Start: now}
	if start := parseTime(m["startTime"], loc); start != nil {
		d.Start = *start
	}
	d.End = parseTime(m["endTime"], loc)
	if v, ok := m["totalMinutes"].(float64); ok {
		d.TotalMinutes = model.Ptr(int(math.Round(v)))
	}
	return d
}

// parseTime accepts RFC 3339, or a zone-less "2006-01-02T15:04:05" read in
// loc. Anything else yields nil.
func parseTime(v any, loc *time.Location) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return &t
	}
	return nil
}

// extractJSON returns the text between the first '{' and the last '}', which
// strips code fences and surrounding prose.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
