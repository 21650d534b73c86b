package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/timecalc"
)

var errNotSaved = errors.New("entry captured but not saved")

type LogVoiceTextParams struct {
	Text string `json:"text" description:"What happened, in plain words"`
	Save *bool  `json:"save,omitempty" description:"Store the entry (default true)"`
}

type GetDayParams struct {
	Date string `json:"date,omitempty" description:"Day to show (YYYY-MM-DD, defaults to today)"`
}

type ChatParams struct {
	Message string `json:"message" description:"Question for the assistant"`
}

// EntryView is an entry as returned by the tools.
type EntryView struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
	Notes   string `json:"notes,omitempty"`
}

// DayView is a day as returned by get_day.
type DayView struct {
	Date              string      `json:"date"`
	FeedingCount      int         `json:"feeding_count"`
	DiaperCount       int         `json:"diaper_count"`
	TotalSleepMinutes int         `json:"total_sleep_minutes"`
	SleepSummary      string      `json:"sleep_summary"`
	Notes             string      `json:"notes,omitempty"`
	Entries           []EntryView `json:"entries"`
}

// extractParams converts the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target any) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return invalidParams("failed to marshal arguments: %v", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return invalidParams("invalid parameters: %v", err)
	}
	return nil
}

func (s *Server) handleLogVoiceText(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogVoiceTextParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Text) == "" {
		return nil, invalidParams("text is required")
	}

	res, err := s.structurer.ProcessTranscript(ctx, strings.TrimSpace(params.Text))
	if err != nil {
		return nil, err
	}

	saved := params.Save == nil || *params.Save
	if saved {
		if err := s.store.AddEntry(res.Entry); err != nil {
			return nil, fmt.Errorf("%w: %w", errNotSaved, err)
		}
	}
	return createJSONResponse(map[string]any{
		"saved":   saved,
		"summary": res.Entry.DisplaySummary(),
		"entry":   res.Entry,
	})
}

func (s *Server) handleGetDay(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetDayParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	loc := s.store.Location()
	day := s.now()
	if params.Date != "" {
		d, err := timecalc.ParseDayKey(params.Date, loc)
		if err != nil {
			return nil, invalidParams("%v", err)
		}
		day = d
	}
	return createJSONResponse(NewDayView(s.store.DailyLog(day), loc))
}

func (s *Server) handleChat(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ChatParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Message) == "" {
		return nil, invalidParams("message is required")
	}
	reply, err := s.chat.Ask(ctx, params.Message)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(map[string]string{"reply": reply})
}

func (s *Server) handleWeekStats() (*protocol.CallToolResult, error) {
	return createJSONResponse(s.store.WeekStats(s.now()))
}

// NewDayView renders dl with clock times in loc.
func NewDayView(dl *model.DailyLog, loc *time.Location) DayView {
	v := DayView{
		Date:              timecalc.DayKey(dl.Date, loc),
		FeedingCount:      dl.FeedingCount(),
		DiaperCount:       dl.DiaperCount(),
		TotalSleepMinutes: dl.TotalSleepMinutes(),
		SleepSummary:      dl.SleepSummary(),
		Notes:             dl.Notes,
		Entries:           []EntryView{},
	}
	for _, e := range dl.SortedEntries() {
		v.Entries = append(v.Entries, EntryView{
			ID:      e.ID.String(),
			Time:    e.TimeString(loc),
			Type:    string(e.Type()),
			Summary: e.DisplaySummary(),
			Notes:   e.Notes,
		})
	}
	return v
}
