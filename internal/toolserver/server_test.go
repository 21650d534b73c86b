package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/babytalk/internal/assistant"
	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/storage"
)

var (
	baby = uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	now  = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
)

type mockStructurer struct {
	processFn func(ctx context.Context, transcript string) (assistant.Result, error)
}

func (m *mockStructurer) ProcessTranscript(ctx context.Context, transcript string) (assistant.Result, error) {
	return m.processFn(ctx, transcript)
}

type mockAsker struct {
	askFn func(ctx context.Context, message string) (string, error)
}

func (m *mockAsker) Ask(ctx context.Context, message string) (string, error) {
	return m.askFn(ctx, message)
}

type toolResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func newTestServer(t *testing.T, st *mockStructurer, ask *mockAsker) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.Open(t.TempDir(), storage.Options{
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if st == nil {
		st = &mockStructurer{}
	}
	if ask == nil {
		ask = &mockAsker{}
	}
	s := New(Config{Host: "127.0.0.1", Port: 0}, store, st, ask, nil)
	s.now = func() time.Time { return now }
	return s, store
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeText(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp toolResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Content) != 1 || resp.Content[0].Type != "text" {
		t.Fatalf("content = %+v", resp.Content)
	}
	if err := json.Unmarshal([]byte(resp.Content[0].Text), target); err != nil {
		t.Fatalf("decode text %q: %v", resp.Content[0].Text, err)
	}
}

func diaperResult(transcript string) assistant.Result {
	return assistant.Result{
		Transcript: transcript,
		Entry:      model.NewDiaper(baby, now.Add(-time.Hour), model.DiaperDetails{Wet: true}, ""),
	}
}

func TestLogVoiceTextSaves(t *testing.T) {
	var got string
	s, store := newTestServer(t, &mockStructurer{
		processFn: func(ctx context.Context, transcript string) (assistant.Result, error) {
			got = transcript
			return diaperResult(transcript), nil
		},
	}, nil)

	rec := callTool(t, s, "log_voice_text", map[string]any{"text": "  wet diaper an hour ago "})
	var out struct {
		Saved   bool   `json:"saved"`
		Summary string `json:"summary"`
	}
	decodeText(t, rec, &out)

	if got != "wet diaper an hour ago" {
		t.Errorf("transcript = %q", got)
	}
	if !out.Saved || out.Summary != "Wet" {
		t.Errorf("response = %+v", out)
	}
	if dl := store.DailyLog(now); dl.DiaperCount() != 1 {
		t.Errorf("stored diapers = %d, want 1", dl.DiaperCount())
	}
}

func TestLogVoiceTextWithoutSave(t *testing.T) {
	s, store := newTestServer(t, &mockStructurer{
		processFn: func(ctx context.Context, transcript string) (assistant.Result, error) {
			return diaperResult(transcript), nil
		},
	}, nil)

	rec := callTool(t, s, "log_voice_text", map[string]any{"text": "wet diaper", "save": false})
	var out struct {
		Saved bool `json:"saved"`
	}
	decodeText(t, rec, &out)
	if out.Saved {
		t.Error("saved = true, want false")
	}
	if !store.DailyLog(now).IsEmpty() {
		t.Error("entry stored although save was false")
	}
}

func TestLogVoiceTextErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		err  error
		want int
	}{
		{"empty text", map[string]any{"text": " "}, nil, http.StatusBadRequest},
		{"wrong type", map[string]any{"text": 42}, nil, http.StatusBadRequest},
		{"busy", map[string]any{"text": "fed"}, assistant.ErrBusy, http.StatusConflict},
		{"bad structure", map[string]any{"text": "fed"}, assistant.ErrInvalidStructure, http.StatusUnprocessableEntity},
		{"upstream", map[string]any{"text": "fed"}, errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &mockStructurer{
				processFn: func(ctx context.Context, transcript string) (assistant.Result, error) {
					return assistant.Result{}, tt.err
				},
			}, nil)
			rec := callTool(t, s, "log_voice_text", tt.args)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestGetDay(t *testing.T) {
	s, store := newTestServer(t, nil, nil)
	feed := model.NewFeeding(baby, now.Add(-2*time.Hour), model.FeedingDetails{
		Method: model.MethodBottle,
		Amount: model.Ptr(4.0),
		Unit:   model.Ptr("oz"),
	}, "")
	if err := store.AddEntry(feed); err != nil {
		t.Fatal(err)
	}
	if err := store.AddEntry(model.NewNote(baby, now.Add(-5*time.Hour), "hiccups")); err != nil {
		t.Fatal(err)
	}

	var day DayView
	decodeText(t, callTool(t, s, "get_day", map[string]any{"date": "2024-03-10"}), &day)

	if day.Date != "2024-03-10" || day.FeedingCount != 1 {
		t.Errorf("day = %+v", day)
	}
	if len(day.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(day.Entries))
	}
	if day.Entries[0].Type != "note" || day.Entries[0].Time != "09:00" {
		t.Errorf("first entry = %+v, want the 09:00 note", day.Entries[0])
	}
	if day.Entries[1].Summary != "Bottle • 4oz" {
		t.Errorf("feeding summary = %q", day.Entries[1].Summary)
	}

	var empty DayView
	decodeText(t, callTool(t, s, "get_day", map[string]any{"date": "2024-03-01"}), &empty)
	if len(empty.Entries) != 0 || empty.FeedingCount != 0 {
		t.Errorf("empty day = %+v", empty)
	}

	if rec := callTool(t, s, "get_day", map[string]any{"date": "10.03.2024"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}
}

func TestChatAndWeekStats(t *testing.T) {
	s, store := newTestServer(t, nil, &mockAsker{
		askFn: func(ctx context.Context, message string) (string, error) {
			return "echo: " + message, nil
		},
	})
	if err := store.AddEntry(model.NewDiaper(baby, now, model.DiaperDetails{Dirty: true}, "")); err != nil {
		t.Fatal(err)
	}

	var reply struct {
		Reply string `json:"reply"`
	}
	decodeText(t, callTool(t, s, "chat", map[string]any{"message": "how much sleep?"}), &reply)
	if reply.Reply != "echo: how much sleep?" {
		t.Errorf("reply = %q", reply.Reply)
	}

	var stats model.WeekStats
	decodeText(t, callTool(t, s, "week_stats", nil), &stats)
	if stats.DaysWithData != 1 || stats.AvgDiapers != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleHTTPRouting(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := callTool(t, s, "delete_everything", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown tool status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}
}

func TestServerInfo(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	var info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	decodeText(t, callTool(t, s, "server_info", nil), &info)
	if info.Name != "babytalk" || info.Version != Version {
		t.Errorf("info = %+v", info)
	}
}
