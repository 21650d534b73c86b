// Package toolserver exposes the log store and the assistant as HTTP tools
// that accept MCP CallToolRequest bodies.
package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"

	"github.com/Tiliavir/babytalk/internal/assistant"
	"github.com/Tiliavir/babytalk/internal/model"
)

// Version is reported as the MCP server version.
var Version = "dev"

// Store is the part of the log store the tools use.
type Store interface {
	DailyLog(date time.Time) *model.DailyLog
	AddEntry(e model.LogEntry) error
	WeekStats(now time.Time) model.WeekStats
	Location() *time.Location
}

// Structurer turns text into an entry without saving it.
type Structurer interface {
	ProcessTranscript(ctx context.Context, transcript string) (assistant.Result, error)
}

// Asker answers chat questions.
type Asker interface {
	Ask(ctx context.Context, message string) (string, error)
}

type Config struct {
	Host string
	Port int
}

// Server routes tool calls to the store and the assistant.
type Server struct {
	info protocol.Implementation
	// mcp carries info once Start has run. Tool calls are served by
	// handleHTTP, not by its transport.
	mcp        *server.Server
	httpServer *http.Server
	store      Store
	structurer Structurer
	chat       Asker
	logger     *log.Logger
	now        func() time.Time
}

// New builds a server. logger may be nil.
func New(cfg Config, store Store, structurer Structurer, chat Asker, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		info:       protocol.Implementation{Name: "babytalk", Version: Version},
		store:      store,
		structurer: structurer,
		chat:       chat,
		logger:     logger,
		now:        time.Now,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler serving tool calls on "/".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)
	return mux
}

// Addr is the listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mcpServer, err := server.NewServer(nil, server.WithServerInfo(s.info))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	s.mcp = mcpServer

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("toolserver: listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down tool server: %w", err)
	}
	return nil
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	var (
		result *protocol.CallToolResult
		err    error
	)
	switch request.Name {
	case "log_voice_text":
		result, err = s.handleLogVoiceText(r.Context(), &request)
	case "get_day":
		result, err = s.handleGetDay(&request)
	case "chat":
		result, err = s.handleChat(r.Context(), &request)
	case "week_stats":
		result, err = s.handleWeekStats()
	case "server_info":
		result, err = createJSONResponse(s.info)
	default:
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	if err != nil {
		s.logger.Printf("toolserver: %s: %v", request.Name, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Printf("toolserver: failed to encode response: %v", err)
	}
}

// paramError marks a bad tool argument.
type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }

func invalidParams(format string, args ...any) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

func statusFor(err error) int {
	var pe *paramError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, assistant.ErrInvalidStructure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNotSaved):
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func createJSONResponse(data any) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
