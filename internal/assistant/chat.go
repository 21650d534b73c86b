package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/openai"
)

const (
	contextDays    = 7
	contextEntries = 20

	chatTemperature = 0.7
	chatMaxTokens   = 1000
)

// LogReader is the read side of the log store used for prompt context.
type LogReader interface {
	Profile() (*model.BabyProfile, bool)
	RecentEntries(now time.Time, days, limit int) []model.LogEntry
	WeekStats(now time.Time) model.WeekStats
}

// Chat answers free-form questions with recent log context. It keeps no
// conversation history.
type Chat struct {
	completer Completer
	logs      LogReader
	opts      Options
}

func NewChat(completer Completer, logs LogReader, opts Options) *Chat {
	return &Chat{completer: completer, logs: logs, opts: opts.withDefaults()}
}

// Ask sends message with the profile and the 20 newest entries of the last
// 7 days, and returns the trimmed reply.
func (c *Chat) Ask(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}
	now := c.opts.Now()
	profile, _ := c.logs.Profile()
	recent := c.logs.RecentEntries(now, contextDays, contextEntries)

	prompt, err := ChatPrompt(message, profile, recent, now, c.opts.Location)
	if err != nil {
		return "", err
	}
	reply, err := c.completer.Complete(ctx, openai.CompletionRequest{
		Model:       c.opts.Model,
		Messages:    []openai.Message{{Role: "user", Content: prompt}},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		c.opts.Logger.Printf("assistant: chat failed: %v", err)
		return "", fmt.Errorf("chat: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
