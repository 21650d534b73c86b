package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tiliavir/babytalk/internal/openai"
)

const (
	insightsTemperature = 0.5
	insightsMaxTokens   = 1000
)

// Insights summarises the last week's patterns.
type Insights struct {
	completer Completer
	logs      LogReader
	opts      Options
}

func NewInsights(completer Completer, logs LogReader, opts Options) *Insights {
	return &Insights{completer: completer, logs: logs, opts: opts.withDefaults()}
}

// Generate returns observations about the last 7 days. With no entries at
// all it answers locally without calling the completer.
func (in *Insights) Generate(ctx context.Context) (string, error) {
	now := in.opts.Now()
	stats := in.logs.WeekStats(now)
	if stats.DaysWithData == 0 {
		return "No entries in the last 7 days yet. Log a few feedings, naps or diaper changes first.", nil
	}
	profile, _ := in.logs.Profile()
	recent := in.logs.RecentEntries(now, contextDays, contextEntries)

	prompt, err := InsightsPrompt(stats, profile, recent, now, in.opts.Location)
	if err != nil {
		return "", err
	}
	reply, err := in.completer.Complete(ctx, openai.CompletionRequest{
		Model:       in.opts.Model,
		Messages:    []openai.Message{{Role: "user", Content: prompt}},
		Temperature: insightsTemperature,
		MaxTokens:   insightsMaxTokens,
	})
	if err != nil {
		in.opts.Logger.Printf("assistant: insights failed: %v", err)
		return "", fmt.Errorf("insights: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
