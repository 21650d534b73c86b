package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/archive"
	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/timecalc"
)

var (
	exportFormat string
	exportDays   int
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent days as CSV, JSON, Markdown or SQLite",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md, sqlite")
	exportCmd.Flags().IntVar(&exportDays, "days", 7, "Number of days to export, ending today")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default stdout; <data-dir>/babytalk.db for sqlite)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportDays < 1 {
		fail(1, fmt.Errorf("--days must be at least 1"))
	}
	switch exportFormat {
	case "csv", "json", "md", "sqlite":
	default:
		fail(1, fmt.Errorf("unknown format %q (want csv, json, md or sqlite)", exportFormat))
	}
	now := time.Now()

	store := openStore()
	defer store.Close()
	logs := store.Range(now.AddDate(0, 0, -(exportDays - 1)), now)

	if exportFormat == "sqlite" {
		path := exportOut
		if path == "" {
			path = filepath.Join(store.Dir(), "babytalk.db")
		}
		a, err := archive.Open(path)
		if err != nil {
			fail(2, err)
		}
		defer a.Close()
		n, err := a.ExportDays(cmd.Context(), logs, loc)
		if err != nil {
			fail(2, err)
		}
		fmt.Printf("Exported %d entries to %s\n", n, path)
		return nil
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			fail(2, err)
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "json":
		data, err := json.MarshalIndent(nonEmpty(logs), "", "  ")
		if err != nil {
			fail(2, fmt.Errorf("error encoding JSON: %w", err))
		}
		fmt.Fprintln(w, string(data))
	case "md":
		printMarkdown(w, logs)
	default:
		printCSV(w, logs)
	}
	return nil
}

func nonEmpty(logs []*model.DailyLog) []*model.DailyLog {
	out := []*model.DailyLog{}
	for _, dl := range logs {
		if !dl.IsEmpty() || dl.Notes != "" {
			out = append(out, dl)
		}
	}
	return out
}

func printCSV(w io.Writer, logs []*model.DailyLog) {
	fmt.Fprintln(w, "date,time,type,summary,notes,id")
	for _, dl := range logs {
		date := timecalc.DayKey(dl.Date, loc)
		for _, e := range dl.SortedEntries() {
			fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s\n",
				date,
				e.TimeString(loc),
				e.Type(),
				csvEscape(e.DisplaySummary()),
				csvEscape(e.Notes),
				e.ID,
			)
		}
	}
}

func printMarkdown(w io.Writer, logs []*model.DailyLog) {
	for _, dl := range nonEmpty(logs) {
		fmt.Fprintf(w, "## %s\n\n", timecalc.DayKey(dl.Date, loc))
		fmt.Fprintf(w, "Feedings: %d · Diapers: %d · Sleep: %s\n\n",
			dl.FeedingCount(), dl.DiaperCount(), dl.SleepSummary())
		if dl.Notes != "" {
			fmt.Fprintf(w, "> %s\n\n", dl.Notes)
		}
		if dl.IsEmpty() {
			continue
		}
		fmt.Fprintln(w, "| Time | Type | Summary | Notes |")
		fmt.Fprintln(w, "|------|------|---------|-------|")
		for _, e := range dl.SortedEntries() {
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
				e.TimeString(loc), e.Type().DisplayName(), mdEscape(e.DisplaySummary()), mdEscape(e.Notes))
		}
		fmt.Fprintln(w)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
