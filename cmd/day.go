package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/timecalc"
)

var notesDate string

var dayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "Show one day's log (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDay,
}

var notesCmd = &cobra.Command{
	Use:   "notes <text>",
	Short: "Set the free-text notes of a day",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotes,
}

func init() {
	notesCmd.Flags().StringVar(&notesDate, "date", "", "Day to annotate (YYYY-MM-DD, default today)")
}

func runDay(cmd *cobra.Command, args []string) error {
	day := time.Now()
	if len(args) == 1 {
		d, err := timecalc.ParseDayKey(args[0], loc)
		if err != nil {
			fail(1, err)
		}
		day = d
	}

	store := openStore()
	defer store.Close()

	printDay(os.Stdout, store.DailyLog(day), time.Now())
	return nil
}

func runNotes(cmd *cobra.Command, args []string) error {
	day := time.Now()
	if notesDate != "" {
		d, err := timecalc.ParseDayKey(notesDate, loc)
		if err != nil {
			fail(1, err)
		}
		day = d
	}

	store := openStore()
	defer store.Close()

	if err := store.SetDailyNotes(day, strings.TrimSpace(strings.Join(args, " "))); err != nil {
		fail(2, err)
	}
	fmt.Printf("Notes saved for %s.\n", timecalc.DayKey(day, loc))
	return nil
}

// printDay prints the day's totals followed by its entries in time order.
func printDay(w io.Writer, dl *model.DailyLog, now time.Time) {
	header := timecalc.DayKey(dl.Date, loc)
	if timecalc.SameDay(dl.Date, now, loc) {
		header += " (today)"
	}
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "  Feedings: %d  Diapers: %d  Sleep: %s\n",
		dl.FeedingCount(), dl.DiaperCount(), dl.SleepSummary())
	if dl.Notes != "" {
		fmt.Fprintf(w, "  Notes: %s\n", dl.Notes)
	}
	if dl.IsEmpty() {
		fmt.Fprintln(w, "  No entries.")
		return
	}
	for _, e := range dl.SortedEntries() {
		printEntryLine(w, e)
	}
}

func printEntryLine(w io.Writer, e model.LogEntry) {
	line := fmt.Sprintf("  %s  %-8s %s", e.TimeString(loc), e.Type().DisplayName(), e.DisplaySummary())
	if e.Notes != "" && e.Type() != model.TypeNote {
		line += "  (" + e.Notes + ")"
	}
	fmt.Fprintf(w, "%s  [%s]\n", line, e.ID)
}
