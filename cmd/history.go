package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/timecalc"
)

var historyDays int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show per-day totals and the seven-day averages",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 7, "Number of days to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyDays < 1 {
		fail(1, fmt.Errorf("--days must be at least 1"))
	}
	now := time.Now()

	store := openStore()
	defer store.Close()

	logs := store.Range(now.AddDate(0, 0, -(historyDays - 1)), now)
	printHistory(os.Stdout, logs, store.WeekStats(now))

	stored, err := store.StoredDays()
	if err != nil {
		fail(2, err)
	}
	printStoredDays(os.Stdout, stored)
	return nil
}

// printHistory lists logs newest first, then the weekly averages.
func printHistory(w io.Writer, logs []*model.DailyLog, stats model.WeekStats) {
	for i := len(logs) - 1; i >= 0; i-- {
		dl := logs[i]
		if dl.IsEmpty() {
			fmt.Fprintf(w, "%s  -\n", timecalc.DayKey(dl.Date, loc))
			continue
		}
		fmt.Fprintf(w, "%s  %2d feedings  %2d diapers  sleep %s\n",
			timecalc.DayKey(dl.Date, loc), dl.FeedingCount(), dl.DiaperCount(),
			timecalc.FormatMinutes(dl.TotalSleepMinutes()))
	}

	fmt.Fprintln(w)
	if stats.DaysWithData == 0 {
		fmt.Fprintln(w, "No data in the last 7 days.")
		return
	}
	fmt.Fprintf(w, "Last 7 days (%d with data):\n", stats.DaysWithData)
	fmt.Fprintf(w, "  Feedings per day: %.1f\n", stats.AvgFeedings)
	fmt.Fprintf(w, "  Sleep per day:    %s\n", timecalc.FormatMinutes(int(stats.AvgSleepMinutes)))
	fmt.Fprintf(w, "  Diapers per day:  %.1f\n", stats.AvgDiapers)
}

// printStoredDays summarises the day files on disk, oldest key first.
func printStoredDays(w io.Writer, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d days on record since %s.\n", len(keys), keys[0])
}
