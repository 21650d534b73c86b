package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/storage"
	"github.com/Tiliavir/babytalk/internal/timecalc"
)

var (
	logAt    string
	logNotes string

	feedMethod   string
	feedAmount   float64
	feedUnit     string
	feedDuration int

	sleepStart   string
	sleepEnd     string
	sleepMinutes int

	diaperWet   bool
	diaperDirty bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Add or remove log entries",
}

var logFeedingCmd = &cobra.Command{
	Use:   "feeding",
	Short: "Log a feeding",
	Args:  cobra.NoArgs,
	RunE:  runLogFeeding,
}

var logSleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Log a sleep",
	Args:  cobra.NoArgs,
	RunE:  runLogSleep,
}

var logDiaperCmd = &cobra.Command{
	Use:   "diaper",
	Short: "Log a diaper change",
	Args:  cobra.NoArgs,
	RunE:  runLogDiaper,
}

var logNoteCmd = &cobra.Command{
	Use:   "note <text>",
	Short: "Log a free-form note",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLogNote,
}

var logRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogRm,
}

func init() {
	for _, c := range []*cobra.Command{logFeedingCmd, logDiaperCmd, logNoteCmd} {
		c.Flags().StringVar(&logAt, "at", "", "Time of the entry (HH:MM or RFC 3339, default now)")
	}
	for _, c := range []*cobra.Command{logFeedingCmd, logSleepCmd, logDiaperCmd} {
		c.Flags().StringVar(&logNotes, "notes", "", "Optional notes")
	}

	logFeedingCmd.Flags().StringVar(&feedMethod, "method", string(model.MethodBottle), "nurse_left, nurse_right or bottle")
	logFeedingCmd.Flags().Float64Var(&feedAmount, "amount", 0, "Amount given")
	logFeedingCmd.Flags().StringVar(&feedUnit, "unit", "oz", "Unit of --amount")
	logFeedingCmd.Flags().IntVar(&feedDuration, "duration", 0, "Duration in minutes")

	logSleepCmd.Flags().StringVar(&sleepStart, "start", "", "When the sleep started (HH:MM or RFC 3339, default now)")
	logSleepCmd.Flags().StringVar(&sleepEnd, "end", "", "When the sleep ended")
	logSleepCmd.Flags().IntVar(&sleepMinutes, "minutes", 0, "Total minutes slept (default: end - start)")

	logDiaperCmd.Flags().BoolVar(&diaperWet, "wet", false, "Wet diaper")
	logDiaperCmd.Flags().BoolVar(&diaperDirty, "dirty", false, "Dirty diaper")

	logCmd.AddCommand(logFeedingCmd)
	logCmd.AddCommand(logSleepCmd)
	logCmd.AddCommand(logDiaperCmd)
	logCmd.AddCommand(logNoteCmd)
	logCmd.AddCommand(logRmCmd)
}

func runLogFeeding(cmd *cobra.Command, args []string) error {
	now := time.Now()
	at, err := parseAt(logAt, now)
	if err != nil {
		fail(1, err)
	}
	var amount *float64
	if cmd.Flags().Changed("amount") {
		amount = &feedAmount
	}
	var duration *int
	if cmd.Flags().Changed("duration") {
		duration = &feedDuration
	}

	store := openStore()
	defer store.Close()

	e, err := buildFeeding(babyID(store), at, feedMethod, amount, feedUnit, duration, logNotes)
	if err != nil {
		fail(1, err)
	}
	saveEntry(store, e)
	printLogged(os.Stdout, e)
	return nil
}

func runLogSleep(cmd *cobra.Command, args []string) error {
	now := time.Now()
	start, err := parseAt(sleepStart, now)
	if err != nil {
		fail(1, fmt.Errorf("--start: %w", err))
	}
	var end *time.Time
	if sleepEnd != "" {
		t, err := parseAt(sleepEnd, now)
		if err != nil {
			fail(1, fmt.Errorf("--end: %w", err))
		}
		end = &t
	}
	var minutes *int
	if cmd.Flags().Changed("minutes") {
		minutes = &sleepMinutes
	}

	store := openStore()
	defer store.Close()

	e, err := buildSleep(babyID(store), start, end, minutes, logNotes)
	if err != nil {
		fail(1, err)
	}
	saveEntry(store, e)
	printLogged(os.Stdout, e)
	return nil
}

func runLogDiaper(cmd *cobra.Command, args []string) error {
	at, err := parseAt(logAt, time.Now())
	if err != nil {
		fail(1, err)
	}
	store := openStore()
	defer store.Close()

	e := model.NewDiaper(babyID(store), at, model.DiaperDetails{Wet: diaperWet, Dirty: diaperDirty}, strings.TrimSpace(logNotes))
	saveEntry(store, e)
	printLogged(os.Stdout, e)
	return nil
}

func runLogNote(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fail(1, errors.New("note must not be empty"))
	}
	at, err := parseAt(logAt, time.Now())
	if err != nil {
		fail(1, err)
	}
	store := openStore()
	defer store.Close()

	e := model.NewNote(babyID(store), at, text)
	saveEntry(store, e)
	printLogged(os.Stdout, e)
	return nil
}

func runLogRm(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		fail(1, fmt.Errorf("invalid entry id %q: %w", args[0], err))
	}
	store := openStore()
	defer store.Close()

	e, ok := store.FindEntry(id)
	if !ok {
		fail(1, fmt.Errorf("entry %s: %w", id, storage.ErrEntryNotFound))
	}
	if err := store.RemoveEntry(e); err != nil {
		if errors.Is(err, storage.ErrEntryNotFound) {
			fail(1, err)
		}
		fail(2, err)
	}
	fmt.Printf("Removed %s at %s: %s\n", strings.ToLower(e.Type().DisplayName()), e.TimeString(loc), e.DisplaySummary())
	return nil
}

// parseAt resolves a --at style value against now. A bare HH:MM later than
// now refers to the previous day.
func parseAt(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	t, err := timecalc.ParseClock(s, now, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !strings.Contains(s, "T") && t.After(now) {
		t = t.AddDate(0, 0, -1)
	}
	return t, nil
}

func buildFeeding(baby uuid.UUID, at time.Time, method string, amount *float64, unit string, duration *int, notes string) (model.LogEntry, error) {
	m, ok := model.ParseFeedingMethod(strings.ToLower(strings.TrimSpace(method)))
	if !ok {
		return model.LogEntry{}, fmt.Errorf("unknown feeding method %q (want nurse_left, nurse_right or bottle)", method)
	}
	d := model.FeedingDetails{Method: m}
	if amount != nil {
		if *amount <= 0 {
			return model.LogEntry{}, fmt.Errorf("amount must be positive, got %v", *amount)
		}
		d.Amount = model.Ptr(*amount)
		if u := strings.TrimSpace(unit); u != "" {
			d.Unit = model.Ptr(u)
		}
	}
	if duration != nil {
		if *duration < 0 {
			return model.LogEntry{}, fmt.Errorf("duration must not be negative, got %d", *duration)
		}
		d.DurationMinutes = model.Ptr(*duration)
	}
	return model.NewFeeding(baby, at, d, strings.TrimSpace(notes)), nil
}

// buildSleep fills TotalMinutes from start and end when minutes is not given.
func buildSleep(baby uuid.UUID, start time.Time, end *time.Time, minutes *int, notes string) (model.LogEntry, error) {
	d := model.SleepDetails{Start: start}
	if end != nil {
		if end.Before(start) {
			return model.LogEntry{}, fmt.Errorf("sleep end %s is before start %s",
				timecalc.FormatClock(*end, loc), timecalc.FormatClock(start, loc))
		}
		d.End = model.Ptr(*end)
	}
	switch {
	case minutes != nil:
		if *minutes < 0 {
			return model.LogEntry{}, fmt.Errorf("minutes must not be negative, got %d", *minutes)
		}
		d.TotalMinutes = model.Ptr(*minutes)
	case d.End != nil:
		if m, ok := d.DerivedMinutes(); ok {
			d.TotalMinutes = model.Ptr(m)
		}
	}
	return model.NewSleep(baby, start, d, strings.TrimSpace(notes)), nil
}

func printLogged(w io.Writer, e model.LogEntry) {
	fmt.Fprintf(w, "Logged %s at %s: %s\n", strings.ToLower(e.Type().DisplayName()), e.TimeString(loc), e.DisplaySummary())
	fmt.Fprintf(w, "  id: %s\n", e.ID)
}
