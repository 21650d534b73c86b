package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/assistant"
)

var (
	recordText   string
	recordDryRun bool
)

var recordCmd = &cobra.Command{
	Use:   "record [audio-file]",
	Short: "Turn a voice recording (or typed text) into a log entry",
	Long: `record transcribes an audio file, lets the AI assistant structure the
transcript into a feeding, sleep, diaper or note entry, and saves it.
Use --text to skip transcription and structure typed text instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordText, "text", "", "Structure this text instead of an audio file")
	recordCmd.Flags().BoolVar(&recordDryRun, "dry-run", false, "Print the entry without saving it")
}

func runRecord(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(recordText)
	if (len(args) == 1) == (text != "") {
		fail(1, errors.New("give either an audio file or --text"))
	}

	store := openStore()
	defer store.Close()

	client := newAIClient()
	opts := assistantOptions(store)
	opts.OnStateChange = func(s assistant.State) {
		switch s {
		case assistant.StateTranscribing:
			fmt.Fprintln(os.Stderr, "Transcribing...")
		case assistant.StateStructuring:
			fmt.Fprintln(os.Stderr, "Structuring...")
		}
	}
	pipeline := assistant.NewPipeline(client, client, opts)

	var (
		res assistant.Result
		err error
	)
	if text != "" {
		res, err = pipeline.ProcessTranscript(cmd.Context(), text)
	} else {
		res, err = pipeline.Process(cmd.Context(), args[0])
	}
	if err != nil {
		failAI(err)
	}

	fmt.Printf("Heard: %q\n", res.Transcript)
	if recordDryRun {
		data, err := json.MarshalIndent(res.Entry, "", "  ")
		if err != nil {
			fail(1, err)
		}
		fmt.Println(string(data))
		return nil
	}
	saveEntry(store, res.Entry)
	printLogged(os.Stdout, res.Entry)
	return nil
}
