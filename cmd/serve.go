package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/assistant"
	"github.com/Tiliavir/babytalk/internal/toolserver"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the log and the assistant as HTTP tools",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Listen host")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	store := openStore()
	defer store.Close()

	client := newAIClient()
	opts := assistantOptions(store)
	srv := toolserver.New(
		toolserver.Config{Host: serveHost, Port: servePort},
		store,
		assistant.NewPipeline(client, client, opts),
		assistant.NewChat(client, store, opts),
		logger,
	)

	fmt.Printf("Serving tools on http://%s (Ctrl+C to stop)\n", srv.Addr())
	if err := srv.Start(cmd.Context()); err != nil {
		fail(1, err)
	}
	fmt.Println("Server stopped.")
	return nil
}
