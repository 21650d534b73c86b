package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/assistant"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the assistant a question about the baby's recent activity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarise the last seven days",
	Args:  cobra.NoArgs,
	RunE:  runInsights,
}

func runChat(cmd *cobra.Command, args []string) error {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		fail(1, errors.New("message must not be empty"))
	}

	store := openStore()
	defer store.Close()

	chat := assistant.NewChat(newAIClient(), store, assistantOptions(store))
	reply, err := chat.Ask(cmd.Context(), message)
	if err != nil {
		failAI(err)
	}
	fmt.Println(reply)
	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	store := openStore()
	defer store.Close()

	insights := assistant.NewInsights(newAIClient(), store, assistantOptions(store))
	text, err := insights.Generate(cmd.Context())
	if err != nil {
		failAI(err)
	}
	fmt.Println(text)
	return nil
}
