package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/credentials"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the AI service API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Save a custom API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newResolver().SaveCustomKey(args[0]); err != nil {
			fail(2, err)
		}
		fmt.Printf("API key saved (%s).\n", credentials.Mask(args[0]))
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the saved API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := newResolver()
		if !r.HasCustomKey() {
			fmt.Println("No saved API key.")
			return nil
		}
		if err := r.ClearCustomKey(); err != nil {
			fail(2, err)
		}
		fmt.Println("Saved API key removed.")
		return nil
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which API key is in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print(keyStatus(newResolver()))
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyClearCmd)
	keyCmd.AddCommand(keyStatusCmd)
}

// keyStatus describes the key in use and whether a saved key is shadowed by a
// higher-precedence source.
func keyStatus(r *credentials.Resolver) string {
	key := r.Resolve()
	if key == "" {
		return fmt.Sprintf("No API key configured. Use 'babytalk key set <key>' or set %s.\n", credentials.EnvKey)
	}
	src := r.ResolvedSource()
	out := fmt.Sprintf("Using %s from the %s.\n", credentials.Mask(key), src)
	if src != credentials.SourceCustom && r.HasCustomKey() {
		out += fmt.Sprintf("A saved key exists but the %s takes precedence.\n", src)
	}
	return out
}
