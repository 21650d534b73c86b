package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/babytalk/internal/timecalc"
)

var profileBirth string

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or set the baby profile",
}

var profileSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update the baby profile",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProfileSet,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the baby profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

func init() {
	profileSetCmd.Flags().StringVar(&profileBirth, "birth", "", "Birth date (YYYY-MM-DD)")
	_ = profileSetCmd.MarkFlagRequired("birth")
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileShowCmd)
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fail(1, fmt.Errorf("name must not be empty"))
	}
	birth, err := timecalc.ParseDayKey(profileBirth, loc)
	if err != nil {
		fail(1, fmt.Errorf("invalid --birth value: %w", err))
	}
	if birth.After(time.Now()) {
		fail(1, fmt.Errorf("birth date %s is in the future", profileBirth))
	}

	store := openStore()
	defer store.Close()

	// Updating keeps the id, so existing entries stay attached to the baby.
	p, ok := store.Profile()
	if ok {
		p.Name = name
		p.BirthDate = birth
		err = store.SaveProfile(p)
	} else {
		p, err = store.CreateProfile(name, birth)
	}
	if err != nil {
		fail(2, err)
	}

	fmt.Printf("Saved profile for %s (%s).\n", p.Name, p.AgeDescription(time.Now().In(loc)))
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	store := openStore()
	defer store.Close()

	p, ok := store.Profile()
	if !ok {
		fmt.Println("No baby profile set. Use 'babytalk profile set <name> --birth YYYY-MM-DD'.")
		return nil
	}
	fmt.Printf("Name: %s\n", p.Name)
	fmt.Printf("Born: %s\n", timecalc.DayKey(p.BirthDate, loc))
	fmt.Printf("Age:  %s\n", p.AgeDescription(time.Now().In(loc)))
	fmt.Printf("ID:   %s\n", p.ID)
	return nil
}
