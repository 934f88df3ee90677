package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/lingua/internal/workspace"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear saved learner sessions",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [email]",
	Short: "Print the saved session for a learner (default: --user)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		user := cfg.User
		if len(args) == 1 {
			user = args[0]
		}

		version, savedAt, data, err := workspace.NewStore(s.KV()).Inspect(cmd.Context(), user)
		if err != nil {
			return fmt.Errorf("inspect session: %w", err)
		}
		if data == nil {
			fmt.Printf("No saved session for %s.\n", user)
			return nil
		}

		fmt.Printf("User:      %s\n", user)
		fmt.Printf("Version:   %s\n", version)
		fmt.Printf("Saved:     %s\n", savedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Println(strings.Repeat("─", 60))

		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			fmt.Println(string(data))
			return nil
		}
		fmt.Println(out.String())
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear [email]",
	Short: "Delete the saved session for a learner (default: --user)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		user := cfg.User
		if len(args) == 1 {
			user = args[0]
		}
		if err := workspace.NewStore(s.KV()).Delete(cmd.Context(), user); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Printf("Cleared saved session for %s.\n", user)
		return nil
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List learners with saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		accounts, err := workspace.NewStore(s.KV()).Accounts(cmd.Context())
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No saved accounts.")
			return nil
		}

		fmt.Printf("%-40s  %s\n", "Email", "Last seen")
		fmt.Println(strings.Repeat("─", 62))
		for _, a := range accounts {
			fmt.Printf("%-40s  %s\n", truncate(a.Email, 40), a.LastSeen.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}
