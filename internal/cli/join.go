package cli

import (
	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:     "join <code-or-link>",
	Aliases: []string{"j"},
	Short:   "Join an existing interview room",
	Long: `Join an interview room by code or by pasting the invite link.

Examples:
  mockmate-live join AB12CD
  mockmate-live join https://mockmateapp.dev/interview/live?room=AB12CD`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runCall(cfg, args[0], false)
	},
}
