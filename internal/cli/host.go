package cli

import (
	"github.com/spf13/cobra"
)

var hostCmd = &cobra.Command{
	Use:     "host",
	Aliases: []string{"h"},
	Short:   "Create an interview room and wait for the other participant",
	Long: `Create a fresh interview room on the relay and print the room code and
invite link. The other participant can join from the webapp or with
"mockmate-live join".

Examples:
  mockmate-live host
  mockmate-live host --synthetic
  mockmate-live host --server wss://relay.example.com/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runCall(cfg, "", true)
	},
}
