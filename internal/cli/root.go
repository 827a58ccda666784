package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mockmate-app/mockmate-live/internal/ui"
)

var (
	flagServer   string
	flagOrigin   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool

	flagSynthetic  bool
	flagMicAddr    string
	flagCameraAddr string
	flagScreenAddr string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mockmate-live",
	Short: "Live mock-interview calls from the terminal",
	Long: `MockMate Live runs the video-call side of a mock interview from the
command line. It talks to the same signaling relay as the webapp, so a
terminal participant can host a room or join one created in the browser.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	for _, cmd := range []*cobra.Command{hostCmd, joinCmd} {
		cmd.Flags().StringVar(&flagServer, "server", "", "Signaling relay URL (ws:// or wss://)")
		cmd.Flags().StringVar(&flagOrigin, "origin", "", "Webapp origin used for invite links")
		cmd.Flags().StringVar(&flagSTUN, "stun", "", "Custom STUN server")
		cmd.Flags().StringVar(&flagTURN, "turn", "", "Custom TURN server host")
		cmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
		cmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
		cmd.Flags().BoolVar(&flagRelay, "relay", false, "Force all media through TURN")

		cmd.Flags().BoolVar(&flagSynthetic, "synthetic", false, "Send generated media instead of capturing devices")
		cmd.Flags().StringVar(&flagMicAddr, "mic-addr", "", "RTP ingest address for the microphone encoder")
		cmd.Flags().StringVar(&flagCameraAddr, "camera-addr", "", "RTP ingest address for the camera encoder")
		cmd.Flags().StringVar(&flagScreenAddr, "screen-addr", "", "RTP ingest address for the screen encoder")

		rootCmd.AddCommand(cmd)
	}
}
