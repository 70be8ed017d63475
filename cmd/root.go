package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "audio-capture",
	Short: "Audio capture service: token-gated WebSocket recording upload",
	Long:  `HTTP + WebSocket API. Commands: api (default), invite.`,
	RunE:  runAPI, // default: run API (same as "audio-capture api")
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(inviteCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
