package main

import (
	"fmt"
	"os"

	"chathelper/internal/di"
	"chathelper/internal/structures"

	"github.com/spf13/cobra"
)

var version = "dev"

var flags structures.CliFlags

var rootCmd = &cobra.Command{
	Use:   "chathelperd",
	Short: "chathelperd is the privileged storage backend for the chat helper",
	Long: `chathelperd holds the saved-snippet store and settings for chat helper
clients, persists them to disk, and serves the storage message protocol
over WebSocket alongside read-only inspection endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := di.InitApp(&flags)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.Flags().BoolVar(&flags.DebugMode, "debug", false, "log to console at debug level")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
