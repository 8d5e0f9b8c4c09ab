package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "loungecore",
	Short:         "Always-on IRC bouncer core serving web clients over websocket",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called once by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Empty means LOUNGE_CONFIG_DEFAULT_PATH or ./config.yaml.
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file")
}
