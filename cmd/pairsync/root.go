// Package pairsync assembles the pairsync CLI's cobra command tree.
package pairsync

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const verboseLogKey = "PAIRSYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:           "pairsync",
		Short:         "Bidirectional filesystem sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCommand(), newConnectCommand())

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("pairsync failed")
		os.Exit(1)
	}
}
