package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/applyo/prospector/pkg/log"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "prospector",
	Short: "Job-prospecting agents over a tool-calling generation backend",
	Long: `prospector serves company, people and email discovery agents plus an
authenticated chat API, and maintains the company cache they read from.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		log.InitLogger(log.ParseLevel(level))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
	rootCmd.AddCommand(newServeCmd(), newImportCmd(), newKindsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
