package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"outpass-control/internal/config"
	"outpass-control/internal/storage"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	cfg      *config.Config
	provider storage.Provider
)

var rootCmd = &cobra.Command{
	Use:   "outpass-control",
	Short: "Student outpass management system",
	Long:  `A command-line tool for managing student outpasses, gate stations and reports.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize configuration
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadConfig(cfgFile)
		} else {
			cfg, err = config.LoadConfig()
		}
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		config.Cfg = cfg

		// Initialize storage provider
		provider = storage.NewProvider(&cfg.Storage)
		if provider == nil {
			slog.Error("Failed to initialize storage provider")
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Cleanup
		if provider != nil {
			provider.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./instance/config.yaml)")
}
