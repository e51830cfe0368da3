package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Migrations run automatically when the storage provider opens; this
// command exists so deployments can apply them ahead of a rollout and
// verify the resulting schema version.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Run: func(cmd *cobra.Command, args []string) {
		version, err := provider.GetSchemaVersion(context.Background())
		if err != nil {
			slog.Error("Failed to read schema version", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Schema is up to date at version %d\n", version)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
