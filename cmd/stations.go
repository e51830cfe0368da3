package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"outpass-control/internal/storage"

	"github.com/spf13/cobra"
)

var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Manage gate station provisioning",
	Long:  `Manage gate scanner stations, including listing, approving, and rejecting registrations.`,
}

func parseStationStatus(arg string) storage.StationStatus {
	switch strings.ToLower(arg) {
	case "pending":
		return storage.StationPending
	case "approved":
		return storage.StationApproved
	case "rejected":
		return storage.StationRejected
	default:
		slog.Error("Invalid status", "status", arg)
		fmt.Println("Valid statuses: pending, approved, rejected")
		os.Exit(1)
		return ""
	}
}

var stationListCmd = &cobra.Command{
	Use:   "list [status]",
	Short: "List stations",
	Long:  `List stations by status. Valid statuses: pending, approved, rejected. Defaults to pending.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		status := storage.StationPending
		if len(args) > 0 {
			status = parseStationStatus(args[0])
		}

		stations, err := provider.ListStations(ctx, status)
		if err != nil {
			slog.Error("Failed to list stations", "error", err)
			os.Exit(1)
		}

		if len(stations) == 0 {
			fmt.Printf("No %s stations found\n", status)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATION ID\tNAME\tSTATUS\tCLIENT IP\tCREATED AT\tUPDATED AT")
		for _, station := range stations {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				station.ID,
				station.Name,
				station.Status,
				station.ClientIP,
				station.CreatedAt.Format("2006-01-02 15:04:05"),
				station.UpdatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		w.Flush()
	},
}

var stationApproveCmd = &cobra.Command{
	Use:   "approve <station_id>",
	Short: "Approve a pending station",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		stationID := args[0]

		station, err := provider.GetStation(ctx, stationID)
		if err != nil {
			slog.Error("Station not found", "station_id", stationID, "error", err)
			os.Exit(1)
		}
		if station.Status == storage.StationApproved {
			fmt.Printf("Station %s is already approved\n", stationID)
			return
		}

		if err := provider.UpdateStationStatus(ctx, stationID, storage.StationApproved, nil); err != nil {
			slog.Error("Failed to approve station", "station_id", stationID, "error", err)
			os.Exit(1)
		}

		fmt.Printf("Station %s approved successfully\n", stationID)
	},
}

var stationRejectCmd = &cobra.Command{
	Use:   "reject <station_id>",
	Short: "Reject a pending station",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		stationID := args[0]

		station, err := provider.GetStation(ctx, stationID)
		if err != nil {
			slog.Error("Station not found", "station_id", stationID, "error", err)
			os.Exit(1)
		}
		if station.Status == storage.StationRejected {
			fmt.Printf("Station %s is already rejected\n", stationID)
			return
		}

		if err := provider.UpdateStationStatus(ctx, stationID, storage.StationRejected, nil); err != nil {
			slog.Error("Failed to reject station", "station_id", stationID, "error", err)
			os.Exit(1)
		}

		fmt.Printf("Station %s rejected successfully\n", stationID)
	},
}

var stationPruneCmd = &cobra.Command{
	Use:   "prune [--days N] [--status STATUS]",
	Short: "Remove old stations",
	Long: `Remove stations older than a specified number of days.
By default, removes pending stations older than 7 days.
Use --status to filter by station status (pending, approved, rejected).
Use --days to specify the age threshold (default: 7).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		days, _ := cmd.Flags().GetInt("days")
		statusStr, _ := cmd.Flags().GetString("status")
		status := parseStationStatus(statusStr)

		olderThan := time.Now().AddDate(0, 0, -days)

		fmt.Printf("Pruning %s stations older than %d days (created before %s)...\n",
			status, days, olderThan.Format("2006-01-02 15:04:05"))

		count, err := provider.PruneStations(ctx, olderThan, status)
		if err != nil {
			slog.Error("Failed to prune stations", "error", err)
			os.Exit(1)
		}

		if count == 0 {
			fmt.Println("No stations to prune")
		} else {
			fmt.Printf("Successfully pruned %d station(s)\n", count)
		}
	},
}

func init() {
	stationPruneCmd.Flags().IntP("days", "d", 7, "Remove stations older than this many days")
	stationPruneCmd.Flags().StringP("status", "s", "pending", "Filter by station status (pending, approved, rejected)")

	stationCmd.AddCommand(stationListCmd)
	stationCmd.AddCommand(stationApproveCmd)
	stationCmd.AddCommand(stationRejectCmd)
	stationCmd.AddCommand(stationPruneCmd)
	rootCmd.AddCommand(stationCmd)
}
