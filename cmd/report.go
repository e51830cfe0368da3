package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an activity summary",
	Long: `Print an outpass activity summary for a time window.
Defaults to the last 30 days; use --from and --to (YYYY-MM-DD) to
override.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		to := time.Now()
		from := to.AddDate(0, 0, -30)

		if s, _ := cmd.Flags().GetString("from"); s != "" {
			t, err := time.ParseInLocation("2006-01-02", s, time.Local)
			if err != nil {
				slog.Error("Invalid --from date", "value", s)
				os.Exit(1)
			}
			from = t
		}
		if s, _ := cmd.Flags().GetString("to"); s != "" {
			t, err := time.ParseInLocation("2006-01-02", s, time.Local)
			if err != nil {
				slog.Error("Invalid --to date", "value", s)
				os.Exit(1)
			}
			// Include the whole day.
			to = t.AddDate(0, 0, 1)
		}

		if !to.After(from) {
			slog.Error("Report window is empty", "from", from, "to", to)
			os.Exit(1)
		}

		fmt.Printf("Outpass summary %s to %s\n\n",
			from.Format("2006-01-02"), to.Format("2006-01-02"))

		statuses, err := provider.CountOutpassesByStatus(ctx, from, to)
		if err != nil {
			slog.Error("Failed to count outpasses", "error", err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tCOUNT")
		var total int64
		for _, s := range statuses {
			fmt.Fprintf(w, "%s\t%d\n", s.Status, s.Count)
			total += s.Count
		}
		fmt.Fprintf(w, "total\t%d\n", total)
		w.Flush()

		misuse, err := provider.CountMisuse(ctx, from, to)
		if err != nil {
			slog.Error("Failed to count misuse", "error", err)
			os.Exit(1)
		}
		fmt.Printf("\nGate misuse attempts: %d\n", misuse)

		depts, err := provider.DepartmentStats(ctx, from, to)
		if err != nil {
			slog.Error("Failed to load department stats", "error", err)
			os.Exit(1)
		}
		if len(depts) > 0 {
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DEPARTMENT\tTOTAL\tAPPROVED\tREJECTED")
			for _, d := range depts {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", d.DeptName, d.Total, d.Approved, d.Rejected)
			}
			w.Flush()
		}

		reasons, err := provider.TopReasons(ctx, from, to, 10)
		if err != nil {
			slog.Error("Failed to load top reasons", "error", err)
			os.Exit(1)
		}
		if len(reasons) > 0 {
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REASON\tCOUNT")
			for _, r := range reasons {
				fmt.Fprintf(w, "%s\t%d\n", r.Reason, r.Count)
			}
			w.Flush()
		}
	},
}

func init() {
	reportCmd.Flags().String("from", "", "Window start (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "Window end (YYYY-MM-DD), inclusive")
	rootCmd.AddCommand(reportCmd)
}
