package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"outpass-control/internal/storage"

	"github.com/spf13/cobra"
)

var deptCmd = &cobra.Command{
	Use:   "dept",
	Short: "Manage departments",
}

var deptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List departments",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		depts, err := provider.ListDepartments(ctx)
		if err != nil {
			slog.Error("Failed to list departments", "error", err)
			os.Exit(1)
		}

		if len(depts) == 0 {
			fmt.Println("No departments found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tNAME")
		for _, d := range depts {
			fmt.Fprintf(w, "%d\t%s\t%s\n", d.ID, d.Code, d.Name)
		}
		w.Flush()
	},
}

var deptCreateCmd = &cobra.Command{
	Use:   "create <code> <name>",
	Short: "Create a department",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		dept := &storage.Department{
			Code: strings.ToUpper(args[0]),
			Name: strings.Join(args[1:], " "),
		}

		id, err := provider.CreateDepartment(ctx, dept)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				slog.Error("Department code already exists", "code", dept.Code)
			} else {
				slog.Error("Failed to create department", "error", err)
			}
			os.Exit(1)
		}

		fmt.Printf("Department %s created with id %d\n", dept.Code, id)
	},
}

var deptDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a department",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			slog.Error("Invalid department id", "id", args[0])
			os.Exit(1)
		}

		if err := provider.DeleteDepartment(ctx, id); err != nil {
			slog.Error("Failed to delete department", "id", id, "error", err)
			os.Exit(1)
		}

		fmt.Printf("Department %d deleted\n", id)
	},
}

func init() {
	deptCmd.AddCommand(deptListCmd)
	deptCmd.AddCommand(deptCreateCmd)
	deptCmd.AddCommand(deptDeleteCmd)
	rootCmd.AddCommand(deptCmd)
}
