package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"outpass-control/internal/access"
	"outpass-control/internal/storage"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

func parseRole(arg string) storage.Role {
	switch strings.ToLower(arg) {
	case "student":
		return storage.RoleStudent
	case "staff":
		return storage.RoleStaff
	case "hod":
		return storage.RoleHOD
	case "security":
		return storage.RoleSecurity
	case "admin":
		return storage.RoleAdmin
	default:
		slog.Error("Invalid role", "role", arg)
		fmt.Println("Valid roles: student, staff, hod, security, admin")
		os.Exit(1)
		return ""
	}
}

var userListCmd = &cobra.Command{
	Use:   "list [role]",
	Short: "List user accounts",
	Long:  `List user accounts, optionally filtered by role.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var role *storage.Role
		if len(args) > 0 {
			r := parseRole(args[0])
			role = &r
		}

		users, err := provider.ListUsers(ctx, role, nil)
		if err != nil {
			slog.Error("Failed to list users", "error", err)
			os.Exit(1)
		}

		if len(users) == 0 {
			fmt.Println("No users found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tFULL NAME\tROLE\tDEPT\tACTIVE")
		for _, u := range users {
			dept := "-"
			if u.DeptID != nil {
				dept = fmt.Sprintf("%d", *u.DeptID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n",
				u.ID, u.Username, u.FullName, u.Role, dept, u.IsActive)
		}
		w.Flush()
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username> <role>",
	Short: "Create a user account",
	Long: `Create a user account with the given username and role.
The password is read from the OUTPASS_PASSWORD environment variable,
or prompted for via the --password flag.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		username := args[0]
		role := parseRole(args[1])

		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("OUTPASS_PASSWORD")
		}
		if password == "" {
			slog.Error("No password given; use --password or OUTPASS_PASSWORD")
			os.Exit(1)
		}
		if len(password) < 8 {
			slog.Error("Password must be at least 8 characters")
			os.Exit(1)
		}

		hash, err := access.HashPassword(password)
		if err != nil {
			slog.Error("Failed to hash password", "error", err)
			os.Exit(1)
		}

		user := &storage.User{
			Username:     username,
			PasswordHash: hash,
			FullName:     username,
			Role:         role,
			IsActive:     true,
		}

		if name, _ := cmd.Flags().GetString("name"); name != "" {
			user.FullName = name
		}
		if email, _ := cmd.Flags().GetString("email"); email != "" {
			if err := access.ValidEmail(email); err != nil {
				slog.Error("Invalid email", "email", email, "error", err)
				os.Exit(1)
			}
			user.Email = email
		}
		if deptID, _ := cmd.Flags().GetInt64("dept"); deptID > 0 {
			user.DeptID = &deptID
		}

		id, err := provider.CreateUser(ctx, user)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				slog.Error("Username already exists", "username", username)
			} else {
				slog.Error("Failed to create user", "error", err)
			}
			os.Exit(1)
		}

		fmt.Printf("User %s created with id %d\n", username, id)
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Reset a user's password",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		username := args[0]

		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("OUTPASS_PASSWORD")
		}
		if len(password) < 8 {
			slog.Error("Password must be at least 8 characters")
			os.Exit(1)
		}

		user, err := provider.GetUserByUsername(ctx, username)
		if err != nil {
			slog.Error("User not found", "username", username, "error", err)
			os.Exit(1)
		}

		hash, err := access.HashPassword(password)
		if err != nil {
			slog.Error("Failed to hash password", "error", err)
			os.Exit(1)
		}

		if err := provider.SetUserPassword(ctx, user.ID, hash); err != nil {
			slog.Error("Failed to set password", "error", err)
			os.Exit(1)
		}

		fmt.Printf("Password updated for %s\n", username)
	},
}

var userActiveCmd = &cobra.Command{
	Use:   "active <username> <true|false>",
	Short: "Enable or disable a user account",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		username := args[0]
		active := args[1] == "true"

		user, err := provider.GetUserByUsername(ctx, username)
		if err != nil {
			slog.Error("User not found", "username", username, "error", err)
			os.Exit(1)
		}

		if err := provider.SetUserActive(ctx, user.ID, active); err != nil {
			slog.Error("Failed to update user", "error", err)
			os.Exit(1)
		}

		if active {
			fmt.Printf("User %s enabled\n", username)
		} else {
			fmt.Printf("User %s disabled\n", username)
		}
	},
}

func init() {
	userCreateCmd.Flags().StringP("password", "p", "", "Initial password")
	userCreateCmd.Flags().StringP("name", "n", "", "Full name")
	userCreateCmd.Flags().StringP("email", "e", "", "Email address")
	userCreateCmd.Flags().Int64P("dept", "D", 0, "Department id")
	userPasswdCmd.Flags().StringP("password", "p", "", "New password")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userActiveCmd)
	rootCmd.AddCommand(userCmd)
}
