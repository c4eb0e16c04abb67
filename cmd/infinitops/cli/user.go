package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/service"
	"github.com/infinitops/infinitops/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
		Long:  "Create and list the user accounts that can authenticate against the API.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		email    string
		password string
		roleName string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user account",
		Example: `  infinitops user create --username jdoe --email jdoe@example.com
  infinitops user create --username jdoe --email jdoe@example.com --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(username, email, password, roleName, !inactive)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&roleName, "role", "", "Role to assign")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the account disabled")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runUserCreate(username, email, password, roleName string, active bool) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	ctx := context.Background()

	var role *model.Role
	if roleName != "" {
		role, err = st.GetRoleByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("unknown role: %q", roleName)
			}
			return fmt.Errorf("look up role: %w", err)
		}
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     active,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("a user with that username or email already exists")
		}
		return fmt.Errorf("create user: %w", err)
	}

	if role != nil {
		if err := st.AssignRole(ctx, user.ID, role.ID); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
	}

	fmt.Printf("Created user %q (id %d)\n", username, user.ID)
	if role != nil {
		fmt.Printf("  Role: %s\n", role.Name)
	}
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	users, err := st.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No user accounts. Use 'infinitops initdb' or 'infinitops user create'.")
		return nil
	}

	fmt.Printf("%-20s %-30s %-8s %-20s\n", "USERNAME", "EMAIL", "ACTIVE", "ROLES")
	fmt.Printf("%-20s %-30s %-8s %-20s\n", "--------", "-----", "------", "-----")
	for _, u := range users {
		active := "yes"
		if !u.IsActive {
			active = "no"
		}
		names := make([]string, len(u.Roles))
		for i, r := range u.Roles {
			names[i] = r.Name
		}
		fmt.Printf("%-20s %-30s %-8s %-20s\n", u.Username, u.Email, active, strings.Join(names, ","))
	}

	return nil
}
