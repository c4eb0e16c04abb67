package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/store"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles",
		Long:  "Create and list the roles that bundle permissions for user accounts.",
	}

	cmd.AddCommand(newRoleCreateCmd())
	cmd.AddCommand(newRoleListCmd())

	return cmd
}

func newRoleCreateCmd() *cobra.Command {
	var (
		description string
		permissions string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new role",
		Example: `  infinitops role create operator --permissions tickets:read,tickets:write
  infinitops role create admin --permissions '*'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleCreate(args[0], description, permissions)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Role description")
	cmd.Flags().StringVar(&permissions, "permissions", "", "Comma-separated permission list, or '*' for all")

	return cmd
}

func runRoleCreate(name, description, permissions string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	role := &model.Role{
		Name:        name,
		Description: description,
		Permissions: permissions,
	}
	if err := st.CreateRole(context.Background(), role); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("role %q already exists", name)
		}
		return fmt.Errorf("create role: %w", err)
	}

	fmt.Printf("Created role %q (id %d)\n", name, role.ID)
	return nil
}

func newRoleListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runRoleList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	roles, err := st.ListRoles(context.Background())
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(roles)
	}

	if len(roles) == 0 {
		fmt.Println("No roles. Use 'infinitops role create'.")
		return nil
	}

	fmt.Printf("%-20s %-30s %-30s\n", "NAME", "PERMISSIONS", "DESCRIPTION")
	fmt.Printf("%-20s %-30s %-30s\n", "----", "-----------", "-----------")
	for _, r := range roles {
		fmt.Printf("%-20s %-30s %-30s\n", r.Name, r.Permissions, r.Description)
	}

	return nil
}
