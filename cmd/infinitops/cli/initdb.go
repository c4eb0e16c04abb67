package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infinitops/infinitops/internal/service"
	"github.com/infinitops/infinitops/internal/store"
)

func newInitDBCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Run migrations and create the initial admin account",
		Long: `Create the database schema, the "admin" role with the wildcard permission,
and the initial "admin" user. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB(password)
		},
	}

	cmd.Flags().StringVar(&password, "admin-password", "admin123", "Password for the initial admin user")

	return cmd
}

func runInitDB(password string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hash, err := service.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	created, err := st.Bootstrap(context.Background(), hash)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if !created {
		fmt.Println("Admin user already exists.")
		return nil
	}

	fmt.Println("Admin user created successfully.")
	fmt.Printf("  Username: %s\n", store.BootstrapAdminUsername)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println("Change this password before exposing the server.")
	return nil
}
