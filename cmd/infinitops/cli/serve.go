package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/infinitops/infinitops/internal/server"
	"github.com/infinitops/infinitops/internal/service"
)

const banner = `
 ___       __ _      _ _    ___
|_ _|_ _  / _(_)_ _ (_) |_ / _ \ _ __ ___
 | || ' \|  _| | ' \| |  _| (_) | '_ (_-<
|___|_||_|_| |_|_||_|_|\__|\___/| .__/__/
                                |_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the InfinitOps API server",
		Long:  "Start the HTTP server that exposes the authenticated REST API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "path", resolveDataDir())

	// The auth configuration is assembled once here and injected; nothing
	// reads it from the environment afterwards.
	authCfg := service.DefaultConfig()
	authCfg.SecretKey = viper.GetString("auth.secret_key")
	if authCfg.SecretKey == "" {
		authCfg.SecretKey = "infinitops-dev-secret-change-me"
		logger.Warn("auth.secret_key not set - using insecure development secret")
	}
	if alg := viper.GetString("auth.algorithm"); alg != "" {
		authCfg.Algorithm = alg
	}
	if mins := viper.GetInt("auth.token_ttl_minutes"); mins > 0 {
		authCfg.TokenTTL = time.Duration(mins) * time.Minute
	}

	authSvc, err := service.NewAuthService(st, authCfg)
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}

	hasUser, err := st.HasAnyUser(context.Background())
	if err != nil {
		logger.Warn("failed to check for users", "error", err)
	}
	if !hasUser {
		// First run: create the default admin so the server is usable
		// immediately. Same as 'infinitops initdb' with the default password.
		hash, err := service.HashPassword("admin123")
		if err != nil {
			return fmt.Errorf("hash default admin password: %w", err)
		}
		if _, err := st.Bootstrap(context.Background(), hash); err != nil {
			return fmt.Errorf("bootstrap admin user: %w", err)
		}
		logger.Warn("created default admin account - change its password",
			"username", "admin")
	}

	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write PID file", "error", err)
	}
	defer removePID()

	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
	}
	srv := server.New(srvCfg, st, authSvc, logger)

	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Login:   POST http://%s:%d/api/v1/login\n", host, port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", host, port)
	fmt.Printf("→ Token TTL: %s\n", authCfg.TokenTTL)
	fmt.Println()

	return srv.ListenAndServe()
}
