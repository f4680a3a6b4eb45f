package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mediqueue/mediqueue/internal/config"
	"github.com/mediqueue/mediqueue/internal/platform/auth"
	"github.com/mediqueue/mediqueue/internal/platform/datastore"
	"github.com/mediqueue/mediqueue/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediqueue-server",
		Short: "MediQueue clinic queue and billing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(probeCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openPool connects when the datastore is configured. A nil pool with a nil
// error means the server runs in the setup-required state.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if !cfg.DatastoreConfigured() {
		return nil, nil
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseAccessKey, cfg.DBMaxConns, cfg.DBMinConns)
}

func newClient(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *datastore.Client {
	var conn datastore.Conn
	if pool != nil {
		conn = pool
	}
	return datastore.NewClient(conn, datastore.Options{
		ProbeRetries: cfg.ProbeRetries,
		ProbeBackoff: cfg.ProbeBackoff,
	}, logger)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg, newLogger(cfg))
		},
	}
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check database connectivity with retries and seed defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			client := newClient(cfg, pool, logger)
			ok := client.Probe(ctx)
			out, _ := json.MarshalIndent(client.Status(), "", "  ")
			fmt.Println(string(out))
			if !ok {
				return fmt.Errorf("database not reachable (state %s)", client.Status().State)
			}
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert default departments and settings into empty tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.DatastoreConfigured() {
				return fmt.Errorf("DATABASE_URL and DATABASE_ACCESS_KEY must be set")
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := datastore.Seed(ctx, pool, newLogger(cfg)); err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			fmt.Println("Defaults seeded.")
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			subject, _ := cmd.Flags().GetString("subject")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is required to mint tokens")
			}
			token, exp, err := auth.MintToken(jwtConfig(cfg), subject, cfg.ClinicID, strings.Split(role, ","))
			if err != nil {
				return err
			}
			fmt.Println(token)
			fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
	cmd.Flags().String("role", auth.RoleStaff, "Comma-separated roles (admin, staff, doctor)")
	cmd.Flags().String("subject", "cli", "Token subject")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		SigningKey: []byte(cfg.AuthSigningKey),
		TTL:        cfg.AuthTokenTTL,
		Skipper:    auth.AuthSkipper,
	}
}
