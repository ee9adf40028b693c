package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepamak/pump-tracker/internal/storage/migrations"
	pgstore "github.com/stepamak/pump-tracker/internal/storage/postgres"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	Long: `Apply the embedded SQL migrations to every configured backend:
the dev list table in Postgres (storage.postgres_dsn) and the admission
decision table in ClickHouse (storage.clickhouse_dsn). Migrations are idempotent.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	if cfg.Storage.PostgresDSN == "" && cfg.Storage.ClickhouseDSN == "" {
		return fmt.Errorf("no database configured: set storage.postgres_dsn or storage.clickhouse_dsn")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	out := cmd.OutOrStdout()

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return err
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		pool.Close()
		for _, f := range applied {
			fmt.Fprintf(out, "postgres: applied %s\n", f)
		}
		if err != nil {
			return err
		}
	}

	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		conn, applied, err := migrations.RunClickhouseMigrations(ctx, dsn)
		for _, f := range applied {
			fmt.Fprintf(out, "clickhouse: applied %s\n", f)
		}
		if err != nil {
			return err
		}
		_ = conn.Close()
	}
	return nil
}
