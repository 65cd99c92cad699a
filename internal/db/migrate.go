package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// RunMigrations applies every pending migration in migrationsDir to the
// backups database and logs each applied version.
func RunMigrations(ctx context.Context, logger zerolog.Logger, databaseURL, migrationsDir string) error {
	if databaseURL == "" {
		return errors.New("database URL is empty")
	}
	if _, err := os.Stat(migrationsDir); err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}

	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, os.DirFS(migrationsDir))
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		logger.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("took", r.Duration).
			Msg("applied migration")
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if len(results) == 0 {
		logger.Info().Msg("schema up to date")
	}
	return nil
}
