// Command migrate applies the engine's database schema and exits.
// Useful for provisioning before the first engine start.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/db"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Database connection URL (overrides config)")
	flag.Parse()

	if err := run(*configPath, *dbURL); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dbURL string) error {
	url := dbURL
	if url == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		url = cfg.Database.URL
	}
	if url == "" {
		return fmt.Errorf("no database URL: set --db, DATABASE_URL, or database.url in config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := db.New(ctx, &config.DatabaseConfig{Enabled: true, URL: url})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	log.Info().Msg("Migration complete")
	return nil
}
