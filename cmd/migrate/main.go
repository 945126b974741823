// Command migrate applies the durable mirror's schema (the persisted
// tenants/embeddings/lsh_entries layout) against the configured Postgres
// database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/S-Corkum/secureann/internal/config"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	migrationsPath := flag.String("path", "migrations", "path to migration files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	m, err := migrate.New("file://"+*migrationsPath, cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init migrator: %v\n", err)
		os.Exit(1)
	}

	switch *direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		fmt.Fprintf(os.Stderr, "unknown direction %q, expected up or down\n", *direction)
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("migration complete")
}
