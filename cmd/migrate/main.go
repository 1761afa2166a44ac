package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/GDG-UAM/website-sub002/internal/common/config"
	"github.com/GDG-UAM/website-sub002/internal/common/logger"
	"github.com/GDG-UAM/website-sub002/internal/platform/postgres"
)

const usage = `usage: migrate [-database URL] <command>

commands:
  up        apply all pending migrations
  down N    roll back N migrations
  status    print the applied version
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	databaseURL := flag.String("database", "", "postgres URL, defaults to DATABASE_URL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger.Init("website-migrate", cfg.Debug)

	url := *databaseURL
	if url == "" {
		url = cfg.Postgres.URL
	}

	if err := run(url, flag.Args()); err != nil {
		logger.Error().Err(err).Msg("Migration failed")
		os.Exit(1)
	}
}

func run(databaseURL string, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "up":
		return postgres.MigrateUp(databaseURL)
	case "down":
		if len(args) < 2 {
			return fmt.Errorf("down needs the number of steps")
		}
		steps, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid steps %q: %w", args[1], err)
		}
		return postgres.MigrateDown(databaseURL, steps)
	case "status":
		version, dirty, err := postgres.MigrationStatus(databaseURL)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}
