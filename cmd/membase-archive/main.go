// Command membase-archive runs the session tier-transition service: it moves
// idle sessions from the hot tier to the relational archive, and cold
// sessions into the object store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scrypster/membase/internal/archive"
	"github.com/scrypster/membase/internal/config"
	"github.com/scrypster/membase/internal/objectstore"
	"github.com/scrypster/membase/internal/storage"
	"github.com/scrypster/membase/internal/storage/postgres"
	"github.com/scrypster/membase/internal/storage/sqlite"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional, env vars by default)")
	driver     = flag.String("driver", "", "Database driver: postgres or sqlite (overrides config)")
	dsn        = flag.String("dsn", "", "Database connection string (overrides config)")
	interval   = flag.Duration("interval", 0, "Pass interval (overrides config)")
	oneshot    = flag.Bool("oneshot", false, "Run one cold pass and one deep pass, then exit")
	dryRun     = flag.Bool("dry-run", false, "Count eligible sessions without moving anything")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	driverFinal := cfg.Database.Driver
	if *driver != "" {
		driverFinal = *driver
	}
	dsnFinal := cfg.Database.DSN
	if *dsn != "" {
		dsnFinal = *dsn
	}

	store, err := openStore(driverFinal, dsnFinal)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	backend := objectstore.NewFromConfig(cfg.ObjectStore)

	archiver := archive.New(store, backend, cfg.Archive.Policy())
	archiver.DryRun = *dryRun

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *oneshot {
		cold, deep, err := archiver.RunOnce(ctx)
		if err != nil {
			log.Fatalf("Pass failed: %v", err)
		}
		fmt.Printf("cold: scanned=%d archived=%d failed=%d\n", cold.Scanned, cold.Archived, cold.Failed)
		fmt.Printf("deep: scanned=%d archived=%d failed=%d\n", deep.Scanned, deep.Archived, deep.Failed)
		if cold.Failed > 0 || deep.Failed > 0 {
			os.Exit(1)
		}
		return
	}

	intervalFinal := cfg.Archive.IntervalDuration()
	if *interval > 0 {
		intervalFinal = *interval
	}

	log.Printf("membase-archive: starting (driver=%s interval=%s dry-run=%v)", driverFinal, intervalFinal, *dryRun)
	if err := archiver.Run(ctx, intervalFinal); err != nil && ctx.Err() == nil {
		log.Fatalf("Archive loop failed: %v", err)
	}
	log.Printf("membase-archive: shutting down")
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.LoadFile(*configPath)
	}
	return config.LoadConfig()
}

func openStore(driver, dsn string) (storage.SessionStore, error) {
	switch driver {
	case "", "postgres":
		return postgres.NewStore(dsn)
	case "sqlite":
		return sqlite.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
