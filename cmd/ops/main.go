package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Avenger11764/duo-learning/internal/config"
	"github.com/Avenger11764/duo-learning/internal/ops"
	"github.com/Avenger11764/duo-learning/internal/profile"
	"github.com/Avenger11764/duo-learning/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: duolearn-ops <command> [flags]

commands:
  export   write a tar.gz snapshot of every collection
  import   load a snapshot archive back into the store
  reset    delete every document (requires DUOLEARN_ADMIN_SECRET)
  seed     write the default profiles if the store is empty
`)
	os.Exit(2)
}

func main() {
	_ = godotenv.Load()
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	archive := fs.String("archive", "", "archive path (export/import)")
	secret := fs.String("secret", "", "admin secret (reset)")
	cfgPath := fs.String("config", "duolearn_config.yml", "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	switch cmd {
	case "export":
		path := *archive
		if path == "" {
			path = ops.DefaultArchiveName(time.Now())
		}
		if err := ops.ExportArchive(ctx, st, path); err != nil {
			log.Fatalf("export: %v", err)
		}
		log.Printf("exported %v to %s", ops.Collections, path)

	case "import":
		if *archive == "" {
			log.Fatal("import requires -archive")
		}
		if err := ops.ImportArchive(ctx, st, *archive); err != nil {
			log.Fatalf("import: %v", err)
		}
		log.Printf("imported %s", *archive)

	case "reset":
		if err := ops.CheckAdminSecret(*secret); err != nil {
			log.Fatalf("reset: %v", err)
		}
		if err := ops.Reset(ctx, st); err != nil {
			log.Fatalf("reset (partial): %v", err)
		}
		log.Printf("reset %v", ops.Collections)

	case "seed":
		if err := profile.NewRepo(st).SeedIfEmpty(ctx); err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Print("seeded default profiles")

	default:
		usage()
	}
}

// openStore refuses the memory backend: a fresh in-process store has
// nothing to export or reset.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return store.NewRedis(store.LoadRedisConfigFromEnv())
	case "", "memory":
		return nil, fmt.Errorf("store backend %q has no persistent data to operate on", cfg.Store.Backend)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
