package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/baenzigerbear/f1-race-replay/internal/config"
	"github.com/baenzigerbear/f1-race-replay/internal/db"
	"github.com/baenzigerbear/f1-race-replay/internal/monitor"
	"github.com/baenzigerbear/f1-race-replay/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPath      = flag.String("db", "replay.db", "Path to the SQLite session database")
	configPath  = flag.String("config", "", "Path to a tuning config JSON file (defaults to "+config.DefaultConfigPath+")")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [migrate up|down|status|force <v>]\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if flag.Arg(0) == "migrate" {
		if err := runMigrate(*dbPath, flag.Args()[1:]); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.MustLoadDefaultConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address: *listen,
		DB:      database,
		Tuning:  tuning,
	})
	if err := ws.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runMigrate(path string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing migrate action (up, down, status or force)")
	}

	database, err := db.OpenDB(path)
	if err != nil {
		return err
	}
	defer database.Close()

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		return database.MigrateDown()
	case "status":
		v, dirty, err := database.MigrateVersion()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%v\n", v, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force requires a version argument")
		}
		var v int
		if _, err := fmt.Sscanf(args[1], "%d", &v); err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return database.MigrateForce(v)
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}
}
