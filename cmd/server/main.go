/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the charge engine server. Handles configuration,
  store selection, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env vars, optional YAML file, flag overrides)
  2. Open the selected store (memory, sqlite, or postgres)
  3. Optionally seed a charge plan from a JSON file
  4. Create API handler and router
  5. Start the monthly billing scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config        YAML config file (also CHARGE_CONFIG)
  -addr          Listen address (overrides config)
  -db-driver     memory | sqlite | postgres (overrides config)
  -db-dsn        Database path or connection string (overrides config)
  -seed          JSON charge plan to load on startup
  -no-scheduler  Disable automatic monthly billing

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the billing scheduler (waits for an in-flight run)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db-driver=sqlite -db-dsn="./data/charges.db"

  # Run in-memory with demo data
  ./server -db-driver=memory -seed=./plans/demo.json

  # Run against PostgreSQL
  ./server -db-driver=postgres -db-dsn="postgres://localhost:5432/charges"

SEE ALSO:
  - config/config.go: Environment variables and YAML schema
  - api/server.go: Router configuration
  - factory/plan.go: Seed plan format
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/charge-engine/api"
	"github.com/warp/charge-engine/charge"
	memstore "github.com/warp/charge-engine/charge/store"
	"github.com/warp/charge-engine/config"
	"github.com/warp/charge-engine/factory"
	"github.com/warp/charge-engine/store/postgres"
	"github.com/warp/charge-engine/store/sqlite"
)

func main() {
	// Flags
	cfgPath := flag.String("config", "", "YAML config file path")
	addr := flag.String("addr", "", "listen address (overrides config)")
	dbDriver := flag.String("db-driver", "", "store driver: memory, sqlite, postgres (overrides config)")
	dbDSN := flag.String("db-dsn", "", "database path or connection string (overrides config)")
	seedPath := flag.String("seed", "", "JSON charge plan to seed on startup")
	noScheduler := flag.Bool("no-scheduler", false, "disable the monthly billing scheduler")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbDriver != "" {
		cfg.Database.Driver = *dbDriver
	}
	if *dbDSN != "" {
		cfg.Database.DSN = *dbDSN
	}
	if *noScheduler {
		cfg.Scheduler.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	var (
		store  charge.TxStore
		closer interface{ Close() error }
	)
	switch cfg.Database.Driver {
	case "memory":
		store = memstore.NewTxMemory()
		log.Printf("Using in-memory store (data is lost on exit)")
	case "sqlite":
		s, err := sqlite.New(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		store, closer = s, s
		log.Printf("Using SQLite store at %s", cfg.Database.DSN)
	case "postgres":
		s, err := postgres.New(context.Background(), cfg.Database.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		store, closer = s, s
		log.Printf("Using PostgreSQL store")
	}
	if closer != nil {
		defer closer.Close()
	}

	// Optional seed plan
	if *seedPath != "" {
		plan, err := factory.NewPlanFactory(cfg.Currency).LoadFile(*seedPath)
		if err != nil {
			log.Fatalf("Failed to load seed plan %s: %v", *seedPath, err)
		}
		if err := plan.Seed(context.Background(), store, time.Now()); err != nil {
			log.Fatalf("Failed to seed plan: %v", err)
		}
		log.Printf("Seeded %d staff and %d schedules from %s",
			len(plan.Staff), len(plan.Schedules), *seedPath)
	}

	// Initialize handler and router
	handler := api.NewHandler(store, cfg.Currency)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Billing scheduler
	var scheduler *api.BillingScheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = api.NewBillingScheduler(store, cfg.Scheduler.Cron)
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		scheduler.Start()
	} else {
		log.Printf("Billing scheduler disabled")
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Charge engine starting on http://localhost%s", cfg.ListenAddr)
		log.Printf("📊 API available at http://localhost%s/api", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
