// Package app is the composition root: it constructs and wires every
// component of the replay engine and owns process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quotation-replay/api"
	"quotation-replay/broker"
	"quotation-replay/cache"
	"quotation-replay/calendar"
	"quotation-replay/config"
	"quotation-replay/database"
	"quotation-replay/database/history"
	"quotation-replay/database/quotations"
	"quotation-replay/preheat"
	"quotation-replay/realtime"
	"quotation-replay/replay"
)

// Startup failure classes, mapped to process exit codes by ExitCode
var (
	ErrSourceUnavailable = errors.New("quotation source unavailable")
	ErrBrokerUnreachable = errors.New("broker unreachable")
)

// ExitCode maps a startup error to the CLI exit-code contract
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrSourceUnavailable):
		return 2
	case errors.Is(err, ErrBrokerUnreachable):
		return 4
	default:
		return 1
	}
}

// App represents the main application
type App struct {
	config *config.Config

	gormDB      *database.Database
	sourceDB    *database.DB
	redis       *cache.RedisClient
	publisher   *broker.Publisher
	hub         *realtime.Hub
	coordinator *replay.Coordinator
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Start wires the engine and blocks until shutdown
func (a *App) Start() error {
	dbCfg := database.Config{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	}

	// 1. History store (GORM) + schema
	fmt.Println("🗄️  Connecting to database...")
	gormDB, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	a.gormDB = gormDB

	if err := gormDB.InitSchema(); err != nil {
		return fmt.Errorf("%w: schema initialization: %v", ErrSourceUnavailable, err)
	}

	// 2. Quotation source (raw connection for the window scans)
	sourceDB, err := database.NewConnection(dbCfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	a.sourceDB = sourceDB

	// 3. Redis (preheat K/V store)
	fmt.Println("🧠 Connecting to Redis...")
	a.redis = cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)

	// 4. Kafka
	fmt.Println("📨 Checking kafka connectivity...")
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = broker.CheckConnectivity(dialCtx, a.config.KafkaBrokers)
	dialCancel()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnreachable, err)
	}
	a.publisher = broker.NewPublisher(a.config.KafkaBrokers)
	log.Printf("✅ Kafka reachable at %v", a.config.KafkaBrokers)

	// 5. Trading calendar from the holiday table
	histRepo := history.NewRepository(gormDB.DB())
	holidays, err := histRepo.Holidays(context.Background())
	if err != nil {
		log.Printf("⚠️  Holiday table unavailable, weekend rule only: %v", err)
	}
	cal := calendar.New(holidays)

	// 6. Preheater registry: fixed task set, resolved once
	registry := a.buildRegistry(histRepo, cal)

	// 7. Live tap hub
	a.hub = realtime.NewHub()
	go a.hub.Run()

	// 8. Replay coordinator
	quotRepo := quotations.NewRepository(sourceDB.Conn())
	a.coordinator = replay.NewCoordinator(
		quotRepo, a.publisher, registry, cal, a.config.Replay, a.hub)

	// 9. API server
	apiServer := api.NewServer(a.coordinator, a.hub)
	go func() {
		if err := apiServer.Start(a.config.APIPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 10. Wait for interrupt and perform graceful shutdown
	return a.gracefulShutdown()
}

// buildRegistry assembles the warmup tasks. With Redis down the
// registry is empty: downstream consumers read cache-aside and a cold
// cache only costs them misses.
func (a *App) buildRegistry(histRepo *history.Repository, cal *calendar.Calendar) *preheat.Registry {
	if a.redis == nil {
		fmt.Println("⚠️  Redis unavailable, preheat disabled")
		return preheat.NewRegistry()
	}
	return preheat.NewRegistry(
		preheat.NewIndexPreCloseTask(a.redis, histRepo, cal, a.config.Replay.IndexCodes),
		preheat.NewMovingAverageTask(a.redis, histRepo),
		preheat.NewNineTurnTask(a.redis, histRepo),
	)
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		// Stop any active replay run first so no record is cut off
		// mid-publish
		if a.coordinator != nil {
			fmt.Println("⏸️  Stopping replay coordinator...")
			a.coordinator.Stop()
		}

		if a.publisher != nil {
			if err := a.publisher.Close(); err != nil {
				log.Printf("Error closing kafka writer: %v", err)
			} else {
				fmt.Println("✅ Kafka writer closed")
			}
		}

		if a.sourceDB != nil {
			if err := a.sourceDB.Close(); err != nil {
				log.Printf("Error closing quotation source: %v", err)
			}
		}

		if a.gormDB != nil {
			if err := a.gormDB.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
