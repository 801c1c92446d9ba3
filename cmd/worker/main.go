// cmd/worker/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/koo5/hillview-sub009/internal/adapter/cache"
	"github.com/koo5/hillview-sub009/internal/adapter/deviceindex"
	"github.com/koo5/hillview-sub009/internal/config"
	"github.com/koo5/hillview-sub009/internal/domain/source"
	domain "github.com/koo5/hillview-sub009/internal/domain/worker"
	"github.com/koo5/hillview-sub009/internal/events"
	"github.com/koo5/hillview-sub009/internal/server"
	"github.com/koo5/hillview-sub009/internal/server/handlers"
	"github.com/koo5/hillview-sub009/internal/service/auth"
	"github.com/koo5/hillview-sub009/internal/service/cull"
	sourceservice "github.com/koo5/hillview-sub009/internal/service/source"
	"github.com/koo5/hillview-sub009/internal/service/worker"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Client id identifies this install to stream backends
	clientID := cfg.Worker.ClientID
	if clientID == "" {
		clientID = uuid.New().String()
	}

	// Optional NATS event mirror
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = initNATS(cfg.NATS)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Close()
	}
	mirror := events.NewPublisher(natsConn, cfg.NATS.Subject)

	// HTTP client shared by static document loads and the HTTP device index
	httpClient := retryablehttp.NewClient()
	httpClient.Logger = nil
	httpClient.RetryMax = 3

	// Device photo index adapter
	deviceIndex, db, err := initDeviceIndex(ctx, cfg, httpClient)
	if err != nil {
		log.Fatalf("Failed to initialize device index: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	// Static document cache
	docCache := cache.NewDocumentCache(cfg.Cache.DocumentTTL)
	defer docCache.Stop()

	// Outbound fan-out hub; it is the worker's emitter
	hub := handlers.NewHub(mirror)

	// Auth token round trips go back to the host through the hub
	tokens := auth.NewTokenManager(hub)

	// Display culler
	culler := cull.New(cull.Config{
		GridSize:         cfg.Cull.GridSize,
		MaxPhotosInArea:  cfg.Cull.MaxPhotosInArea,
		MaxPhotosInRange: cfg.Cull.MaxPhotosInRange,
	})

	// Photo worker
	workerCfg := worker.Config{
		ClientID:           clientID,
		DefaultRangeMeters: cfg.Worker.DefaultRangeMeters,
		MessageBuffer:      cfg.Worker.MessageBuffer,
		Stream: sourceservice.StreamLoaderConfig{
			ClientID:          clientID,
			TokenTimeout:      cfg.Stream.TokenTimeout,
			AuthFailureWindow: cfg.Stream.AuthFailureWindow,
			DialTimeout:       cfg.Stream.DialTimeout,
		},
		Device: sourceservice.DeviceLoaderConfig{
			PageSize: cfg.Device.PageSize,
		},
	}
	wk := worker.New(workerCfg, hub, tokens, culler, deviceIndex, docCache, httpClient)

	workerDone := make(chan struct{})
	go func() {
		wk.Run()
		close(workerDone)
	}()

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, wk, hub)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Println("Shutting down services...")

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop the worker loop
	wk.PostMessage(domain.Control{Type: domain.MsgTerminate})
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Println("Worker shutdown timed out")
	}

	log.Println("Shutdown complete")
}

// initDeviceIndex builds the device index adapter selected by configuration.
// Returns a nil index when the install has no on-device photos.
func initDeviceIndex(ctx context.Context, cfg config.Config, httpClient *retryablehttp.Client) (source.DeviceIndex, *pgxpool.Pool, error) {
	switch cfg.Device.Backend {
	case "postgres":
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return deviceindex.NewPostgresIndex(db), db, nil
	case "http":
		return deviceindex.NewHTTPIndex(cfg.Device.Endpoint, httpClient), nil, nil
	default:
		return nil, nil, nil
	}
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
