package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Micevski239/dysnomia-website-sub001/internal/cart"
	"github.com/Micevski239/dysnomia-website-sub001/internal/catalog"
	"github.com/Micevski239/dysnomia-website-sub001/internal/checkout"
	"github.com/Micevski239/dysnomia-website-sub001/internal/config"
	"github.com/Micevski239/dysnomia-website-sub001/internal/confirmation"
	h "github.com/Micevski239/dysnomia-website-sub001/internal/http"
	"github.com/Micevski239/dysnomia-website-sub001/internal/metrics"
	"github.com/Micevski239/dysnomia-website-sub001/internal/notify"
	"github.com/Micevski239/dysnomia-website-sub001/internal/orders"
	"github.com/Micevski239/dysnomia-website-sub001/internal/pricing"
	"github.com/Micevski239/dysnomia-website-sub001/internal/storage"
	"github.com/Micevski239/dysnomia-website-sub001/pkg/circuitbreaker"
	"github.com/Micevski239/dysnomia-website-sub001/pkg/logger"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync() //nolint:errcheck
	zap.ReplaceGlobals(lg)

	if err := run(cfg, lg); err != nil {
		lg.Fatal("storefront stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Cart storage
	st, closeStorage, err := openStorage(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeStorage()
	carts := cart.NewManager(st, cfg.Storage.KeyPrefix, cfg.Storage.WriteTimeout, lg, m)

	// Product catalog
	products, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return err
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		return err
	}
	lg.Info("catalog ready", zap.String("path", cfg.Catalog.DBPath))

	// Orders
	cred := &orders.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		SSLMode:           cfg.Postgres.SSLMode,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
	repo, err := orders.NewPostgresRepository(ctx, cred)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.RunMigrations(cred); err != nil {
		return err
	}
	lg.Info("connected to postgres", zap.String("host", cfg.Postgres.Host), zap.String("db", cfg.Postgres.DBName))

	shipping := checkout.ShippingPolicy{FlatFee: cfg.Checkout.FlatFee, FreeThreshold: cfg.Checkout.FreeThreshold}
	prices := pricing.Default()
	orderService := orders.NewService(repo, prices, shipping, lg)

	// Notifications
	var notifier checkout.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		kn := notify.NewKafkaNotifier(writer, circuitbreaker.DefaultConfig("order-notify"), lg)
		defer kn.Close()
		notifier = kn
		lg.Info("publishing order events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		notifier = notify.NewLogNotifier(lg)
	}

	orchestrator := checkout.NewOrchestrator(orderService, notifier, checkout.Config{
		Shipping:      shipping,
		SubmitTimeout: cfg.Checkout.SubmitTimeout,
		NotifyTimeout: cfg.Notify.Timeout,
	}, lg, m)
	defer orchestrator.Wait()

	reader := confirmation.NewReader(orderService, cfg.Checkout.LookupTimeout, lg)

	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(carts, prices, products, cfg.HTTP.RequestTimeout, lg),
		Checkout: h.NewCheckoutHandler(carts, checkout.NewValidator(), orchestrator, lg),
		Orders:   h.NewOrdersHandler(reader, cfg.HTTP.RequestTimeout),
		Catalog:  h.NewCatalogHandler(products, prices, cfg.HTTP.RequestTimeout, lg),
	}, h.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Metrics:        m,
		Gatherer:       reg,
		Logger:         lg,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Checkout.SubmitTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweep(sweepCtx, cfg.Storage.SweepInterval, cfg.Storage.IdleTimeout, carts, orchestrator, lg)

	serveErr := make(chan error, 1)
	go func() {
		lg.Info("storefront listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	lg.Info("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	lg.Info("storefront stopped")
	return nil
}

// sweep drops idle carts and finished checkout attempts from memory. Carts
// are reloaded from storage when their session comes back.
func sweep(ctx context.Context, interval, idle time.Duration, carts *cart.Manager, orchestrator *checkout.Orchestrator, lg *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			evicted := carts.Sweep(idle)
			forgotten := orchestrator.Sweep(idle)
			if evicted > 0 || forgotten > 0 {
				lg.Debug("swept idle sessions",
					zap.Int("carts", evicted),
					zap.Int("attempts", forgotten),
					zap.Int("carts_held", carts.Len()))
			}
		case <-ctx.Done():
			return
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config, lg *zap.Logger) (storage.Storage, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		lg.Info("cart storage: redis", zap.String("addr", cfg.Redis.Addr))
		return storage.NewRedisStorage(client, cfg.Redis.TTL), func() { client.Close() }, nil

	case config.StorageMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		st := storage.NewMongoStorage(db)
		if err := st.CreateIndexes(ctx); err != nil {
			lg.Warn("failed to create cart indexes", zap.Error(err))
		}
		lg.Info("cart storage: mongo", zap.String("database", cfg.Mongo.Database))
		return st, func() { db.Client().Disconnect(context.Background()) }, nil

	default:
		lg.Warn("cart storage: memory, carts are lost on restart")
		return storage.NewMemoryStorage(), func() {}, nil
	}
}
