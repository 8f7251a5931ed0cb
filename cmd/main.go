package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"restaurant-order-service/internal/api"
	"restaurant-order-service/internal/config"
	"restaurant-order-service/internal/consumer"
	"restaurant-order-service/internal/logger"
	"restaurant-order-service/internal/repository"
	"restaurant-order-service/internal/service"
	"restaurant-order-service/internal/sharding"
	"restaurant-order-service/migrations"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func connectDB(shard int, dsn string, retries int, l zerolog.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < retries; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				l.Info().Msgf("Connected to DB shard %d", shard)
				return db, nil
			}
		}
		l.Warn().Err(err).Msgf("Retry %d: failed to connect to DB shard %d", i+1, shard)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB shard %d after %d retries: %w", shard, retries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	appLogger := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	log.Logger = appLogger
	service.SetLogger(appLogger)
	api.SetLogger(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shards := make([]*sql.DB, 0, len(cfg.DBDSNs))
	for i, dsn := range cfg.DBDSNs {
		db, err := connectDB(i, dsn, cfg.DBConnectRetries, appLogger)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		shards = append(shards, db)
	}
	primary := shards[0]

	if err := migrations.AutoMigrateCatalog(ctx, 3, primary); err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to migrate catalog tables")
	}
	if err := migrations.AutoMigrateOrders(ctx, 3, shards...); err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to migrate orders tables")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	kafkaWriter := config.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	defer kafkaWriter.Close()

	router := sharding.NewShardRouter(len(shards))

	orderRepo := repository.NewOrderRepository(shards, router)
	catalogRepo := repository.NewCatalogRepository(primary)
	tableRepo := repository.NewTableRepository(primary)
	discountRepo := repository.NewDiscountRepository(primary)

	catalogService := service.NewCatalogService(catalogRepo, rdb, cfg.OrderTimeout)
	tableService := service.NewTableService(tableRepo, cfg.OrderTimeout)
	stationService := service.NewStationService(rdb, cfg.OrderTimeout)
	orderService := service.NewOrderService(orderRepo, catalogService, tableService, discountRepo, kafkaWriter, rdb, cfg.OrderTimeout)

	if n, err := catalogService.WarmCache(ctx); err != nil {
		appLogger.Warn().Err(err).Msg("Catalog cache warmup failed")
	} else {
		appLogger.Info().Msgf("Catalog cache warmed with %d items", n)
	}

	reader := config.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaOrderTopic, cfg.KafkaGroupID)
	orderConsumer := consumer.NewConsumer(reader, catalogService, stationService, orderService)
	go orderConsumer.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	api.Register(e, api.RouterConfig{
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Service:   "order-service",
	}, api.NewOrderHandler(orderService), api.NewCatalogHandler(catalogService, tableService, stationService))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			appLogger.Error().Err(err).Msg("Error shutting down server")
		}
	}()

	if err := e.Start(cfg.Address); err != nil && ctx.Err() == nil {
		e.Logger.Fatal(err)
	}
}
