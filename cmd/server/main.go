package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fleet-routing-service/internal/adapters/cache"
	"fleet-routing-service/internal/adapters/google"
	"fleet-routing-service/internal/api"
	"fleet-routing-service/internal/config"
	"fleet-routing-service/internal/metrics"
	"fleet-routing-service/internal/platform/db"
	"fleet-routing-service/internal/ports"
	"fleet-routing-service/internal/services"
)

// main is the application composition root.
// It wires the Google adapters and caches behind ports and starts the HTTP server.
func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found (using environment variables)")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	metrics.RegisterDefault()

	geocoder, err := google.NewGeocoder(google.GeocoderOptions{
		APIKey:   cfg.Google.APIKey,
		BaseURL:  cfg.Google.GeocodeURL,
		Language: cfg.Google.Language,
		Region:   cfg.Google.Region,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build geocoder")
	}

	provider, err := google.NewRouteMatrixProvider(google.RouteMatrixOptions{
		APIKey:            cfg.Google.APIKey,
		BaseURL:           cfg.Google.RoutesURL,
		RequestsPerSecond: cfg.Matrix.RequestsPerSecond,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build route matrix provider")
	}

	// Redis is optional; a bounded in-process cache covers single-node runs.
	var matrixCache ports.MatrixCache = cache.NewMemoryMatrixCache(cfg.Matrix.CacheSize)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		matrixCache = cache.NewRedisMatrixCache(client, time.Duration(cfg.Redis.TTLMinutes)*time.Minute)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("matrix cache backed by redis")
	}

	// Postgres persists geocode results across restarts when configured.
	var geoCache ports.GeocodeCache
	if cfg.Database.URL != "" {
		pg, err := db.Open(cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("open database")
		}
		defer pg.Close()
		if err := db.InitSchema(pg); err != nil {
			logger.Fatal().Err(err).Msg("init database schema")
		}
		geoCache = cache.NewPgGeocodeCache(pg)
		logger.Info().Msg("geocode cache backed by postgres")
	}

	builder := services.NewMatrixBuilder(geocoder, provider, matrixCache, geoCache, services.MatrixBuilderOptions{
		BatchSize:           cfg.Matrix.BatchSize,
		MaxConcurrentBlocks: cfg.Matrix.MaxConcurrentBlocks,
	})

	router := api.NewRouter(logger, builder, services.SearchParams{
		SlackMinutes:   cfg.Solver.SlackMinutes,
		HorizonMinutes: cfg.Solver.HorizonMinutes,
		TimeBudget:     cfg.SolveBudget(),
	})

	// Timeouts are tuned for cold-cache matrix builds plus a full solve budget.
	logger.Info().Str("addr", ":"+cfg.Server.Port).Msg("server listening")
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
