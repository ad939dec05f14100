package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fulfillment/cmd"
	"fulfillment/internal/adapters/out/memory"
	"fulfillment/internal/adapters/out/postgres"
	"fulfillment/internal/adapters/out/redislock"
	"fulfillment/internal/adapters/out/webhook"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/clock"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Warnf("No .env file loaded, using the process environment: %v", err)
	}

	configs := getConfigs()
	slogger := newLogger(configs.LogLevel)
	slog.SetDefault(slogger)

	uowFactory := newUnitOfWorkFactory(configs)
	locker, closeLocker := newEntityLocker(configs)
	defer closeLocker()

	app := cmd.NewCompositionRoot(configs, cmd.Adapters{
		UnitOfWork: uowFactory,
		Locker:     locker,
		Sender: webhook.NewSender(nil, webhook.Config{
			Timeout:       configs.CallbackTimeout,
			RatePerSecond: configs.CallbackRatePerSecond,
			UserAgent:     "fulfillment-callbacks/1.0",
		}),
		Clock:  clock.System{},
		Logger: slogger,
	})

	jobManager := app.CreateJobManager()
	if err := jobManager.StartAll(); err != nil {
		log.Fatalf("Failed to start jobs: %v", err)
	}
	defer jobManager.StopAll()

	startWebServer(app, configs.HTTPPort)
}

func getConfigs() cmd.Config {
	config := cmd.Config{
		HTTPPort:              goDotEnvVariable("HTTP_PORT", "8080"),
		DBHost:                goDotEnvVariable("DB_HOST", ""),
		DBPort:                goDotEnvVariable("DB_PORT", "5432"),
		DBUser:                goDotEnvVariable("DB_USER", ""),
		DBPassword:            goDotEnvVariable("DB_PASSWORD", ""),
		DBName:                goDotEnvVariable("DB_NAME", ""),
		DBSslMode:             goDotEnvVariable("DB_SSLMODE", "disable"),
		RedisURL:              goDotEnvVariable("REDIS_URL", ""),
		LogLevel:              goDotEnvVariable("LOG_LEVEL", "info"),
		AdminAPIKey:           goDotEnvVariable("ADMIN_API_KEY", ""),
		DriverTokenSecret:     goDotEnvVariable("DRIVER_TOKEN_SECRET", ""),
		CallbackSchedule:      goDotEnvVariable("CALLBACK_SCHEDULE", ""),
		CallbackTimeout:       durationVariable("CALLBACK_TIMEOUT", webhook.DefaultTimeout),
		CallbackBatchSize:     intVariable("CALLBACK_BATCH_SIZE", 50),
		CallbackConcurrency:   intVariable("CALLBACK_CONCURRENCY", 8),
		CallbackRatePerSecond: floatVariable("CALLBACK_RATE_PER_SECOND", 0),
	}
	return config
}

func goDotEnvVariable(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func durationVariable(key string, fallback time.Duration) time.Duration {
	raw := goDotEnvVariable(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s must be a duration such as 30s: %v", key, err)
	}
	return d
}

func intVariable(key string, fallback int) int {
	raw := goDotEnvVariable(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("%s must be an integer: %v", key, err)
	}
	return n
}

func floatVariable(key string, fallback float64) float64 {
	raw := goDotEnvVariable(key, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Fatalf("%s must be a number: %v", key, err)
	}
	return f
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", level)
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newUnitOfWorkFactory(configs cmd.Config) ports.UnitOfWorkFactory {
	if !configs.UsesDatabase() {
		log.Warn("DB_HOST is not set, state is kept in memory and lost on exit")
		return memory.NewUnitOfWorkFactory(memory.NewStore())
	}

	gormDB, err := gorm.Open(gorm_postgres.Open(configs.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := postgres.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	return postgres.NewGormUnitOfWorkFactory(gormDB)
}

func newEntityLocker(configs cmd.Config) (ports.EntityLocker, func()) {
	if configs.RedisURL == "" {
		return memory.NewEntityLocker(clock.System{}), func() {}
	}

	locker, err := redislock.NewFromURL(configs.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := locker.Ping(ctx); err != nil {
		log.Fatalf("Failed to reach redis: %v", err)
	}

	return locker, func() {
		if err := locker.Close(); err != nil {
			log.Errorf("Failed to close redis client: %v", err)
		}
	}
}

func startWebServer(app *cmd.CompositionRoot, port string) {
	e, err := app.CreateRouter()
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}
	e.Logger.SetLevel(log.INFO)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}
