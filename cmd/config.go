package cmd

import (
	"fmt"
	"time"
)

// Config is read from the environment by main. An empty DBHost selects the
// in-memory store and an empty RedisURL the in-process locker.
type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	RedisURL   string
	LogLevel   string

	AdminAPIKey       string
	DriverTokenSecret string

	CallbackSchedule      string
	CallbackTimeout       time.Duration
	CallbackBatchSize     int
	CallbackConcurrency   int
	CallbackRatePerSecond float64
}

// UsesDatabase reports whether postgres is configured. Without it the service
// keeps its state in memory.
func (c Config) UsesDatabase() bool {
	return c.DBHost != ""
}

func (c Config) DSN() string {
	sslMode := c.DBSslMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, sslMode)
}
