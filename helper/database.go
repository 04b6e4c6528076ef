package helper

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection parameters for the backing
// Postgres instance.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads connection parameters from the environment,
// loading a .env file first if one is present. Missing values fall back to
// local-development defaults.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     getenvDefault("DB_HOST", "localhost"),
		Port:     getenvDefault("DB_PORT", "5432"),
		Database: getenvDefault("DB_NAME", "gqlrag"),
		Username: getenvDefault("DB_USER", "postgres"),
		Password: getenvDefault("DB_PASSWORD", "postgres"),
		Schema:   getenvDefault("DB_SCHEMA", "public"),
		SSLMode:  getenvDefault("DB_SSLMODE", "disable"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" {
		return nil, fmt.Errorf("incomplete database configuration")
	}

	return config, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Database bundles an open connection pool with the logger every handler
// built on top of it uses.
type Database struct {
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection pool against config and wraps it with
// logger. name is used only for log context.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	dsn := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		config.Host, config.Port, config.Database, config.Username, config.Password, config.SSLMode, config.Schema,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("failed to open database connection", slog.String("database", name), slog.String("error", err.Error()))
		return &Database{Logger: logger}
	}

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", slog.String("database", name), slog.String("error", err.Error()))
	}

	logger.Info("opened database connection", slog.String("database", name))
	return &Database{Instance: db, Logger: logger}
}
