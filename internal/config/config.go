package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health endpoint

	// DB
	Env         string // "dev" | "prod"
	DBDriver    string // "sqlite" | "postgres"
	DBPath      string // e.g. "./data/kragdb.db"
	DatabaseURL string // postgres DSN

	LogLevel  string
	LogPretty bool

	// Access event retention
	EventRetentionDays int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 6)

	// Dev seed; only used when Env is "dev".
	RootEmail    string
	RootPassword string
}

// LoadEnvFile copies variables from a dotenv file into the process
// environment without overriding ones already set. A missing default
// ".env" is fine; a missing file that was asked for by name is not.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("KRAGDB_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	driver := strings.ToLower(getenvDefault("KRAGDB_DB_DRIVER", "sqlite"))

	// Pretty logs by default in dev.
	pretty := env == "dev"
	if v := strings.TrimSpace(os.Getenv("KRAGDB_LOG_PRETTY")); v != "" {
		pretty = getenvBool("KRAGDB_LOG_PRETTY")
	}

	return Config{
		HTTPAddr: getenvDefault("KRAGDB_HTTP_ADDR", ":8080"),
		GRPCAddr: strings.TrimSpace(os.Getenv("KRAGDB_GRPC_ADDR")),

		Env:         env,
		DBDriver:    driver,
		DBPath:      getenvDefault("KRAGDB_DB_PATH", "./data/kragdb.db"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		LogLevel:  getenvDefault("KRAGDB_LOG_LEVEL", "info"),
		LogPretty: pretty,

		EventRetentionDays: getenvInt("KRAGDB_EVENT_RETENTION_DAYS", 90),
		PruneIntervalHours: getenvInt("KRAGDB_PRUNE_INTERVAL_HOURS", 6),

		RootEmail:    strings.TrimSpace(os.Getenv("KRAGDB_ROOT_EMAIL")),
		RootPassword: os.Getenv("KRAGDB_ROOT_PASSWORD"),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1"
}
