package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries process-wide settings. Environment variables win over the
// optional YAML file named by HAMLET_CONFIG, which wins over defaults.
type Config struct {
	Environment   string
	LogLevel      slog.Level
	RedisURL      string
	DataDir       string // authored worlds, rules and grammars
	KBDir         string // knowledge base files, one per (world, purpose)
	SolverPath    string
	SolverTimeout time.Duration
	ScratchDir    string // solver scratch programs; empty means os.TempDir
}

// fileConfig mirrors Config with the YAML-friendly field types.
type fileConfig struct {
	Environment          string `yaml:"environment"`
	LogLevel             string `yaml:"log_level"`
	RedisURL             string `yaml:"redis_url"`
	DataDir              string `yaml:"data_dir"`
	KBDir                string `yaml:"kb_dir"`
	SolverPath           string `yaml:"solver_path"`
	SolverTimeoutSeconds int    `yaml:"solver_timeout_seconds"`
	ScratchDir           string `yaml:"scratch_dir"`
}

func Load() *Config {
	file := loadFile(getEnv("HAMLET_CONFIG", "hamlet.yaml"))

	return &Config{
		Environment:   pick(os.Getenv("ENVIRONMENT"), file.Environment, "development"),
		LogLevel:      parseLogLevel(pick(os.Getenv("LOG_LEVEL"), file.LogLevel, "info")),
		RedisURL:      pick(os.Getenv("REDIS_URL"), file.RedisURL, "redis://localhost:6379"),
		DataDir:       pick(os.Getenv("DATA_DIR"), file.DataDir, "./data"),
		KBDir:         pick(os.Getenv("KB_DIR"), file.KBDir, "./data/kb"),
		SolverPath:    pick(os.Getenv("SOLVER_PATH"), file.SolverPath, "swipl"),
		SolverTimeout: solverTimeout(os.Getenv("SOLVER_TIMEOUT_SECONDS"), file.SolverTimeoutSeconds),
		ScratchDir:    pick(os.Getenv("SCRATCH_DIR"), file.ScratchDir, ""),
	}
}

// loadFile reads the optional YAML config. A missing file is normal; a
// malformed one is logged and ignored.
func loadFile(path string) fileConfig {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("Ignoring malformed config file", "path", path, "error", err)
		return fileConfig{}
	}
	return fc
}

func solverTimeout(env string, file int) time.Duration {
	if env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	if file > 0 {
		return time.Duration(file) * time.Second
	}
	return 5 * time.Second
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
