// internal/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultNetworkFile is read from the working directory when present.
const DefaultNetworkFile = "network.json"

// Config collects every process setting. Values come from, in increasing
// precedence: built-in defaults, network.json, and the environment (a .env
// file is loaded into the environment by the binaries).
type Config struct {
	ServerHost  string
	ServerPort  int
	HTTPTimeout time.Duration
	LogLevel    string

	RedisAddr    string
	RedisDB      int
	JournalQueue string

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string

	HistorianBatchSize int
	HistorianFlush     time.Duration

	TableServerAddr string
	LobbyCapacity   int
}

// networkFile is the on-disk shape of network.json.
type networkFile struct {
	ServerHost string `json:"server_host"`
	ServerPort int    `json:"server_port"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ServerHost:         "127.0.0.1",
		ServerPort:         8000,
		HTTPTimeout:        10 * time.Second,
		LogLevel:           "info",
		JournalQueue:       "kalooki_actions",
		PostgresHost:       "localhost",
		PostgresPort:       "5432",
		PostgresDatabase:   "kalooki",
		HistorianBatchSize: 20,
		HistorianFlush:     500 * time.Millisecond,
		TableServerAddr:    ":8000",
		LobbyCapacity:      4,
	}
}

// Load reads network.json from the working directory (if any) and the
// environment.
func Load(logger *logrus.Logger) (Config, error) {
	return LoadFrom(DefaultNetworkFile, logger)
}

// LoadFrom is Load with an explicit network file. A missing file is not an
// error; a malformed one is. Unparseable environment values are logged and
// ignored.
func LoadFrom(networkPath string, logger *logrus.Logger) (Config, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg := Defaults()

	if networkPath != "" {
		data, err := os.ReadFile(networkPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read %s: %w", networkPath, err)
		default:
			var nf networkFile
			if err := json.Unmarshal(data, &nf); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", networkPath, err)
			}
			if nf.ServerHost != "" {
				cfg.ServerHost = nf.ServerHost
			}
			if nf.ServerPort != 0 {
				cfg.ServerPort = nf.ServerPort
			}
		}
	}

	env := envReader{logger: logger}
	cfg.ServerHost = env.get("KALOOKI_HOST", cfg.ServerHost)
	cfg.ServerPort = env.getInt("KALOOKI_PORT", cfg.ServerPort)
	cfg.HTTPTimeout = env.getDuration("KALOOKI_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.LogLevel = env.get("LOG_LEVEL", cfg.LogLevel)

	cfg.RedisAddr = env.get("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisDB = env.getInt("REDIS_DB", cfg.RedisDB)
	cfg.JournalQueue = env.get("JOURNAL_QUEUE_NAME", cfg.JournalQueue)

	cfg.PostgresUser = env.get("POSTGRES_USER", cfg.PostgresUser)
	cfg.PostgresPassword = env.get("POSTGRES_PASSWORD", cfg.PostgresPassword)
	cfg.PostgresHost = env.get("PG_HOST", cfg.PostgresHost)
	cfg.PostgresPort = env.get("PG_PORT", cfg.PostgresPort)
	cfg.PostgresDatabase = env.get("PG_DATABASE", cfg.PostgresDatabase)

	cfg.HistorianBatchSize = env.getInt("HISTORIAN_BATCH_SIZE", cfg.HistorianBatchSize)
	cfg.HistorianFlush = time.Duration(env.getInt("HISTORIAN_FLUSH_MS", int(cfg.HistorianFlush/time.Millisecond))) * time.Millisecond

	cfg.TableServerAddr = env.get("TABLESERVER_ADDR", cfg.TableServerAddr)
	cfg.LobbyCapacity = env.getInt("LOBBY_CAPACITY", cfg.LobbyCapacity)

	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return cfg, fmt.Errorf("server port %d out of range", cfg.ServerPort)
	}
	if cfg.HistorianBatchSize <= 0 {
		logger.Warnf("HISTORIAN_BATCH_SIZE %d is not positive, using 1", cfg.HistorianBatchSize)
		cfg.HistorianBatchSize = 1
	}
	return cfg, nil
}

// BaseURL is the root every HTTP endpoint path is resolved against.
func (c Config) BaseURL() string {
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort)),
		Path:   "/",
	}
	return u.String()
}

// PostgresURL builds the connection string for the historian's database.
func (c Config) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDatabase,
	}
	if c.PostgresUser != "" {
		u.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
	}
	return u.String()
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

type envReader struct {
	logger *logrus.Logger
}

// get retrieves an environment variable's value or returns a default.
func (e envReader) get(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func (e envReader) getInt(key string, def int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		e.logger.Warnf("ignoring %s=%q: not an integer", key, s)
		return def
	}
	return v
}

// getDuration accepts Go durations ("15s") or bare seconds ("15").
func (e envReader) getDuration(key string, def time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		e.logger.Warnf("ignoring %s=%q: not a duration", key, s)
		return def
	}
	return d
}
