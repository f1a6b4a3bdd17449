package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	units "github.com/docker/go-units"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultBaseURL         = "localhost:3060"
	defaultMountPath       = "/api/secondchance/items"
	defaultDBDriver        = "mongo"
	defaultMongoURL        = "mongodb://localhost:27017"
	defaultMongoDB         = "secondChance"
	defaultSQLiteDSN       = "secondchance.db"
	defaultBoltPath        = "secondchance.bolt"
	defaultRedisAddr       = "localhost:6379"
	defaultUploadDir       = "public/images"
	defaultUploadMaxSize   = "10MB"
	defaultUploadNaming    = "original"
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	// Server-side settings
	MountPath       string        `env:"MOUNT_PATH" toml:"mount_path"`
	DBDriver        string        `env:"DB_DRIVER" toml:"db_driver"`
	MongoURL        string        `env:"MONGO_URL" toml:"mongo_url"`
	MongoDB         string        `env:"MONGO_DB" toml:"mongo_db"`
	DatabaseDSN     string        `env:"DATABASE_URI" toml:"database_uri"`
	BoltPath        string        `env:"BOLT_PATH" toml:"bolt_path"`
	RedisAddr       string        `env:"REDIS_ADDR" toml:"redis_addr"`
	UploadDir       string        `env:"UPLOAD_DIR" toml:"upload_dir"`
	UploadMaxSize   string        `env:"UPLOAD_MAX_SIZE" toml:"upload_max_size"`
	UploadNaming    string        `env:"UPLOAD_NAMING" toml:"upload_naming"`
	LogLevel        string        `env:"LOG_LEVEL" toml:"log_level"`
	LogFormat       string        `env:"LOG_FORMAT" toml:"log_format"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" toml:"-"`

	// Shared settings
	BaseURL     string `env:"BASE_URL" toml:"base_url"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS" toml:"enable_https"`

	// Derived
	UploadMaxBytes int64  `env:"-" toml:"-"`
	ServerURL      string `env:"-" toml:"-"`
	ConfigFile     string `env:"CONFIG_FILE" toml:"-"`
	Version        bool   `env:"-" toml:"-"` // show version and exit (flag only)
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)

// NewConfig собирает конфигурацию: TOML-файл, затем .env и переменные окружения,
// затем флаги командной строки. Пустые и некорректные значения заменяются значениями по умолчанию.
func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	path := os.Getenv("CONFIG_FILE")
	if p, ok := lookupArg(os.Args[1:], "config"); ok {
		path = p
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
	}

	_ = env.Parse(cfg)

	flag.StringVar(&cfg.ConfigFile, "config", path, "path to TOML config file")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "server address host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "use https scheme for the server URL")
	flag.StringVar(&cfg.MountPath, "mount", cfg.MountPath, "path the item routes are mounted under")
	flag.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "store backend: mongo, postgres, sqlite, bolt, redis")
	flag.StringVar(&cfg.MongoURL, "mongo-url", cfg.MongoURL, "MongoDB connection string")
	flag.StringVar(&cfg.MongoDB, "mongo-db", cfg.MongoDB, "MongoDB database name")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres, sqlite)")
	flag.StringVar(&cfg.BoltPath, "bolt-path", cfg.BoltPath, "path to bolt database file")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address host:port")
	flag.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "directory for uploaded images")
	flag.StringVar(&cfg.UploadMaxSize, "upload-max-size", cfg.UploadMaxSize, "max upload size, e.g. 10MB")
	flag.StringVar(&cfg.UploadNaming, "upload-naming", cfg.UploadNaming, "stored file names: original or uuid")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "show version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	// BaseURL must be "address:port" (no scheme, no path). Otherwise use default.
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	cfg.MountPath = normalizeMount(cfg.MountPath)

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver == "" {
		cfg.DBDriver = defaultDBDriver
	}
	if cfg.MongoURL == "" {
		cfg.MongoURL = defaultMongoURL
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = defaultMongoDB
	}
	if cfg.DatabaseDSN == "" && cfg.DBDriver == "sqlite" {
		cfg.DatabaseDSN = defaultSQLiteDSN
	}
	if cfg.BoltPath == "" {
		cfg.BoltPath = defaultBoltPath
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = defaultRedisAddr
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = defaultUploadDir
	}

	size, err := units.FromHumanSize(cfg.UploadMaxSize)
	if err != nil || size <= 0 {
		cfg.UploadMaxSize = defaultUploadMaxSize
		size, _ = units.FromHumanSize(defaultUploadMaxSize)
	}
	cfg.UploadMaxBytes = size

	if cfg.UploadNaming != "uuid" {
		cfg.UploadNaming = defaultUploadNaming
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogFormat != "json" {
		cfg.LogFormat = defaultLogFormat
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
}

// ItemsURL — полный адрес коллекции объявлений для клиента.
func (cfg *Config) ItemsURL() string {
	return cfg.ServerURL + cfg.MountPath
}

func normalizeMount(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return defaultMountPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return defaultMountPath
	}
	return p
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	var durations struct {
		ShutdownTimeout string `toml:"shutdown_timeout"`
	}
	if err := toml.Unmarshal(data, &durations); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if durations.ShutdownTimeout != "" {
		d, err := time.ParseDuration(durations.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

// lookupArg finds -name value, -name=value or their double-dash forms before flag.Parse runs.
func lookupArg(args []string, name string) (string, bool) {
	for i, a := range args {
		a = strings.TrimPrefix(strings.TrimPrefix(a, "-"), "-")
		if a == name && i+1 < len(args) {
			return args[i+1], true
		}
		if v, ok := strings.CutPrefix(a, name+"="); ok {
			return v, true
		}
	}
	return "", false
}
