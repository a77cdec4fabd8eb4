package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultServerAddress    = ":8090"
	DefaultScanInterval     = 1200 * time.Millisecond
	DefaultScanFinalDelay   = 1000 * time.Millisecond
	DefaultStateTTL         = 30 * time.Minute
	DefaultJanitorInterval  = 5 * time.Minute
	DefaultVisitorCookieTTL = 365 * 24 * time.Hour
)

// Intake backends accepted by basic_config.intake_backend.
const (
	IntakeBackendSQL    = "sql"
	IntakeBackendRedis  = "redis"
	IntakeBackendMemory = "memory"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Scan        ScanConfig                `json:"scan"`
	Mail        MailConfig                `json:"mail"`
	Logging     LoggingConfig             `json:"logging"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	// Database selects an entry of Databases ("sqlite3" or "mysql").
	Database      string `json:"database"`
	IntakeBackend string `json:"intake_backend"`
	// IntakeTTLMinutes only applies to the redis backend; 0 keeps records until overwritten.
	IntakeTTLMinutes       int  `json:"intake_ttl_minutes"`
	StateTTLMinutes        int  `json:"state_ttl_minutes"`
	JanitorIntervalMinutes int  `json:"janitor_interval_minutes"`
	AllowTierPreview       bool `json:"allow_tier_preview"`
	SecureCookies          bool `json:"secure_cookies"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ScanConfig struct {
	IntervalMillis   int      `json:"interval_ms"`
	FinalDelayMillis int      `json:"final_delay_ms"`
	Stages           []string `json:"stages"`
}

type MailConfig struct {
	Enabled bool   `json:"enabled"`
	Region  string `json:"region"`
	Sender  string `json:"sender"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Load reads configuration from the provided path (defaults to config.json).
// A .env file next to the working directory is loaded first so that the
// RAISEROCKET_* overrides can live there.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("RAISEROCKET_CONFIG")
	}
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyEnv(&cfg)
	cfg.applyDefaults()

	// relative sqlite files are resolved against the config location
	if db, ok := cfg.Databases["sqlite3"]; ok && db.DSN != "" && db.DSN != ":memory:" &&
		!strings.HasPrefix(db.DSN, "file:") && !filepath.IsAbs(db.DSN) {
		db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
		cfg.Databases["sqlite3"] = db
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns an in-memory configuration, used by tests and local runs.
func Default() *Config {
	cfg := &Config{
		BasicConfig: BasicConfig{Database: "sqlite3", IntakeBackend: IntakeBackendMemory},
		Databases: map[string]DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("RAISEROCKET_ADDR")); v != "" {
		cfg.BasicConfig.ServerAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("RAISEROCKET_DB")); v != "" {
		cfg.BasicConfig.Database = v
	}
	if v := strings.TrimSpace(os.Getenv("RAISEROCKET_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = DefaultServerAddress
	}
	if c.BasicConfig.Database == "" {
		c.BasicConfig.Database = "sqlite3"
	}
	if c.BasicConfig.IntakeBackend == "" {
		c.BasicConfig.IntakeBackend = IntakeBackendSQL
	}
	if c.Scan.IntervalMillis == 0 {
		c.Scan.IntervalMillis = int(DefaultScanInterval / time.Millisecond)
	}
	if c.Scan.FinalDelayMillis == 0 {
		c.Scan.FinalDelayMillis = int(DefaultScanFinalDelay / time.Millisecond)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate reports configuration values the service cannot run with.
func (c *Config) Validate() error {
	switch c.BasicConfig.IntakeBackend {
	case IntakeBackendSQL, IntakeBackendRedis, IntakeBackendMemory:
	default:
		return fmt.Errorf("unsupported intake_backend %q", c.BasicConfig.IntakeBackend)
	}
	if _, ok := c.Databases[c.BasicConfig.Database]; !ok {
		return fmt.Errorf("database config for %s not found", c.BasicConfig.Database)
	}
	if c.Scan.IntervalMillis < 0 || c.Scan.FinalDelayMillis < 0 {
		return errors.New("scan timings must not be negative")
	}
	if c.Mail.Enabled && (c.Mail.Region == "" || c.Mail.Sender == "") {
		return errors.New("mail.region and mail.sender are required when mail is enabled")
	}
	return nil
}

func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scan.IntervalMillis) * time.Millisecond
}

func (c *Config) ScanFinalDelay() time.Duration {
	return time.Duration(c.Scan.FinalDelayMillis) * time.Millisecond
}

func (c *Config) IntakeTTL() time.Duration {
	return time.Duration(c.BasicConfig.IntakeTTLMinutes) * time.Minute
}

func (c *Config) StateTTL() time.Duration {
	if c.BasicConfig.StateTTLMinutes <= 0 {
		return DefaultStateTTL
	}
	return time.Duration(c.BasicConfig.StateTTLMinutes) * time.Minute
}

func (c *Config) JanitorInterval() time.Duration {
	if c.BasicConfig.JanitorIntervalMinutes <= 0 {
		return DefaultJanitorInterval
	}
	return time.Duration(c.BasicConfig.JanitorIntervalMinutes) * time.Minute
}
