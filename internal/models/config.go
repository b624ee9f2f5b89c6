package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Cache    CacheConfig
	App      AppConfig
	Server   ServerConfig
	Bot      BotConfig
	Formance FormanceConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // "sqlite3" or "postgres"
	Path            string // sqlite file path
	DSN             string // postgres connection string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	TxMaxRetries    int
}

// CacheConfig holds the settings cache connection. An empty Addr disables it.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AppConfig holds domain-level knobs that are not part of Settings
type AppConfig struct {
	Timezone        string
	SettingsFile    string
	VipDurationDays int
	AdminKey        string
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	InitDataMaxAge  time.Duration
}

// BotConfig holds Telegram bot settings. An empty Token disables the bot.
type BotConfig struct {
	Token     string
	Username  string
	WebAppURL string
}

// FormanceConfig holds the optional ledger mirror settings
type FormanceConfig struct {
	Enabled      bool
	ServerURL    string
	ClientID     string
	ClientSecret string
	LedgerName   string
	Asset        string
}

// WorkerConfig holds background sweep settings
type WorkerConfig struct {
	SweepInterval time.Duration
}
