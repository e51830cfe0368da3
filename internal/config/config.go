package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"
)

const QR_IMAGE_SIZE = 512

type RBACConfig struct {
	PolicyFile string `mapstructure:"policy_file"` // Path to the RBAC policy file
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	Enabled  bool   `mapstructure:"enabled"`
}

type Config struct {
	// Secret key for signing session tokens and station ids. Must be set in production.
	Secret string `mapstructure:"secret"`

	// Session token TTL in hours.
	SessionTTL uint `mapstructure:"session_ttl"`

	// Grace added to the expected return time before an issued pass token is
	// considered expired, in minutes.
	PassExpirySkew uint `mapstructure:"pass_expiry_skew"`

	// How far ahead a departure date may be scheduled, in days.
	ScheduleWindowDays uint `mapstructure:"schedule_window_days"`

	// Grace after the departure date before a still-pending request is
	// reported as expired, in hours.
	ExpiryGraceHours uint `mapstructure:"expiry_grace_hours"`

	// Per-call storage timeout in seconds.
	StoreTimeout uint `mapstructure:"store_timeout"`

	LogLevel string `mapstructure:"log_level"`

	// Comma separated list of allowed CIDR networks. Empty means allow all.
	AllowedNetworks string `mapstructure:"allowed_networks"`

	// Folder for student roster CSVs imported by the admin.
	RosterFolder string `mapstructure:"roster_folder"`

	RBAC RBACConfig `mapstructure:"rbac"`

	BaseURL string `mapstructure:"base_url"`

	Storage Storage `mapstructure:"storage"`

	Email SMTPConfig `mapstructure:"email"`
}

var Cfg *Config

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from environment variables and returns a Config struct.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")
	v.SetEnvPrefix("")

	if len(configFile) > 0 {
		for _, path := range configFile {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	v.SetDefault("ROSTER_FOLDER", fmt.Sprintf("%s/rosters/", getConfigPath()))

	// Load configuration from environment variables
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	// Convert relative sqlite path to absolute instance folder
	if cfg.Storage.SQLite != nil {
		if cfg.Storage.SQLite.Path == ":memory:" {
			// In-memory database, do nothing
		} else if !os.IsPathSeparator(cfg.Storage.SQLite.Path[0]) {
			cfg.Storage.SQLite.Path = fmt.Sprintf("%s/%s", getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}

	// Warn if secret is missing - this is a critical security setting for production
	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("SECRET configuration variable is required in production")
		} else {
			slog.Warn("Secret is not set. Do not use in production.")
		}
	}

	return &cfg, nil
}
