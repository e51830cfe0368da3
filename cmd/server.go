package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	. "outpass-control/internal"
	"outpass-control/internal/access"
	"outpass-control/internal/config"
	"outpass-control/internal/email"
	"outpass-control/internal/outpass"
	"outpass-control/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the outpass control server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		fmt.Println("Starting outpass control server...")
		ServerMain(ctx, provider)
	},
}

// Initialize logger
func initLogger(cfg *config.Config) *slog.Logger {
	// Determine level from config and set it on the handler options.
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		println("Invalid log level in config, defaulting to INFO")
	}
	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	slog.Debug("Logger initialized", "level", level.String())
	return logger
}

func LoadAccessRBAC(cfg *config.Config) *access.RBAC {
	rbac := access.GetRBAC()
	if err := rbac.LoadPolicy(cfg.RBAC.PolicyFile); err != nil {
		slog.Error("Failed to load RBAC policy", "error", err, "file", cfg.RBAC.PolicyFile)
		os.Exit(1)
	}
	return rbac
}

// NewServiceFromConfig assembles the lifecycle service from configuration.
func NewServiceFromConfig(cfg *config.Config, storageProvider storage.Provider) *outpass.Service {
	var notifier outpass.Notifier
	if cfg.Email.Enabled {
		notifier = email.NewNotifier(&cfg.Email, cfg.BaseURL)
		slog.Info("Email notifications enabled", "smtp_host", cfg.Email.Host)
	} else {
		slog.Info("Email notifications disabled")
	}

	return outpass.NewService(storageProvider, notifier, outpass.Options{
		ScheduleWindow: time.Duration(cfg.ScheduleWindowDays) * 24 * time.Hour,
		ExpiryGrace:    time.Duration(cfg.ExpiryGraceHours) * time.Hour,
		PassExpirySkew: time.Duration(cfg.PassExpirySkew) * time.Minute,
		StoreTimeout:   time.Duration(cfg.StoreTimeout) * time.Second,
	})
}

func ServerMain(ctx context.Context, storageProvider storage.Provider) {

	if config.Cfg == nil {
		panic("Config not initialized.")
	}

	initLogger(config.Cfg)

	// Use the provider passed from cobra command (already initialized)
	if storageProvider == nil {
		slog.Error("Storage provider is nil")
		os.Exit(1)
	}

	// Initialize HTTP server
	server := HTTPServer()

	// Initialize RBAC
	rbac := LoadAccessRBAC(config.Cfg)

	// Lifecycle service
	service := NewServiceFromConfig(config.Cfg, storageProvider)

	// Middleware to inject dependencies into context
	server.Use(func(c *gin.Context) {
		c.Set("Storage", storageProvider)
		c.Set("RBAC", rbac)
		c.Set("Service", service)
		c.Next()
	})

	RegisterRoutes(server)

	server.Run()
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
