package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fefejiro/peacepad/config"
	"github.com/fefejiro/peacepad/internal/app"
	"github.com/fefejiro/peacepad/pkg/database"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "peacepad",
	Short: "Co-parenting coordination service",
	Long: `PeacePad keeps separated parents in sync: a shared custody calendar,
expense splitting with settlement tracking, and messaging with tone
analysis.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and tone workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, sync, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exporter := "console"
		if cfg.OTLPEnabled {
			exporter = "otlp"
		}
		shutdownTracing, err := tracing.Init(ctx, tracing.Config{
			ServiceName:  cfg.AppName,
			Enabled:      cfg.OTLPEnabled,
			Exporter:     exporter,
			OTLPEndpoint: cfg.OTLPEndpoint,
			OTLPProtocol: cfg.OTLPProtocol,
			OTLPInsecure: cfg.OTLPInsecure,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.WithError(err).Error("Failed to shut down tracing")
			}
		}()

		logger.Infof("Starting %s version %s", cfg.AppName, version)
		return app.New(cfg, logger, version).Run(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, sync, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer sync()

		port, err := strconv.Atoi(cfg.DatabasePort)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", cfg.DatabasePort, err)
		}

		_, sqlxDB, err := database.Connect(database.Config{
			Host:            cfg.DatabaseHost,
			Port:            port,
			Name:            cfg.DatabaseName,
			Username:        cfg.DatabaseUserName,
			Password:        cfg.DatabasePassword,
			SSLMode:         cfg.DatabaseSSLMode,
			MaxOpenConns:    cfg.DatabaseMaxOpenConns,
			MaxIdleConns:    cfg.DatabaseMaxIdleConns,
			ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
		}, logger)
		if err != nil {
			return err
		}
		defer sqlxDB.Close()

		driver, err := database.NewMigrateDriver(sqlxDB)
		if err != nil {
			return err
		}

		migrations := database.NewMigrationService(logger, &database.MigrationConfig{
			MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
			Version:             uint(cfg.DatabaseMigrationVersion),
			Force:               cfg.DatabaseMigrationForce,
			AutoRollback:        cfg.DatabaseMigrationAutoRollback,
		})
		return migrations.Migrate(cfg.DatabaseName, driver)
	},
}

func loadConfig() (config.Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (ectologger.Logger, func(), error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	sync := func() { _ = zapLogger.Sync() }
	return zapadapter.NewZapEctoLogger(zapLogger, nil), sync, nil
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
