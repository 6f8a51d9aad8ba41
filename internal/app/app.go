// Package app wires configuration, storage, messaging, and HTTP into a
// running service. Dependencies come up in declared order through the
// startup package and are torn down in reverse on shutdown.
package app

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/fefejiro/peacepad/config"
	"github.com/fefejiro/peacepad/internal/processor"
	"github.com/fefejiro/peacepad/pkg/database"
	"github.com/fefejiro/peacepad/pkg/kafka"
	"github.com/fefejiro/peacepad/pkg/redis"
	"github.com/fefejiro/peacepad/pkg/routes/health"
	"github.com/fefejiro/peacepad/pkg/startup"
)

const shutdownTimeout = 30 * time.Second

// App owns the long lived pieces of the service. Fields are populated by
// the startup dependencies in order; anything nil was not started.
type App struct {
	cfg     config.Config
	logger  ectologger.Logger
	version string

	db        database.DB
	sqlxDB    *sqlx.DB
	redis     *redis.Client
	producer  *kafka.Producer
	consumers []*kafka.Consumer
	processor *processor.Processor
	checker   *health.Checker
	echo      *echo.Echo

	serverErr chan error
}

func New(cfg config.Config, logger ectologger.Logger, version string) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		version:   version,
		serverErr: make(chan error, 1),
	}
}

// Run starts every dependency, reports ready, and blocks until the context
// is cancelled or the HTTP server dies. Shutdown flips readiness first so
// load balancers drain before connections close.
func (a *App) Run(ctx context.Context) error {
	st := startup.NewStartup(a.logger, a.cfg.StartupMaxAttempts)
	for _, dep := range a.dependencies() {
		st.AddDependency(dep)
	}

	if err := st.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if stopErr := st.Stop(stopCtx); stopErr != nil {
			a.logger.WithError(stopErr).Error("Failed to clean up after aborted startup")
		}
		return err
	}

	a.checker.SetReady(true)
	a.logger.Infof("%s ready on port %d", a.cfg.AppName, a.cfg.Port)

	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-a.serverErr:
		a.logger.WithError(err).Error("HTTP server failed")
	}

	a.checker.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return st.Stop(stopCtx)
}

func (a *App) dependencies() []startup.Dependency {
	deps := []startup.Dependency{
		&postgresDependency{app: a},
		&redisDependency{app: a},
		&kafkaProducerDependency{app: a},
		&containerDependency{app: a},
		&httpServerDependency{app: a},
	}
	if a.cfg.KafkaConsumerEnabled {
		deps = append(deps, &toneWorkerDependency{app: a})
	}
	return deps
}
