package app

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/fefejiro/peacepad/pkg/middleware"
	"github.com/fefejiro/peacepad/pkg/routes/custody"
	"github.com/fefejiro/peacepad/pkg/routes/event"
	"github.com/fefejiro/peacepad/pkg/routes/expense"
	"github.com/fefejiro/peacepad/pkg/routes/message"
	"github.com/fefejiro/peacepad/pkg/routes/partnership"
	"github.com/fefejiro/peacepad/pkg/routes/settlement"
)

// buildServer assembles the echo instance: error handling, auth, logging,
// metrics, tracing, then the versioned API routes.
func (a *App) buildServer() (*echo.Echo, error) {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(middleware.Context())

	if cfg.AuthEnabled {
		auth, err := middleware.Authentication(a.logger, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			return nil, err
		}
		e.Use(auth)
	} else {
		a.logger.Warn("Authentication is disabled; trusting the X-User-ID header")
		e.Use(middleware.TestAuth())
	}

	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.Metrics())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	a.checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	partnership.Register(api)
	custody.Register(api)
	event.Register(api)
	expense.Register(api)
	settlement.Register(api)
	message.Register(api)

	return e, nil
}
