package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimasrn/inquiry-desk/internal/app"
	"github.com/nimasrn/inquiry-desk/internal/auth"
	"github.com/nimasrn/inquiry-desk/internal/config"
	"github.com/nimasrn/inquiry-desk/internal/handlers"
	"github.com/nimasrn/inquiry-desk/internal/repository"
	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/internal/validation"
	"github.com/nimasrn/inquiry-desk/internal/views"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/nimasrn/inquiry-desk/pkg/prom"
	"golang.org/x/sync/errgroup"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := config.Load(app.EnvPath(os.Args)); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Get()
	if err := logger.Setup(cfg.LoggerConfig()); err != nil {
		logger.Error("failed to set up logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("starting api", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

	if err := run(cfg); err != nil {
		logger.Error("api stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AppDebugMetricsAddr != "" {
		if err := prom.Create(cfg.AppDebugMetricsAddr, cfg.AppEnv, cfg.PromNamespace); err != nil {
			return err
		}
	}

	db, err := app.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint

	rds, err := app.OpenRedis(cfg)
	if err != nil {
		return err
	}

	dispatcher, err := app.NewDispatcher(cfg)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenManager(cfg.AuthSecretKey, cfg.AuthTokenTTL)
	if err != nil {
		return err
	}
	renderer, err := views.New()
	if err != nil {
		return err
	}
	proxies, err := cfg.TrustedProxies()
	if err != nil {
		return err
	}

	// repositories
	submissionRepo := repository.NewSubmissionRepository(db)
	staffRepo := repository.NewStaffRepository(db)

	// services
	contactService := services.NewContactService(submissionRepo, dispatcher, validation.NewContactValidator(), app.NewLimiter(cfg, rds)).
		WithDispatchTimeout(cfg.MailDispatchTimeout)
	triageService := services.NewTriageService(submissionRepo, cfg.Location())
	authService := services.NewAuthService(staffRepo, tokens)

	// handlers
	site := cfg.Site()
	contactHandler := handlers.NewContactHandler(contactService, renderer, site).WithTrustedProxies(proxies)
	triageHandler := handlers.NewTriageHandler(triageService, contactService, renderer, site, cfg.Location())
	authHandler := handlers.NewAuthHandler(authService, renderer, site, handlers.CookieConfig{
		Name:   cfg.AuthCookieName,
		Secure: cfg.AuthCookieSecure || cfg.IsProduction(),
	})
	deps := map[string]handlers.Pinger{"database": db}
	if rds != nil {
		deps["redis"] = rds
	}
	healthHandler := handlers.NewHealthHandler(deps)

	opt := xhttp.DefaultServerOption
	opt.ReadTimeout = cfg.HttpServerReadTimeout
	opt.WriteTimeout = cfg.HttpServerWriteTimeout
	opt.MaxRequestBodySize = cfg.HttpMaxBodyBytes
	opt.Logger = logger.GetLogger()
	s := xhttp.NewServer(opt)
	s.Router = xhttp.CreateDefaultRouter()
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.SecurityHeadersMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(prom.Middleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))

	handlers.RegisterContactRoutes(s.Router, contactHandler)
	handlers.RegisterAuthRoutes(s.Router, authHandler)
	handlers.RegisterTriageRoutes(s.Router, triageHandler, authHandler.RequireStaff)
	handlers.RegisterHealthRoutes(s.Router, healthHandler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.ListenAndServe(cfg.HttpListenAddr)
	})

	var metrics *xhttp.Engine
	if cfg.AppDebugMetricsAddr != "" {
		metrics = prom.NewServer(cfg.AppDebugMetricsURI)
		g.Go(func() error {
			return metrics.ListenAndServe(cfg.AppDebugMetricsAddr)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown()
		if metrics != nil {
			metrics.Shutdown()
		}
		if rds != nil {
			_ = rds.Close()
		}
		return nil
	})

	return g.Wait()
}
