package main

import (
	"context"
	"database/sql"

	"github.com/ordaro/shipping/internal/config"
	"github.com/ordaro/shipping/internal/labels"
	"github.com/ordaro/shipping/internal/store"
	"github.com/ordaro/shipping/internal/telemetry"
	"github.com/ordaro/shipping/pkg/carrier"
	"github.com/ordaro/shipping/pkg/carrier/dhlde"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// app bundles the wired service dependencies shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *otelzap.Logger
	registry *carrier.Registry
	service  *labels.Service

	db             *sql.DB
	tracerShutdown func(context.Context) error
}

func initApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	var tracer trace.Tracer
	if cfg.OTELEnabled {
		t, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer", zap.Error(err))
		} else {
			tracer = t
			a.tracerShutdown = shutdown
		}
	}

	shipments, attachments, err := a.initStores(ctx)
	if err != nil {
		return nil, err
	}

	a.registry = initCarrierRegistry(cfg, logger, tracer)
	a.service = labels.New(shipments, attachments, a.registry, logger, telemetry.NewMetrics())

	return a, nil
}

func (a *app) initStores(ctx context.Context) (store.ShipmentStore, store.AttachmentStore, error) {
	if a.cfg.DatabaseURL == "" {
		a.logger.Warn("No DATABASE_URL configured, using in-memory record store")
		mem := store.NewMemory()
		return mem, mem, nil
	}

	db, err := store.OpenPostgres(a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	a.db = db

	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}
	return pg, pg, nil
}

func (a *app) Close(ctx context.Context) {
	if a.db != nil {
		a.db.Close()
	}
	if a.tracerShutdown != nil {
		a.tracerShutdown(ctx)
	}
	a.logger.Sync()
}

func initCarrierRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *carrier.Registry {
	registry := carrier.NewRegistry()

	if cfg.DHLDEEnabled {
		client := dhlde.New(dhlde.Config{
			Account: carrier.Account{
				Username:      cfg.DHLDEUsername,
				Password:      cfg.DHLDEPassword,
				APIUser:       cfg.DHLDEAPIUser,
				APISignature:  cfg.DHLDEAPISignature,
				AccountNumber: cfg.DHLDEAccountNo,
				Environment:   carrier.Environment(cfg.DHLDEEnvironment),
				Products:      cfg.DHLDEProducts,
			},
			UseMock: cfg.DHLDEUseMock,
		}, logger, tracer)
		registry.Register(client)
	}

	return registry
}
