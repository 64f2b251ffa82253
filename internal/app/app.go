package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/callcontrol/internal/billing"
	"github.com/lukasbauer/callcontrol/internal/eventlog"
	"github.com/lukasbauer/callcontrol/internal/httpapi"
	"github.com/lukasbauer/callcontrol/internal/jobs"
	"github.com/lukasbauer/callcontrol/internal/notifications"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/lukasbauer/callcontrol/internal/store"
	"github.com/lukasbauer/callcontrol/internal/store/memory"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type App struct {
	cfg      Config
	logger   *zap.Logger
	db       *pgxpool.Pool // nil with the memory store
	store    billing.Store
	eventLog *eventlog.Logger
	discord  *notifications.Discord
	billing  *billing.Service
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.BillingTimezone)
	if err != nil {
		return nil, fmt.Errorf("BILLING_TIMEZONE: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		db, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.store = store.New(db)

		// Migrations are applied externally (psql -f migrations/*.sql).
		// No automatic migration runner at startup.
	case StoreMemory:
		m := memory.New()
		if err := m.ReplacePricingRules(ctx, DefaultRules()); err != nil {
			return nil, err
		}
		a.store = m
		logger.Warn("using in-memory store; calls are lost on restart")
	default:
		return nil, fmt.Errorf("STORE: unknown store %q", cfg.Store)
	}

	a.eventLog = eventlog.New(a.db, logger)
	a.discord = notifications.NewDiscord(cfg.DiscordWebhookURL, logger)
	a.billing = billing.NewService(a.store, billing.Config{
		Location:        loc,
		MaxCallDuration: cfg.MaxCallDuration,
	}, logger, a.eventLog, a.discord)

	return a, nil
}

// DefaultRules is the two-tier schedule the memory store starts with. It
// matches the rows seeded by the initial migration.
func DefaultRules() pricing.Schedule {
	return pricing.Schedule{
		{
			Name:           "standard",
			PeriodStart:    pricing.NewTimeOfDay(6, 0, 0),
			PeriodEnd:      pricing.NewTimeOfDay(22, 0, 0),
			StandingCharge: decimal.New(36, -2),
			RatePerMinute:  decimal.New(9, -2),
		},
		{
			Name:           "reduced",
			PeriodStart:    pricing.NewTimeOfDay(22, 0, 0),
			PeriodEnd:      pricing.NewTimeOfDay(6, 0, 0),
			StandingCharge: decimal.New(36, -2),
			RatePerMinute:  decimal.Zero,
		},
	}
}

func (a *App) Router() http.Handler {
	return httpapi.NewRouter(a.logger, a.billing)
}

func (a *App) Billing() *billing.Service {
	return a.billing
}

// AuditJob builds the schedule audit job. The caller starts and stops it.
func (a *App) AuditJob() *jobs.ScheduleAuditJob {
	return jobs.NewScheduleAuditJob(a.store, a.discord, a.logger, a.cfg.AuditInterval)
}

func (a *App) Close() error {
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
