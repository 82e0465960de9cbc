// Package watchdog initializes and runs the trust engine: it wires the
// store, the notifier and the state-machine services together and drives
// them from a periodic scheduler loop with graceful shutdown.
package watchdog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkarpenko/keywarden/internal/logging"
	"github.com/mkarpenko/keywarden/internal/watchdog/claims"
	"github.com/mkarpenko/keywarden/internal/watchdog/config"
	"github.com/mkarpenko/keywarden/internal/watchdog/mail"
	"github.com/mkarpenko/keywarden/internal/watchdog/repositories/repomanager"
	"github.com/mkarpenko/keywarden/internal/watchdog/repositories/trusts"
	"github.com/mkarpenko/keywarden/internal/watchdog/services"
)

// claimTokenTTL bounds how long a disclosure claim token verifies. It must
// comfortably exceed the self-destruct grace window.
const claimTokenTTL = 7 * 24 * time.Hour

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	manager    repomanager.RepositoryManager
	repo       trusts.Repository
	escalation *services.Escalation
	trigger    *services.Trigger
	reaper     *services.Reaper
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()
	repo := manager.Trusts(db)

	var notifier mail.Notifier
	if cfg.DryRun {
		notifier = mail.NewLogNotifier(logger)
	} else {
		notifier = mail.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}

	issuer := claims.NewIssuer(cfg.SecretKey, claimTokenTTL)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		manager:    manager,
		repo:       repo,
		escalation: services.NewEscalation(repo, notifier, logger, cfg.WarnCooldown),
		trigger:    services.NewTrigger(repo, notifier, logger, issuer, cfg.EnvelopePublicKey, cfg.EnvelopePrivateKey),
		reaper:     services.NewReaper(repo, logger, cfg.GracePeriod),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the store and then drives ticks until the context is
// cancelled. A tick killed mid-way is safe to resume: every mutation the
// services perform is individually conditional and idempotent on retry.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "starting watchdog",
		"tick_interval", app.config.TickInterval.String(),
		"grace_period", app.config.GracePeriod.String(),
		"dry_run", app.config.DryRun,
	)

	if err := app.manager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	defer app.db.Close()

	ticker := time.NewTicker(app.config.TickInterval)
	defer ticker.Stop()

	for {
		app.runTick(ctx, time.Now())

		select {
		case <-ctx.Done():
			app.logger.Info(ctx, "shutting down")
			return nil
		case <-ticker.C:
		}
	}
}
