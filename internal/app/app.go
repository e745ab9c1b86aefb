package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"mps-price-alerts/internal/config"
	"mps-price-alerts/internal/monitor"
	"mps-price-alerts/internal/oracle"
	"mps-price-alerts/internal/scheduler"
	"mps-price-alerts/internal/service"
	"mps-price-alerts/internal/storage"
	"mps-price-alerts/internal/telegram"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newOracle() *oracle.Oracle {
	return oracle.New(oracle.Options{
		RPCURL:        a.Config.Ethereum.RPCURL,
		RouterAddress: a.Config.Ethereum.RouterAddress,
		TokenIn:       a.Config.Ethereum.TokenInAddress,
		TokenOut:      a.Config.Ethereum.TokenOutAddress,
		AmountIn:      a.Config.Ethereum.AmountIn,
		OutDecimals:   a.Config.Ethereum.OutDecimals,
		Timeout:       a.Config.Ethereum.RequestTimeout,
	}, a.Logger)
}

func (a *App) newTelegramClient() (*telegram.Client, error) {
	if err := a.Config.ValidateTelegram(); err != nil {
		return nil, err
	}
	cfg := a.Config.Telegram
	return telegram.NewClient(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.RequestTimeout, a.Logger), nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := a.newTelegramClient()
	if err != nil {
		return err
	}

	source := a.newOracle()
	if err := source.CheckConnectivity(ctx); err != nil {
		return fmt.Errorf("could not connect to chain rpc: %w", err)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Loop.PriceInterval,
		StartupDelay: a.Config.Loop.StartupDelay,
	}, a.Logger)

	channel := telegram.NewChannel(client, a.Logger)

	var sampleStore storage.SampleStore
	var alertStore storage.AlertStore
	if store != nil {
		sampleStore = store
		alertStore = store
	}

	svc := service.New(service.Options{
		TokenSymbol: a.Config.App.TokenSymbol,
		IdleDelay:   a.Config.Loop.IdleDelay,
	}, sched, channel, source, monitor.New(), sampleStore, alertStore, a.Logger)

	a.Logger.Info().Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical samples.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Alerts bool
}
