package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mps-price-alerts/internal/monitor"
	"mps-price-alerts/internal/oracle"
	"mps-price-alerts/internal/scheduler"
	"mps-price-alerts/internal/storage"
	"mps-price-alerts/internal/telegram"
)

// ChatChannel is the command/notification surface the loop drives. The
// concrete implementation owns the update cursor.
type ChatChannel interface {
	Poll(ctx context.Context) []telegram.Inbound
	Advance(updateID int64)
	SendText(ctx context.Context, text string)
}

// Options tune the control loop.
type Options struct {
	TokenSymbol string
	IdleDelay   time.Duration
}

// Service orchestrates command polling, price checks, and alert dispatch.
// Each iteration runs its three phases in strict sequence on one goroutine;
// the threshold monitor is never touched from anywhere else.
type Service struct {
	scheduler *scheduler.Scheduler
	channel   ChatChannel
	oracle    oracle.PriceSource
	mon       *monitor.Monitor
	store     storage.SampleStore
	alerts    storage.AlertStore
	logger    zerolog.Logger

	symbol    string
	idleDelay time.Duration
}

// New constructs the monitoring service. store and alerts may be nil, in
// which case observations are not persisted.
func New(opts Options, sched *scheduler.Scheduler, channel ChatChannel, source oracle.PriceSource, mon *monitor.Monitor, store storage.SampleStore, alerts storage.AlertStore, logger zerolog.Logger) *Service {
	symbol := opts.TokenSymbol
	if symbol == "" {
		symbol = "MPS"
	}

	return &Service{
		scheduler: sched,
		channel:   channel,
		oracle:    source,
		mon:       mon,
		store:     store,
		alerts:    alerts,
		logger:    logger.With().Str("component", "service").Logger(),
		symbol:    symbol,
		idleDelay: opts.IdleDelay,
	}
}

// Run announces the command grammar and begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	s.channel.SendText(ctx, telegram.StartupMessage())
	s.logger.Info().Msg("monitor started, waiting for limits")

	return s.scheduler.Run(ctx, s.Iterate)
}

// Iterate executes one full loop iteration: drain pending commands, then
// perform at most one price check. The inter-iteration pause belongs to the
// scheduler.
func (s *Service) Iterate(ctx context.Context) error {
	batch := s.channel.Poll(ctx)
	if len(batch) > 0 {
		s.logger.Debug().Int("updates", len(batch)).Msg("received updates")
	}

	for _, in := range batch {
		s.applyCommand(ctx, in)
		s.channel.Advance(in.UpdateID)
	}

	if len(batch) == 0 && s.idleDelay > 0 {
		if err := sleep(ctx, s.idleDelay); err != nil {
			return nil
		}
	}

	s.checkPrice(ctx)
	return nil
}

// applyCommand parses one inbound update. Non-matching text is consumed
// silently; the caller advances the cursor regardless of the outcome.
func (s *Service) applyCommand(ctx context.Context, in telegram.Inbound) {
	bounds, ok := telegram.ParseCommand(in.Text)
	if !ok {
		s.logger.Debug().Int64("update_id", in.UpdateID).Msg("ignoring unrecognised message")
		return
	}

	if bounds.Lower.GreaterThan(bounds.Upper) {
		s.logger.Warn().
			Str("lower", bounds.Lower.String()).
			Str("upper", bounds.Upper.String()).
			Msg("rejecting inverted limits")
		s.channel.SendText(ctx, telegram.RejectionMessage(bounds))
		return
	}

	s.mon.Configure(bounds)
	s.logger.Info().
		Str("lower", bounds.Lower.String()).
		Str("upper", bounds.Upper.String()).
		Msg("limits updated")
	s.channel.SendText(ctx, telegram.ConfirmationMessage(bounds))
}

func (s *Service) checkPrice(ctx context.Context) {
	if s.mon.State() == monitor.StateUnconfigured {
		return
	}

	price, blockNumber, err := s.oracle.SpotPrice(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unable to retrieve price")
		return
	}

	s.logger.Debug().Str("price", price.String()).Msg("current token price")

	outcome := s.mon.Evaluate(price)
	switch outcome {
	case monitor.OutcomeAlert:
		s.channel.SendText(ctx, telegram.AlertMessage(s.symbol, price))
		s.logger.Info().Str("price", price.String()).Msg("price out of limits, alert sent")
		s.recordAlert(ctx, price)
	case monitor.OutcomeRecovered:
		s.logger.Info().Str("price", price.String()).Msg("price back in limits, alert reset")
	}

	s.recordSample(ctx, price, blockNumber)
}

func (s *Service) recordSample(ctx context.Context, price decimal.Decimal, blockNumber uint64) {
	if s.store == nil {
		return
	}

	sample := storage.PriceSample{
		ObservedAt: time.Now().UTC(),
		Price:      price,
		State:      s.mon.State().String(),
	}
	if blockNumber != 0 {
		block := int64(blockNumber)
		sample.BlockNumber = &block
	}

	if err := s.store.InsertSample(ctx, sample); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist sample")
	}
}

func (s *Service) recordAlert(ctx context.Context, price decimal.Decimal) {
	if s.alerts == nil {
		return
	}

	bounds, ok := s.mon.Bounds()
	if !ok {
		return
	}

	record := storage.AlertRecord{
		ObservedAt: time.Now().UTC(),
		Price:      price,
		LowerLimit: bounds.Lower,
		UpperLimit: bounds.Upper,
	}
	if _, err := s.alerts.InsertAlert(ctx, record); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist alert record")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
