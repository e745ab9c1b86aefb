package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"mps-price-alerts/internal/monitor"
	"mps-price-alerts/internal/telegram"
)

// SimulateAlert 用给定的价格和区间模拟一次告警流程。
func (a *App) SimulateAlert(ctx context.Context, price, lower, upper decimal.Decimal) error {
	if lower.GreaterThan(upper) {
		return errors.New("lower limit must not exceed upper limit")
	}

	client, err := a.newTelegramClient()
	if err != nil {
		return err
	}

	mon := monitor.New()
	mon.Configure(monitor.Bounds{Lower: lower, Upper: upper})

	outcome := mon.Evaluate(price)
	if outcome != monitor.OutcomeAlert {
		return fmt.Errorf("price %s is within limits %s..%s; nothing to send", price, lower, upper)
	}

	symbol := a.Config.App.TokenSymbol
	if symbol == "" {
		symbol = "MPS"
	}

	if err := client.SendMessage(ctx, telegram.AlertMessage(symbol, price)); err != nil {
		return err
	}

	a.Logger.Info().Str("price", price.String()).Msg("simulated alert dispatched")
	return nil
}
