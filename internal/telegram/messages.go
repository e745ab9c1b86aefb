package telegram

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mps-price-alerts/internal/monitor"
)

// StartupMessage describes the command grammar so the operator knows how to
// configure the monitor after a restart.
func StartupMessage() string {
	return "Monitor started. Please send me a command in the format:\n" +
		"monitor-mps <lower_limit> <upper_limit>\n" +
		"to set or update the limits.\n\n" +
		"Example: monitor-mps 0.5 2.0"
}

// ConfirmationMessage echoes the accepted limits back to the operator.
func ConfirmationMessage(b monitor.Bounds) string {
	return fmt.Sprintf("Limits updated:\nLower limit = %s\nUpper limit = %s", b.Lower, b.Upper)
}

// RejectionMessage explains why an inverted range was not applied.
func RejectionMessage(b monitor.Bounds) string {
	return fmt.Sprintf("Limits not updated: lower limit %s is greater than upper limit %s", b.Lower, b.Upper)
}

// AlertMessage is sent exactly once per breach episode.
func AlertMessage(symbol string, price decimal.Decimal) string {
	return fmt.Sprintf("ALERT! %s token out of limits: %s", symbol, price)
}
