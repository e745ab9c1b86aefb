package telegram

import (
	"context"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mps-price-alerts/internal/monitor"
)

// Inbound is one update delivered by the transport, flattened to what the
// command parser needs. Updates without a usable message carry empty Text.
type Inbound struct {
	UpdateID int64
	Text     string
}

// commandPattern recognises the single supported grammar:
// "monitor-mps <lower> <upper>" with unsigned decimals. No sign, no exponent.
var commandPattern = regexp.MustCompile(`^monitor-mps\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)$`)

// ParseCommand parses a configuration command. ok is false for any text that
// does not match the grammar; such text is consumed without effect.
func ParseCommand(text string) (monitor.Bounds, bool) {
	match := commandPattern.FindStringSubmatch(text)
	if match == nil {
		return monitor.Bounds{}, false
	}

	lower, err := decimal.NewFromString(match[1])
	if err != nil {
		return monitor.Bounds{}, false
	}
	upper, err := decimal.NewFromString(match[2])
	if err != nil {
		return monitor.Bounds{}, false
	}

	return monitor.Bounds{Lower: lower, Upper: upper}, true
}

// Channel wraps the chat transport and owns the update cursor. Poll failures
// surface as an empty batch so the control loop proceeds as if no commands
// arrived.
type Channel struct {
	client *Client
	logger zerolog.Logger

	offset int64
	seen   bool
}

// NewChannel builds a command channel over the given client.
func NewChannel(client *Client, logger zerolog.Logger) *Channel {
	return &Channel{
		client: client,
		logger: logger.With().Str("component", "command_channel").Logger(),
	}
}

// Poll fetches pending updates from the current cursor. The first poll after
// process start omits the offset so the transport returns from the beginning.
func (ch *Channel) Poll(ctx context.Context) []Inbound {
	var offset *int64
	if ch.seen {
		offset = &ch.offset
	}

	updates, err := ch.client.GetUpdates(ctx, offset)
	if err != nil {
		ch.logger.Warn().Err(err).Msg("failed to poll updates")
		return nil
	}

	batch := make([]Inbound, 0, len(updates))
	for _, upd := range updates {
		in := Inbound{UpdateID: upd.UpdateID}
		if upd.Message != nil {
			in.Text = upd.Message.Text
		}
		batch = append(batch, in)
	}
	return batch
}

// Advance moves the cursor past the given update id. Each processed update
// advances the cursor using its own id, whether or not it parsed, so no
// update is ever re-delivered to the parser. The cursor never moves backwards.
func (ch *Channel) Advance(updateID int64) {
	next := updateID + 1
	if !ch.seen || next > ch.offset {
		ch.offset = next
		ch.seen = true
	}
}

// Cursor returns the next update id that will be requested, and whether any
// update has been processed yet.
func (ch *Channel) Cursor() (int64, bool) {
	return ch.offset, ch.seen
}

// SendText dispatches an outbound notification. Failures are logged, not
// propagated; there is no retry queue.
func (ch *Channel) SendText(ctx context.Context, text string) {
	if err := ch.client.SendMessage(ctx, text); err != nil {
		ch.logger.Error().Err(err).Msg("failed to send message")
	}
}
