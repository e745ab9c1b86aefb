package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mps-price-alerts/internal/monitor"
	"mps-price-alerts/internal/telegram"
)

type fakeChannel struct {
	batches [][]telegram.Inbound
	polls   int
	cursor  int64
	sent    []string
}

func (f *fakeChannel) Poll(ctx context.Context) []telegram.Inbound {
	if f.polls >= len(f.batches) {
		f.polls++
		return nil
	}
	batch := f.batches[f.polls]
	f.polls++
	return batch
}

func (f *fakeChannel) Advance(updateID int64) {
	if updateID+1 > f.cursor {
		f.cursor = updateID + 1
	}
}

func (f *fakeChannel) SendText(ctx context.Context, text string) {
	f.sent = append(f.sent, text)
}

type fakeOracle struct {
	prices []string
	errs   []error
	calls  int
}

func (f *fakeOracle) SpotPrice(ctx context.Context) (decimal.Decimal, uint64, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return decimal.Decimal{}, 0, f.errs[i]
	}
	return decimal.RequireFromString(f.prices[i]), 100 + uint64(i), nil
}

func newTestService(ch *fakeChannel, o *fakeOracle) *Service {
	return New(Options{TokenSymbol: "MPS"}, nil, ch, o, monitor.New(), nil, nil, zerolog.Nop())
}

func countAlerts(sent []string) int {
	n := 0
	for _, msg := range sent {
		if strings.HasPrefix(msg, "ALERT!") {
			n++
		}
	}
	return n
}

func TestSingleAlertPerBreach(t *testing.T) {
	ch := &fakeChannel{batches: [][]telegram.Inbound{
		{{UpdateID: 1, Text: "monitor-mps 0.5 2.0"}},
	}}
	o := &fakeOracle{prices: []string{"1.0", "0.4", "0.3", "0.6"}}
	svc := newTestService(ch, o)

	for i := 0; i < 4; i++ {
		if err := svc.Iterate(context.Background()); err != nil {
			t.Fatalf("iteration %d failed: %v", i, err)
		}
	}

	if got := countAlerts(ch.sent); got != 1 {
		t.Fatalf("expected exactly one alert, got %d (%q)", got, ch.sent)
	}
	alert := ch.sent[len(ch.sent)-1]
	if !strings.Contains(alert, "0.4") {
		t.Fatalf("alert should carry the breaching price 0.4: %q", alert)
	}
	if svc.mon.State() != monitor.StateArmed {
		t.Fatalf("expected armed after recovery, got %v", svc.mon.State())
	}
}

func TestValidCommandConfirmsAndArms(t *testing.T) {
	ch := &fakeChannel{batches: [][]telegram.Inbound{
		{{UpdateID: 3, Text: "monitor-mps 1 2"}},
	}}
	o := &fakeOracle{prices: []string{"1.5"}}
	svc := newTestService(ch, o)

	if err := svc.Iterate(context.Background()); err != nil {
		t.Fatal(err)
	}

	if svc.mon.State() != monitor.StateArmed {
		t.Fatalf("expected armed, got %v", svc.mon.State())
	}
	bounds, _ := svc.mon.Bounds()
	if !bounds.Lower.Equal(decimal.NewFromInt(1)) || !bounds.Upper.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected bounds %s..%s", bounds.Lower, bounds.Upper)
	}

	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0], "Limits updated") {
		t.Fatalf("expected a confirmation message, got %q", ch.sent)
	}
	if ch.cursor != 4 {
		t.Fatalf("cursor should advance to 4, got %d", ch.cursor)
	}
}

func TestMalformedCommandIsConsumedSilently(t *testing.T) {
	ch := &fakeChannel{batches: [][]telegram.Inbound{
		{{UpdateID: 9, Text: "monitor-mps abc def"}},
	}}
	o := &fakeOracle{}
	svc := newTestService(ch, o)

	if err := svc.Iterate(context.Background()); err != nil {
		t.Fatal(err)
	}

	if svc.mon.State() != monitor.StateUnconfigured {
		t.Fatalf("malformed command must not change state, got %v", svc.mon.State())
	}
	if len(ch.sent) != 0 {
		t.Fatalf("no confirmation expected, got %q", ch.sent)
	}
	if ch.cursor != 10 {
		t.Fatalf("cursor should still advance, got %d", ch.cursor)
	}
}

func TestInvertedLimitsRejected(t *testing.T) {
	ch := &fakeChannel{batches: [][]telegram.Inbound{
		{{UpdateID: 1, Text: "monitor-mps 5 2"}},
	}}
	o := &fakeOracle{}
	svc := newTestService(ch, o)

	if err := svc.Iterate(context.Background()); err != nil {
		t.Fatal(err)
	}

	if svc.mon.State() != monitor.StateUnconfigured {
		t.Fatalf("inverted limits must not configure the monitor, got %v", svc.mon.State())
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0], "not updated") {
		t.Fatalf("expected a rejection reply, got %q", ch.sent)
	}
	if o.calls != 0 {
		t.Fatalf("no price check expected while unconfigured, got %d", o.calls)
	}
}

func TestNoPriceCheckWhileUnconfigured(t *testing.T) {
	ch := &fakeChannel{}
	o := &fakeOracle{prices: []string{"1.0"}}
	svc := newTestService(ch, o)

	if err := svc.Iterate(context.Background()); err != nil {
		t.Fatal(err)
	}

	if o.calls != 0 {
		t.Fatalf("oracle must not be called while unconfigured, got %d calls", o.calls)
	}
}

func TestQuoteFailureSkipsEvaluation(t *testing.T) {
	ch := &fakeChannel{batches: [][]telegram.Inbound{
		{{UpdateID: 1, Text: "monitor-mps 1 2"}},
	}}
	o := &fakeOracle{
		prices: []string{"", "9"},
		errs:   []error{errors.New("rpc timeout"), nil},
	}
	svc := newTestService(ch, o)

	if err := svc.Iterate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if svc.mon.State() != monitor.StateArmed {
		t.Fatalf("failed quote must not change state, got %v", svc.mon.State())
	}

	if err := svc.Iterate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if svc.mon.State() != monitor.StateAlerting {
		t.Fatalf("next successful quote should alert, got %v", svc.mon.State())
	}
	if got := countAlerts(ch.sent); got != 1 {
		t.Fatalf("expected one alert, got %d", got)
	}
}

func TestRedeliveredUpdateAppliedOnce(t *testing.T) {
	// A transport re-delivering the same id must not rewind the cursor; the
	// channel cursor contract guarantees it is never polled again.
	ch := &fakeChannel{batches: [][]telegram.Inbound{
		{
			{UpdateID: 5, Text: "monitor-mps 1 2"},
			{UpdateID: 6, Text: "noise"},
		},
	}}
	o := &fakeOracle{prices: []string{"1.5"}}
	svc := newTestService(ch, o)

	if err := svc.Iterate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ch.cursor != 7 {
		t.Fatalf("cursor should equal last id + 1 = 7, got %d", ch.cursor)
	}

	ch.Advance(5)
	if ch.cursor != 7 {
		t.Fatalf("re-delivered id must not rewind the cursor, got %d", ch.cursor)
	}
}
