package monitor

import (
	"testing"

	"github.com/shopspring/decimal"
)

func bounds(lower, upper string) Bounds {
	return Bounds{
		Lower: decimal.RequireFromString(lower),
		Upper: decimal.RequireFromString(upper),
	}
}

func TestEvaluateSkippedWhileUnconfigured(t *testing.T) {
	m := New()
	if got := m.Evaluate(decimal.NewFromInt(1)); got != OutcomeNone {
		t.Fatalf("unconfigured evaluation should be a no-op, got %v", got)
	}
	if m.State() != StateUnconfigured {
		t.Fatalf("state changed to %v", m.State())
	}
}

func TestConfigureArmsAndReplacesBounds(t *testing.T) {
	m := New()
	m.Configure(bounds("0.5", "2.0"))
	if m.State() != StateArmed {
		t.Fatalf("expected armed, got %v", m.State())
	}

	m.Configure(bounds("1", "3"))
	b, ok := m.Bounds()
	if !ok {
		t.Fatal("bounds should be available after configure")
	}
	if !b.Lower.Equal(decimal.NewFromInt(1)) || !b.Upper.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("bounds not replaced: %s..%s", b.Lower, b.Upper)
	}
}

func TestSingleAlertPerBreachEpisode(t *testing.T) {
	m := New()
	m.Configure(bounds("0.5", "2.0"))

	prices := []string{"1.0", "0.4", "0.3", "0.6"}
	want := []Outcome{OutcomeNone, OutcomeAlert, OutcomeNone, OutcomeRecovered}

	for i, p := range prices {
		got := m.Evaluate(decimal.RequireFromString(p))
		if got != want[i] {
			t.Fatalf("price %s: expected outcome %v, got %v", p, want[i], got)
		}
	}
	if m.State() != StateArmed {
		t.Fatalf("expected armed after recovery, got %v", m.State())
	}
}

func TestAlertCountEqualsBreachEpisodes(t *testing.T) {
	m := New()
	m.Configure(bounds("1", "2"))

	prices := []string{"3", "3", "1.5", "0.2", "0.1", "0.1", "1.1"}
	alerts := 0
	for _, p := range prices {
		if m.Evaluate(decimal.RequireFromString(p)) == OutcomeAlert {
			alerts++
		}
	}
	if alerts != 2 {
		t.Fatalf("expected 2 alerts for 2 breach episodes, got %d", alerts)
	}
}

func TestReconfigureClearsPendingAlert(t *testing.T) {
	m := New()
	m.Configure(bounds("1", "2"))
	if m.Evaluate(decimal.NewFromInt(5)) != OutcomeAlert {
		t.Fatal("expected alert on first breach")
	}

	// Reconfiguration re-arms, so the same price alerts again.
	m.Configure(bounds("1", "2"))
	if m.State() != StateArmed {
		t.Fatalf("expected armed after reconfigure, got %v", m.State())
	}
	if m.Evaluate(decimal.NewFromInt(5)) != OutcomeAlert {
		t.Fatal("expected fresh alert after reconfigure")
	}
}

func TestBoundaryValuesAreWithinRange(t *testing.T) {
	m := New()
	m.Configure(bounds("0.5", "2.0"))

	for _, p := range []string{"0.5", "2.0"} {
		if got := m.Evaluate(decimal.RequireFromString(p)); got != OutcomeNone {
			t.Fatalf("boundary price %s should not alert, got %v", p, got)
		}
	}
}
