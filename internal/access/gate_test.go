package access

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLookup struct {
	paid    map[string]bool
	err     error
	calls   int
	gotTier string
	gotWin  time.Duration
}

func (f *fakeLookup) LookupRecentPayment(_ context.Context, identity, tierName string, window time.Duration) (bool, error) {
	f.calls++
	f.gotTier = tierName
	f.gotWin = window
	if f.err != nil {
		return false, f.err
	}
	return f.paid[identity+"|"+tierName], nil
}

func TestGate_GuestFreeTier(t *testing.T) {
	lookup := &fakeLookup{}
	gate := NewGate(lookup, 0)

	for _, identity := range []string{"", "   ", "\t"} {
		d := gate.Check(context.Background(), identity, 3)
		if !d.CanAnalyze || d.PaymentRequired {
			t.Errorf("Expected guest %q with 3 images to be allowed, got %+v", identity, d)
		}
	}
	if lookup.calls != 0 {
		t.Errorf("Expected no payment lookups for free tier, got %d", lookup.calls)
	}
}

func TestGate_GuestPaidTierRequiresLogin(t *testing.T) {
	gate := NewGate(&fakeLookup{}, 0)

	d := gate.Check(context.Background(), "  ", 5)
	if d.CanAnalyze {
		t.Error("Expected guest with 5 images to be denied")
	}
	if !d.PaymentRequired || !d.LoginRequired {
		t.Errorf("Expected payment and login required, got %+v", d)
	}
	if d.Tier.Name != TierStandard {
		t.Errorf("Expected %s, got %s", TierStandard, d.Tier.Name)
	}
}

func TestGate_PaidTierWithPayment(t *testing.T) {
	lookup := &fakeLookup{paid: map[string]bool{"alice|" + TierPremium: true}}
	gate := NewGate(lookup, 0)

	d := gate.Check(context.Background(), " alice ", 11)
	if !d.CanAnalyze || d.PaymentRequired {
		t.Errorf("Expected alice to be allowed, got %+v", d)
	}
	if lookup.gotTier != TierPremium {
		t.Errorf("Expected lookup for %s, got %s", TierPremium, lookup.gotTier)
	}
	if lookup.gotWin != DefaultPaymentWindow {
		t.Errorf("Expected default window, got %s", lookup.gotWin)
	}
}

func TestGate_PaymentForDifferentTierDoesNotCount(t *testing.T) {
	lookup := &fakeLookup{paid: map[string]bool{"bob|" + TierStandard: true}}
	gate := NewGate(lookup, time.Hour)

	d := gate.Check(context.Background(), "bob", 20)
	if d.CanAnalyze || !d.PaymentRequired {
		t.Errorf("Expected bob to need premium payment, got %+v", d)
	}
	if d.StorageFailure {
		t.Error("Expected plain denial, not storage failure")
	}
}

func TestGate_StorageFailureNeverFailsOpen(t *testing.T) {
	gate := NewGate(&fakeLookup{err: errors.New("connection refused")}, 0)

	d := gate.Check(context.Background(), "carol", 8)
	if d.CanAnalyze {
		t.Fatal("Expected denial when storage fails")
	}
	if !d.PaymentRequired || !d.StorageFailure || d.Error == "" {
		t.Errorf("Expected storage failure denial, got %+v", d)
	}
}

func TestGate_Idempotent(t *testing.T) {
	lookup := &fakeLookup{paid: map[string]bool{"dan|" + TierStandard: true}}
	gate := NewGate(lookup, 0)

	first := gate.Check(context.Background(), "dan", 6)
	second := gate.Check(context.Background(), "dan", 6)
	if first != second {
		t.Errorf("Expected identical decisions, got %+v and %+v", first, second)
	}
}
