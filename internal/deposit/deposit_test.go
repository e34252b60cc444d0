package deposit

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/goldenleafkennels/reservations-backend/pkg/config"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func TestCalculateFixedMode(t *testing.T) {
	policy := Policy{Mode: ModeFixed, FixedAmount: dec(t, "300")}

	tests := []struct {
		name  string
		price string
		want  string
	}{
		{name: "price above fixed", price: "4000", want: "300"},
		{name: "price below fixed clamps", price: "250", want: "250"},
		{name: "price equals fixed", price: "300", want: "300"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(dec(t, tt.price), policy)
			if !got.Equal(dec(t, tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCalculateUnknownPriceReturnsFixedDefault(t *testing.T) {
	policy := Policy{Mode: ModePercent, Percent: dec(t, "0.5"), FixedAmount: dec(t, "300")}

	for _, price := range []string{"0", "-10"} {
		got := Calculate(dec(t, price), policy)
		if !got.Equal(dec(t, "300")) {
			t.Fatalf("price %s: expected fixed default 300, got %s", price, got)
		}
	}
}

func TestCalculateMissingFixedAmountDefaultsTo300(t *testing.T) {
	got := Calculate(dec(t, "-1"), Policy{Mode: ModeFixed})
	if !got.Equal(dec(t, "300")) {
		t.Fatalf("expected built-in default 300, got %s", got)
	}
}

func TestCalculatePercentMode(t *testing.T) {
	tests := []struct {
		name   string
		price  string
		policy Policy
		want   string
	}{
		{
			name:   "rounds half up at cents",
			price:  "999.99",
			policy: Policy{Mode: ModePercent, Percent: decimal.NewFromFloat(0.175)},
			want:   "175",
		},
		{
			name:   "cap bounds the deposit",
			price:  "10000",
			policy: Policy{Mode: ModePercent, Percent: decimal.NewFromFloat(0.2), Cap: decimal.NewFromInt(500)},
			want:   "500",
		},
		{
			name:   "min raises the deposit",
			price:  "1000",
			policy: Policy{Mode: ModePercent, Percent: decimal.NewFromFloat(0.01), Min: decimal.NewFromInt(100)},
			want:   "100",
		},
		{
			name:   "never exceeds price",
			price:  "50",
			policy: Policy{Mode: ModePercent, Percent: decimal.NewFromFloat(0.5), Min: decimal.NewFromInt(100)},
			want:   "50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(dec(t, tt.price), tt.policy)
			if !got.Equal(dec(t, tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCalculateZeroPercentFallsBackToFixed(t *testing.T) {
	policy := Policy{Mode: ModePercent, FixedAmount: dec(t, "300")}
	got := Calculate(dec(t, "4000"), policy)
	if !got.Equal(dec(t, "300")) {
		t.Fatalf("expected fixed fallback 300, got %s", got)
	}
}

func TestCalculateStaysWithinPriceBounds(t *testing.T) {
	policy := Policy{Mode: ModeFixed, FixedAmount: dec(t, "300")}
	for _, price := range []string{"0.01", "1", "299.99", "300", "12345.67"} {
		p := dec(t, price)
		got := Calculate(p, policy)
		if got.LessThanOrEqual(decimal.Zero) || got.GreaterThan(p) {
			t.Fatalf("price %s: deposit %s out of (0, price]", price, got)
		}
	}
}

func TestPolicyFromConfigNormalizesMode(t *testing.T) {
	cfg := config.DepositConfig{Mode: "PERCENT", Percent: decimal.NewFromFloat(0.1)}
	if got := PolicyFromConfig(cfg); got.Mode != ModePercent {
		t.Fatalf("expected percent mode, got %q", got.Mode)
	}
	cfg = config.DepositConfig{Mode: "bogus"}
	if got := PolicyFromConfig(cfg); got.Mode != ModeFixed {
		t.Fatalf("expected fixed fallback, got %q", got.Mode)
	}
}
