package deposit

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goldenleafkennels/reservations-backend/pkg/config"
)

// Mode selects how the deposit is derived from the item price.
type Mode string

const (
	ModeFixed   Mode = "fixed"
	ModePercent Mode = "percent"
)

var defaultFixedAmount = decimal.NewFromInt(300)

// Policy captures the deposit rules configured for the storefront.
// Zero-valued Cap/Min mean "not set".
type Policy struct {
	Mode        Mode
	FixedAmount decimal.Decimal
	Percent     decimal.Decimal
	Cap         decimal.Decimal
	Min         decimal.Decimal
}

// PolicyFromConfig converts env configuration into a Policy, normalizing
// unknown modes to fixed.
func PolicyFromConfig(cfg config.DepositConfig) Policy {
	mode := Mode(strings.ToLower(strings.TrimSpace(cfg.Mode)))
	if mode != ModePercent {
		mode = ModeFixed
	}
	return Policy{
		Mode:        mode,
		FixedAmount: cfg.FixedAmount,
		Percent:     cfg.Percent,
		Cap:         cfg.Cap,
		Min:         cfg.Min,
	}
}

// Calculate returns the deposit owed for an item price under the policy.
// A non-positive price is treated as unknown and yields the fixed amount.
// Invalid policy inputs degrade to defaults instead of erroring; the result
// is always rounded half-up to cents and, for a known price, never exceeds
// it and never drops to zero.
func Calculate(price decimal.Decimal, policy Policy) decimal.Decimal {
	fixed := policy.FixedAmount
	if fixed.LessThanOrEqual(decimal.Zero) {
		fixed = defaultFixedAmount
	}

	priceKnown := price.GreaterThan(decimal.Zero)
	if !priceKnown {
		return round(fixed)
	}

	var amount decimal.Decimal
	switch policy.Mode {
	case ModePercent:
		amount = price.Mul(policy.Percent)
		if policy.Cap.GreaterThan(decimal.Zero) && amount.GreaterThan(policy.Cap) {
			amount = policy.Cap
		}
		if policy.Min.GreaterThan(decimal.Zero) && amount.LessThan(policy.Min) {
			amount = policy.Min
		}
		if amount.GreaterThan(price) {
			amount = price
		}
	default:
		amount = fixed
		if amount.GreaterThan(price) {
			amount = price
		}
		if policy.Min.GreaterThan(decimal.Zero) && amount.LessThan(policy.Min) {
			amount = policy.Min
		}
	}

	// A zero or negative percent configuration would otherwise produce a
	// deposit of zero for a priced item; fall back to the fixed amount.
	if amount.LessThanOrEqual(decimal.Zero) {
		amount = fixed
		if amount.GreaterThan(price) {
			amount = price
		}
	}

	return round(amount)
}

func round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
