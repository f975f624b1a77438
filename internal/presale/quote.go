package presale

import "github.com/shopspring/decimal"

// OverflowPolicy decides what happens when a quote exceeds the remaining
// supply: the live preview clamps down to what is left, the purchase
// commit refuses outright.
type OverflowPolicy int

const (
	ClampToRemaining OverflowPolicy = iota
	RejectOverflow
)

// Calculator converts a native-asset amount into token units at the
// schedule's current price. Pure: identical inputs yield identical quotes.
type Calculator struct {
	Schedule  Schedule
	MinNative decimal.Decimal
	MaxNative decimal.Decimal
}

// ValidateAmount checks the native amount against the allowed range.
// Both bounds are inclusive.
func (c Calculator) ValidateAmount(native decimal.Decimal) error {
	if native.Cmp(c.MinNative) < 0 || native.Cmp(c.MaxNative) > 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Quote derives a PurchaseQuote from a native amount, the fiat rate per
// native unit, and cumulative units sold.
//
// The fiat cost and the cost/price ratio are each rounded to 8 decimal
// places before the token quantity is truncated to a whole number, so a
// quote can never round a buyer up into tokens the payment does not cover.
// A zero rate or a zero price (sale ended) yields a degenerate zero quote
// rather than an error.
func (c Calculator) Quote(native, rate decimal.Decimal, sold int64, policy OverflowPolicy) (PurchaseQuote, error) {
	if err := c.ValidateAmount(native); err != nil {
		return PurchaseQuote{}, err
	}
	tier := c.Schedule.PriceFor(sold)
	if rate.IsZero() || tier.UnitPrice.IsZero() {
		return PurchaseQuote{FiatCost: decimal.Zero}, nil
	}

	fiatCost := native.Mul(rate).Round(8)
	raw := fiatCost.Div(tier.UnitPrice).Round(8).Floor().IntPart()

	quote := PurchaseQuote{FiatCost: fiatCost, TokenQuantity: raw}
	remaining := c.Schedule.HardCap - sold
	if raw > remaining {
		if policy == RejectOverflow {
			return PurchaseQuote{}, ErrExceedsRemaining
		}
		quote.TokenQuantity = remaining
		quote.Clamped = true
	}
	return quote, nil
}
