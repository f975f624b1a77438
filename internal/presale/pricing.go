package presale

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Band is one contiguous price band of the schedule. Within a band the
// price starts at Base and rises by the schedule's increment per step.
type Band struct {
	Base  decimal.Decimal
	Label string
}

// Schedule is the tiered price table over cumulative units sold. Prices
// step up once per StepSize units and re-base at every BandWidth boundary.
type Schedule struct {
	HardCap   int64
	StepSize  int64
	BandWidth int64
	Increment decimal.Decimal
	Bands     []Band
}

// Validate checks the schedule's shape: bands must exactly tile the hard
// cap and each band must hold a whole number of steps.
func (s Schedule) Validate() error {
	if s.StepSize <= 0 || s.BandWidth <= 0 || s.HardCap <= 0 {
		return fmt.Errorf("schedule sizes must be positive")
	}
	if s.BandWidth%s.StepSize != 0 {
		return fmt.Errorf("band width %d is not a multiple of step size %d", s.BandWidth, s.StepSize)
	}
	if int64(len(s.Bands))*s.BandWidth != s.HardCap {
		return fmt.Errorf("%d bands of %d units do not cover hard cap %d", len(s.Bands), s.BandWidth, s.HardCap)
	}
	return nil
}

// PriceFor returns the unit price and tier for the given cumulative units
// sold. At or beyond the hard cap it returns a zero price and the Ended
// sentinel. The price is a pure, monotonically non-decreasing step
// function of sold.
func (s Schedule) PriceFor(sold int64) PriceTier {
	if sold >= s.HardCap {
		return PriceTier{UnitPrice: decimal.Zero, Label: TierEnded}
	}
	if sold < 0 {
		sold = 0
	}
	step := sold/s.StepSize + 1
	band := sold / s.BandWidth
	stepsPerBand := s.BandWidth / s.StepSize
	offset := step - 1 - band*stepsPerBand
	price := s.Bands[band].Base.Add(s.Increment.Mul(decimal.NewFromInt(offset)))
	return PriceTier{UnitPrice: price, Label: s.Bands[band].Label, Ordinal: int(step)}
}
