package presale

import (
	"fmt"

	"github.com/shopspring/decimal"

	"presale_api/internal/config"
)

// ParamsFromConfig translates the YAML configuration into validated
// presale parameters, parsing its decimal strings.
func ParamsFromConfig(cfg config.Config) (Params, error) {
	increment, err := decimal.NewFromString(cfg.PriceIncrement)
	if err != nil {
		return Params{}, fmt.Errorf("parse price_increment: %w", err)
	}
	bands := make([]Band, 0, len(cfg.Bands))
	for i, b := range cfg.Bands {
		base, err := decimal.NewFromString(b.BasePrice)
		if err != nil {
			return Params{}, fmt.Errorf("parse bands[%d].base_price: %w", i, err)
		}
		bands = append(bands, Band{Base: base, Label: b.Label})
	}
	minNative, err := decimal.NewFromString(cfg.MinPurchase)
	if err != nil {
		return Params{}, fmt.Errorf("parse min_purchase: %w", err)
	}
	maxNative, err := decimal.NewFromString(cfg.MaxPurchase)
	if err != nil {
		return Params{}, fmt.Errorf("parse max_purchase: %w", err)
	}

	params := Params{
		Schedule: Schedule{
			HardCap:   cfg.HardCap,
			StepSize:  cfg.StepSize,
			BandWidth: cfg.BandWidth,
			Increment: increment,
			Bands:     bands,
		},
		MinNative:          minNative,
		MaxNative:          maxNative,
		Period:             SalePeriod{Start: cfg.SaleStart, End: cfg.SaleEnd},
		ReceivingAddress:   cfg.PresaleAddress,
		BaseUnitsPerNative: cfg.BaseUnitsPerNative,
		PurchaseTimeout:    cfg.PurchaseTimeout.Std(),
	}
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}
