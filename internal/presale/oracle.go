package presale

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"resty.dev/v3"
)

// RateOracle reports the current fiat value of one native unit. A zero
// rate means "unavailable".
type RateOracle interface {
	CurrentRate(ctx context.Context) (decimal.Decimal, error)
}

// SoldCounter is the optional remote ledger reporting cumulative units
// sold. When absent, the local count stays authoritative.
type SoldCounter interface {
	SoldCount(ctx context.Context) (int64, error)
}

// HTTPRateOracle fetches the fiat rate from a simple-price endpoint shaped
// like {"<asset>": {"<currency>": 123.45}}.
type HTTPRateOracle struct {
	client   *resty.Client
	assetID  string
	currency string
}

// NewHTTPRateOracle creates an oracle client for the given endpoint, asset
// identifier, and fiat currency code.
func NewHTTPRateOracle(url, assetID, currency string) *HTTPRateOracle {
	return &HTTPRateOracle{
		client:   resty.New().SetBaseURL(url),
		assetID:  assetID,
		currency: currency,
	}
}

// Close releases the underlying HTTP client.
func (o *HTTPRateOracle) Close() error {
	return o.client.Close()
}

// CurrentRate fetches the current fiat rate. A response missing the asset
// or currency key yields zero (unavailable) without an error.
func (o *HTTPRateOracle) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	var out map[string]map[string]decimal.Decimal
	res, err := o.client.R().
		SetContext(ctx).
		SetQueryParam("ids", o.assetID).
		SetQueryParam("vs_currencies", o.currency).
		SetResult(&out).
		Get("")
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate: %w", err)
	}
	if res.IsError() {
		return decimal.Zero, fmt.Errorf("fetch rate: unexpected status %d", res.StatusCode())
	}
	return out[o.assetID][o.currency], nil
}

// HTTPSoldCounter fetches the cumulative sold count from a remote ledger
// endpoint shaped like {"tokensSold": 123}.
type HTTPSoldCounter struct {
	client *resty.Client
}

// NewHTTPSoldCounter creates a sold-counter client for the given endpoint.
func NewHTTPSoldCounter(url string) *HTTPSoldCounter {
	return &HTTPSoldCounter{client: resty.New().SetBaseURL(url)}
}

// Close releases the underlying HTTP client.
func (c *HTTPSoldCounter) Close() error {
	return c.client.Close()
}

// SoldCount fetches the remote cumulative units sold.
func (c *HTTPSoldCounter) SoldCount(ctx context.Context) (int64, error) {
	var out struct {
		TokensSold int64 `json:"tokensSold"`
	}
	res, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("")
	if err != nil {
		return 0, fmt.Errorf("fetch sold count: %w", err)
	}
	if res.IsError() {
		return 0, fmt.Errorf("fetch sold count: unexpected status %d", res.StatusCode())
	}
	return out.TokensSold, nil
}
