// Package config loads the presale runtime configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "60s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TierBand configures one price band of the schedule.
type TierBand struct {
	BasePrice string `yaml:"base_price"`
	Label     string `yaml:"label"`
}

// Config is the full presale runtime configuration. Decimal values are
// strings so they survive YAML without floating-point drift.
type Config struct {
	Listen       string `yaml:"listen"`
	DatabasePath string `yaml:"database_path"`

	HardCap        int64      `yaml:"hard_cap"`
	StepSize       int64      `yaml:"step_size"`
	BandWidth      int64      `yaml:"band_width"`
	PriceIncrement string     `yaml:"price_increment"`
	Bands          []TierBand `yaml:"bands"`

	MinPurchase        string    `yaml:"min_purchase"`
	MaxPurchase        string    `yaml:"max_purchase"`
	SaleStart          time.Time `yaml:"sale_start"`
	SaleEnd            time.Time `yaml:"sale_end"`
	PresaleAddress     string    `yaml:"presale_address"`
	BaseUnitsPerNative int64     `yaml:"base_units_per_native"`

	OracleURL    string `yaml:"oracle_url"`
	AssetID      string `yaml:"asset_id"`
	FiatCurrency string `yaml:"fiat_currency"`
	LedgerURL    string `yaml:"ledger_url"`
	ChainRPCURL  string `yaml:"chain_rpc_url"`
	WalletURL    string `yaml:"wallet_url"`

	RatePollInterval Duration `yaml:"rate_poll_interval"`
	SoldPollInterval Duration `yaml:"sold_poll_interval"`
	PurchaseTimeout  Duration `yaml:"purchase_timeout"`
}

// Default returns the configuration the presale shipped with.
func Default() Config {
	tz := time.FixedZone("UTC+5", 5*60*60)
	return Config{
		Listen:         ":8081",
		HardCap:        300_000_000,
		StepSize:       5_000_000,
		BandWidth:      100_000_000,
		PriceIncrement: "0.000002",
		Bands: []TierBand{
			{BasePrice: "0.00003", Label: "Shot"},
			{BasePrice: "0.00004", Label: "Cheers"},
			{BasePrice: "0.00005", Label: "Popper"},
		},
		MinPurchase:        "0.05",
		MaxPurchase:        "5",
		SaleStart:          time.Date(2025, 6, 25, 0, 0, 0, 0, tz),
		SaleEnd:            time.Date(2025, 7, 2, 0, 0, 0, 0, tz),
		PresaleAddress:     "HY6Po9XbgiZEzt24phc4uo2q5syac5rfb2axg5h8t7vy",
		BaseUnitsPerNative: 1_000_000_000,
		OracleURL:          "https://api.coingecko.com/api/v3/simple/price",
		AssetID:            "solana",
		FiatCurrency:       "usd",
		ChainRPCURL:        "https://api.devnet.solana.com",
		RatePollInterval:   Duration(60 * time.Second),
		SoldPollInterval:   Duration(30 * time.Second),
		PurchaseTimeout:    Duration(60 * time.Second),
	}
}

// Load reads the YAML file at path over the defaults. A missing file
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
