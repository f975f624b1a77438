package presale

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Clock abstracts time for the sale-period checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// Params is the externally supplied presale configuration.
type Params struct {
	Schedule           Schedule
	MinNative          decimal.Decimal
	MaxNative          decimal.Decimal
	Period             SalePeriod
	ReceivingAddress   string
	BaseUnitsPerNative int64
	PurchaseTimeout    time.Duration
	InitialSold        int64
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if err := p.Schedule.Validate(); err != nil {
		return err
	}
	if p.MinNative.Cmp(p.MaxNative) > 0 {
		return fmt.Errorf("min purchase %s exceeds max purchase %s", p.MinNative, p.MaxNative)
	}
	if !p.Period.End.After(p.Period.Start) {
		return fmt.Errorf("sale end %s is not after start %s", p.Period.End, p.Period.Start)
	}
	if p.ReceivingAddress == "" {
		return fmt.Errorf("receiving address is required")
	}
	if p.BaseUnitsPerNative <= 0 {
		return fmt.Errorf("base units per native unit must be positive")
	}
	if p.InitialSold < 0 || p.InitialSold > p.Schedule.HardCap {
		return fmt.Errorf("initial sold count %d outside [0, %d]", p.InitialSold, p.Schedule.HardCap)
	}
	return nil
}

// PriceInfo is the pricing snapshot the display layer renders.
type PriceInfo struct {
	Tier            PriceTier       `json:"tier"`
	TokensSold      int64           `json:"tokens_sold"`
	Remaining       int64           `json:"remaining"`
	ProgressPercent float64         `json:"progress_percent"`
	FiatRate        decimal.Decimal `json:"fiat_rate"`
}

// StatusInfo is the sale-period snapshot the display layer renders.
type StatusInfo struct {
	Phase            Phase     `json:"phase"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
}

// Service owns the sale state and drives the purchase lifecycle. All
// mutation of the sold count, the cached fiat rate, and the connected
// wallet goes through its lock, so background refreshes cannot race a
// purchase's final increment.
type Service struct {
	params   Params
	calc     Calculator
	storage  Storage
	chain    ChainClient
	oracle   RateOracle
	counter  SoldCounter
	provider WalletProvider
	clock    Clock
	logger   *zap.Logger

	mu     sync.Mutex
	sold   int64
	rate   decimal.Decimal
	wallet Wallet
}

// NewService creates a Service. counter and provider may be nil: without a
// counter the local sold count stays authoritative, without a provider
// ConnectWallet fails with ErrNoProvider.
func NewService(params Params, storage Storage, chain ChainClient, oracle RateOracle, counter SoldCounter, provider WalletProvider, clock Clock, logger *zap.Logger) (*Service, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid presale params: %w", err)
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Service{
		params: params,
		calc: Calculator{
			Schedule:  params.Schedule,
			MinNative: params.MinNative,
			MaxNative: params.MaxNative,
		},
		storage:  storage,
		chain:    chain,
		oracle:   oracle,
		counter:  counter,
		provider: provider,
		clock:    clock,
		logger:   logger,
		sold:     params.InitialSold,
	}, nil
}

// ConnectWallet connects a wallet through the provider and binds it to
// subsequent purchases. Returns the wallet address.
func (s *Service) ConnectWallet(ctx context.Context) (string, error) {
	if s.provider == nil {
		return "", ErrNoProvider
	}
	wallet, err := s.provider.Connect(ctx)
	if err != nil {
		s.logger.Error("wallet connection failed", zap.Error(err))
		return "", err
	}
	s.mu.Lock()
	s.wallet = wallet
	s.mu.Unlock()
	s.logger.Info("wallet connected", zap.String("address", ShortAddress(wallet.Address())))
	return wallet.Address(), nil
}

// WalletAddress returns the connected wallet's address, or "" if none.
func (s *Service) WalletAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallet == nil {
		return ""
	}
	return s.wallet.Address()
}

// Price returns the current pricing snapshot.
func (s *Service) Price() PriceInfo {
	s.mu.Lock()
	sold, rate := s.sold, s.rate
	s.mu.Unlock()

	remaining := s.params.Schedule.HardCap - sold
	if remaining < 0 {
		remaining = 0
	}
	return PriceInfo{
		Tier:            s.params.Schedule.PriceFor(sold),
		TokensSold:      sold,
		Remaining:       remaining,
		ProgressPercent: float64(sold) / float64(s.params.Schedule.HardCap) * 100,
		FiatRate:        rate,
	}
}

// Status returns the sale-period snapshot at the current instant.
func (s *Service) Status() StatusInfo {
	now := s.clock.Now()
	return StatusInfo{
		Phase:            s.params.Period.PhaseAt(now),
		RemainingSeconds: int64(s.params.Period.RemainingAt(now) / time.Second),
		Start:            s.params.Period.Start,
		End:              s.params.Period.End,
	}
}

// Preview quotes a purchase at the current rate and sold count, clamping
// to the remaining supply. It requires no wallet and has no side effects.
func (s *Service) Preview(native decimal.Decimal) (PurchaseQuote, error) {
	s.mu.Lock()
	sold, rate := s.sold, s.rate
	s.mu.Unlock()
	return s.calc.Quote(native, rate, sold, ClampToRemaining)
}

// Transactions returns the purchase history, oldest first.
func (s *Service) Transactions() ([]*TransactionRecord, error) {
	return s.storage.All()
}

// Purchase runs the full purchase lifecycle for the given native amount:
// precondition ladder, transfer construction and signature, submission,
// confirmation, then the sold-count increment and history append.
//
// The preconditions are checked in a fixed order and the first failure
// wins; their sentinel errors mean the transfer never left the wallet.
// ErrTransferFailed and ErrTimeout mean it may have. TerminalState maps
// the returned error back onto the lifecycle. Failed purchases are never
// retried automatically.
func (s *Service) Purchase(ctx context.Context, native decimal.Decimal) (*TransactionRecord, error) {
	s.mu.Lock()
	wallet, sold, rate := s.wallet, s.sold, s.rate
	s.mu.Unlock()

	s.logger.Debug("purchase started",
		zap.String("state", StateValidating.String()),
		zap.String("native_amount", native.String()))

	if wallet == nil {
		return nil, ErrNoWallet
	}
	if err := s.calc.ValidateAmount(native); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if now.Before(s.params.Period.Start) {
		return nil, ErrNotStarted
	}
	if !now.Before(s.params.Period.End) {
		return nil, ErrEnded
	}
	if s.params.Schedule.PriceFor(sold).Label == TierEnded {
		return nil, ErrSoldOut
	}
	if rate.IsZero() {
		return nil, ErrPriceUnavailable
	}
	quote, err := s.calc.Quote(native, rate, sold, RejectOverflow)
	if err != nil {
		return nil, err
	}

	if s.params.PurchaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.params.PurchaseTimeout)
		defer cancel()
	}

	s.logger.Debug("purchase validated", zap.String("state", StateAwaitingSignature.String()))

	blockRef, err := s.chain.LatestBlockReference(ctx)
	if err != nil {
		return nil, s.transferErr("fetch block reference", err)
	}
	transfer := Transfer{
		From:      wallet.Address(),
		To:        s.params.ReceivingAddress,
		BaseUnits: native.Mul(decimal.NewFromInt(s.params.BaseUnitsPerNative)).Floor().IntPart(),
		BlockRef:  blockRef,
	}
	signed, err := wallet.SignTransfer(ctx, transfer)
	if err != nil {
		return nil, s.transferErr("sign transfer", err)
	}

	s.logger.Debug("transfer signed", zap.String("state", StateSubmitted.String()))

	ref, err := s.chain.SubmitTransfer(ctx, signed)
	if err != nil {
		return nil, s.transferErr("submit transfer", err)
	}
	status, err := s.chain.ConfirmTransfer(ctx, ref)
	if err != nil {
		return nil, s.transferErr("confirm transfer", err)
	}
	if status != TransferConfirmed {
		s.logger.Error("transfer not confirmed", zap.String("transfer_ref", ref), zap.String("status", string(status)))
		return nil, fmt.Errorf("%w: chain reported status %q", ErrTransferFailed, status)
	}

	s.mu.Lock()
	s.sold += quote.TokenQuantity
	if s.sold > s.params.Schedule.HardCap {
		s.sold = s.params.Schedule.HardCap
	}
	s.mu.Unlock()

	record := &TransactionRecord{
		ID:             uuid.NewString(),
		FiatSpent:      quote.FiatCost,
		TokensReceived: quote.TokenQuantity,
		Timestamp:      s.clock.Now(),
		TransferRef:    ref,
	}
	if err := s.storage.Append(record); err != nil {
		// The transfer is confirmed and the sold count updated; a log
		// write failure must not fail the purchase.
		s.logger.Error("failed to record transaction", zap.String("transfer_ref", ref), zap.Error(err))
	}

	s.logger.Info("purchase confirmed",
		zap.String("state", StateConfirmed.String()),
		zap.String("transfer_ref", ref),
		zap.String("fiat_spent", quote.FiatCost.String()),
		zap.Int64("tokens_received", quote.TokenQuantity))
	return record, nil
}

func (s *Service) transferErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Error("purchase timed out", zap.String("op", op), zap.Error(err))
		return ErrTimeout
	}
	s.logger.Error("purchase failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrTransferFailed, op, err)
}

// RefreshRate fetches the fiat rate from the oracle. On failure the prior
// cached rate stays in place.
func (s *Service) RefreshRate(ctx context.Context) error {
	rate, err := s.oracle.CurrentRate(ctx)
	if err != nil {
		s.logger.Warn("rate refresh failed, keeping cached rate", zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.rate = rate
	s.mu.Unlock()
	return nil
}

// RefreshSoldCount fetches the cumulative sold count from the remote
// ledger. A no-op without a counter; on failure the prior value stays.
func (s *Service) RefreshSoldCount(ctx context.Context) error {
	if s.counter == nil {
		return nil
	}
	sold, err := s.counter.SoldCount(ctx)
	if err != nil {
		s.logger.Warn("sold-count refresh failed, keeping cached count", zap.Error(err))
		return err
	}
	if sold < 0 || sold > s.params.Schedule.HardCap {
		s.logger.Warn("remote sold count out of range, keeping cached count", zap.Int64("sold", sold))
		return nil
	}
	s.mu.Lock()
	s.sold = sold
	s.mu.Unlock()
	return nil
}

// PollRate refreshes the fiat rate immediately and then on every interval
// tick until ctx is cancelled. Failures are logged and swallowed.
func (s *Service) PollRate(ctx context.Context, interval time.Duration) {
	_ = s.RefreshRate(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.RefreshRate(ctx)
		}
	}
}

// PollSoldCount refreshes the sold count immediately and then on every
// interval tick until ctx is cancelled. Failures are logged and swallowed.
func (s *Service) PollSoldCount(ctx context.Context, interval time.Duration) {
	_ = s.RefreshSoldCount(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.RefreshSoldCount(ctx)
		}
	}
}
