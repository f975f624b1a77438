package presale

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TierEnded is the sentinel tier label returned once the hard cap is reached.
const TierEnded = "Ended"

// PriceTier is the unit price and tier label derived from cumulative sales.
type PriceTier struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Label     string          `json:"label"`
	Ordinal   int             `json:"ordinal"`
}

// PurchaseQuote is an ephemeral conversion of a native-asset amount into
// token units at the current price. Recomputed on every input change.
type PurchaseQuote struct {
	FiatCost      decimal.Decimal `json:"fiat_cost"`
	TokenQuantity int64           `json:"token_quantity"`
	Clamped       bool            `json:"clamped"`
}

// TransactionRecord is one confirmed purchase. Immutable once created.
type TransactionRecord struct {
	ID             string          `json:"id"`
	FiatSpent      decimal.Decimal `json:"fiat_spent"`
	TokensReceived int64           `json:"tokens_received"`
	Timestamp      time.Time       `json:"timestamp"`
	TransferRef    string          `json:"transfer_ref"`
}

// SalePeriod bounds when purchases are permitted. Start is inclusive,
// End is exclusive.
type SalePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Phase is the sale period's position relative to a point in time.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseOpen     Phase = "open"
	PhaseEnded    Phase = "ended"
)

// PhaseAt reports the phase at the given instant.
func (p SalePeriod) PhaseAt(now time.Time) Phase {
	switch {
	case now.Before(p.Start):
		return PhaseUpcoming
	case now.Before(p.End):
		return PhaseOpen
	default:
		return PhaseEnded
	}
}

// RemainingAt returns the time left until the current phase's boundary:
// until start while upcoming, until end while open, zero once ended.
func (p SalePeriod) RemainingAt(now time.Time) time.Duration {
	switch p.PhaseAt(now) {
	case PhaseUpcoming:
		return p.Start.Sub(now)
	case PhaseOpen:
		return p.End.Sub(now)
	default:
		return 0
	}
}

// State is a purchase attempt's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingSignature
	StateSubmitted
	StateConfirmed
	StateRejected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingSignature:
		return "awaiting_signature"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Validation failures. A purchase rejected by one of these never reached
// the chain; the caller may correct the input and retry.
var (
	ErrNoWallet         = errors.New("no wallet connected")
	ErrInvalidAmount    = errors.New("native amount outside allowed range")
	ErrNotStarted       = errors.New("presale has not started")
	ErrEnded            = errors.New("presale has ended")
	ErrSoldOut          = errors.New("presale sold out")
	ErrPriceUnavailable = errors.New("fiat rate unavailable")
	ErrExceedsRemaining = errors.New("quote exceeds remaining supply")
)

// Post-submission failures. The transfer may have left the wallet; the
// state machine never retries on its own.
var (
	ErrTransferFailed = errors.New("transfer failed")
	ErrTimeout        = errors.New("transfer timed out")
)

// Wallet provider failures.
var (
	ErrNoProvider   = errors.New("no wallet provider available")
	ErrUserRejected = errors.New("wallet connection rejected by user")
)

// TerminalState maps a Purchase result to the state machine's terminal
// state: Confirmed on success, Failed after submission errors, Rejected
// for everything caught by validation.
func TerminalState(err error) State {
	switch {
	case err == nil:
		return StateConfirmed
	case errors.Is(err, ErrTransferFailed), errors.Is(err, ErrTimeout):
		return StateFailed
	default:
		return StateRejected
	}
}

// ShortAddress renders a wallet address in the abbreviated form shown by
// the display layer, e.g. "HY6P...t7vy".
func ShortAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
