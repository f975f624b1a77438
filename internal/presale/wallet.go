package presale

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"resty.dev/v3"
)

func newRequestID() string {
	return uuid.NewString()
}

// Transfer is a native-asset transfer to the presale receiving address,
// ready to be signed. BaseUnits is the amount in the chain's smallest
// denomination.
type Transfer struct {
	From      string `json:"from"`
	To        string `json:"to"`
	BaseUnits int64  `json:"base_units"`
	BlockRef  string `json:"block_ref"`
}

// SignedTransfer is an opaque signed transfer payload as produced by the
// wallet, ready for submission.
type SignedTransfer struct {
	Payload []byte `json:"payload"`
}

// TransferStatus is a chain's verdict on a submitted transfer.
type TransferStatus string

const (
	TransferConfirmed TransferStatus = "confirmed"
	TransferRejected  TransferStatus = "failed"
)

// Wallet is a connected wallet able to sign transfers on behalf of its
// address.
type Wallet interface {
	Address() string
	SignTransfer(ctx context.Context, transfer Transfer) (SignedTransfer, error)
}

// WalletProvider hands out connected wallets. Connect fails with
// ErrNoProvider when no wallet software is reachable and ErrUserRejected
// when the user declines the connection.
type WalletProvider interface {
	Connect(ctx context.Context) (Wallet, error)
}

// ChainClient talks to the chain: fetch a recent block reference, submit a
// signed transfer, and poll its confirmation status.
type ChainClient interface {
	LatestBlockReference(ctx context.Context) (string, error)
	SubmitTransfer(ctx context.Context, signed SignedTransfer) (string, error)
	ConfirmTransfer(ctx context.Context, ref string) (TransferStatus, error)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

// RPCChainClient implements ChainClient over a JSON-RPC endpoint.
type RPCChainClient struct {
	client *resty.Client
}

// NewRPCChainClient creates a chain client against the given RPC URL.
func NewRPCChainClient(url string) *RPCChainClient {
	return &RPCChainClient{client: resty.New().SetBaseURL(url)}
}

// Close releases the underlying HTTP client.
func (c *RPCChainClient) Close() error {
	return c.client.Close()
}

func (c *RPCChainClient) call(ctx context.Context, method string, params []any, out any) error {
	var reply rpcResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: newRequestID(), Method: method, Params: params}).
		SetResult(&reply).
		Post("")
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	if res.IsError() {
		return fmt.Errorf("rpc %s: unexpected status %d", method, res.StatusCode())
	}
	if reply.Error != nil {
		return fmt.Errorf("rpc %s: %s (code %d)", method, reply.Error.Message, reply.Error.Code)
	}
	if out != nil {
		if err := json.Unmarshal(reply.Result, out); err != nil {
			return fmt.Errorf("rpc %s: decode result: %w", method, err)
		}
	}
	return nil
}

// LatestBlockReference fetches a recent block reference for transfer
// construction.
func (c *RPCChainClient) LatestBlockReference(ctx context.Context) (string, error) {
	var out struct {
		Blockhash string `json:"blockhash"`
	}
	if err := c.call(ctx, "getLatestBlockhash", nil, &out); err != nil {
		return "", err
	}
	return out.Blockhash, nil
}

// SubmitTransfer submits a signed transfer and returns its reference.
func (c *RPCChainClient) SubmitTransfer(ctx context.Context, signed SignedTransfer) (string, error) {
	var ref string
	payload := base64.StdEncoding.EncodeToString(signed.Payload)
	if err := c.call(ctx, "sendTransaction", []any{payload}, &ref); err != nil {
		return "", err
	}
	return ref, nil
}

// ConfirmTransfer polls the terminal status of a submitted transfer.
func (c *RPCChainClient) ConfirmTransfer(ctx context.Context, ref string) (TransferStatus, error) {
	var out struct {
		Status TransferStatus `json:"status"`
	}
	if err := c.call(ctx, "confirmTransaction", []any{ref}, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// RemoteWalletProvider connects to a wallet daemon over HTTP: POST /connect
// yields the wallet address, POST /sign signs a transfer for it.
type RemoteWalletProvider struct {
	client *resty.Client
}

// NewRemoteWalletProvider creates a provider against the daemon's base URL.
func NewRemoteWalletProvider(url string) *RemoteWalletProvider {
	return &RemoteWalletProvider{client: resty.New().SetBaseURL(url)}
}

// Close releases the underlying HTTP client.
func (p *RemoteWalletProvider) Close() error {
	return p.client.Close()
}

// Connect asks the daemon for the active wallet address.
func (p *RemoteWalletProvider) Connect(ctx context.Context) (Wallet, error) {
	var out struct {
		Address string `json:"address"`
	}
	res, err := p.client.R().
		SetContext(ctx).
		SetResult(&out).
		Post("/connect")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
	}
	if res.StatusCode() == http.StatusForbidden {
		return nil, ErrUserRejected
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrNoProvider, res.StatusCode())
	}
	return &remoteWallet{client: p.client, address: out.Address}, nil
}

type remoteWallet struct {
	client  *resty.Client
	address string
}

func (w *remoteWallet) Address() string {
	return w.address
}

func (w *remoteWallet) SignTransfer(ctx context.Context, transfer Transfer) (SignedTransfer, error) {
	var out SignedTransfer
	res, err := w.client.R().
		SetContext(ctx).
		SetBody(transfer).
		SetResult(&out).
		Post("/sign")
	if err != nil {
		return SignedTransfer{}, fmt.Errorf("sign transfer: %w", err)
	}
	if res.IsError() {
		return SignedTransfer{}, fmt.Errorf("sign transfer: unexpected status %d", res.StatusCode())
	}
	return out, nil
}
