package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"presale_api/api"
	"presale_api/internal/presale"
)

// initPresaleTest wires a full presale stack against fake collaborator
// servers: a simple-price oracle, a JSON-RPC chain, and a wallet daemon.
func initPresaleTest(t *testing.T) (*gin.Engine, *presale.Service, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	oracleServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"solana":{"usd":150}}`))
	}))

	chainServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "getLatestBlockhash":
			w.Write([]byte(`{"result":{"blockhash":"block-abc"}}`))
		case "sendTransaction":
			w.Write([]byte(`{"result":"sig-xyz"}`))
		case "confirmTransaction":
			w.Write([]byte(`{"result":{"status":"confirmed"}}`))
		default:
			w.Write([]byte(`{"error":{"code":-32601,"message":"method not found"}}`))
		}
	}))

	walletServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/connect":
			w.Write([]byte(`{"address":"BuyerWalletAddress1111111111"}`))
		case "/sign":
			w.Write([]byte(`{"payload":"c2lnbmVk"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	now := time.Now()
	params := presale.Params{
		Schedule: presale.Schedule{
			HardCap:   300_000_000,
			StepSize:  5_000_000,
			BandWidth: 100_000_000,
			Increment: decimal.RequireFromString("0.000002"),
			Bands: []presale.Band{
				{Base: decimal.RequireFromString("0.00003"), Label: "Shot"},
				{Base: decimal.RequireFromString("0.00004"), Label: "Cheers"},
				{Base: decimal.RequireFromString("0.00005"), Label: "Popper"},
			},
		},
		MinNative:          decimal.RequireFromString("0.05"),
		MaxNative:          decimal.RequireFromString("5"),
		Period:             presale.SalePeriod{Start: now.Add(-time.Hour), End: now.Add(time.Hour)},
		ReceivingAddress:   "PresaleReceivingAddress111111111",
		BaseUnitsPerNative: 1_000_000_000,
		PurchaseTimeout:    10 * time.Second,
	}

	logger := zaptest.NewLogger(t)
	chain := presale.NewRPCChainClient(chainServer.URL)
	oracle := presale.NewHTTPRateOracle(oracleServer.URL, "solana", "usd")
	provider := presale.NewRemoteWalletProvider(walletServer.URL)

	service, err := presale.NewService(params, presale.NewLocalStorage(), chain, oracle, nil, provider, presale.SystemClock(), logger)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	router := gin.New()
	api.InitRoutes(router, service, logger)

	cleanup := func() {
		chain.Close()
		oracle.Close()
		provider.Close()
		oracleServer.Close()
		chainServer.Close()
		walletServer.Close()
	}
	return router, service, cleanup
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestPresaleHappyPath_FullFlow drives the whole purchase lifecycle over
// HTTP: connect wallet, read the price, preview a quote, commit the
// purchase, and read it back from the history.
func TestPresaleHappyPath_FullFlow(t *testing.T) {
	router, service, cleanup := initPresaleTest(t)
	defer cleanup()

	assert.NoError(t, service.RefreshRate(context.Background()))

	t.Run("GET_Ping", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/ping", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("POST_PurchaseWithoutWallet", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/presale/purchase", map[string]any{"native_amount": "1"})
		assert.Equal(t, http.StatusConflict, w.Code)

		var resp map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "rejected", resp["state"])
	})

	t.Run("POST_ConnectWallet", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/presale/wallet", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "BuyerWalletAddress1111111111", resp["address"])
		assert.Equal(t, "Buye...1111", resp["display"])
	})

	t.Run("GET_Price", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/presale/price", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Tier struct {
				UnitPrice string `json:"unit_price"`
				Label     string `json:"label"`
			} `json:"tier"`
			TokensSold int64  `json:"tokens_sold"`
			FiatRate   string `json:"fiat_rate"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "0.00003", resp.Tier.UnitPrice)
		assert.Equal(t, "Shot", resp.Tier.Label)
		assert.Equal(t, int64(0), resp.TokensSold)
		assert.Equal(t, "150", resp.FiatRate)
	})

	t.Run("GET_Status", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/presale/status", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Phase            string `json:"phase"`
			RemainingSeconds int64  `json:"remaining_seconds"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "open", resp.Phase)
		assert.Greater(t, resp.RemainingSeconds, int64(0))
	})

	t.Run("POST_Quote", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/presale/quote", map[string]any{"native_amount": "1"})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			FiatCost      string `json:"fiat_cost"`
			TokenQuantity int64  `json:"token_quantity"`
			Clamped       bool   `json:"clamped"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "150", resp.FiatCost)
		assert.Equal(t, int64(5_000_000), resp.TokenQuantity)
		assert.False(t, resp.Clamped)
	})

	t.Run("POST_Purchase", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/presale/purchase", map[string]any{"native_amount": "1"})
		assert.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			State       string `json:"state"`
			Transaction struct {
				FiatSpent      string `json:"fiat_spent"`
				TokensReceived int64  `json:"tokens_received"`
				TransferRef    string `json:"transfer_ref"`
			} `json:"transaction"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "confirmed", resp.State)
		assert.Equal(t, "150", resp.Transaction.FiatSpent)
		assert.Equal(t, int64(5_000_000), resp.Transaction.TokensReceived)
		assert.Equal(t, "sig-xyz", resp.Transaction.TransferRef)
	})

	t.Run("GET_PriceAfterPurchase", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/presale/price", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			TokensSold int64 `json:"tokens_sold"`
			Tier       struct {
				UnitPrice string `json:"unit_price"`
			} `json:"tier"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(5_000_000), resp.TokensSold)
		// One full step sold moves the price up one increment.
		assert.Equal(t, "0.000032", resp.Tier.UnitPrice)
	})

	t.Run("GET_Transactions", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/presale/transactions", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Transactions []struct {
				TokensReceived int64  `json:"tokens_received"`
				TransferRef    string `json:"transfer_ref"`
			} `json:"transactions"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Transactions, 1)
		assert.Equal(t, int64(5_000_000), resp.Transactions[0].TokensReceived)
		assert.Equal(t, "sig-xyz", resp.Transactions[0].TransferRef)
	})

	t.Run("POST_PurchaseInvalidAmount", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/presale/purchase", map[string]any{"native_amount": "10"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
