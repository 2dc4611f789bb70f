package httpserver

import (
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/timeflowlabs/timeflow/internal/factory"
	"github.com/timeflowlabs/timeflow/internal/ledger"
	"github.com/timeflowlabs/timeflow/internal/registry"
	"github.com/timeflowlabs/timeflow/internal/vault"
	"github.com/timeflowlabs/timeflow/pkg/healthprobe"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000ad111")
	dustAddr = common.HexToAddress("0x00000000000000000000000000000000000d0057")
	usdt     = common.HexToAddress("0x000000000000000000000000000000000000005d")
	trader   = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
)

func newTestServer(t *testing.T) (*httptest.Server, *factory.Factory) {
	t.Helper()

	logger := zap.NewNop()
	l := ledger.New(logger)
	v, err := vault.New(&vault.Config{Admin: admin, DustToken: dustAddr, Ledger: l, Logger: logger})
	if err != nil {
		t.Fatalf("vault.New failed: %v", err)
	}
	if err := v.Whitelist(admin, []common.Address{usdt}, []uint64{95}, []uint64{10}); err != nil {
		t.Fatalf("Whitelist failed: %v", err)
	}
	r, err := registry.New(&registry.Config{Admin: admin, Vault: v, Logger: logger})
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	f, err := factory.New(&factory.Config{Registry: r, Vault: v, Ledger: l, Logger: logger})
	if err != nil {
		t.Fatalf("factory.New failed: %v", err)
	}

	if err := r.InitMarketConfig(admin, 0, usdt, common.Address{}, common.Address{}); err != nil {
		t.Fatalf("InitMarketConfig failed: %v", err)
	}
	if err := r.SetMarketConfig(admin, 0, 240*time.Hour, common.Address{}); err != nil {
		t.Fatalf("SetMarketConfig failed: %v", err)
	}
	if _, _, err := f.CreateMarket(); err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}

	hc := healthprobe.New()
	hc.SetReady(true)

	srv := New(&Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: hc,
		Registry:      r,
		Factory:       f,
		Vault:         v,
	})

	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)

	// One resting order so the order endpoints have something to serve.
	engine, _, _ := f.GetMarketInfo(0)
	_ = l.Mint(dustAddr, trader, big.NewInt(1000))
	if _, err := engine.PutTrade(trader, types.Sell, big.NewInt(50), big.NewInt(200000)); err != nil {
		t.Fatalf("PutTrade failed: %v", err)
	}

	return ts, f
}

func getJSON(t *testing.T, url string, wantStatus int, out interface{}) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	ts, _ := newTestServer(t)

	getJSON(t, ts.URL+"/health", http.StatusOK, nil)
	getJSON(t, ts.URL+"/ready", http.StatusOK, nil)
}

func TestMarketIDEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var resp MarketIDResponse
	getJSON(t, ts.URL+"/api/markets/current-id", http.StatusOK, &resp)
	if resp.MarketID != 1 {
		t.Errorf("Expected counter 1, got %d", resp.MarketID)
	}
}

func TestMarketConfigEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var cfg types.MarketConfig
	getJSON(t, ts.URL+"/api/markets/0/config", http.StatusOK, &cfg)
	if !cfg.Initialized {
		t.Error("Expected initialized config")
	}
	if cfg.CollateralToken != usdt {
		t.Errorf("Expected collateral %s, got %s", usdt.Hex(), cfg.CollateralToken.Hex())
	}

	// Unknown ids return the zero-value sentinel, not an error.
	var zero types.MarketConfig
	getJSON(t, ts.URL+"/api/markets/99/config", http.StatusOK, &zero)
	if zero.Initialized {
		t.Error("Expected zero-value config for unknown id")
	}
}

func TestOrderEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	var order types.Order
	getJSON(t, ts.URL+"/api/markets/0/orders/0", http.StatusOK, &order)
	if order.Side != types.Sell {
		t.Errorf("Expected sell order, got %s", order.Side)
	}

	var state OrderStateResponse
	getJSON(t, ts.URL+"/api/markets/0/orders/0/state", http.StatusOK, &state)
	if state.State != "OPEN" {
		t.Errorf("Expected OPEN, got %s", state.State)
	}

	var orders []types.Order
	getJSON(t, ts.URL+"/api/markets/0/orders", http.StatusOK, &orders)
	if len(orders) != 1 {
		t.Errorf("Expected 1 order, got %d", len(orders))
	}

	getJSON(t, ts.URL+"/api/markets/0/orders/42", http.StatusNotFound, nil)
	getJSON(t, ts.URL+"/api/markets/9/orders/0", http.StatusNotFound, nil)
	getJSON(t, ts.URL+"/api/markets/abc/orders/0", http.StatusBadRequest, nil)
}

func TestCollateralEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var info types.CollateralInfo
	getJSON(t, ts.URL+"/api/collateral/"+usdt.Hex(), http.StatusOK, &info)
	if info.MintRatioPct != 95 || info.FeePct != 10 {
		t.Errorf("Unexpected collateral info: %+v", info)
	}

	other := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	getJSON(t, ts.URL+"/api/collateral/"+other.Hex(), http.StatusNotFound, nil)
	getJSON(t, ts.URL+"/api/collateral/not-an-address", http.StatusBadRequest, nil)
}
