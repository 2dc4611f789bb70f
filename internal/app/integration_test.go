package app

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/timeflowlabs/timeflow/pkg/config"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

var (
	admin  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	usdt   = common.HexToAddress("0x000000000000000000000000000000000000005d")
	ptt    = common.HexToAddress("0x0000000000000000000000000000000000000711")
	seller = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	buyer  = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		_ = a.Shutdown()
	})
	return a
}

// TestFullTradingFlow walks the whole deployment sequence: whitelist
// collateral, configure and create a market, mint Dust, post a sell, match
// a buy, and verify the resulting balances and states.
func TestFullTradingFlow(t *testing.T) {
	a := newTestApp(t)

	// Governance: whitelist USDT at ratio 95%, fee 10%.
	err := a.Vault.Whitelist(admin, []common.Address{usdt}, []uint64{95}, []uint64{10})
	if err != nil {
		t.Fatalf("Whitelist failed: %v", err)
	}

	// Governance: configure market 0 before the factory may create it.
	if err := a.Registry.InitMarketConfig(admin, 0, usdt, common.Address{}, common.Address{}); err != nil {
		t.Fatalf("InitMarketConfig failed: %v", err)
	}
	if err := a.Registry.SetMarketConfig(admin, 0, 864000*time.Second, ptt); err != nil {
		t.Fatalf("SetMarketConfig failed: %v", err)
	}

	marketID, engine, err := a.Factory.CreateMarket()
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	if marketID != 0 {
		t.Fatalf("Expected market id 0, got %d", marketID)
	}

	// Fund both traders with USDT, then the seller mints Dust.
	_ = a.Ledger.Mint(usdt, seller, big.NewInt(100_000))
	_ = a.Ledger.Mint(usdt, buyer, big.NewInt(100_000_000))

	expected, err := a.Vault.GetExpectedAmount(usdt, big.NewInt(100), types.PriceScale)
	if err != nil {
		t.Fatalf("GetExpectedAmount failed: %v", err)
	}
	minted, err := a.Vault.MintDust(seller, usdt, big.NewInt(100), types.PriceScale)
	if err != nil {
		t.Fatalf("MintDust failed: %v", err)
	}
	if minted.Cmp(expected) != 0 {
		t.Errorf("Minted %s, expected %s", minted, expected)
	}
	if got := a.Ledger.Balance(a.Vault.DustToken(), seller); got.Cmp(minted) != 0 {
		t.Errorf("Seller Dust balance %s, want %s", got, minted)
	}
	info, _ := a.Vault.GetDustCollateralInfo(usdt)
	if info.PooledBalance.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("Pool %s, want 100", info.PooledBalance)
	}

	// Seller rests 50 Dust at 200000; buyer matches the full amount.
	sellID, err := engine.PutTrade(seller, types.Sell, big.NewInt(50), big.NewInt(200000))
	if err != nil {
		t.Fatalf("PutTrade failed: %v", err)
	}
	takerOrder, fills, err := engine.MatchTrade(buyer, types.Buy, big.NewInt(50), big.NewInt(200000), []uint64{sellID})
	if err != nil {
		t.Fatalf("MatchTrade failed: %v", err)
	}

	if takerOrder.State != types.Filled {
		t.Errorf("Taker state %s, want FILLED", takerOrder.State)
	}
	if state, _ := engine.GetOrderState(sellID); state != types.Filled {
		t.Errorf("Maker state %s, want FILLED", state)
	}
	if len(fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(fills))
	}

	cost := big.NewInt(50 * 200000)
	if got := a.Ledger.Balance(usdt, seller); got.Cmp(new(big.Int).Add(big.NewInt(100_000-100), cost)) != 0 {
		t.Errorf("Seller USDT %s after settlement", got)
	}
	if got := a.Ledger.Balance(a.Vault.DustToken(), buyer); got.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("Buyer Dust %s, want 50", got)
	}
}

// TestMarketIDsNeverReused creates two markets and checks the counter only
// moves forward.
func TestMarketIDsNeverReused(t *testing.T) {
	a := newTestApp(t)

	_ = a.Vault.Whitelist(admin, []common.Address{usdt}, []uint64{95}, []uint64{10})
	for id := uint64(0); id < 2; id++ {
		if err := a.Registry.InitMarketConfig(admin, id, usdt, common.Address{}, common.Address{}); err != nil {
			t.Fatalf("InitMarketConfig %d failed: %v", id, err)
		}
	}

	first, _, err := a.Factory.CreateMarket()
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	second, _, err := a.Factory.CreateMarket()
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	if first != 0 || second != 1 {
		t.Errorf("Expected ids 0 then 1, got %d then %d", first, second)
	}
	if a.Factory.MarketID() != 2 {
		t.Errorf("Counter %d, want 2", a.Factory.MarketID())
	}
}
