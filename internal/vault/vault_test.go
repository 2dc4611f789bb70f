package vault

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/timeflowlabs/timeflow/internal/ledger"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

var (
	admin     = common.HexToAddress("0x00000000000000000000000000000000000ad111")
	dustAddr  = common.HexToAddress("0x00000000000000000000000000000000000d0057")
	usdt      = common.HexToAddress("0x000000000000000000000000000000000000005d")
	unlisted  = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	depositor = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

func newTestVault(t *testing.T) (*Vault, *ledger.Ledger) {
	t.Helper()

	l := ledger.New(zap.NewNop())
	v, err := New(&Config{
		Admin:     admin,
		DustToken: dustAddr,
		Ledger:    l,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return v, l
}

func whitelistUSDT(t *testing.T, v *Vault, ratio, fee uint64) {
	t.Helper()
	err := v.Whitelist(admin, []common.Address{usdt}, []uint64{ratio}, []uint64{fee})
	if err != nil {
		t.Fatalf("Whitelist failed: %v", err)
	}
}

func TestWhitelistValidation(t *testing.T) {
	tests := []struct {
		name    string
		caller  common.Address
		tokens  []common.Address
		ratios  []uint64
		fees    []uint64
		wantErr error
	}{
		{
			name:    "length-mismatch",
			caller:  admin,
			tokens:  []common.Address{usdt},
			ratios:  []uint64{95, 90},
			fees:    []uint64{10},
			wantErr: types.ErrConfig,
		},
		{
			name:    "ratio-over-100",
			caller:  admin,
			tokens:  []common.Address{usdt},
			ratios:  []uint64{101},
			fees:    []uint64{10},
			wantErr: types.ErrConfig,
		},
		{
			name:    "fee-over-100",
			caller:  admin,
			tokens:  []common.Address{usdt},
			ratios:  []uint64{95},
			fees:    []uint64{101},
			wantErr: types.ErrConfig,
		},
		{
			name:    "non-admin",
			caller:  depositor,
			tokens:  []common.Address{usdt},
			ratios:  []uint64{95},
			fees:    []uint64{10},
			wantErr: types.ErrPermission,
		},
		{
			name:   "valid",
			caller: admin,
			tokens: []common.Address{usdt},
			ratios: []uint64{95},
			fees:   []uint64{10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newTestVault(t)
			err := v.Whitelist(tt.caller, tt.tokens, tt.ratios, tt.fees)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIsEnabled(t *testing.T) {
	v, _ := newTestVault(t)

	if v.IsEnabled(usdt) {
		t.Error("Unknown token must not be enabled")
	}

	whitelistUSDT(t, v, 95, 10)
	if !v.IsEnabled(usdt) {
		t.Error("Whitelisted token should be enabled")
	}
	if v.IsEnabled(unlisted) {
		t.Error("Unlisted token must not be enabled")
	}

	if err := v.SetEnabled(admin, usdt, false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if v.IsEnabled(usdt) {
		t.Error("Disabled token must not report enabled")
	}
}

func TestGetExpectedAmount(t *testing.T) {
	v, _ := newTestVault(t)
	whitelistUSDT(t, v, 95, 10)

	// floor(10000 * 95 * 90 / 10000) = 8550
	got, err := v.GetExpectedAmount(usdt, big.NewInt(10000), nil)
	if err != nil {
		t.Fatalf("GetExpectedAmount failed: %v", err)
	}
	if got.Cmp(big.NewInt(8550)) != 0 {
		t.Errorf("Expected 8550, got %s", got)
	}

	// Unit reference price (1e18) must not change the result.
	got, err = v.GetExpectedAmount(usdt, big.NewInt(10000), types.PriceScale)
	if err != nil {
		t.Fatalf("GetExpectedAmount with unit price failed: %v", err)
	}
	if got.Cmp(big.NewInt(8550)) != 0 {
		t.Errorf("Expected 8550 at unit price, got %s", got)
	}

	// Half reference price halves the mint.
	half := new(big.Int).Div(types.PriceScale, big.NewInt(2))
	got, err = v.GetExpectedAmount(usdt, big.NewInt(10000), half)
	if err != nil {
		t.Fatalf("GetExpectedAmount with half price failed: %v", err)
	}
	if got.Cmp(big.NewInt(4275)) != 0 {
		t.Errorf("Expected 4275 at half price, got %s", got)
	}
}

func TestGetExpectedAmountIsPure(t *testing.T) {
	v, _ := newTestVault(t)
	whitelistUSDT(t, v, 95, 10)

	first, err := v.GetExpectedAmount(usdt, big.NewInt(123456789), types.PriceScale)
	if err != nil {
		t.Fatalf("GetExpectedAmount failed: %v", err)
	}
	second, err := v.GetExpectedAmount(usdt, big.NewInt(123456789), types.PriceScale)
	if err != nil {
		t.Fatalf("GetExpectedAmount failed: %v", err)
	}
	if first.Cmp(second) != 0 {
		t.Errorf("Expected identical results, got %s and %s", first, second)
	}
}

func TestGetExpectedAmountUnknownToken(t *testing.T) {
	v, _ := newTestVault(t)
	whitelistUSDT(t, v, 95, 10)

	_, err := v.GetExpectedAmount(unlisted, big.NewInt(100), nil)
	if !errors.Is(err, types.ErrUnknownToken) {
		t.Errorf("Expected ErrUnknownToken, got %v", err)
	}

	// Disabled tokens behave like unknown ones.
	if err := v.SetEnabled(admin, usdt, false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	_, err = v.GetExpectedAmount(usdt, big.NewInt(100), nil)
	if !errors.Is(err, types.ErrUnknownToken) {
		t.Errorf("Expected ErrUnknownToken for disabled token, got %v", err)
	}
}

func TestMintDust(t *testing.T) {
	v, l := newTestVault(t)
	whitelistUSDT(t, v, 95, 10)
	_ = l.Mint(usdt, depositor, big.NewInt(100))

	expected, err := v.GetExpectedAmount(usdt, big.NewInt(100), types.PriceScale)
	if err != nil {
		t.Fatalf("GetExpectedAmount failed: %v", err)
	}
	if expected.Sign() == 0 {
		t.Fatal("Expected nonzero mint amount")
	}

	minted, err := v.MintDust(depositor, usdt, big.NewInt(100), types.PriceScale)
	if err != nil {
		t.Fatalf("MintDust failed: %v", err)
	}
	if minted.Cmp(expected) != 0 {
		t.Errorf("Expected mint %s, got %s", expected, minted)
	}

	if got := l.Balance(dustAddr, depositor); got.Cmp(expected) != 0 {
		t.Errorf("Expected Dust balance %s, got %s", expected, got)
	}
	if got := l.Balance(usdt, depositor); got.Sign() != 0 {
		t.Errorf("Expected zero USDT left, got %s", got)
	}

	info, err := v.GetDustCollateralInfo(usdt)
	if err != nil {
		t.Fatalf("GetDustCollateralInfo failed: %v", err)
	}
	if info.PooledBalance.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("Expected pooled 100, got %s", info.PooledBalance)
	}
	if info.MintRatioPct != 95 || info.FeePct != 10 {
		t.Errorf("Unexpected config in info: %+v", info.CollateralConfig)
	}
}

func TestMintDustFailures(t *testing.T) {
	v, l := newTestVault(t)
	whitelistUSDT(t, v, 95, 10)

	_, err := v.MintDust(depositor, usdt, big.NewInt(0), nil)
	if !errors.Is(err, types.ErrInsufficientDeposit) {
		t.Errorf("Expected ErrInsufficientDeposit for zero deposit, got %v", err)
	}

	_, err = v.MintDust(depositor, unlisted, big.NewInt(100), nil)
	if !errors.Is(err, types.ErrUnknownToken) {
		t.Errorf("Expected ErrUnknownToken, got %v", err)
	}

	// Depositor has no USDT: deposit transfer must fail and leave no state.
	_, err = v.MintDust(depositor, usdt, big.NewInt(100), nil)
	if !errors.Is(err, types.ErrInsufficientBalance) {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.Balance(dustAddr, depositor); got.Sign() != 0 {
		t.Errorf("Dust minted despite failed deposit: %s", got)
	}
	info, _ := v.GetDustCollateralInfo(usdt)
	if info.PooledBalance.Sign() != 0 {
		t.Errorf("Pool grew despite failed deposit: %s", info.PooledBalance)
	}
}
