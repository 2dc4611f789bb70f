package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// Ledger holds free and locked balances per (token, owner). It backs both
// the collateral tokens and the Dust synthetic unit; the vault and every
// market engine share one instance so settlement moves funds in place.
//
// Every mutating method validates before touching state, so a failed call
// leaves the ledger exactly as it was. A single mutex serializes writers
// (the engine assumes one state-mutating call at a time).
type Ledger struct {
	mu     sync.RWMutex
	free   map[common.Address]map[common.Address]*big.Int // token -> owner -> balance
	locked map[common.Address]map[common.Address]*big.Int
	logger *zap.Logger
}

// New creates an empty ledger.
func New(logger *zap.Logger) *Ledger {
	return &Ledger{
		free:   make(map[common.Address]map[common.Address]*big.Int),
		locked: make(map[common.Address]map[common.Address]*big.Int),
		logger: logger,
	}
}

func get(m map[common.Address]map[common.Address]*big.Int, token, owner common.Address) *big.Int {
	if byOwner, ok := m[token]; ok {
		if bal, ok := byOwner[owner]; ok {
			return bal
		}
	}
	return big.NewInt(0)
}

func set(m map[common.Address]map[common.Address]*big.Int, token, owner common.Address, v *big.Int) {
	byOwner, ok := m[token]
	if !ok {
		byOwner = make(map[common.Address]*big.Int)
		m[token] = byOwner
	}
	byOwner[owner] = v
}

// Balance returns the owner's free balance of token.
func (l *Ledger) Balance(token, owner common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(get(l.free, token, owner))
}

// Locked returns the owner's locked balance of token.
func (l *Ledger) Locked(token, owner common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(get(l.locked, token, owner))
}

// Mint credits freshly created units of token to owner's free balance.
// Used by the vault for Dust issuance and by tests to fund accounts.
func (l *Ledger) Mint(token, owner common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint amount must be positive: %w", types.ErrInsufficientDeposit)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	set(l.free, token, owner, new(big.Int).Add(get(l.free, token, owner), amount))

	l.logger.Debug("ledger-mint",
		zap.String("token", token.Hex()),
		zap.String("owner", owner.Hex()),
		zap.String("amount", amount.String()))
	return nil
}

// TransferIn debits amount of token from owner's free balance into external
// custody (the vault's pool). Fails with ErrInsufficientBalance if the free
// balance is short.
func (l *Ledger) TransferIn(token, owner common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debitFree(token, owner, amount)
}

// TransferOut credits amount of token back to owner's free balance from
// external custody.
func (l *Ledger) TransferOut(token, owner common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	set(l.free, token, owner, new(big.Int).Add(get(l.free, token, owner), amount))
	return nil
}

// Lock moves amount of token from owner's free balance to the locked bucket.
func (l *Ledger) Lock(token, owner common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debitFree(token, owner, amount); err != nil {
		return err
	}
	set(l.locked, token, owner, new(big.Int).Add(get(l.locked, token, owner), amount))
	return nil
}

// Release moves amount of token from owner's locked bucket back to free.
func (l *Ledger) Release(token, owner common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debitLocked(token, owner, amount); err != nil {
		return err
	}
	set(l.free, token, owner, new(big.Int).Add(get(l.free, token, owner), amount))
	return nil
}

// SpendLocked consumes amount of token from the maker's locked bucket and
// credits it to the counterparty's free balance. Settlement primitive.
func (l *Ledger) SpendLocked(token, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debitLocked(token, from, amount); err != nil {
		return err
	}
	set(l.free, token, to, new(big.Int).Add(get(l.free, token, to), amount))
	return nil
}

// Transfer moves amount of token between free balances.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debitFree(token, from, amount); err != nil {
		return err
	}
	set(l.free, token, to, new(big.Int).Add(get(l.free, token, to), amount))
	return nil
}

func (l *Ledger) debitFree(token, owner common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	bal := get(l.free, token, owner)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("free balance %s < %s for %s: %w",
			bal, amount, owner.Hex(), types.ErrInsufficientBalance)
	}
	set(l.free, token, owner, new(big.Int).Sub(bal, amount))
	return nil
}

func (l *Ledger) debitLocked(token, owner common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	bal := get(l.locked, token, owner)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("locked balance %s < %s for %s: %w",
			bal, amount, owner.Hex(), types.ErrInsufficientBalance)
	}
	set(l.locked, token, owner, new(big.Int).Sub(bal, amount))
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("negative or nil amount: %w", types.ErrInvalidOrder)
	}
	return nil
}
