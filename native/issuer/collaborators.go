package issuer

import (
	"errors"
	"math/big"

	"ogxd/crypto"
)

// StakeView exposes the staked collateral backing each account's issuance,
// and the transfer primitive liquidation uses to move seized collateral.
type StakeView interface {
	CollateralOf(account crypto.Address) *big.Int
	TransferCollateral(from, to crypto.Address, amount *big.Int) error
}

// Settler resolves pending exchange entries for an account before a
// voluntary burn, so stale in-flight amounts cannot corrupt the debt figure.
// Implementations return ErrWaitingPeriodOwing while entries cannot be
// settled yet.
type Settler interface {
	Settle(account crypto.Address, currency string) (reclaimed, refunded *big.Int, numEntries int, err error)
}

// LiquidationRegistry tracks which accounts are flagged for liquidation.
// Flagging policy (collateralization thresholds, grace periods) lives with
// the implementation, not the engine.
type LiquidationRegistry interface {
	IsFlagged(account crypto.Address) bool
	RemoveFlag(account crypto.Address)
}

// ErrWaitingPeriodOwing is returned by settlers while the account still has
// exchange entries inside their waiting period.
var ErrWaitingPeriodOwing = errors.New("issuer engine: exchange waiting period owing")

var (
	errCollateralUnderflow = errors.New("issuer engine: insufficient collateral for transfer")
	errNilCollateralAmount = errors.New("issuer engine: collateral amount must be positive")
)

// CollateralBook is a map-backed StakeView used by the daemon's development
// mode and by tests.
type CollateralBook struct {
	balances map[string]*big.Int
}

// NewCollateralBook constructs an empty collateral book.
func NewCollateralBook() *CollateralBook {
	return &CollateralBook{balances: make(map[string]*big.Int)}
}

// SetCollateral assigns an account's staked collateral.
func (b *CollateralBook) SetCollateral(account crypto.Address, amount *big.Int) {
	if amount == nil {
		amount = big.NewInt(0)
	}
	b.balances[string(account.Bytes())] = new(big.Int).Set(amount)
}

// CollateralOf implements StakeView.
func (b *CollateralBook) CollateralOf(account crypto.Address) *big.Int {
	if balance, ok := b.balances[string(account.Bytes())]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

// TransferCollateral implements StakeView.
func (b *CollateralBook) TransferCollateral(from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errNilCollateralAmount
	}
	fromBalance := b.CollateralOf(from)
	if fromBalance.Cmp(amount) < 0 {
		return errCollateralUnderflow
	}
	b.balances[string(from.Bytes())] = fromBalance.Sub(fromBalance, amount)
	b.balances[string(to.Bytes())] = new(big.Int).Add(b.CollateralOf(to), amount)
	return nil
}

// NoopSettler reports no pending entries for any account.
type NoopSettler struct{}

// Settle implements Settler.
func (NoopSettler) Settle(crypto.Address, string) (*big.Int, *big.Int, int, error) {
	return big.NewInt(0), big.NewInt(0), 0, nil
}

// FlagRegistry is a map-backed LiquidationRegistry.
type FlagRegistry struct {
	flags map[string]bool
}

// NewFlagRegistry constructs an empty registry.
func NewFlagRegistry() *FlagRegistry {
	return &FlagRegistry{flags: make(map[string]bool)}
}

// Flag marks the account as open to liquidation.
func (r *FlagRegistry) Flag(account crypto.Address) {
	r.flags[string(account.Bytes())] = true
}

// IsFlagged implements LiquidationRegistry.
func (r *FlagRegistry) IsFlagged(account crypto.Address) bool {
	return r.flags[string(account.Bytes())]
}

// RemoveFlag implements LiquidationRegistry.
func (r *FlagRegistry) RemoveFlag(account crypto.Address) {
	delete(r.flags, string(account.Bytes()))
}
