package issuer

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"ogxd/core/events"
	"ogxd/crypto"
	"ogxd/native/debt"
	"ogxd/native/debtcache"
	"ogxd/native/fixed"
	"ogxd/native/rates"
	"ogxd/native/synth"
)

var (
	// ErrInvalidRate blocks operations whose pricing inputs are unreliable.
	// It never blocks the plain burn path: restricting debt reduction on bad
	// data would trap accounts the other way.
	ErrInvalidRate = errors.New("issuer engine: required exchange rate is invalid")
	// ErrInsufficientCollateral rejects issuance beyond collateral capacity.
	ErrInsufficientCollateral = errors.New("issuer engine: issuance exceeds collateral capacity")
	// ErrMinStakeTimeNotReached rejects voluntary burns before the stake
	// lock has elapsed.
	ErrMinStakeTimeNotReached = errors.New("issuer engine: minimum stake time not reached")
	// ErrNoDebt signals the account has nothing to burn.
	ErrNoDebt = errors.New("issuer engine: no outstanding debt")
	// ErrNothingToBurn signals a to-target burn found the account already at
	// or below its target ratio.
	ErrNothingToBurn = errors.New("issuer engine: debt already at or below target")
	// ErrNotLiquidatable rejects liquidation of unflagged accounts.
	ErrNotLiquidatable = errors.New("issuer engine: account not flagged for liquidation")
	// ErrNothingToLiquidate signals a flagged account with no debt or no
	// seizable collateral.
	ErrNothingToLiquidate = errors.New("issuer engine: nothing to liquidate")
	// ErrInsufficientBalance rejects burns beyond the caller's synth
	// balance.
	ErrInsufficientBalance = errors.New("issuer engine: insufficient synth balance")

	errNilCollaborator = errors.New("issuer engine: collaborators not configured")
	errInvalidAmount   = errors.New("issuer engine: amount must be positive")
)

// Engine sequences issuance, burning and liquidation against the debt
// ledger and cache. It holds typed handles to its collaborators, resolved
// once at construction; it keeps no pool state of its own beyond the
// per-account last-issue timestamps backing the stake lock.
//
// Every operation validates fully before its first mutation, so a rejected
// call leaves no partial ledger entries or cache deltas behind.
type Engine struct {
	ledger       *debt.Ledger
	cache        *debtcache.Cache
	rates        rates.Source
	synths       *synth.Registry
	stake        StakeView
	settler      Settler
	liquidations LiquidationRegistry
	emitter      events.Emitter
	clock        func() time.Time
	params       Params

	lastIssue map[string]time.Time
}

// NewEngine constructs an engine over the supplied core collaborators.
// Optional collaborators default to no-ops and can be wired with the
// setters below.
func NewEngine(ledger *debt.Ledger, cache *debtcache.Cache, source rates.Source, registry *synth.Registry, stake StakeView, params Params) *Engine {
	return &Engine{
		ledger:    ledger,
		cache:     cache,
		rates:     source,
		synths:    registry,
		stake:     stake,
		settler:   NoopSettler{},
		emitter:   events.NoopEmitter{},
		clock:     time.Now,
		params:    params.Clone(),
		lastIssue: make(map[string]time.Time),
	}
}

// SetEmitter wires the event sink for mutating operations.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetSettler wires the exchange settlement collaborator.
func (e *Engine) SetSettler(settler Settler) {
	if e == nil {
		return
	}
	if settler == nil {
		settler = NoopSettler{}
	}
	e.settler = settler
}

// SetLiquidations wires the liquidation flag registry.
func (e *Engine) SetLiquidations(registry LiquidationRegistry) {
	if e == nil {
		return
	}
	e.liquidations = registry
}

// SetClock overrides the time source (primarily for deterministic testing).
func (e *Engine) SetClock(clock func() time.Time) {
	if e == nil || clock == nil {
		return
	}
	e.clock = clock
}

// Issue mints the requested stablecoin amount against the account's
// collateral.
func (e *Engine) Issue(account crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	return e.issue(account, amount, false)
}

// IssueMax mints the account's full remaining issuable capacity.
func (e *Engine) IssueMax(account crypto.Address) error {
	return e.issue(account, nil, true)
}

func (e *Engine) issue(account crypto.Address, amount *big.Int, issueMax bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	token, err := e.synths.Token(e.params.Stablecoin)
	if err != nil {
		return err
	}

	maxIssuable, rateInvalid := e.maxIssuable(account)
	if rateInvalid {
		return ErrInvalidRate
	}
	total, cacheInvalid := e.cache.CurrentDebt()
	if cacheInvalid {
		return ErrInvalidRate
	}

	existing := e.ledger.DebtBalanceOf(account, total)
	remaining := new(big.Int).Sub(maxIssuable, existing)
	if remaining.Sign() <= 0 {
		return ErrInsufficientCollateral
	}
	if issueMax {
		amount = remaining
	} else if amount.Cmp(remaining) > 0 {
		return ErrInsufficientCollateral
	}

	index, err := e.ledger.RecordDebtChange(account, amount, existing, total)
	if err != nil {
		return err
	}
	e.cache.UpdateCachedDebtWithDelta(e.params.Stablecoin, amount)
	if err := token.Issue(account, amount); err != nil {
		return err
	}
	e.lastIssue[accountKey(account)] = e.clock()

	e.emitter.Emit(events.SynthIssued{
		Account:     account,
		Currency:    e.params.Stablecoin,
		Amount:      new(big.Int).Set(amount),
		LedgerIndex: index,
		CacheTime:   e.cache.Timestamp(),
	})
	return nil
}

// Burn destroys up to amount of the account's stablecoin to reduce its debt.
// Burning more than owed clamps to the existing debt. The stake lock applies
// and pending exchange entries must settle first; rate invalidity does not
// block this path.
func (e *Engine) Burn(account crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.checkStakeTime(account); err != nil {
		return err
	}
	return e.burn(account, amount, false)
}

// BurnToTarget burns exactly enough debt to restore the account to its
// target issuance ratio. The stake lock does not apply, but the collateral
// rate is required to compute the target, so an unreliable rate rejects the
// call.
func (e *Engine) BurnToTarget(account crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	maxIssuable, rateInvalid := e.maxIssuable(account)
	if rateInvalid {
		return ErrInvalidRate
	}

	total, _ := e.cache.CurrentDebt()
	existing := e.ledger.DebtBalanceOf(account, total)
	if existing.Sign() == 0 {
		return ErrNoDebt
	}
	amount := new(big.Int).Sub(existing, maxIssuable)
	if amount.Sign() <= 0 {
		return ErrNothingToBurn
	}
	return e.burn(account, amount, true)
}

func (e *Engine) burn(account crypto.Address, amount *big.Int, toTarget bool) error {
	token, err := e.synths.Token(e.params.Stablecoin)
	if err != nil {
		return err
	}
	if _, _, _, err := e.settler.Settle(account, e.params.Stablecoin); err != nil {
		return fmt.Errorf("settle before burn: %w", err)
	}

	total, _ := e.cache.CurrentDebt()
	existing := e.ledger.DebtBalanceOf(account, total)
	if existing.Sign() == 0 {
		return ErrNoDebt
	}

	burnAmount := new(big.Int).Set(amount)
	if burnAmount.Cmp(existing) > 0 {
		burnAmount.Set(existing)
	}
	if balance := token.BalanceOf(account); burnAmount.Cmp(balance) > 0 {
		burnAmount.Set(balance)
	}
	if burnAmount.Sign() <= 0 {
		return ErrInsufficientBalance
	}

	index, err := e.ledger.RecordDebtChange(account, new(big.Int).Neg(burnAmount), existing, total)
	if err != nil {
		return err
	}
	e.cache.UpdateCachedDebtWithDelta(e.params.Stablecoin, new(big.Int).Neg(burnAmount))
	if err := token.Burn(account, burnAmount); err != nil {
		return err
	}
	e.removeFlagIfRestored(account)

	e.emitter.Emit(events.SynthBurned{
		Account:     account,
		Currency:    e.params.Stablecoin,
		Amount:      burnAmount,
		ToTarget:    toTarget,
		LedgerIndex: index,
		CacheTime:   e.cache.Timestamp(),
	})
	return nil
}

// Liquidate lets the liquidator repay part of a flagged account's debt in
// exchange for collateral plus the liquidation penalty. The seized amount is
// capped at the account's actual collateral; when capped, the repaid debt is
// reduced proportionally. The collateral rate must be valid since seizure
// converts debt into collateral at that rate.
func (e *Engine) Liquidate(account crypto.Address, repayAmount *big.Int, liquidator crypto.Address) error {
	if repayAmount == nil || repayAmount.Sign() <= 0 {
		return errInvalidAmount
	}
	if err := e.ready(); err != nil {
		return err
	}
	if e.liquidations == nil || !e.liquidations.IsFlagged(account) {
		return ErrNotLiquidatable
	}
	token, err := e.synths.Token(e.params.Stablecoin)
	if err != nil {
		return err
	}
	if _, invalid := e.rates.RateAndInvalid(e.params.BaseCurrency); invalid {
		return ErrInvalidRate
	}

	total, _ := e.cache.CurrentDebt()
	existing := e.ledger.DebtBalanceOf(account, total)
	if existing.Sign() == 0 {
		return ErrNothingToLiquidate
	}

	amountToLiquidate := new(big.Int).Set(repayAmount)
	if amountToLiquidate.Cmp(existing) > 0 {
		amountToLiquidate.Set(existing)
	}

	// Collateral owed for the repaid value, penalty included.
	penaltyUnit := new(big.Int).Add(fixed.Unit, e.params.LiquidationPenalty)
	repaidInCollateral, _ := e.rates.EffectiveValue(e.params.Stablecoin, amountToLiquidate, e.params.BaseCurrency)
	collateralToSeize := fixed.MulDecimalRound(repaidInCollateral, penaltyUnit)

	collateral := e.stake.CollateralOf(account)
	if collateralToSeize.Cmp(collateral) > 0 {
		collateralToSeize = new(big.Int).Set(collateral)
		collateralValue, _ := e.rates.EffectiveValue(e.params.BaseCurrency, collateral, e.params.Stablecoin)
		amountToLiquidate = fixed.DivDecimalRound(collateralValue, penaltyUnit)
		if amountToLiquidate.Cmp(existing) > 0 {
			amountToLiquidate.Set(existing)
		}
	}
	if amountToLiquidate.Sign() <= 0 || collateralToSeize.Sign() <= 0 {
		return ErrNothingToLiquidate
	}
	if token.BalanceOf(liquidator).Cmp(amountToLiquidate) < 0 {
		return ErrInsufficientBalance
	}

	index, err := e.ledger.RecordDebtChange(account, new(big.Int).Neg(amountToLiquidate), existing, total)
	if err != nil {
		return err
	}
	e.cache.UpdateCachedDebtWithDelta(e.params.Stablecoin, new(big.Int).Neg(amountToLiquidate))
	if err := token.Burn(liquidator, amountToLiquidate); err != nil {
		return err
	}
	if err := e.stake.TransferCollateral(account, liquidator, collateralToSeize); err != nil {
		return err
	}
	e.removeFlagIfRestored(account)

	e.emitter.Emit(events.AccountLiquidated{
		Account:            account,
		Liquidator:         liquidator,
		AmountLiquidated:   amountToLiquidate,
		CollateralRedeemed: collateralToSeize,
		LedgerIndex:        index,
		CacheTime:          e.cache.Timestamp(),
	})
	return nil
}

// TakeSnapshot triggers a full debt-cache recomputation and emits the audit
// event carrying the snapshot ID and the ledger checksum.
func (e *Engine) TakeSnapshot() (*debtcache.Snapshot, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	snap, err := e.cache.TakeSnapshot()
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.DebtSnapshotTaken{
		SnapshotID: uuid.NewString(),
		TotalDebt:  snap.TotalDebt,
		Invalid:    snap.Invalid,
		Checksum:   e.ledger.Checksum(),
		Timestamp:  snap.Timestamp,
	})
	return snap, nil
}

// DebtBalanceOf returns the account's current absolute debt against the
// cached pool total.
func (e *Engine) DebtBalanceOf(account crypto.Address) *big.Int {
	if e == nil || e.ledger == nil || e.cache == nil {
		return big.NewInt(0)
	}
	total, _ := e.cache.CurrentDebt()
	return e.ledger.DebtBalanceOf(account, total)
}

// RemainingIssuable returns the stablecoin amount the account may still
// issue, and whether the pricing inputs were unreliable.
func (e *Engine) RemainingIssuable(account crypto.Address) (*big.Int, bool) {
	maxIssuable, rateInvalid := e.maxIssuable(account)
	total, cacheInvalid := e.cache.CurrentDebt()
	existing := e.ledger.DebtBalanceOf(account, total)
	remaining := new(big.Int).Sub(maxIssuable, existing)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	return remaining, rateInvalid || cacheInvalid
}

// MaxIssuable returns the account's total issuable capacity at current
// rates.
func (e *Engine) MaxIssuable(account crypto.Address) (*big.Int, bool) {
	return e.maxIssuable(account)
}

// CollateralisationRatio returns debt over collateral value as a standard
// decimal, and whether the pricing inputs were unreliable. An account
// without collateral but with debt reports a zero-collateral ratio of zero;
// flagging such accounts is the liquidation registry's concern.
func (e *Engine) CollateralisationRatio(account crypto.Address) (*big.Int, bool) {
	collateral := e.stake.CollateralOf(account)
	value, invalid := e.rates.EffectiveValue(e.params.BaseCurrency, collateral, e.params.Stablecoin)
	debtBalance := e.DebtBalanceOf(account)
	if value.Sign() == 0 {
		return big.NewInt(0), invalid
	}
	return fixed.DivDecimalRound(debtBalance, value), invalid
}

// LastIssueTime returns when the account last issued, for stake-lock
// inspection.
func (e *Engine) LastIssueTime(account crypto.Address) (time.Time, bool) {
	ts, ok := e.lastIssue[accountKey(account)]
	return ts, ok
}

func (e *Engine) maxIssuable(account crypto.Address) (*big.Int, bool) {
	collateral := e.stake.CollateralOf(account)
	value, invalid := e.rates.EffectiveValue(e.params.BaseCurrency, collateral, e.params.Stablecoin)
	return fixed.MulDecimalRound(value, e.params.IssuanceRatio), invalid
}

func (e *Engine) checkStakeTime(account crypto.Address) error {
	if e.params.MinStakeTime <= 0 {
		return nil
	}
	last, ok := e.lastIssue[accountKey(account)]
	if !ok {
		return nil
	}
	if e.clock().Sub(last) < e.params.MinStakeTime {
		return ErrMinStakeTimeNotReached
	}
	return nil
}

func (e *Engine) removeFlagIfRestored(account crypto.Address) {
	if e.liquidations == nil || !e.liquidations.IsFlagged(account) {
		return
	}
	maxIssuable, invalid := e.maxIssuable(account)
	if invalid {
		return
	}
	if e.DebtBalanceOf(account).Cmp(maxIssuable) <= 0 {
		e.liquidations.RemoveFlag(account)
	}
}

func (e *Engine) ready() error {
	if e == nil || e.ledger == nil || e.cache == nil || e.rates == nil || e.synths == nil || e.stake == nil {
		return errNilCollaborator
	}
	return nil
}

func accountKey(account crypto.Address) string {
	return string(account.Bytes())
}
