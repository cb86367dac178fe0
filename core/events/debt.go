package events

import (
	"math/big"
	"strings"
	"time"

	"ogxd/core/types"
	"ogxd/crypto"
)

const (
	// TypeSynthIssued is emitted when an account mints synths against its
	// collateral.
	TypeSynthIssued = "debt.issued"
	// TypeSynthBurned is emitted when an account burns synths to reduce its
	// debt.
	TypeSynthBurned = "debt.burned"
	// TypeAccountLiquidated is emitted when a flagged account has part of its
	// debt repaid by a liquidator in exchange for collateral.
	TypeAccountLiquidated = "debt.liquidated"
	// TypeDebtSnapshotTaken is emitted after a full debt-cache recomputation.
	TypeDebtSnapshotTaken = "debt.snapshot"
	// TypeSynthAdded is emitted when a synth joins the tracked set.
	TypeSynthAdded = "debt.synth_added"
	// TypeSynthRemoved is emitted when a synth leaves the tracked set.
	TypeSynthRemoved = "debt.synth_removed"
)

// SynthIssued captures a completed issuance. LedgerIndex is the debt-ledger
// entry appended by the operation so off-system observers can replay the
// pool history.
type SynthIssued struct {
	Account     crypto.Address
	Currency    string
	Amount      *big.Int
	LedgerIndex uint64
	CacheTime   time.Time
}

func (SynthIssued) EventType() string { return TypeSynthIssued }

// Event renders the structured issuance event.
func (e SynthIssued) Event() *types.Event {
	attrs := map[string]string{
		"account":     e.Account.String(),
		"currency":    normalizeCurrency(e.Currency),
		"amount":      amountString(e.Amount),
		"ledgerIndex": formatUint(e.LedgerIndex),
		"cacheTime":   formatTime(e.CacheTime),
	}
	return &types.Event{Type: TypeSynthIssued, Attributes: attrs}
}

// SynthBurned captures a completed burn, voluntary or to-target.
type SynthBurned struct {
	Account     crypto.Address
	Currency    string
	Amount      *big.Int
	ToTarget    bool
	LedgerIndex uint64
	CacheTime   time.Time
}

func (SynthBurned) EventType() string { return TypeSynthBurned }

// Event renders the structured burn event.
func (e SynthBurned) Event() *types.Event {
	attrs := map[string]string{
		"account":     e.Account.String(),
		"currency":    normalizeCurrency(e.Currency),
		"amount":      amountString(e.Amount),
		"ledgerIndex": formatUint(e.LedgerIndex),
		"cacheTime":   formatTime(e.CacheTime),
	}
	if e.ToTarget {
		attrs["toTarget"] = "true"
	}
	return &types.Event{Type: TypeSynthBurned, Attributes: attrs}
}

// AccountLiquidated captures a forced burn plus the collateral redeemed by
// the liquidator.
type AccountLiquidated struct {
	Account            crypto.Address
	Liquidator         crypto.Address
	AmountLiquidated   *big.Int
	CollateralRedeemed *big.Int
	LedgerIndex        uint64
	CacheTime          time.Time
}

func (AccountLiquidated) EventType() string { return TypeAccountLiquidated }

// Event renders the structured liquidation event.
func (e AccountLiquidated) Event() *types.Event {
	attrs := map[string]string{
		"account":            e.Account.String(),
		"liquidator":         e.Liquidator.String(),
		"amountLiquidated":   amountString(e.AmountLiquidated),
		"collateralRedeemed": amountString(e.CollateralRedeemed),
		"ledgerIndex":        formatUint(e.LedgerIndex),
		"cacheTime":          formatTime(e.CacheTime),
	}
	return &types.Event{Type: TypeAccountLiquidated, Attributes: attrs}
}

// DebtSnapshotTaken captures a full snapshot of the cached debt pool. The
// checksum is a digest of the debt ledger at the moment the snapshot was
// taken.
type DebtSnapshotTaken struct {
	SnapshotID string
	TotalDebt  *big.Int
	Invalid    bool
	Checksum   string
	Timestamp  time.Time
}

func (DebtSnapshotTaken) EventType() string { return TypeDebtSnapshotTaken }

// Event renders the structured snapshot event.
func (e DebtSnapshotTaken) Event() *types.Event {
	attrs := map[string]string{
		"snapshotId": e.SnapshotID,
		"totalDebt":  amountString(e.TotalDebt),
		"timestamp":  formatTime(e.Timestamp),
	}
	if e.Invalid {
		attrs["invalid"] = "true"
	}
	if e.Checksum != "" {
		attrs["checksum"] = e.Checksum
	}
	return &types.Event{Type: TypeDebtSnapshotTaken, Attributes: attrs}
}

// SynthAdded captures a structural change to the tracked synth set.
type SynthAdded struct {
	Currency string
}

func (SynthAdded) EventType() string { return TypeSynthAdded }

// Event renders the structured synth-added event.
func (e SynthAdded) Event() *types.Event {
	return &types.Event{
		Type:       TypeSynthAdded,
		Attributes: map[string]string{"currency": normalizeCurrency(e.Currency)},
	}
}

// SynthRemoved captures a synth leaving the tracked set.
type SynthRemoved struct {
	Currency string
}

func (SynthRemoved) EventType() string { return TypeSynthRemoved }

// Event renders the structured synth-removed event.
func (e SynthRemoved) Event() *types.Event {
	return &types.Event{
		Type:       TypeSynthRemoved,
		Attributes: map[string]string{"currency": normalizeCurrency(e.Currency)},
	}
}

func normalizeCurrency(currency string) string {
	trimmed := strings.TrimSpace(currency)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return trimmed
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func formatUint(v uint64) string {
	return new(big.Int).SetUint64(v).String()
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "0"
	}
	return new(big.Int).SetInt64(ts.UTC().Unix()).String()
}
