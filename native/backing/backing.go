package backing

import "math/big"

// WrapperView exposes the debt issued by a wrapped-asset vault that tracks
// its own collateral outside the core pool.
type WrapperView interface {
	// TotalIssued returns the USD value of synths the wrapper has issued and
	// whether its pricing is unreliable.
	TotalIssued() (*big.Int, bool)
}

// ManagerView exposes the long and short debt carried by an external
// collateral manager.
type ManagerView interface {
	TotalLong() (*big.Int, bool)
	TotalShort() (*big.Int, bool)
}

// Aggregator sums debt backed by alternative collateral. That debt must be
// excluded from the core pool figure: wrapper and manager positions are
// redeemable against their own collateral, not against pool stakers.
type Aggregator struct {
	wrappers []WrapperView
	managers []ManagerView
}

// NewAggregator constructs an aggregator over the supplied sources.
func NewAggregator(wrappers []WrapperView, managers []ManagerView) *Aggregator {
	return &Aggregator{
		wrappers: append([]WrapperView(nil), wrappers...),
		managers: append([]ManagerView(nil), managers...),
	}
}

// ExcludedDebt returns the total non-pool-backed debt and whether any
// source's pricing was unreliable. Invalidity is OR'd across sources so a
// single broken feed taints the combined figure.
func (a *Aggregator) ExcludedDebt() (*big.Int, bool) {
	total := big.NewInt(0)
	anyInvalid := false
	if a == nil {
		return total, false
	}
	for _, wrapper := range a.wrappers {
		value, invalid := wrapper.TotalIssued()
		if value != nil {
			total.Add(total, value)
		}
		anyInvalid = anyInvalid || invalid
	}
	for _, manager := range a.managers {
		long, longInvalid := manager.TotalLong()
		if long != nil {
			total.Add(total, long)
		}
		short, shortInvalid := manager.TotalShort()
		if short != nil {
			total.Add(total, short)
		}
		anyInvalid = anyInvalid || longInvalid || shortInvalid
	}
	return total, anyInvalid
}
