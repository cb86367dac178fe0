package issuer

import (
	"math/big"
	"time"

	"ogxd/native/fixed"
)

// Params groups the governance-controlled settings applied by the engine.
// Ratios and penalties are standard-tier decimals.
type Params struct {
	// BaseCurrency is the staking collateral currency (OGX).
	BaseCurrency string
	// Stablecoin is the currency issued against the debt pool (oUSD).
	Stablecoin string
	// IssuanceRatio bounds issued debt to a fraction of collateral value.
	IssuanceRatio *big.Int
	// MinStakeTime is the minimum wait between an account's last issuance
	// and a voluntary burn.
	MinStakeTime time.Duration
	// LiquidationPenalty is the bonus collateral fraction awarded to
	// liquidators on top of the repaid value.
	LiquidationPenalty *big.Int
}

// DefaultParams returns the protocol defaults: an eighth of collateral value
// issuable, a 24 hour stake lock, and a 10% liquidation penalty.
func DefaultParams() Params {
	return Params{
		BaseCurrency:       "OGX",
		Stablecoin:         "oUSD",
		IssuanceRatio:      new(big.Int).Div(fixed.Unit, big.NewInt(8)),
		MinStakeTime:       24 * time.Hour,
		LiquidationPenalty: new(big.Int).Div(fixed.Unit, big.NewInt(10)),
	}
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := p
	if p.IssuanceRatio != nil {
		clone.IssuanceRatio = new(big.Int).Set(p.IssuanceRatio)
	}
	if p.LiquidationPenalty != nil {
		clone.LiquidationPenalty = new(big.Int).Set(p.LiquidationPenalty)
	}
	return clone
}
