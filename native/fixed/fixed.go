package fixed

import "math/big"

// The debt subsystem works in two fixed-point tiers. Standard decimals carry
// 18 fractional digits and denominate token amounts and rates. Precise
// decimals carry 27 fractional digits and denominate debt-ownership
// fractions, where rounding error compounds across every ledger entry.
var (
	// Unit is the standard-precision representation of 1.0 (1e18).
	Unit = big.NewInt(1_000_000_000_000_000_000)
	// PreciseUnit is the high-precision representation of 1.0 (1e27).
	PreciseUnit = mustBigInt("1000000000000000000000000000")

	// conversionFactor shifts between the two tiers (1e9).
	conversionFactor = big.NewInt(1_000_000_000)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("fixed: invalid big integer constant")
	}
	return v
}

// MulDecimal multiplies two standard decimals, truncating the result.
func MulDecimal(a, b *big.Int) *big.Int {
	return mulTruncate(a, b, Unit)
}

// MulDecimalRound multiplies two standard decimals, rounding the last
// discarded digit half away from zero.
func MulDecimalRound(a, b *big.Int) *big.Int {
	return mulRound(a, b, Unit)
}

// DivDecimal divides two standard decimals, truncating the result.
func DivDecimal(a, b *big.Int) *big.Int {
	return divTruncate(a, b, Unit)
}

// DivDecimalRound divides two standard decimals, rounding the last discarded
// digit half away from zero.
func DivDecimalRound(a, b *big.Int) *big.Int {
	return divRound(a, b, Unit)
}

// MulPrecise multiplies two precise decimals, truncating the result.
func MulPrecise(a, b *big.Int) *big.Int {
	return mulTruncate(a, b, PreciseUnit)
}

// MulPreciseRound multiplies two precise decimals with half-away-from-zero
// rounding.
func MulPreciseRound(a, b *big.Int) *big.Int {
	return mulRound(a, b, PreciseUnit)
}

// DivPreciseRound divides two precise decimals with half-away-from-zero
// rounding.
func DivPreciseRound(a, b *big.Int) *big.Int {
	return divRound(a, b, PreciseUnit)
}

// DivToPrecise divides two standard decimals and promotes the quotient to a
// precise-tier fraction in one step, so the intermediate keeps all 27 digits.
func DivToPrecise(a, b *big.Int) *big.Int {
	return divRound(a, b, PreciseUnit)
}

// ToPrecise converts a standard decimal to the precise tier. The shift is
// exact, no digits are discarded.
func ToPrecise(d *big.Int) *big.Int {
	if d == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(d, conversionFactor)
}

// FromPrecise converts a precise decimal back to the standard tier, rounding
// the discarded digits half away from zero. The result is within one
// standard-precision unit of the exact value.
func FromPrecise(p *big.Int) *big.Int {
	if p == nil {
		return big.NewInt(0)
	}
	return roundedQuo(new(big.Int).Set(p), conversionFactor)
}

func mulTruncate(a, b, unit *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, unit)
}

func mulRound(a, b, unit *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	return roundedQuo(new(big.Int).Mul(a, b), unit)
}

func divTruncate(a, b, unit *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, unit)
	return numerator.Quo(numerator, b)
}

func divRound(a, b, unit *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	return roundedQuo(new(big.Int).Mul(a, unit), b)
}

// roundedQuo divides num by den rounding half away from zero. den must be
// positive; num may carry either sign. num is consumed.
func roundedQuo(num, den *big.Int) *big.Int {
	if den == nil || den.Sign() <= 0 {
		return big.NewInt(0)
	}
	half := new(big.Int).Rsh(new(big.Int).Add(den, big.NewInt(1)), 1)
	if num.Sign() < 0 {
		num.Sub(num, half)
	} else {
		num.Add(num, half)
	}
	return num.Quo(num, den)
}
