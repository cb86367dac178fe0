package fixed

import (
	"math/big"
	"testing"
)

func dec(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), Unit)
}

func TestMulDecimalRoundsLastDigit(t *testing.T) {
	// 1.5 * 1.5 = 2.25
	a := new(big.Int).Div(new(big.Int).Mul(big.NewInt(3), Unit), big.NewInt(2))
	got := MulDecimalRound(a, a)
	want, _ := new(big.Int).SetString("2250000000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("unexpected product: %s", got)
	}

	// Smallest representable values: 1e-18 * 1e-18 truncates to zero but
	// rounds to zero as well (product is 5e-37 below the half threshold).
	tiny := big.NewInt(1)
	if MulDecimalRound(tiny, tiny).Sign() != 0 {
		t.Fatalf("expected underflow to zero")
	}

	// 0.5 * 1e-18 rounds up to 1e-18 while the truncating variant drops it.
	half := new(big.Int).Rsh(Unit, 1)
	if MulDecimal(half, tiny).Sign() != 0 {
		t.Fatalf("expected truncation to zero")
	}
	if MulDecimalRound(half, tiny).Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected round up to one unit")
	}
}

func TestDivDecimalRound(t *testing.T) {
	// 1 / 3 = 0.333... rounds to ...333 at the last digit.
	got := DivDecimalRound(dec(1), dec(3))
	want, _ := new(big.Int).SetString("333333333333333333", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("unexpected quotient: %s", got)
	}

	// 2 / 3 = 0.666... rounds up at the last digit.
	got = DivDecimalRound(dec(2), dec(3))
	want, _ = new(big.Int).SetString("666666666666666667", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("unexpected quotient: %s", got)
	}

	if DivDecimalRound(dec(1), big.NewInt(0)).Sign() != 0 {
		t.Fatalf("division by zero must yield zero")
	}
}

func TestNegativeRoundingIsSymmetric(t *testing.T) {
	a := new(big.Int).Neg(dec(2))
	got := DivDecimalRound(a, dec(3))
	want, _ := new(big.Int).SetString("-666666666666666667", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("unexpected quotient: %s", got)
	}
}

func TestPreciseConversions(t *testing.T) {
	d := dec(42)
	p := ToPrecise(d)
	scaled := new(big.Int).Mul(big.NewInt(42), PreciseUnit)
	if p.Cmp(scaled) != 0 {
		t.Fatalf("unexpected precise value: %s", p)
	}
	if FromPrecise(p).Cmp(d) != 0 {
		t.Fatalf("round trip mismatch")
	}

	// A precise value ending in 5e8 rounds up on conversion down.
	p = new(big.Int).Add(scaled, big.NewInt(500_000_000))
	got := FromPrecise(p)
	if got.Cmp(new(big.Int).Add(d, big.NewInt(1))) != 0 {
		t.Fatalf("expected half-up conversion, got %s", got)
	}

	// One below the half threshold rounds down.
	p = new(big.Int).Add(scaled, big.NewInt(499_999_999))
	if FromPrecise(p).Cmp(d) != 0 {
		t.Fatalf("expected round down")
	}
}

func TestDivToPrecise(t *testing.T) {
	// 1 / 2 in standard inputs yields 0.5 at precise scale.
	got := DivToPrecise(dec(1), dec(2))
	want := new(big.Int).Rsh(PreciseUnit, 1)
	if got.Cmp(want) != 0 {
		t.Fatalf("unexpected fraction: %s", got)
	}

	// The full 27 digits survive: 1 / 7 at precise scale.
	got = DivToPrecise(dec(1), dec(7))
	want, _ = new(big.Int).SetString("142857142857142857142857143", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("unexpected fraction: %s", got)
	}
}

func TestConversionLosesAtMostOneUnit(t *testing.T) {
	values := []string{
		"1",
		"999999999",
		"123456789123456789123456789",
		"1000000000000000000000000001",
	}
	for _, raw := range values {
		p, _ := new(big.Int).SetString(raw, 10)
		back := ToPrecise(FromPrecise(p))
		diff := new(big.Int).Abs(new(big.Int).Sub(back, p))
		// Half of the conversion factor either way.
		if diff.Cmp(big.NewInt(500_000_000)) > 0 {
			t.Fatalf("conversion drift %s for %s", diff, raw)
		}
	}
}
