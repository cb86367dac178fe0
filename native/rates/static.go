package rates

import (
	"math/big"
	"strings"

	"ogxd/native/fixed"
)

// Static is an in-memory rate source with explicit per-currency invalidity.
// The daemon uses it in development mode with rates taken from the config
// file; tests use it to script oracle outages.
type Static struct {
	rates   map[string]*big.Int
	invalid map[string]bool
}

// NewStatic constructs an empty static source.
func NewStatic() *Static {
	return &Static{
		rates:   make(map[string]*big.Int),
		invalid: make(map[string]bool),
	}
}

// SetRate records a rate for the currency and marks it valid.
func (s *Static) SetRate(currency string, rate *big.Int) {
	key := normalize(currency)
	if rate == nil {
		rate = big.NewInt(0)
	}
	s.rates[key] = new(big.Int).Set(rate)
	s.invalid[key] = false
}

// SetInvalid forces the currency's rate to be reported as unreliable.
func (s *Static) SetInvalid(currency string, invalid bool) {
	s.invalid[normalize(currency)] = invalid
}

// RateAndInvalid implements Source. Unknown currencies report a zero rate
// and invalid.
func (s *Static) RateAndInvalid(currency string) (*big.Int, bool) {
	key := normalize(currency)
	rate, ok := s.rates[key]
	if !ok {
		return big.NewInt(0), true
	}
	return new(big.Int).Set(rate), s.invalid[key] || rate.Sign() == 0
}

// RatesAndInvalidForCurrencies implements Source.
func (s *Static) RatesAndInvalidForCurrencies(currencies []string) ([]*big.Int, bool) {
	out := make([]*big.Int, len(currencies))
	anyInvalid := false
	for i, currency := range currencies {
		rate, invalid := s.RateAndInvalid(currency)
		out[i] = rate
		anyInvalid = anyInvalid || invalid
	}
	return out, anyInvalid
}

// EffectiveValue implements Source: amount * rate(from) / rate(to).
func (s *Static) EffectiveValue(from string, amount *big.Int, to string) (*big.Int, bool) {
	fromRate, fromInvalid := s.RateAndInvalid(from)
	toRate, toInvalid := s.RateAndInvalid(to)
	if amount == nil {
		amount = big.NewInt(0)
	}
	if toRate.Sign() == 0 {
		return big.NewInt(0), true
	}
	value := fixed.DivDecimalRound(fixed.MulDecimalRound(amount, fromRate), toRate)
	return value, fromInvalid || toInvalid
}

func normalize(currency string) string {
	return strings.TrimSpace(currency)
}
