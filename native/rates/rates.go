package rates

import "math/big"

// Source supplies USD-denominated exchange rates for currency keys. Rates are
// standard-tier (18-digit) decimals. A true invalid flag means the rate is
// missing, stale, or otherwise unreliable and must not be used to authorize
// new issuance.
type Source interface {
	// RateAndInvalid returns the rate for the currency and whether it is
	// unreliable.
	RateAndInvalid(currency string) (*big.Int, bool)
	// RatesAndInvalidForCurrencies returns the rates for all supplied keys
	// and whether any of them is unreliable.
	RatesAndInvalidForCurrencies(currencies []string) ([]*big.Int, bool)
	// EffectiveValue converts an amount denominated in the source currency
	// into the destination currency at current rates.
	EffectiveValue(from string, amount *big.Int, to string) (*big.Int, bool)
}
