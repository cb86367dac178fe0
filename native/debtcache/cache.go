package debtcache

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"ogxd/native/fixed"
	"ogxd/native/rates"
)

var errNilSupplies = errors.New("debt cache: supply view not configured")

// SupplyView exposes the tracked synth set and per-synth supplies the cache
// recomputes from during a snapshot.
type SupplyView interface {
	CurrencyKeys() []string
	TotalSupply(currency string) *big.Int
}

// ExcludedDebtView reports debt backed outside the core pool, subtracted
// from the snapshot total.
type ExcludedDebtView interface {
	ExcludedDebt() (*big.Int, bool)
}

// Info is the trust-annotated cache read: the cached figure plus both
// reliability flags. The cache never silently returns a number it knows is
// unreliable; callers decide what to do with a stale or invalid read.
type Info struct {
	Debt      *big.Int
	Timestamp time.Time
	Invalid   bool
	Stale     bool
}

// Snapshot summarizes one full recomputation.
type Snapshot struct {
	TotalDebt    *big.Int
	ExcludedDebt *big.Int
	PerSynthDebt map[string]*big.Int
	Invalid      bool
	Timestamp    time.Time
}

// Cache keeps an expensive global-debt computation available cheaply.
// Incremental updates keep per-transaction cost O(1); a full snapshot
// recomputes everything from live supplies and rates. Staleness is derived
// from the snapshot timestamp, invalidity is an explicit flag cleared only
// by a snapshot whose rates were all reliable.
//
// The cache assumes the serialized execution model of the surrounding
// system; callers running it off a single goroutine must serialize access
// themselves.
type Cache struct {
	supplies SupplyView
	rates    rates.Source
	excluded ExcludedDebtView

	staleThreshold time.Duration
	clock          func() time.Time

	cachedDebt      *big.Int
	cachedSynthDebt map[string]*big.Int
	timestamp       time.Time
	invalid         bool
}

// New constructs a cache over the supplied collaborators. The cache starts
// invalid and stale: it must not be trusted before the first snapshot.
func New(supplies SupplyView, source rates.Source, excluded ExcludedDebtView, staleThreshold time.Duration) *Cache {
	return &Cache{
		supplies:        supplies,
		rates:           source,
		excluded:        excluded,
		staleThreshold:  staleThreshold,
		clock:           time.Now,
		cachedDebt:      big.NewInt(0),
		cachedSynthDebt: make(map[string]*big.Int),
		invalid:         true,
	}
}

// SetClock overrides the time source (primarily for deterministic testing).
func (c *Cache) SetClock(clock func() time.Time) {
	if c == nil || clock == nil {
		return
	}
	c.clock = clock
}

// TakeSnapshot recomputes the cached total and per-synth debts from live
// supplies and rates, resets the snapshot timestamp, and clears the invalid
// flag unless any required rate (or the excluded-debt read) remains
// unreliable.
func (c *Cache) TakeSnapshot() (*Snapshot, error) {
	if c == nil || c.supplies == nil || c.rates == nil {
		return nil, errNilSupplies
	}

	currencies := c.supplies.CurrencyKeys()
	currencyRates, anyInvalid := c.rates.RatesAndInvalidForCurrencies(currencies)

	perSynth := make(map[string]*big.Int, len(currencies))
	total := big.NewInt(0)
	for i, currency := range currencies {
		supply := c.supplies.TotalSupply(currency)
		value := fixed.MulDecimalRound(supply, currencyRates[i])
		perSynth[currency] = value
		total.Add(total, value)
	}

	excludedTotal := big.NewInt(0)
	if c.excluded != nil {
		value, invalid := c.excluded.ExcludedDebt()
		if value != nil {
			excludedTotal = new(big.Int).Set(value)
		}
		anyInvalid = anyInvalid || invalid
	}
	total.Sub(total, excludedTotal)
	if total.Sign() < 0 {
		total.SetInt64(0)
	}

	c.cachedDebt = total
	c.cachedSynthDebt = perSynth
	c.timestamp = c.clock()
	c.invalid = anyInvalid

	return &Snapshot{
		TotalDebt:    new(big.Int).Set(total),
		ExcludedDebt: excludedTotal,
		PerSynthDebt: clonePerSynth(perSynth),
		Invalid:      anyInvalid,
		Timestamp:    c.timestamp,
	}, nil
}

// UpdateCachedDebtWithDelta adjusts the cached total and the synth's cached
// debt by the signed delta without a full recompute. The snapshot timestamp
// and the invalid flag are deliberately untouched: an incremental update
// refreshes nothing, it only keeps the running figure consistent with the
// mutation that just happened.
func (c *Cache) UpdateCachedDebtWithDelta(currency string, delta *big.Int) {
	if c == nil || delta == nil || delta.Sign() == 0 {
		return
	}
	key := strings.TrimSpace(currency)
	synthDebt, ok := c.cachedSynthDebt[key]
	if !ok {
		synthDebt = big.NewInt(0)
	}
	c.cachedSynthDebt[key] = clampZero(new(big.Int).Add(synthDebt, delta))
	c.cachedDebt = clampZero(new(big.Int).Add(c.cachedDebt, delta))
}

// Invalidate marks the cache unreliable. Only a full snapshot clears it.
func (c *Cache) Invalidate() {
	if c == nil {
		return
	}
	c.invalid = true
}

// CurrentDebt returns the cached total and whether it is invalid.
func (c *Cache) CurrentDebt() (*big.Int, bool) {
	return new(big.Int).Set(c.cachedDebt), c.invalid
}

// CachedSynthDebt returns the cached debt attributed to one synth.
func (c *Cache) CachedSynthDebt(currency string) *big.Int {
	if debt, ok := c.cachedSynthDebt[strings.TrimSpace(currency)]; ok {
		return new(big.Int).Set(debt)
	}
	return big.NewInt(0)
}

// Stale reports whether the cache is older than the stale threshold. A cache
// that has never been snapshotted is always stale.
func (c *Cache) Stale() bool {
	if c.timestamp.IsZero() {
		return true
	}
	if c.staleThreshold <= 0 {
		return false
	}
	return c.clock().Sub(c.timestamp) > c.staleThreshold
}

// Timestamp returns the time of the last full snapshot.
func (c *Cache) Timestamp() time.Time {
	return c.timestamp
}

// Info returns the cached figure with both reliability flags.
func (c *Cache) Info() Info {
	debt, invalid := c.CurrentDebt()
	return Info{
		Debt:      debt,
		Timestamp: c.timestamp,
		Invalid:   invalid,
		Stale:     c.Stale(),
	}
}

func clampZero(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return big.NewInt(0)
	}
	return v
}

func clonePerSynth(in map[string]*big.Int) map[string]*big.Int {
	out := make(map[string]*big.Int, len(in))
	for k, v := range in {
		out[k] = new(big.Int).Set(v)
	}
	return out
}
