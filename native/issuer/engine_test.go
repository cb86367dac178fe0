package issuer

import (
	"math/big"
	"testing"
	"time"

	"ogxd/core/events"
	"ogxd/crypto"
	"ogxd/native/debt"
	"ogxd/native/debtcache"
	"ogxd/native/fixed"
	"ogxd/native/rates"
	"ogxd/native/synth"
)

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func (c *captureEmitter) last(t *testing.T) events.Event {
	t.Helper()
	if len(c.events) == 0 {
		t.Fatalf("no events emitted")
	}
	return c.events[len(c.events)-1]
}

type zeroExcluded struct{}

func (zeroExcluded) ExcludedDebt() (*big.Int, bool) { return big.NewInt(0), false }

type failingSettler struct {
	err error
}

func (s failingSettler) Settle(crypto.Address, string) (*big.Int, *big.Int, int, error) {
	return nil, nil, 0, s.err
}

type harness struct {
	engine     *Engine
	ledger     *debt.Ledger
	cache      *debtcache.Cache
	source     *rates.Static
	registry   *synth.Registry
	collateral *CollateralBook
	flags      *FlagRegistry
	emitter    *captureEmitter
	now        *time.Time
}

func dec(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), fixed.Unit)
}

func addr(seed byte) crypto.Address {
	raw := make([]byte, 20)
	raw[0] = seed
	return crypto.NewAddress(crypto.OGXPrefix, raw)
}

// newHarness wires an engine over in-memory collaborators: OGX at $2, oUSD
// at $1, a 20% issuance ratio, and a fresh valid cache snapshot.
func newHarness(t *testing.T) *harness {
	t.Helper()

	registry := synth.NewRegistry()
	if err := registry.Add(synth.NewToken("oUSD", "Synthetic USD")); err != nil {
		t.Fatalf("add oUSD: %v", err)
	}

	source := rates.NewStatic()
	source.SetRate("OGX", dec(2))
	source.SetRate("oUSD", fixed.Unit)

	cache := debtcache.New(registry, source, zeroExcluded{}, time.Hour)
	registry.SetInvalidator(cache)

	ledger := debt.NewLedger()
	collateral := NewCollateralBook()

	params := DefaultParams()
	params.IssuanceRatio = new(big.Int).Div(fixed.Unit, big.NewInt(5))

	engine := NewEngine(ledger, cache, source, registry, collateral, params)

	flags := NewFlagRegistry()
	engine.SetLiquidations(flags)

	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)

	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	engine.SetClock(clock)
	cache.SetClock(clock)

	if _, err := cache.TakeSnapshot(); err != nil {
		t.Fatalf("initial snapshot: %v", err)
	}

	return &harness{
		engine:     engine,
		ledger:     ledger,
		cache:      cache,
		source:     source,
		registry:   registry,
		collateral: collateral,
		flags:      flags,
		emitter:    emitter,
		now:        &now,
	}
}

func (h *harness) token(t *testing.T) *synth.Token {
	t.Helper()
	token, err := h.registry.Token("oUSD")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func (h *harness) advance(d time.Duration) {
	*h.now = h.now.Add(d)
}

func closeTo(a, b, tolerance *big.Int) bool {
	diff := new(big.Int).Sub(a, b)
	return diff.CmpAbs(tolerance) <= 0
}
