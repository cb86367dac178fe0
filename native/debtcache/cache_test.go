package debtcache

import (
	"math/big"
	"testing"
	"time"

	"ogxd/crypto"
	"ogxd/native/fixed"
	"ogxd/native/rates"
	"ogxd/native/synth"
)

type stubExcluded struct {
	value   *big.Int
	invalid bool
}

func (s *stubExcluded) ExcludedDebt() (*big.Int, bool) { return s.value, s.invalid }

func dec(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), fixed.Unit)
}

func makeAddress(seed byte) crypto.Address {
	raw := make([]byte, 20)
	raw[0] = seed
	return crypto.NewAddress(crypto.OGXPrefix, raw)
}

func fixture(t *testing.T) (*Cache, *synth.Registry, *rates.Static, *stubExcluded, *time.Time) {
	t.Helper()
	registry := synth.NewRegistry()
	if err := registry.Add(synth.NewToken("oUSD", "Synthetic USD")); err != nil {
		t.Fatalf("add oUSD: %v", err)
	}
	if err := registry.Add(synth.NewToken("oBTC", "Synthetic Bitcoin")); err != nil {
		t.Fatalf("add oBTC: %v", err)
	}

	source := rates.NewStatic()
	source.SetRate("oUSD", fixed.Unit)
	source.SetRate("oBTC", dec(20_000))

	excluded := &stubExcluded{value: big.NewInt(0)}
	cache := New(registry, source, excluded, time.Hour)
	registry.SetInvalidator(cache)

	now := time.Unix(1_700_000_000, 0)
	cache.SetClock(func() time.Time { return now })
	return cache, registry, source, excluded, &now
}

func mint(t *testing.T, registry *synth.Registry, currency string, amount *big.Int) {
	t.Helper()
	token, err := registry.Token(currency)
	if err != nil {
		t.Fatalf("token %s: %v", currency, err)
	}
	account := makeAddress(0x99)
	if err := token.Issue(account, amount); err != nil {
		t.Fatalf("issue %s: %v", currency, err)
	}
}

func TestCacheStartsInvalidAndStale(t *testing.T) {
	cache, _, _, _, _ := fixture(t)
	info := cache.Info()
	if !info.Invalid || !info.Stale {
		t.Fatalf("fresh cache must be invalid and stale: %+v", info)
	}
	if info.Debt.Sign() != 0 {
		t.Fatalf("fresh cache must report zero debt")
	}
}

func TestSnapshotComputesSupplyTimesRate(t *testing.T) {
	cache, registry, _, _, _ := fixture(t)
	mint(t, registry, "oUSD", dec(1_000))
	mint(t, registry, "oBTC", dec(2))

	snap, err := cache.TakeSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Invalid {
		t.Fatalf("expected valid snapshot")
	}
	if snap.TotalDebt.Cmp(dec(41_000)) != 0 {
		t.Fatalf("unexpected total: %s", snap.TotalDebt)
	}
	if cache.CachedSynthDebt("oBTC").Cmp(dec(40_000)) != 0 {
		t.Fatalf("unexpected oBTC debt: %s", cache.CachedSynthDebt("oBTC"))
	}

	info := cache.Info()
	if info.Invalid || info.Stale {
		t.Fatalf("snapshotted cache must be fresh: %+v", info)
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	cache, registry, _, _, _ := fixture(t)
	mint(t, registry, "oUSD", dec(500))

	first, err := cache.TakeSnapshot()
	if err != nil {
		t.Fatalf("first snapshot: %v", err)
	}
	second, err := cache.TakeSnapshot()
	if err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	if first.TotalDebt.Cmp(second.TotalDebt) != 0 {
		t.Fatalf("snapshot not idempotent: %s vs %s", first.TotalDebt, second.TotalDebt)
	}
}

func TestIncrementalEqualsFull(t *testing.T) {
	cache, registry, _, _, _ := fixture(t)
	token, err := registry.Token("oUSD")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	if _, err := cache.TakeSnapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	account := makeAddress(0x42)
	deltas := []int64{100, 250, -50, 75, -125}
	for _, raw := range deltas {
		delta := dec(raw)
		if raw > 0 {
			if err := token.Issue(account, delta); err != nil {
				t.Fatalf("issue: %v", err)
			}
		} else {
			if err := token.Burn(account, new(big.Int).Neg(delta)); err != nil {
				t.Fatalf("burn: %v", err)
			}
		}
		cache.UpdateCachedDebtWithDelta("oUSD", delta)
	}

	incremental, _ := cache.CurrentDebt()
	snap, err := cache.TakeSnapshot()
	if err != nil {
		t.Fatalf("full snapshot: %v", err)
	}
	if incremental.Cmp(snap.TotalDebt) != 0 {
		t.Fatalf("incremental %s != full %s", incremental, snap.TotalDebt)
	}
}

func TestIncrementalDoesNotTouchTimestampOrValidity(t *testing.T) {
	cache, registry, _, _, _ := fixture(t)
	mint(t, registry, "oUSD", dec(100))
	if _, err := cache.TakeSnapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	ts := cache.Timestamp()

	cache.Invalidate()
	cache.UpdateCachedDebtWithDelta("oUSD", dec(10))

	info := cache.Info()
	if !info.Invalid {
		t.Fatalf("incremental update must not clear invalidity")
	}
	if !info.Timestamp.Equal(ts) {
		t.Fatalf("incremental update must not touch the timestamp")
	}
}

func TestInvalidRatesTaintSnapshot(t *testing.T) {
	cache, registry, source, _, _ := fixture(t)
	mint(t, registry, "oUSD", dec(100))
	source.SetInvalid("oBTC", true)

	snap, err := cache.TakeSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Invalid {
		t.Fatalf("snapshot with a bad rate must stay invalid")
	}

	source.SetInvalid("oBTC", false)
	snap, err = cache.TakeSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Invalid {
		t.Fatalf("snapshot with restored rates must clear invalidity")
	}
}

func TestExcludedDebtSubtractedAndTaints(t *testing.T) {
	cache, registry, _, excluded, _ := fixture(t)
	mint(t, registry, "oUSD", dec(1_000))
	excluded.value = dec(300)

	snap, err := cache.TakeSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.TotalDebt.Cmp(dec(700)) != 0 {
		t.Fatalf("excluded debt must be subtracted: %s", snap.TotalDebt)
	}

	excluded.invalid = true
	snap, err = cache.TakeSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Invalid {
		t.Fatalf("excluded invalidity must taint the cache")
	}
}

func TestStaleThreshold(t *testing.T) {
	cache, registry, _, _, now := fixture(t)
	mint(t, registry, "oUSD", dec(100))
	if _, err := cache.TakeSnapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if cache.Stale() {
		t.Fatalf("fresh snapshot must not be stale")
	}

	*now = now.Add(time.Hour + time.Second)
	info := cache.Info()
	if !info.Stale {
		t.Fatalf("cache past the threshold must be stale")
	}
	if info.Invalid {
		t.Fatalf("staleness must not imply invalidity")
	}
}

func TestSynthSetChangeInvalidates(t *testing.T) {
	cache, registry, _, _, _ := fixture(t)
	mint(t, registry, "oUSD", dec(100))
	if _, err := cache.TakeSnapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if err := registry.Add(synth.NewToken("oBNB", "Synthetic BNB")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, invalid := cache.CurrentDebt(); !invalid {
		t.Fatalf("adding a synth must invalidate the cache")
	}
}
