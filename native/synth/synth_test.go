package synth

import (
	"math/big"
	"testing"

	"ogxd/core/events"
	"ogxd/crypto"
)

func makeAddress(seed byte) crypto.Address {
	raw := make([]byte, 20)
	raw[0] = seed
	return crypto.NewAddress(crypto.OGXPrefix, raw)
}

func TestTokenIssueAndBurn(t *testing.T) {
	token := NewToken("oUSD", "Synthetic USD")
	alice := makeAddress(0x01)

	if err := token.Issue(alice, big.NewInt(100)); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token.TotalSupply().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected supply: %s", token.TotalSupply())
	}
	if token.BalanceOf(alice).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected balance: %s", token.BalanceOf(alice))
	}

	if err := token.Burn(alice, big.NewInt(40)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if token.TotalSupply().Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("unexpected supply after burn: %s", token.TotalSupply())
	}

	if err := token.Burn(alice, big.NewInt(100)); err == nil {
		t.Fatalf("expected insufficient balance")
	}
	if err := token.Issue(alice, big.NewInt(0)); err == nil {
		t.Fatalf("expected invalid amount")
	}
}

type recordingInvalidator struct {
	calls int
}

func (r *recordingInvalidator) Invalidate() { r.calls++ }

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(e events.Event) { c.events = append(c.events, e) }

func TestRegistryStructuralChangesInvalidate(t *testing.T) {
	registry := NewRegistry()
	inv := &recordingInvalidator{}
	sink := &captureEmitter{}
	registry.SetInvalidator(inv)
	registry.SetEmitter(sink)

	if err := registry.Add(NewToken("oUSD", "Synthetic USD")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := registry.Add(NewToken("oBTC", "Synthetic Bitcoin")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := registry.Add(NewToken("oUSD", "dupe")); err == nil {
		t.Fatalf("expected duplicate rejection")
	}

	keys := registry.CurrencyKeys()
	if len(keys) != 2 || keys[0] != "oUSD" || keys[1] != "oBTC" {
		t.Fatalf("unexpected key order: %v", keys)
	}

	if err := registry.Remove("oBTC"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := registry.Remove("oBTC"); err == nil {
		t.Fatalf("expected unknown currency")
	}

	if inv.calls != 3 {
		t.Fatalf("expected 3 invalidations, got %d", inv.calls)
	}
	if len(sink.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(sink.events))
	}
	if sink.events[2].EventType() != events.TypeSynthRemoved {
		t.Fatalf("unexpected final event: %s", sink.events[2].EventType())
	}
}
