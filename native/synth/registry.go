package synth

import (
	"errors"
	"math/big"
	"strings"

	"ogxd/core/events"
)

var (
	errDuplicateSynth = errors.New("synth registry: currency already registered")
	errUnknownSynth   = errors.New("synth registry: unknown currency")
)

// Invalidator is notified whenever the synth set changes structurally. The
// debt cache implements it: any add/remove makes the cached figures
// untrustworthy until the next full snapshot.
type Invalidator interface {
	Invalidate()
}

// Registry keeps the ordered set of tracked synths. Ordering is insertion
// order so snapshot iteration is deterministic.
type Registry struct {
	order       []string
	tokens      map[string]*Token
	invalidator Invalidator
	emitter     events.Emitter
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tokens:  make(map[string]*Token),
		emitter: events.NoopEmitter{},
	}
}

// SetInvalidator wires the cache-invalidity signal raised on add/remove.
func (r *Registry) SetInvalidator(inv Invalidator) {
	r.invalidator = inv
}

// SetEmitter wires the event sink for structural changes.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	r.emitter = emitter
}

// Add registers a synth token.
func (r *Registry) Add(token *Token) error {
	if token == nil || strings.TrimSpace(token.CurrencyKey()) == "" {
		return errUnknownSynth
	}
	key := token.CurrencyKey()
	if _, ok := r.tokens[key]; ok {
		return errDuplicateSynth
	}
	r.order = append(r.order, key)
	r.tokens[key] = token
	r.signalChange()
	r.emitter.Emit(events.SynthAdded{Currency: key})
	return nil
}

// Remove drops a synth from the tracked set.
func (r *Registry) Remove(currencyKey string) error {
	key := strings.TrimSpace(currencyKey)
	if _, ok := r.tokens[key]; !ok {
		return errUnknownSynth
	}
	delete(r.tokens, key)
	for i, existing := range r.order {
		if existing == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.signalChange()
	r.emitter.Emit(events.SynthRemoved{Currency: key})
	return nil
}

// Token returns the registered token for the currency.
func (r *Registry) Token(currencyKey string) (*Token, error) {
	token, ok := r.tokens[strings.TrimSpace(currencyKey)]
	if !ok {
		return nil, errUnknownSynth
	}
	return token, nil
}

// CurrencyKeys returns the tracked currencies in registration order.
func (r *Registry) CurrencyKeys() []string {
	return append([]string(nil), r.order...)
}

// TotalSupply returns the outstanding supply for the currency, zero when the
// currency is not tracked.
func (r *Registry) TotalSupply(currencyKey string) *big.Int {
	token, ok := r.tokens[strings.TrimSpace(currencyKey)]
	if !ok {
		return big.NewInt(0)
	}
	return token.TotalSupply()
}

func (r *Registry) signalChange() {
	if r.invalidator != nil {
		r.invalidator.Invalidate()
	}
}
