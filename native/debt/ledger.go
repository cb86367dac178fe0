package debt

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math/big"

	"lukechampine.com/blake3"

	"ogxd/crypto"
	"ogxd/native/fixed"
)

var (
	// ErrIndexOutOfRange signals a ledger lookup past the last entry. It
	// never occurs in correct usage; callers treat it as fatal.
	ErrIndexOutOfRange = errors.New("debt ledger: entry index out of range")

	errNilAmount         = errors.New("debt ledger: amount must not be nil")
	errZeroAmount        = errors.New("debt ledger: amount must not be zero")
	errRemoveExceeds     = errors.New("debt ledger: removal exceeds account debt")
	errRemoveExceedsPool = errors.New("debt ledger: removal exceeds pool debt")
)

// IssuanceRecord captures an account's share of the debt pool at a point in
// ledger history: the account owned InitialDebtOwnership of the pool as of
// ledger entry DebtEntryIndex.
type IssuanceRecord struct {
	Address              crypto.Address
	InitialDebtOwnership *big.Int
	DebtEntryIndex       uint64
}

// Clone returns a deep copy of the record.
func (r *IssuanceRecord) Clone() *IssuanceRecord {
	if r == nil {
		return nil
	}
	clone := &IssuanceRecord{Address: r.Address, DebtEntryIndex: r.DebtEntryIndex}
	if r.InitialDebtOwnership != nil {
		clone.InitialDebtOwnership = new(big.Int).Set(r.InitialDebtOwnership)
	}
	return clone
}

// Ledger tracks each participant's share of the shifting pool of system-wide
// debt without ever re-scanning all participants. Every mutating event
// appends one cumulative scale factor; per-account balances are recovered
// lazily in O(1) from the ratio of cumulative factors since the account's
// last touch-point.
//
// Entries are precise-tier (27-digit) decimals and strictly append-only.
type Ledger struct {
	entries     []*big.Int
	records     map[string]*IssuanceRecord
	issuerCount uint64
}

// NewLedger constructs an empty debt ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]*IssuanceRecord)}
}

// Length returns the number of ledger entries.
func (l *Ledger) Length() uint64 {
	return uint64(len(l.entries))
}

// LastEntry returns the most recent cumulative factor, or the precise unit
// when the ledger is empty.
func (l *Ledger) LastEntry() *big.Int {
	if len(l.entries) == 0 {
		return new(big.Int).Set(fixed.PreciseUnit)
	}
	return new(big.Int).Set(l.entries[len(l.entries)-1])
}

// EntryAt returns the cumulative factor at the given index.
func (l *Ledger) EntryAt(index uint64) (*big.Int, error) {
	if index >= uint64(len(l.entries)) {
		return nil, ErrIndexOutOfRange
	}
	return new(big.Int).Set(l.entries[index]), nil
}

// AppendEntry scales the last cumulative factor by the supplied precise-tier
// multiplier and appends the result, returning the new entry's index. The
// first entry is always the precise unit; a drained pool (last entry zero)
// restarts from the unit as well, since no live record can reference the
// zero entry.
func (l *Ledger) AppendEntry(multiplier *big.Int) uint64 {
	var next *big.Int
	switch {
	case len(l.entries) == 0:
		next = new(big.Int).Set(fixed.PreciseUnit)
	case l.entries[len(l.entries)-1].Sign() == 0:
		next = new(big.Int).Set(fixed.PreciseUnit)
	default:
		next = fixed.MulPreciseRound(l.entries[len(l.entries)-1], multiplier)
	}
	l.entries = append(l.entries, next)
	return uint64(len(l.entries) - 1)
}

// IssuerCount returns the number of accounts with open issuance records.
func (l *Ledger) IssuerCount() uint64 {
	return l.issuerCount
}

// Record returns a copy of the account's issuance record, if any.
func (l *Ledger) Record(account crypto.Address) (*IssuanceRecord, bool) {
	rec, ok := l.records[recordKey(account)]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// RecordDebtChange applies a signed debt delta for the account against the
// pool totals observed before the change, overwriting the account's issuance
// record and appending exactly one ledger entry. amountDelta, existingDebt
// and totalDebtBefore are standard-tier decimals; burns pass a negative
// delta. The index of the appended entry is returned.
//
// The delta factor applied to all other holders is asymmetric: issuance
// dilutes existing holders (unit - amount/newTotal) while burning
// concentrates the remaining debt among them (unit + removed/newTotal).
func (l *Ledger) RecordDebtChange(account crypto.Address, amountDelta, existingDebt, totalDebtBefore *big.Int) (uint64, error) {
	if amountDelta == nil || existingDebt == nil || totalDebtBefore == nil {
		return 0, errNilAmount
	}
	if amountDelta.Sign() == 0 {
		return 0, errZeroAmount
	}
	if amountDelta.Sign() > 0 {
		return l.addToRegister(account, amountDelta, existingDebt, totalDebtBefore)
	}
	return l.removeFromRegister(account, new(big.Int).Neg(amountDelta), existingDebt, totalDebtBefore)
}

func (l *Ledger) addToRegister(account crypto.Address, amount, existingDebt, totalDebtBefore *big.Int) (uint64, error) {
	newTotal := new(big.Int).Add(totalDebtBefore, amount)

	// Dilution factor applied to every other holder.
	issuedFraction := fixed.DivToPrecise(amount, newTotal)
	delta := new(big.Int).Sub(fixed.PreciseUnit, issuedFraction)

	ownership := issuedFraction
	if existingDebt.Sign() > 0 {
		newDebt := new(big.Int).Add(existingDebt, amount)
		ownership = fixed.DivToPrecise(newDebt, newTotal)
	} else {
		l.issuerCount++
	}

	l.setRecord(account, ownership)
	return l.AppendEntry(delta), nil
}

func (l *Ledger) removeFromRegister(account crypto.Address, debtToRemove, existingDebt, totalDebtBefore *big.Int) (uint64, error) {
	if debtToRemove.Cmp(existingDebt) > 0 {
		return 0, errRemoveExceeds
	}
	if debtToRemove.Cmp(totalDebtBefore) > 0 {
		return 0, errRemoveExceedsPool
	}
	newTotal := new(big.Int).Sub(totalDebtBefore, debtToRemove)

	// Concentration factor applied to every remaining holder. A drained pool
	// appends a zero entry; AppendEntry restarts from the unit afterwards.
	delta := big.NewInt(0)
	if newTotal.Sign() > 0 {
		removedFraction := fixed.DivToPrecise(debtToRemove, newTotal)
		delta = new(big.Int).Add(fixed.PreciseUnit, removedFraction)
	}

	if debtToRemove.Cmp(existingDebt) == 0 {
		l.clearRecord(account)
	} else {
		newDebt := new(big.Int).Sub(existingDebt, debtToRemove)
		l.setRecord(account, fixed.DivToPrecise(newDebt, newTotal))
	}

	return l.AppendEntry(delta), nil
}

// DebtBalanceOf recovers the account's current absolute debt from its
// recorded ownership fraction and the cumulative-factor ratio accrued since
// the record was written. totalSystemDebt is the standard-tier pool total
// observed by the caller (typically the cached figure).
func (l *Ledger) DebtBalanceOf(account crypto.Address, totalSystemDebt *big.Int) *big.Int {
	rec, ok := l.records[recordKey(account)]
	if !ok || rec.InitialDebtOwnership == nil || rec.InitialDebtOwnership.Sign() == 0 {
		return big.NewInt(0)
	}
	if totalSystemDebt == nil || totalSystemDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	base, err := l.EntryAt(rec.DebtEntryIndex)
	if err != nil || base.Sign() == 0 {
		return big.NewInt(0)
	}
	scale := fixed.DivPreciseRound(l.LastEntry(), base)
	currentOwnership := fixed.MulPreciseRound(scale, rec.InitialDebtOwnership)
	highPrecision := fixed.MulPreciseRound(fixed.ToPrecise(totalSystemDebt), currentOwnership)
	return fixed.FromPrecise(highPrecision)
}

// Checksum returns a BLAKE3 digest over the full entry sequence, used to
// fingerprint the ledger on snapshot events for replay verification.
func (l *Ledger) Checksum() string {
	h := blake3.New(32, nil)
	var scratch [8]byte
	for i, entry := range l.entries {
		binary.BigEndian.PutUint64(scratch[:], uint64(i))
		h.Write(scratch[:])
		raw := entry.Bytes()
		binary.BigEndian.PutUint64(scratch[:], uint64(len(raw)))
		h.Write(scratch[:])
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (l *Ledger) setRecord(account crypto.Address, ownership *big.Int) {
	l.records[recordKey(account)] = &IssuanceRecord{
		Address:              account,
		InitialDebtOwnership: ownership,
		DebtEntryIndex:       uint64(len(l.entries)),
	}
}

func (l *Ledger) clearRecord(account crypto.Address) {
	key := recordKey(account)
	if _, ok := l.records[key]; ok {
		delete(l.records, key)
		if l.issuerCount > 0 {
			l.issuerCount--
		}
	}
}

func recordKey(account crypto.Address) string {
	return string(account.Bytes())
}
