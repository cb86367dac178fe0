package debt

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"ogxd/crypto"
	"ogxd/storage"
)

var (
	entryKeyPrefix = []byte("debt/entry/")
	metaKey        = []byte("debt/meta")
)

// storedRecord mirrors IssuanceRecord for persistence. Ownership is stored as
// a base-10 string so the precise-tier value survives encoding unchanged.
type storedRecord struct {
	Prefix     string
	Address    []byte
	Ownership  string
	EntryIndex uint64
}

type storedMeta struct {
	Length      uint64
	IssuerCount uint64
	Records     []storedRecord
}

// Store checkpoints ledger state into a key-value database and restores it at
// startup. Entries are written once under per-index keys, exploiting the
// ledger's append-only invariant; the record set and counters live in a
// single metadata blob rewritten on every checkpoint.
type Store struct {
	db storage.Database
}

// NewStore binds a checkpoint store to the supplied database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Checkpoint persists the ledger. Only entries appended since the previous
// checkpoint are written.
func (s *Store) Checkpoint(l *Ledger) error {
	if s == nil || s.db == nil {
		return errors.New("debt store: database not configured")
	}
	if l == nil {
		return errors.New("debt store: ledger must not be nil")
	}

	persisted := uint64(0)
	if meta, ok, err := s.loadMeta(); err != nil {
		return err
	} else if ok {
		persisted = meta.Length
	}

	for i := persisted; i < uint64(len(l.entries)); i++ {
		encoded, err := rlp.EncodeToBytes(l.entries[i].String())
		if err != nil {
			return fmt.Errorf("debt store: encode entry %d: %w", i, err)
		}
		if err := s.db.Put(entryKey(i), encoded); err != nil {
			return fmt.Errorf("debt store: write entry %d: %w", i, err)
		}
	}

	meta := storedMeta{
		Length:      uint64(len(l.entries)),
		IssuerCount: l.issuerCount,
		Records:     make([]storedRecord, 0, len(l.records)),
	}
	for _, rec := range l.records {
		meta.Records = append(meta.Records, storedRecord{
			Prefix:     string(rec.Address.Prefix()),
			Address:    rec.Address.Bytes(),
			Ownership:  rec.InitialDebtOwnership.String(),
			EntryIndex: rec.DebtEntryIndex,
		})
	}
	encoded, err := rlp.EncodeToBytes(meta)
	if err != nil {
		return fmt.Errorf("debt store: encode metadata: %w", err)
	}
	return s.db.Put(metaKey, encoded)
}

// Load restores a ledger from the database. An empty database yields an
// empty ledger.
func (s *Store) Load() (*Ledger, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("debt store: database not configured")
	}
	meta, ok, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	ledger := NewLedger()
	if !ok {
		return ledger, nil
	}

	ledger.entries = make([]*big.Int, 0, meta.Length)
	for i := uint64(0); i < meta.Length; i++ {
		raw, err := s.db.Get(entryKey(i))
		if err != nil {
			return nil, fmt.Errorf("debt store: read entry %d: %w", i, err)
		}
		var text string
		if err := rlp.DecodeBytes(raw, &text); err != nil {
			return nil, fmt.Errorf("debt store: decode entry %d: %w", i, err)
		}
		entry, success := new(big.Int).SetString(text, 10)
		if !success {
			return nil, fmt.Errorf("debt store: corrupt entry %d: %q", i, text)
		}
		ledger.entries = append(ledger.entries, entry)
	}

	ledger.issuerCount = meta.IssuerCount
	for _, rec := range meta.Records {
		ownership, success := new(big.Int).SetString(rec.Ownership, 10)
		if !success {
			return nil, fmt.Errorf("debt store: corrupt ownership for %x", rec.Address)
		}
		addr := crypto.NewAddress(crypto.AddressPrefix(rec.Prefix), rec.Address)
		ledger.records[recordKey(addr)] = &IssuanceRecord{
			Address:              addr,
			InitialDebtOwnership: ownership,
			DebtEntryIndex:       rec.EntryIndex,
		}
	}
	return ledger, nil
}

func (s *Store) loadMeta() (storedMeta, bool, error) {
	var meta storedMeta
	ok, err := s.db.Has(metaKey)
	if err != nil {
		return meta, false, err
	}
	if !ok {
		return meta, false, nil
	}
	raw, err := s.db.Get(metaKey)
	if err != nil {
		return meta, false, err
	}
	if err := rlp.DecodeBytes(raw, &meta); err != nil {
		return meta, false, fmt.Errorf("debt store: decode metadata: %w", err)
	}
	return meta, true, nil
}

func entryKey(index uint64) []byte {
	return append(append([]byte(nil), entryKeyPrefix...), fmt.Sprintf("%016x", index)...)
}
