package api

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"ogxd/crypto"
	"ogxd/native/debt"
	"ogxd/native/debtcache"
	"ogxd/native/fixed"
	"ogxd/native/issuer"
	"ogxd/observability/metrics"
)

// LedgerStatus summarizes the debt ledger for the ops surface.
type LedgerStatus struct {
	Length      uint64 `json:"length"`
	IssuerCount uint64 `json:"issuerCount"`
	Checksum    string `json:"checksum"`
}

// Service serializes all mutating access to the debt core behind a single
// mutex, preserving the no-interleaving execution model the core packages
// assume. Every successful mutation is checkpointed before the call returns.
type Service struct {
	mu sync.Mutex

	engine *issuer.Engine
	ledger *debt.Ledger
	cache  *debtcache.Cache

	store   *debt.Store
	metrics *metrics.DebtMetrics
	log     *slog.Logger

	stablecoin string
}

// NewService wraps the engine and its state for the ops surface.
func NewService(engine *issuer.Engine, ledger *debt.Ledger, cache *debtcache.Cache, stablecoin string) *Service {
	return &Service{
		engine:     engine,
		ledger:     ledger,
		cache:      cache,
		log:        slog.Default(),
		stablecoin: stablecoin,
	}
}

// SetStore enables ledger checkpointing after each mutation.
func (s *Service) SetStore(store *debt.Store) {
	s.store = store
}

// SetMetrics wires the Prometheus collectors.
func (s *Service) SetMetrics(m *metrics.DebtMetrics) {
	s.metrics = m
}

// SetLogger overrides the service logger.
func (s *Service) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	}
}

// Issue mints amount for the account. A nil amount issues the account's full
// remaining capacity.
func (s *Service) Issue(account crypto.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if amount == nil {
		err = s.engine.IssueMax(account)
	} else {
		err = s.engine.Issue(account, amount)
	}
	if err != nil {
		return err
	}
	s.metrics.ObserveIssued(s.stablecoin)
	s.log.Info("synths issued", "account", account.String())
	return s.afterMutation()
}

// Burn reduces the account's debt, or restores it to target when toTarget is
// set.
func (s *Service) Burn(account crypto.Address, amount *big.Int, toTarget bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if toTarget {
		err = s.engine.BurnToTarget(account)
	} else {
		err = s.engine.Burn(account, amount)
	}
	if err != nil {
		return err
	}
	s.metrics.ObserveBurned(s.stablecoin)
	s.log.Info("synths burned", "account", account.String(), "toTarget", toTarget)
	return s.afterMutation()
}

// Liquidate repays part of a flagged account's debt on the liquidator's
// behalf.
func (s *Service) Liquidate(account crypto.Address, amount *big.Int, liquidator crypto.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Liquidate(account, amount, liquidator); err != nil {
		return err
	}
	s.metrics.ObserveLiquidation()
	s.log.Info("account liquidated", "account", account.String(), "liquidator", liquidator.String())
	return s.afterMutation()
}

// Snapshot triggers a full debt cache recomputation.
func (s *Service) Snapshot() (*debtcache.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	snap, err := s.engine.TakeSnapshot()
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSnapshot(time.Since(started))
	s.publishGauges()
	s.log.Info("debt snapshot taken", "totalDebt", snap.TotalDebt.String(), "invalid", snap.Invalid)
	return snap, nil
}

// CacheInfo returns the cache's trust-annotated state.
func (s *Service) CacheInfo() debtcache.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Info()
}

// DebtBalance returns the account's current debt.
func (s *Service) DebtBalance(account crypto.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.DebtBalanceOf(account)
}

// Ledger returns the ledger's length, issuer count and checksum.
func (s *Service) Ledger() LedgerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LedgerStatus{
		Length:      s.ledger.Length(),
		IssuerCount: s.ledger.IssuerCount(),
		Checksum:    s.ledger.Checksum(),
	}
}

// Checkpoint persists the ledger, typically on shutdown.
func (s *Service) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint()
}

func (s *Service) afterMutation() error {
	s.publishGauges()
	if err := s.checkpoint(); err != nil {
		s.log.Error("ledger checkpoint failed", "error", err)
		return fmt.Errorf("checkpoint ledger: %w", err)
	}
	return nil
}

func (s *Service) checkpoint() error {
	if s.store == nil {
		return nil
	}
	return s.store.Checkpoint(s.ledger)
}

func (s *Service) publishGauges() {
	if s.metrics == nil {
		return
	}
	info := s.cache.Info()
	whole, _ := new(big.Float).Quo(
		new(big.Float).SetInt(info.Debt),
		new(big.Float).SetInt(fixed.Unit),
	).Float64()
	s.metrics.SetCacheState(whole, info.Invalid, info.Stale)
	s.metrics.SetLedgerState(s.ledger.Length(), s.ledger.IssuerCount())
}
