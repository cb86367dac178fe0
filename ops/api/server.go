package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"ogxd/crypto"
)

const requestLimit = 1 << 16 // 64 KiB

// Server exposes the ops HTTP surface over a Service.
type Server struct {
	svc     *Service
	limiter *rate.Limiter
}

// NewServer builds the ops server. Requests beyond the token-bucket limit are
// rejected with 429.
func NewServer(svc *Service, requestsPerSecond float64, burst int) *Server {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 50
	}
	if burst <= 0 {
		burst = 100
	}
	return &Server{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.throttle)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/debt", func(dr chi.Router) {
		dr.Get("/cache", s.cacheInfo)
		dr.Get("/ledger", s.ledgerStatus)
		dr.Get("/accounts/{address}", s.accountDebt)
		dr.Post("/snapshot", s.takeSnapshot)
		dr.Post("/issue", s.issue)
		dr.Post("/burn", s.burn)
		dr.Post("/liquidate", s.liquidate)
	})

	return r
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type cacheInfoResponse struct {
	Debt      string    `json:"debt"`
	Timestamp time.Time `json:"timestamp"`
	Invalid   bool      `json:"invalid"`
	Stale     bool      `json:"stale"`
}

func (s *Server) cacheInfo(w http.ResponseWriter, _ *http.Request) {
	info := s.svc.CacheInfo()
	writeJSON(w, http.StatusOK, cacheInfoResponse{
		Debt:      info.Debt.String(),
		Timestamp: info.Timestamp,
		Invalid:   info.Invalid,
		Stale:     info.Stale,
	})
}

func (s *Server) ledgerStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Ledger())
}

type accountDebtResponse struct {
	Address string `json:"address"`
	Debt    string `json:"debt"`
}

func (s *Server) accountDebt(w http.ResponseWriter, r *http.Request) {
	account, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, accountDebtResponse{
		Address: account.String(),
		Debt:    s.svc.DebtBalance(account).String(),
	})
}

type snapshotResponse struct {
	TotalDebt string    `json:"totalDebt"`
	Invalid   bool      `json:"invalid"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) takeSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.svc.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		TotalDebt: snap.TotalDebt.String(),
		Invalid:   snap.Invalid,
		Timestamp: snap.Timestamp,
	})
}

type issueRequest struct {
	Account string `json:"account"`
	// Amount is a decimal string; empty issues the full remaining capacity.
	Amount string `json:"amount"`
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := crypto.DecodeAddress(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, ok := parseOptionalAmount(w, req.Amount)
	if !ok {
		return
	}
	if err := s.svc.Issue(account, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	s.accountDebtByAddress(w, account)
}

type burnRequest struct {
	Account  string `json:"account"`
	Amount   string `json:"amount"`
	ToTarget bool   `json:"toTarget"`
}

func (s *Server) burn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := crypto.DecodeAddress(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	parsed, ok := parseOptionalAmount(w, req.Amount)
	if !ok {
		return
	}
	if parsed == nil && !req.ToTarget {
		writeError(w, http.StatusBadRequest, errors.New("amount required"))
		return
	}
	if err := s.svc.Burn(account, parsed, req.ToTarget); err != nil {
		writeEngineError(w, err)
		return
	}
	s.accountDebtByAddress(w, account)
}

type liquidateRequest struct {
	Account    string `json:"account"`
	Liquidator string `json:"liquidator"`
	Amount     string `json:"amount"`
}

func (s *Server) liquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := crypto.DecodeAddress(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	liquidator, err := crypto.DecodeAddress(req.Liquidator)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, ok := parseOptionalAmount(w, req.Amount)
	if !ok {
		return
	}
	if amount == nil {
		writeError(w, http.StatusBadRequest, errors.New("amount required"))
		return
	}
	if err := s.svc.Liquidate(account, amount, liquidator); err != nil {
		writeEngineError(w, err)
		return
	}
	s.accountDebtByAddress(w, account)
}

func (s *Server) accountDebtByAddress(w http.ResponseWriter, account crypto.Address) {
	writeJSON(w, http.StatusOK, accountDebtResponse{
		Address: account.String(),
		Debt:    s.svc.DebtBalance(account).String(),
	})
}
