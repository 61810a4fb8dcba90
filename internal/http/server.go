package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"wallet/internal/cache"
	"wallet/internal/middleware/ratelimit"
	"wallet/internal/middleware/security"
	"wallet/internal/middleware/trace"
	"wallet/internal/services"
	"wallet/internal/storage"
)

// Server is the JSON API for the ledger service.
type Server struct {
	http.Server

	storage      *storage.SQLiteRepository
	ledger       *services.LedgerService
	reports      *services.ReportService
	bootstrapper *services.Bootstrapper

	rateLimiter *ratelimit.Limiter
	ipExtractor *security.Extractor

	// Cached report responses, invalidated per user on every mutation
	reportCache  *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Config carries the server's collaborators and tuning knobs.
type Config struct {
	Addr         string
	Storage      *storage.SQLiteRepository
	Ledger       *services.LedgerService
	Reports      *services.ReportService
	Bootstrapper *services.Bootstrapper
	CacheTTL     time.Duration
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config) *Server {
	mux := http.NewServeMux()

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	s := &Server{
		storage:      cfg.Storage,
		ledger:       cfg.Ledger,
		reports:      cfg.Reports,
		bootstrapper: cfg.Bootstrapper,
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		ipExtractor:  security.NewExtractor(),
		reportCache:  cache.NewLRUCache[[]byte](500, ttl),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/users", s.handleRegisterUser)
	mux.HandleFunc("GET /api/users/me", withIdentity(s.handleCurrentUser))

	mux.HandleFunc("GET /api/accounts", withIdentity(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", withIdentity(s.limited(s.handleCreateAccount)))
	mux.HandleFunc("GET /api/accounts/{id}", withIdentity(s.handleGetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", withIdentity(s.limited(s.handleUpdateAccount)))
	mux.HandleFunc("DELETE /api/accounts/{id}", withIdentity(s.limited(s.handleDeleteAccount)))

	mux.HandleFunc("GET /api/categories", withIdentity(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", withIdentity(s.limited(s.handleCreateCategory)))
	mux.HandleFunc("GET /api/categories/{id}", withIdentity(s.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", withIdentity(s.limited(s.handleUpdateCategory)))
	mux.HandleFunc("DELETE /api/categories/{id}", withIdentity(s.limited(s.handleDeleteCategory)))

	mux.HandleFunc("GET /api/transactions", withIdentity(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", withIdentity(s.limited(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions/{id}", withIdentity(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", withIdentity(s.limited(s.handleUpdateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", withIdentity(s.limited(s.handleDeleteTransaction)))
	mux.HandleFunc("POST /api/transactions/transfer", withIdentity(s.limited(s.handleCreateTransfer)))

	// Literal segments win over {id} in the 1.22 mux, so these never
	// collide with the transaction detail route.
	mux.HandleFunc("GET /api/transactions/dashboard", withIdentity(s.handleDashboard))
	mux.HandleFunc("GET /api/transactions/statistics", withIdentity(s.handleStatistics))
	mux.HandleFunc("GET /api/summaries", withIdentity(s.handleListSummaries))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.ipExtractor.ExtractClientIP)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           headers.Middleware(tracer.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// limited applies per-IP rate limiting to mutating handlers.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(s.ipExtractor.ExtractClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// reportCacheKey builds a per-user cache key from the handler name and the
// raw query string.
func reportCacheKey(userID int64, kind, rawQuery string) string {
	return "reports:" + strconv.FormatInt(userID, 10) + ":" + kind + "?" + rawQuery
}

// invalidateReports drops every cached report for one user. Called after any
// mutation that can shift totals.
func (s *Server) invalidateReports(userID int64) {
	s.reportCache.DeletePrefix(fmt.Sprintf("reports:%d:", userID))
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
