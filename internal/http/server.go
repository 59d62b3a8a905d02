// Package http exposes the ledger over a JSON API: transaction CRUD
// with filtered listing, monthly and category summaries, cashbook and
// category management.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cashflow/internal/ledger"
	"cashflow/internal/log"
	"cashflow/internal/view"
)

type Server struct {
	http.Server
	repo        *ledger.Repository
	view        *view.LedgerView
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	structured  *log.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. The
// view is optional; when present the filtered listing reads the live
// snapshot instead of hitting the store.
func NewServer(addr string, repo *ledger.Repository, ledgerView *view.LedgerView) *Server {
	mux := http.NewServeMux()
	httpLogger := log.New(log.Config{Component: log.ComponentHTTP})

	// Every request carries a context logger tagged with a request id.
	handler := log.Middleware(httpLogger)(
		log.RequestIDMiddleware(func(*http.Request) string { return generateRequestID() })(mux))

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		repo:        repo,
		view:        ledgerView,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		structured:  log.NewStructuredLogger(httpLogger),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/ledgers/{ledgerID}/transactions", s.guard(s.handleListTransactions))
	mux.HandleFunc("POST /api/ledgers/{ledgerID}/transactions", s.guard(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/ledgers/{ledgerID}/transactions/{id}", s.guard(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/ledgers/{ledgerID}/transactions/{id}", s.guard(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/ledgers/{ledgerID}/summary/monthly", s.guard(s.handleMonthlySummary))
	mux.HandleFunc("GET /api/ledgers/{ledgerID}/summary/categories", s.guard(s.handleCategorySummary))

	mux.HandleFunc("GET /api/cashbooks", s.guard(s.handleListCashbooks))
	mux.HandleFunc("POST /api/cashbooks", s.guard(s.handleCreateCashbook))
	mux.HandleFunc("PATCH /api/cashbooks/{id}", s.guard(s.handleRenameCashbook))
	mux.HandleFunc("DELETE /api/cashbooks/{id}", s.guard(s.handleDeleteCashbook))
	mux.HandleFunc("POST /api/cashbooks/{id}/duplicate", s.guard(s.handleDuplicateCashbook))

	mux.HandleFunc("GET /api/categories", s.guard(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.guard(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{name}", s.guard(s.handleDeleteCategory))

	return s
}

// guard adds rate limiting, security headers and request logging.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		ctx := r.Context()
		s.structured.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
		}

		// Mutations are rate limited per client.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			log.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.shutdown()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
