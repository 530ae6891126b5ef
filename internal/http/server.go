// Package http serves the order book UI: an htmx page with an order grid,
// the two ledgers and the monthly summary.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"ovenbook/internal/cache"
	"ovenbook/internal/core"
	"ovenbook/internal/services"
	appweb "ovenbook/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	orders      *services.OrderService
	ledger      *services.LedgerService
	rateLimiter *rateLimiter

	// Rendered lists are cached briefly; every write purges them.
	ordersCache  *cache.LRUCache[[]core.Order]
	summaryCache *cache.LRUCache[[]core.MonthSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, orders *services.OrderService, ledger *services.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		orders:       orders,
		ledger:       ledger,
		rateLimiter:  newRateLimiter(),
		ordersCache:  cache.NewLRUCache[[]core.Order](50, time.Minute),
		summaryCache: cache.NewLRUCache[[]core.MonthSummary](50, time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.ordersCache)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Orders
	mux.HandleFunc("POST /orders", s.withSecurityHeaders(s.handleCreateOrder))
	mux.HandleFunc("PUT /orders/{id}", s.withSecurityHeaders(s.handleUpdateOrder))
	mux.HandleFunc("POST /orders/{id}/deliver", s.withSecurityHeaders(s.handleDeliverOrder))
	mux.HandleFunc("POST /orders/{id}/settle", s.withSecurityHeaders(s.handleSettleOrder))
	mux.HandleFunc("DELETE /orders/{id}", s.withSecurityHeaders(s.handleCancelOrder))

	// Ledgers
	mux.HandleFunc("POST /expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.withSecurityHeaders(s.handleDeleteExpense))
	mux.HandleFunc("POST /incomes", s.withSecurityHeaders(s.handleCreateIncome))
	mux.HandleFunc("DELETE /incomes/{id}", s.withSecurityHeaders(s.handleDeleteIncome))

	// UI partials
	mux.HandleFunc("GET /ui/orders", s.withSecurityHeaders(s.handleOrdersTable))
	mux.HandleFunc("GET /ui/expenses", s.withSecurityHeaders(s.handleExpensesTable))
	mux.HandleFunc("GET /ui/incomes", s.withSecurityHeaders(s.handleIncomesTable))
	mux.HandleFunc("GET /ui/summary", s.withSecurityHeaders(s.handleSummary))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit writes only; reads are cheap and cached
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

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

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Today   string
		Methods []core.PaymentMethod
	}{
		Today:   core.Date{Time: time.Now()}.ISO(),
		Methods: []core.PaymentMethod{core.Cash, core.UPI, core.Card, core.Other},
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// purgeCaches drops every cached list; called after any write.
func (s *Server) purgeCaches() {
	s.ordersCache.Purge()
	s.summaryCache.Purge()
}

func formatRupees(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	rupees := cents / 100
	rem := cents % 100
	out := "₹" + strconv.FormatInt(rupees, 10) + "." + fmt.Sprintf("%02d", rem)
	if neg {
		return "-" + out
	}
	return out
}
