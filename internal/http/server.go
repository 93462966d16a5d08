package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cardledger/internal/cache"
	"cardledger/internal/core"
	applog "cardledger/internal/log"
	"cardledger/internal/middleware/ratelimit"
	"cardledger/internal/middleware/trace"
	"cardledger/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardService is the subset of services.CardStore the handlers use.
type CardService interface {
	CreateCard(ctx context.Context, f core.CardFields) (core.Card, error)
	GetCard(ctx context.Context, id uuid.UUID) (core.Card, error)
	UpdateCard(ctx context.Context, id uuid.UUID, p core.CardPatch) (core.Card, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
	ListCards(ctx context.Context, by services.CardSort) ([]core.Card, error)
	CreateTransaction(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal) (core.CardTransaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (core.CardTransaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ListTransactions(ctx context.Context, cardID uuid.UUID, by services.TransactionSort) ([]core.CardTransaction, error)
	CardSummary(ctx context.Context, cardID uuid.UUID) (core.Summary, error)
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	SummaryCacheSize   int
	SummaryCacheTTL    time.Duration
	Logger             *applog.Logger
}

const (
	defaultSummaryCacheSize = 256
	defaultSummaryCacheTTL  = 5 * time.Minute
	storeTimeout            = 7 * time.Second
)

type Server struct {
	http.Server
	store CardService
	now   func() time.Time

	summaries *cache.LRUCache[uuid.UUID, core.Summary]
	caches    *cache.Manager
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware

	// summaryGen counts writes per card. A summary loaded before a write
	// must not be cached after it.
	genMu      sync.Mutex
	summaryGen map[uuid.UUID]uint64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, store CardService, opts Options) *Server {
	if opts.SummaryCacheSize <= 0 {
		opts.SummaryCacheSize = defaultSummaryCacheSize
	}
	if opts.SummaryCacheTTL <= 0 {
		opts.SummaryCacheTTL = defaultSummaryCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}

	mux := http.NewServeMux()
	s := &Server{
		store:     store,
		now:       time.Now,
		summaries: cache.NewLRUCache[uuid.UUID, core.Summary](opts.SummaryCacheSize, opts.SummaryCacheTTL),
		caches:    cache.NewManager(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:    trace.NewMiddleware(clientIP),

		summaryGen: make(map[uuid.UUID]uint64),
	}
	s.caches.Register(s.summaries)
	s.caches.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /card-types", handleCardTypes)
	mux.HandleFunc("GET /cards", s.handleListCards)
	mux.HandleFunc("POST /cards", s.handleCreateCard)
	mux.HandleFunc("GET /cards/{id}", s.handleGetCard)
	mux.HandleFunc("PATCH /cards/{id}", s.handleUpdateCard)
	mux.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard)
	mux.HandleFunc("GET /cards/{id}/summary", s.handleCardSummary)
	mux.HandleFunc("GET /cards/{id}/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /cards/{id}/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	var handler http.Handler = mux
	handler = s.limitWrites(handler)
	handler = withSecurityHeaders(handler)
	handler = applog.Middleware(opts.Logger, trace.RequestIDFromRequest)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// limitWrites applies the rate limiter to mutating requests only.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later", "rate_limited").Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// TraceMetrics exposes request counters collected by the trace middleware.
func (s *Server) TraceMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		applog.LogError(r.Context(), "Readiness check failed", err, applog.OpRead, nil)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) invalidateSummary(cardID uuid.UUID) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.summaryGen[cardID]++
	s.summaries.Delete(cardID)
}

func (s *Server) summaryGeneration(cardID uuid.UUID) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.summaryGen[cardID]
}

func (s *Server) getSummary(ctx context.Context, cardID uuid.UUID) (core.Summary, error) {
	if sum, ok := s.summaries.Get(cardID); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Summary cache hit", applog.FieldCardID, cardID)
		return sum, nil
	}

	gen := s.summaryGeneration(cardID)
	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	sum, err := s.store.CardSummary(cctx, cardID)
	if err != nil {
		return core.Summary{}, err
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.summaryGen[cardID] == gen {
		s.summaries.Set(cardID, sum)
	}
	return sum, nil
}
