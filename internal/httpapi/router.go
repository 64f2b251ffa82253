package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/lukasbauer/callcontrol/internal/billing"
	"go.uber.org/zap"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

type Router struct {
	logger  *zap.Logger
	billing *billing.Service
	mux     *http.ServeMux
}

func NewRouter(logger *zap.Logger, svc *billing.Service) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		logger:  logger.Named("http"),
		billing: svc,
		mux:     http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withRequestLog(r.logger, withCORS(r.mux)))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Call records
	r.mux.HandleFunc("POST /api/phonecalls", r.handleRecordPhoneCall)
	r.mux.HandleFunc("GET /api/phonecalls/{call_id}", r.handleGetPhoneCall)

	// Bills
	r.mux.HandleFunc("GET /api/billing", r.handleGetBilling)

	// Pricing schedule
	r.mux.HandleFunc("GET /api/pricing-rules", r.handleGetPricingRules)
	r.mux.HandleFunc("PUT /api/pricing-rules", r.handleReplacePricingRules)
	r.mux.HandleFunc("POST /api/pricing/quote", r.handleQuote)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if err := r.billing.Ping(req.Context()); err != nil {
		r.logger.Warn("health check failed", zap.Error(err))
		http.Error(w, `{"error": "store unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the body of every structured error response.
type apiError struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Code   string `json:"code,omitempty"`
	CallID int64  `json:"call_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, e apiError) {
	writeJSON(w, status, e)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	body := http.MaxBytesReader(w, req.Body, maxBodyBytes)
	defer body.Close()
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(req)
		ctx := sentry.SetHubOnContext(req.Context(), hub)

		defer func() {
			if err := recover(); err != nil {
				hub.RecoverWithContext(ctx, err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-Request-ID")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags each request with an ID and logs it once it completes.
func withRequestLog(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		if hub := sentry.GetHubFromContext(req.Context()); hub != nil {
			hub.Scope().SetTag("request_id", id)
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	hub := sentry.GetHubFromContext(req.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		hub.CaptureException(err)
	})
}
