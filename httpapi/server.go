// Package httpapi is the small admin/observability HTTP surface this
// module ships standalone-runnable, grounded in the teacher's
// http/server.go: a chi mux, per-resource handler methods on a single
// receiver, JSON responses with common headers, wrapped in
// gorilla/handlers access logging the way cmd/relay/main.go wraps its
// own mux in handlers.CombinedLoggingHandler.
//
// spec.md names no HTTP surface at all; this package exists because
// SPEC_FULL.md's ambient stack promotes "ship a runnable admin surface"
// to a first-class concern, the way the teacher ships one alongside its
// core beacon logic rather than leaving operators to wire their own.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drand/fte/config"
	"github.com/drand/fte/log"
	"github.com/drand/fte/metrics"
	"github.com/drand/fte/registry"
)

// Server is the admin/observability HTTP handler. Construct with New;
// the zero value is not usable.
type Server struct {
	httpHandler http.Handler
	registry    *registry.Registry
	cfg         *config.Config
	log         log.Logger
}

// New builds a Server backed by reg and cfg. version is echoed in the
// Server response header, matching withCommonHeaders in the teacher's
// http/server.go.
func New(reg *registry.Registry, cfg *config.Config, logger log.Logger, version string) *Server {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	s := &Server{registry: reg, cfg: cfg, log: logger}

	mux := chi.NewMux()
	mux.Get("/healthz", s.withCommonHeaders(version, s.Healthz))
	mux.Get("/languages", s.withCommonHeaders(version, s.Languages))
	mux.Handle("/metrics", metrics.Handler())

	instrumented := promhttp.InstrumentHandlerCounter(
		metrics.HTTPCallCounter,
		promhttp.InstrumentHandlerDuration(
			metrics.HTTPLatency,
			promhttp.InstrumentHandlerInFlight(metrics.HTTPInFlight, mux)))

	s.httpHandler = handlers.CombinedLoggingHandler(requestIDWriter{logger}, s.withRequestID(instrumented))
	return s
}

// Handler returns the fully wrapped HTTP handler (access-logged,
// request-id tagged, Prometheus-instrumented) ready to be served.
func (s *Server) Handler() http.Handler {
	return s.httpHandler
}

func (s *Server) withCommonHeaders(version string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", version)
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}
}

// withRequestID attaches a fresh UUID to every request's logger,
// matching the teacher's use of google/uuid for per-session correlation
// ids (cmd/demo-client/main.go, cmd/client/lib/cli.go).
func (s *Server) withRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestLogger := s.log.With("request_id", uuid.NewString())
		ctx := log.ToContext(r.Context(), requestLogger)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Healthz reports the process is up; it does not inspect the registry.
// It performs no language build; that happens lazily on first Codec
// request, per spec.md §4.4.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// languageInfo is one /languages entry.
type languageInfo struct {
	Name         string `json:"name"`
	MTU          int    `json:"mtu"`
	FixedSlice   bool   `json:"fixed_slice"`
	AllowAEBits  bool   `json:"allow_ae_bits"`
	Built        bool   `json:"built"`
	CapacityBits int    `json:"capacity_bits,omitempty"`
	NumWordsBits int    `json:"num_words_bits,omitempty"`
}

// Languages reports every configured language, including capacity and
// num_words bit-length for any that have already been built by the
// registry — mirroring BeaconHandler.ChainInfo's shape of reporting
// cached state without forcing construction as a side effect of a GET.
func (s *Server) Languages(w http.ResponseWriter, r *http.Request) {
	names := s.cfg.LanguageNames()
	out := make([]languageInfo, 0, len(names))
	for _, name := range names {
		lc, _ := s.cfg.Language(name)
		info := languageInfo{Name: name, MTU: lc.MTU, FixedSlice: lc.FixedSlice, AllowAEBits: lc.AllowAEBits}
		if lang, ok := s.registry.Language(name); ok {
			info.Built = true
			info.CapacityBits = lang.Capacity()
			info.NumWordsBits = lang.NumWords().BitLen()
		}
		out = append(out, info)
	}
	_ = json.NewEncoder(w).Encode(out)
}

// requestIDWriter adapts log.Logger to io.Writer for
// handlers.CombinedLoggingHandler, which wants an access-log sink; each
// line is emitted as a structured "http access" entry instead of the
// raw Apache combined-log text, consistent with this module logging
// exclusively through log.Logger rather than writing bytes straight to
// a file the way cmd/relay/main.go's os.Stdout/logFile sink does.
type requestIDWriter struct {
	log log.Logger
}

func (w requestIDWriter) Write(p []byte) (int, error) {
	w.log.Infow("http access", "line", string(p))
	return len(p), nil
}
