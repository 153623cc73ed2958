// Package metrics exposes this module's Prometheus instrumentation,
// modeled on the teacher's metrics/metrics.go: one dedicated registry
// (PrivateMetrics) instead of prometheus's global default registry, and
// a Start that serves it over HTTP.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drand/fte/log"
)

var (
	// PrivateMetrics carries everything: process-level Go runtime stats
	// plus every collector below, the way the teacher's PrivateMetrics
	// aggregates its GroupMetrics/HTTPMetrics/ClientMetrics collectors
	// into one registry for the operator-facing /metrics endpoint.
	PrivateMetrics = prometheus.NewRegistry()

	// RecordsEncoded counts successful Codec.Encode calls, by language.
	RecordsEncoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fte_records_encoded_total",
		Help: "Number of records successfully encoded.",
	}, []string{"language"})

	// RecordsDecoded counts successful Codec.Decode calls, by language.
	RecordsDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fte_records_decoded_total",
		Help: "Number of records successfully decoded.",
	}, []string{"language"})

	// DecodeFailures counts Decode calls that returned a DecodeError, by
	// the failure's Reason (record/errors.go's ReasonShort/ReasonRank/
	// ReasonHeader/ReasonAEBytes).
	DecodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fte_decode_failures_total",
		Help: "Number of records that failed to decode, by reason.",
	}, []string{"language", "reason"})

	// LanguageCapacityBits reports each built language's usable payload
	// capacity, set once at registry build time.
	LanguageCapacityBits = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fte_language_capacity_bits",
		Help: "Usable payload capacity, in bits, of a built language.",
	}, []string{"language"})

	// RankSeconds and UnrankSeconds reinstate encoder.py's
	// fte.logger.performance('rank'|'unrank', 'start'/'stop') hooks as
	// Prometheus histograms rather than log lines, per SPEC_FULL.md's
	// "Performance instrumentation hooks" supplemented feature.
	RankSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fte_rank_seconds",
		Help:    "Time spent walking the DFA to rank a covertext word.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})
	UnrankSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fte_unrank_seconds",
		Help:    "Time spent walking the suffix-count table to unrank an integer.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	// HTTPCallCounter and HTTPLatency instrument httpapi's mux, the way
	// the teacher's HTTPCallCounter/HTTPLatency instrument DrandHandler.
	HTTPCallCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fte_http_call_counter",
		Help: "Number of HTTP calls received by the admin/observability surface.",
	}, []string{"code", "method"})
	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fte_http_response_duration_seconds",
		Help:    "Histogram of admin HTTP request latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fte_http_in_flight",
		Help: "Number of admin HTTP requests currently being served.",
	})

	bound = false
)

func bind() error {
	if bound {
		return nil
	}
	bound = true

	if err := PrivateMetrics.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := PrivateMetrics.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}

	collectorsList := []prometheus.Collector{
		RecordsEncoded, RecordsDecoded, DecodeFailures, LanguageCapacityBits,
		RankSeconds, UnrankSeconds,
		HTTPCallCounter, HTTPLatency, HTTPInFlight,
	}
	for _, c := range collectorsList {
		if err := PrivateMetrics.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Start registers every collector and serves PrivateMetrics over HTTP at
// bind, the way the teacher's metrics.Start opens a dedicated listener
// for the operator-facing /metrics endpoint rather than sharing the
// primary application port.
func Start(bind_ string) net.Listener {
	logger := log.DefaultLogger()
	if err := bind(); err != nil {
		logger.Warnw("metrics registration failed", "error", err)
		return nil
	}

	l, err := net.Listen("tcp", bind_)
	if err != nil {
		logger.Warnw("metrics listen failed", "error", err)
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(PrivateMetrics, promhttp.HandlerOpts{Registry: PrivateMetrics}))
	s := &http.Server{Handler: mux}
	go func() {
		logger.Warnw("metrics listener finished", "error", s.Serve(l))
	}()
	return l
}

// Handler returns the /metrics handler directly, for callers (httpapi)
// that mount it on their own mux instead of a dedicated listener.
func Handler() http.Handler {
	if err := bind(); err != nil {
		log.DefaultLogger().Warnw("metrics registration failed", "error", err)
	}
	return promhttp.HandlerFor(PrivateMetrics, promhttp.HandlerOpts{Registry: PrivateMetrics})
}
