package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver so callers
// never branch on whether metrics are enabled.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	replies       *CounterVec
	ingest        *CounterVec
	capRequests   *CounterVec
	capLatency    *HistogramVec
	stateUp       *GaugeVec
	statePingSecs *GaugeVec
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("bt_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"bt_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("bt_api_inflight_requests", "In-flight API requests."),
		replies:     NewCounterVec("bt_replies_total", "Reply generation requests by outcome.", []string{"outcome"}),
		ingest:      NewCounterVec("bt_ingest_total", "Ingested messages by source and degraded flag.", []string{"source", "degraded"}),
		capRequests: NewCounterVec("bt_capability_requests_total", "Capability calls by capability/status.", []string{"capability", "status"}),
		capLatency: NewHistogramVec(
			"bt_capability_duration_seconds",
			"Capability call latency in seconds.",
			[]string{"capability"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		),
		stateUp:       NewGaugeVec("bt_state_backend_up", "Whether the state backend answered its last ping.", []string{"backend"}),
		statePingSecs: NewGaugeVec("bt_state_backend_ping_seconds", "Latency of the last state backend ping.", []string{"backend"}),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) error {
	if m == nil {
		return nil
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	log.Info("Metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server failed", "error", err, "addr", addr)
		return err
	}
	return nil
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.replies, m.ingest,
		m.capRequests, m.capLatency,
		m.stateUp, m.statePingSecs,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// IncReply records a reply outcome: admitted, denied or failed.
func (m *Metrics) IncReply(outcome string) {
	if m == nil {
		return
	}
	m.replies.Inc(outcome)
}

func (m *Metrics) IncIngest(source string, degraded bool) {
	if m == nil {
		return
	}
	d := "false"
	if degraded {
		d = "true"
	}
	m.ingest.Inc(source, d)
}

func (m *Metrics) ObserveCapability(capability, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.capRequests.Inc(capability, status)
	m.capLatency.Observe(dur.Seconds(), capability)
}

// RepliesTotal exposes one reply counter series for tests.
func (m *Metrics) RepliesTotal(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.replies.Value(outcome)
}

// StartStateCollector pings the state backend on an interval until ctx ends.
func (m *Metrics) StartStateCollector(ctx context.Context, log *logger.Logger, backend string, interval time.Duration, ping func(context.Context) error) {
	if m == nil || ping == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := ping(ctx); err != nil {
					m.stateUp.Set(0, backend)
					log.Warn("metrics: state backend ping failed", "backend", backend, "error", err)
					continue
				}
				m.stateUp.Set(1, backend)
				m.statePingSecs.Set(time.Since(start).Seconds(), backend)
			}
		}
	}()
}
