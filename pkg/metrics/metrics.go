package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/botlisten/botcast/internal/common/config"
)

// Metrics collects Prometheus metrics for the relay. A nil *Metrics is
// valid and records nothing, so wiring stays optional in tests.
type Metrics struct {
	registry     *prometheus.Registry
	httpReqCnt   *prometheus.CounterVec
	httpDur      *prometheus.HistogramVec
	viewers      prometheus.Gauge
	broadcaster  prometheus.Gauge
	broadcastCnt prometheus.Counter
	sendFailCnt  *prometheus.CounterVec
	reactionDur  *prometheus.HistogramVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	r.MustRegister(httpReqCnt, httpDur)

	viewers := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "viewers_connected"})
	broadcaster := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "broadcaster_connected"})
	broadcastCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "broadcasts_total"})
	sendFailCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "send_failures_total"}, []string{"role"})
	r.MustRegister(viewers, broadcaster, broadcastCnt, sendFailCnt)

	reactionDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "reaction_generation_duration_seconds", Buckets: cfg.Buckets}, []string{"status"})
	r.MustRegister(reactionDur)

	return &Metrics{
		registry:     r,
		httpReqCnt:   httpReqCnt,
		httpDur:      httpDur,
		viewers:      viewers,
		broadcaster:  broadcaster,
		broadcastCnt: broadcastCnt,
		sendFailCnt:  sendFailCnt,
		reactionDur:  reactionDur,
	}
}

func (m *Metrics) ViewerConnected() {
	if m == nil {
		return
	}
	m.viewers.Inc()
}

func (m *Metrics) ViewerDisconnected() {
	if m == nil {
		return
	}
	m.viewers.Dec()
}

func (m *Metrics) BroadcasterConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.broadcaster.Set(1)
	} else {
		m.broadcaster.Set(0)
	}
}

func (m *Metrics) BroadcastDone() {
	if m == nil {
		return
	}
	m.broadcastCnt.Inc()
}

func (m *Metrics) SendFailure(role string) {
	if m == nil {
		return
	}
	m.sendFailCnt.WithLabelValues(role).Inc()
}

func (m *Metrics) ReactionDone(since time.Time, status string) {
	if m == nil {
		return
	}
	m.reactionDur.WithLabelValues(status).Observe(time.Since(since).Seconds())
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
