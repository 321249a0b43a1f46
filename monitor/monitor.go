// monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/pebbles/broadcast"
	"github.com/wfunc/pebbles/game"
	"github.com/wfunc/pebbles/logger"
)

// Turn outcomes recorded in turns_total.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRejected    = "rejected"
	OutcomeAfterFinish = "after_finish"
)

type Metrics struct {
	GamesStarted     *prometheus.CounterVec
	Turns            *prometheus.CounterVec
	Wins             *prometheus.CounterVec
	RandomFailures   prometheus.Counter
	GameActive       prometheus.Gauge
	MessagesReceived prometheus.Counter
	MessageLatency   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started by initialize or restart",
		}, []string{"difficulty"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "User turns by outcome",
		}, []string{"outcome"}),
		Wins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wins_total",
			Help:      "Won events by player",
		}, []string{"player"}),
		RandomFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "random_failures_total",
			Help:      "Turns aborted because no random value was available",
		}),
		GameActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "game_active",
			Help:      "1 while a game is in progress",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}

	reg.MustRegister(
		m.GamesStarted,
		m.Turns,
		m.Wins,
		m.RandomFailures,
		m.GameActive,
		m.MessagesReceived,
		m.MessageLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

// NewMonitor registers metrics on a private registry.
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  reg,
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics { return m.metrics }

// Handler serves the monitor's registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// StartServer serves /metrics and /debug/vars on addr until ctx is done or
// the listener fails. It returns nil after a shutdown triggered by ctx.
func (m *Monitor) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/debug/vars", expvar.Handler())

	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warnf("Metrics server shutdown: %v", err)
		}
	}()

	logger.Log.Infof("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

var publishOnce sync.Once

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) IncTurn(outcome string) {
	m.metrics.Turns.WithLabelValues(outcome).Inc()
}

// OnNotice implements broadcast.Listener.
func (m *Monitor) OnNotice(n broadcast.Notice) error {
	if n.Err != nil {
		if errors.Is(n.Err, game.ErrRandomnessUnavailable) {
			m.metrics.RandomFailures.Inc()
		}
		return nil
	}

	switch n.Op {
	case "initialize", "restart":
		m.metrics.GamesStarted.WithLabelValues(n.State.Difficulty.String()).Inc()
	}

	// A restart may reply Won(Program) without a game being played.
	if n.Op != "restart" && n.Event != nil && n.Event.Kind == game.EventWon {
		m.metrics.Wins.WithLabelValues(n.Event.Winner.String()).Inc()
	}

	if n.State.Finished() {
		m.metrics.GameActive.Set(0)
	} else {
		m.metrics.GameActive.Set(1)
	}
	return nil
}
