package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"

	ResultDelivered = "delivered"
	ResultMalformed = "malformed"
	ResultLoopback  = "loopback"
	ResultEmpty     = "empty"
	ResultSent      = "sent"
	ResultError     = "error"
)

var (
	registerOnce sync.Once

	datagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconsole",
			Name:      "datagrams_total",
			Help:      "Datagrams handled by the session loop.",
		},
		[]string{"role", "direction", "result"},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconsole",
			Subsystem: "exec",
			Name:      "commands_total",
			Help:      "Commands executed on behalf of remote senders.",
		},
		[]string{"outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rconsole",
			Subsystem: "exec",
			Name:      "command_duration_seconds",
			Help:      "Command wall-clock duration in seconds.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 3, 5},
		},
		[]string{"outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconsole",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rconsole",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(datagrams, commands, commandDuration, httpRequests, httpDuration)
	})
}

func RecordDatagram(role, direction, result string) {
	RegisterMetrics()
	datagrams.WithLabelValues(role, direction, result).Inc()
}

func RecordCommand(outcome string, duration time.Duration) {
	RegisterMetrics()
	commands.WithLabelValues(outcome).Inc()
	commandDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
