package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridmesh",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Dispatched commands by execution mode.",
		},
		[]string{"worker", "op", "mode", "outcome"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gridmesh",
			Subsystem: "dispatch",
			Name:      "command_duration_seconds",
			Help:      "Command dispatch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"worker", "op", "mode", "outcome"},
	)
	objectMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridmesh",
			Subsystem: "proxy",
			Name:      "object_moves_total",
			Help:      "Pointer-proxy sends and gets.",
		},
		[]string{"worker", "direction", "outcome"},
	)
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"

	OutcomeOK    = "ok"
	OutcomeError = "error"

	DirectionSend = "send"
	DirectionGet  = "get"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(dispatches, dispatchDuration, objectMoves)
	})
}

func RecordDispatch(worker, op, mode string, err error, duration time.Duration) {
	RegisterMetrics()
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	dispatches.WithLabelValues(worker, op, mode, outcome).Inc()
	dispatchDuration.WithLabelValues(worker, op, mode, outcome).Observe(duration.Seconds())
}

func RecordObjectMove(worker, direction string, err error) {
	RegisterMetrics()
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	objectMoves.WithLabelValues(worker, direction, outcome).Inc()
}
