package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthzMetrics tracks authorization verification outcomes and operation
// latency across the module suite.
type AuthzMetrics struct {
	accepted  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	authority prometheus.Counter
}

var (
	authzOnce     sync.Once
	authzRegistry *AuthzMetrics
)

// Authz returns the process-wide authorization metrics, registering the
// collectors on first use.
func Authz() *AuthzMetrics {
	authzOnce.Do(func() {
		authzRegistry = &AuthzMetrics{
			accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "authz_operations_accepted_total",
				Help: "Count of successfully executed authorized operations by kind.",
			}, []string{"kind"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "authz_operations_rejected_total",
				Help: "Count of rejected operations by kind and reason.",
			}, []string{"kind", "reason"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "authz_operation_duration_seconds",
				Help:    "Wall time spent executing authorized operations.",
				Buckets: prometheus.DefBuckets,
			}, []string{"kind"}),
			authority: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "authz_authority_rotations_total",
				Help: "Count of trusted authority rotations.",
			}),
		}
		prometheus.MustRegister(
			authzRegistry.accepted,
			authzRegistry.rejected,
			authzRegistry.duration,
			authzRegistry.authority,
		)
	})
	return authzRegistry
}

// ObserveAccepted records a committed operation and its duration.
func (m *AuthzMetrics) ObserveAccepted(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.accepted.WithLabelValues(kind).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRejected records a rejected operation with its reason bucket.
func (m *AuthzMetrics) ObserveRejected(kind, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(kind, reason).Inc()
}

// ObserveRotation records a trusted authority rotation.
func (m *AuthzMetrics) ObserveRotation() {
	if m == nil {
		return
	}
	m.authority.Inc()
}
