package resilience

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// ErrOpenCircuit is returned when the breaker refuses an outbound call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all calls and tracks failures.
	Closed State = iota
	// Open rejects calls until the cool-off period expires.
	Open
	// HalfOpen allows a single probe to determine recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerMetrics groups Prometheus collectors for breaker observability.
type BreakerMetrics struct {
	State       *prometheus.GaugeVec
	Transitions *prometheus.CounterVec
}

// NewBreakerMetrics registers breaker collectors on the given registry,
// reusing collectors that are already present.
func NewBreakerMetrics(namespace string, reg prometheus.Registerer) *BreakerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &BreakerMetrics{}

	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "Current breaker state: 0=closed, 1=open, 2=half-open.",
	}, []string{"target"})
	if g, ok := registerOrReuse(reg, state).(*prometheus.GaugeVec); ok {
		m.State = g
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_transitions_total",
		Help:      "Count of breaker state transitions.",
	}, []string{"target", "from", "to"})
	if c, ok := registerOrReuse(reg, transitions).(*prometheus.CounterVec); ok {
		m.Transitions = c
	}

	return m
}

func registerOrReuse(reg prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return collector
}

// BreakerConfig tunes a Breaker. The zero value gets sensible defaults.
type BreakerConfig struct {
	// MinRequests is the number of observed calls before the failure
	// ratio is evaluated.
	MinRequests int
	// FailureRatio in (0, 1]; the breaker opens at or above it.
	FailureRatio float64
	// OpenFor is the cool-off before a half-open probe is allowed.
	OpenFor time.Duration
	// Target labels metrics and log events, e.g. the upstream host.
	Target  string
	Logger  zerolog.Logger
	Metrics *BreakerMetrics
}

// Breaker is a failure-ratio circuit breaker guarding one upstream
// dependency. Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	cfg       BreakerConfig
}

// NewBreaker constructs a breaker that opens when the rolling failure
// ratio reaches the configured threshold.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 5
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.Target == "" {
		cfg.Target = "default"
	}
	b := &Breaker{state: Closed, cfg: cfg}
	b.recordStateLocked()
	return b
}

// Allow reports whether a call is permitted. When open, a single probe is
// let through once the cool-off has elapsed and the breaker moves to
// half-open.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if time.Since(b.openedAt) >= b.cfg.OpenFor {
			b.transitionLocked(HalfOpen)
			return true
		}
		return false
	}
	return true
}

// Report records the outcome of a permitted call.
func (b *Breaker) Report(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.transitionLocked(Closed)
		} else {
			b.transitionLocked(Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.cfg.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.cfg.FailureRatio {
		b.transitionLocked(Open)
		return
	}
	if total > b.cfg.MinRequests*2 {
		// keep the window rolling instead of accumulating forever
		b.successes = int(math.Ceil(float64(b.successes) * 0.5))
		b.failures = int(math.Ceil(float64(b.failures) * 0.5))
	}
}

// CurrentState returns the breaker state at this instant.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transitionLocked(next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures = 0
	b.successes = 0
	if next == Open {
		b.openedAt = time.Now()
	} else {
		b.openedAt = time.Time{}
	}
	b.recordStateLocked()
	if b.cfg.Metrics != nil && b.cfg.Metrics.Transitions != nil {
		b.cfg.Metrics.Transitions.WithLabelValues(b.cfg.Target, prev.String(), next.String()).Inc()
	}
	b.cfg.Logger.Info().
		Str("target", b.cfg.Target).
		Str("from_state", prev.String()).
		Str("to_state", next.String()).
		Msg("breaker_transition")
}

func (b *Breaker) recordStateLocked() {
	if b.cfg.Metrics == nil || b.cfg.Metrics.State == nil {
		return
	}
	b.cfg.Metrics.State.WithLabelValues(b.cfg.Target).Set(float64(b.state))
}
