package monitor

import (
	"context"
	"sync"
	"time"

	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
)

type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Reconciler re-asserts the firewall rules.
type Reconciler interface {
	Ensure(ctx context.Context, s models.Settings) (int, error)
}

// Restarter brings the uplink back after repeated probe failures.
type Restarter interface {
	RestartNetwork(ctx context.Context, s models.Settings)
}

type Snapshot struct {
	State               State
	ConsecutiveFailures int
	Threshold           int
	LastTarget          string
	LastProbeOK         bool
	LastProbeAt         time.Time
	LastRuleCheck       time.Time
	Restarts            int
	Targets             []string
}

// Monitor is the probe, reconcile and recover loop. All state changes
// happen inside Tick, one tick at a time.
type Monitor struct {
	settings   models.Settings
	cfg        models.MonitorConfig
	targets    *Targets
	prober     Prober
	reconciler Reconciler
	restarter  Restarter
	metrics    *Metrics

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)

	reconcileReq chan struct{}
	tickLock     sync.Mutex

	mu            sync.RWMutex
	state         State
	failures      int
	lastRuleCheck time.Time
	lastTarget    string
	lastProbeOK   bool
	lastProbeAt   time.Time
	restarts      int
}

func New(settings models.Settings, cfg models.MonitorConfig, prober Prober, reconciler Reconciler, restarter Restarter, metrics *Metrics) *Monitor {
	return &Monitor{
		settings:     settings,
		cfg:          cfg,
		targets:      NewTargets(cfg.Targets),
		prober:       prober,
		reconciler:   reconciler,
		restarter:    restarter,
		metrics:      metrics,
		Now:          time.Now,
		Sleep:        sleepContext,
		reconcileReq: make(chan struct{}, 1),
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RequestReconcile asks for a rule pass on the next tick. Requests made
// before that tick collapse into one.
func (m *Monitor) RequestReconcile() {
	select {
	case m.reconcileReq <- struct{}{}:
	default:
	}
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:               m.state,
		ConsecutiveFailures: m.failures,
		Threshold:           m.cfg.FailureThreshold,
		LastTarget:          m.lastTarget,
		LastProbeOK:         m.lastProbeOK,
		LastProbeAt:         m.lastProbeAt,
		LastRuleCheck:       m.lastRuleCheck,
		Restarts:            m.restarts,
		Targets:             m.targets.List(),
	}
}

// Run does an initial rule pass and then ticks every probe interval until
// ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	log.Info().
		Strs("targets", m.targets.List()).
		Dur("interval", m.cfg.ProbeInterval).
		Int("threshold", m.cfg.FailureThreshold).
		Msg("starting connectivity monitor")

	m.reconcile(ctx, "startup")

	for {
		if ctx.Err() != nil {
			log.Info().Msg("connectivity monitor stopped")
			return nil
		}
		m.Tick(ctx)
		m.Sleep(ctx, m.cfg.ProbeInterval)
	}
}

// Tick runs one step: periodic rule check, one probe, and a restart when
// the failure threshold is reached. It returns the state after the step.
func (m *Monitor) Tick(ctx context.Context) State {
	m.tickLock.Lock()
	defer m.tickLock.Unlock()

	if reason, due := m.ruleCheckDue(); due {
		m.reconcile(ctx, reason)
	}

	target := m.targets.Next()
	err := m.prober.Probe(ctx, target)
	m.recordProbe(target, err)

	if m.currentFailures() < m.cfg.FailureThreshold {
		return m.State()
	}

	m.setState(StateRecovering)
	log.Warn().Int("failures", m.currentFailures()).Msg("connection lost, restarting network")
	m.restarter.RestartNetwork(ctx, m.settings)
	m.reconcile(ctx, "after restart")

	m.mu.Lock()
	m.failures = 0
	m.restarts++
	m.state = StateHealthy
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.Restarts.Inc()
	}
	m.publish()
	return StateHealthy
}

func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Monitor) ruleCheckDue() (string, bool) {
	select {
	case <-m.reconcileReq:
		return "requested", true
	default:
	}
	m.mu.RLock()
	last := m.lastRuleCheck
	m.mu.RUnlock()
	if m.Now().Sub(last) >= m.cfg.RuleCheckInterval {
		return "interval", true
	}
	return "", false
}

func (m *Monitor) reconcile(ctx context.Context, reason string) {
	log.Debug().Str("reason", reason).Msg("checking firewall rules")
	applied, err := m.reconciler.Ensure(ctx, m.settings)
	if err != nil {
		if bridgeErrors.GetKind(err) == bridgeErrors.KindDegraded {
			log.Warn().Err(err).Msg("firewall rules not reconciled - skipping this step")
		} else {
			log.Error().Err(err).Msg("firewall reconciliation failed")
		}
	}
	if applied > 0 {
		log.Info().Int("applied", applied).Str("reason", reason).Msg("firewall rules restored")
	}

	m.mu.Lock()
	m.lastRuleCheck = m.Now()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.Reconciliations.Inc()
		m.metrics.RulesApplied.Add(float64(applied))
	}
}

func (m *Monitor) recordProbe(target string, err error) {
	m.mu.Lock()
	m.lastTarget = target
	m.lastProbeAt = m.Now()
	m.lastProbeOK = err == nil
	if err == nil {
		m.failures = 0
		m.state = StateHealthy
	} else {
		m.failures++
		m.state = StateDegraded
	}
	failures := m.failures
	m.mu.Unlock()

	result := "ok"
	if err != nil {
		result = "fail"
		log.Warn().Err(err).Str("target", target).Int("failures", failures).Msg("probe failed")
	} else {
		log.Debug().Str("target", target).Msg("probe ok")
	}
	if m.metrics != nil {
		m.metrics.Probes.WithLabelValues(target, result).Inc()
	}
	m.publish()
}

func (m *Monitor) currentFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.publish()
}

func (m *Monitor) publish() {
	if m.metrics == nil {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.metrics.State.Set(float64(m.state))
	m.metrics.ConsecutiveFailed.Set(float64(m.failures))
}
