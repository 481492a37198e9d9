package strategy

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/utils"
)

// Selection thresholds. Evaluated once per evaluation window of renders and
// guarded by the switch cooldown to prevent thrashing.
const (
	webglMinNodes     = 50
	downgradeFPS      = 30
	downgradeMaxNodes = 100
	upgradeFPS        = 45
	upgradeMinNodes   = 50
	evaluationWindow  = 60
	defaultCooldown   = 5 * time.Second
)

// ErrNoBackend is returned when every rendering backend failed to
// initialize; the canvas cannot be rendered at all.
var ErrNoBackend = errors.New("no rendering backend available")

// Selector owns one active renderer for a module's canvas and swaps it
// wholesale when live FPS feedback crosses the switch thresholds.
type Selector struct {
	factory   ContextFactory
	caps      models.CapabilitySet
	resources WebGLResources
	clock     utils.Clock
	logger    *slog.Logger
	cooldown  time.Duration

	mu          sync.Mutex
	active      Renderer
	renders     int
	fpsSum      float64
	lastSwitch  time.Time
	switchCount int
}

// NewSelector constructs a Selector. cooldown <= 0 uses the default.
func NewSelector(factory ContextFactory, caps models.CapabilitySet, res WebGLResources, clock utils.Clock, logger *slog.Logger, cooldown time.Duration) *Selector {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Selector{
		factory:   factory,
		caps:      caps,
		resources: res,
		clock:     clock,
		logger:    logger,
		cooldown:  cooldown,
	}
}

// Initialize picks and constructs the starting backend for the given scene
// size. WebGL is chosen only for large scenes on capable, non-low-end
// devices; any WebGL construction failure falls back to Canvas2D. A
// Canvas2D failure means no context at all and is surfaced to the caller.
func (s *Selector) Initialize(nodeCount int) (Kind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wantWebGL := nodeCount >= webglMinNodes && s.caps.WebGL && !s.caps.LowEnd
	if wantWebGL {
		if err := s.activateLocked(KindWebGL); err == nil {
			return KindWebGL, nil
		}
		s.logger.Warn("webgl initialization failed, falling back to canvas2d")
	}
	if err := s.activateLocked(KindCanvas2D); err != nil {
		return "", errors.Join(ErrNoBackend, err)
	}
	return KindCanvas2D, nil
}

// AfterRender feeds one render observation. Every evaluationWindow renders
// the selector re-evaluates the strategy against the averaged FPS; switches
// are suppressed inside the cooldown.
func (s *Selector) AfterRender(fps float64, renderMs float64, nodeCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return
	}
	s.active.RecordRender(renderMs)
	s.renders++
	s.fpsSum += fps
	if s.renders < evaluationWindow {
		return
	}

	avgFPS := s.fpsSum / float64(s.renders)
	s.renders = 0
	s.fpsSum = 0

	now := s.clock.Now()
	if now.Sub(s.lastSwitch) < s.cooldown {
		return
	}

	switch s.active.Name() {
	case KindWebGL:
		if avgFPS < downgradeFPS && nodeCount < downgradeMaxNodes {
			s.switchLocked(KindCanvas2D, avgFPS)
		}
	case KindCanvas2D:
		if avgFPS > upgradeFPS && nodeCount > upgradeMinNodes && s.caps.WebGL && !s.caps.LowEnd {
			s.switchLocked(KindWebGL, avgFPS)
		}
	}
}

// switchLocked tears down the outgoing backend only after the incoming one
// initialized, so a failed switch leaves the current backend rendering and
// no GPU resources leak across a successful swap.
func (s *Selector) switchLocked(to Kind, avgFPS float64) {
	from := s.active.Name()
	if err := s.activateLocked(to); err != nil {
		s.logger.Warn("strategy switch failed, keeping current backend",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.Any("error", err))
		return
	}
	s.lastSwitch = s.clock.Now()
	s.switchCount++
	s.logger.Info("rendering strategy switched",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.Float64("avgFPS", avgFPS))
}

func (s *Selector) activateLocked(kind Kind) error {
	var next Renderer
	switch kind {
	case KindWebGL:
		next = NewWebGL(s.factory, s.resources)
	default:
		next = NewCanvas2D(s.factory)
	}
	if err := next.Initialize(); err != nil {
		return err
	}
	if s.active != nil {
		s.active.Cleanup()
	}
	s.active = next
	return nil
}

// Active returns the current backend kind, or empty before Initialize.
func (s *Selector) Active() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.Name()
}

// Metrics returns the active renderer's metrics.
func (s *Selector) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Metrics{}
	}
	return s.active.Metrics()
}

// SwitchCount reports how many successful strategy switches occurred.
func (s *Selector) SwitchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switchCount
}

// Destroy releases the active backend. Idempotent.
func (s *Selector) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Cleanup()
		s.active = nil
	}
}
