package engine

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/voiceclock/voiceclock/sequence"
)

// Option configures a session.
type Option func(*session)

// WithClock sets the time source used for every wait. Defaults to the real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *session) {
		s.clock = clock
	}
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(logger *log.Logger) Option {
	return func(s *session) {
		s.logger = logger
	}
}

// session is the lifecycle core shared by both strategies. All waits go
// through mu and the wake channel, which is closed and replaced to wake
// every waiter at once.
type session struct {
	id     string
	kind   string
	seq    sequence.Sequence
	cfg    Config
	events Events
	clock  clockwork.Clock
	logger *log.Logger
	self   Engine

	// ctx is cancelled by Release so collaborators stop preparing.
	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span

	mu        sync.Mutex
	wake      chan struct{}
	sm        *StateMachine
	started   bool
	armed     bool
	disposing bool
	failed    bool
	fault     error

	done chan struct{}
}

func newSession(kind string, seq sequence.Sequence, cfg Config, events Events, opts []Option) (*session, error) {
	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &session{
		id:     uuid.NewString(),
		kind:   kind,
		seq:    seq.Clone(),
		cfg:    cfg,
		events: events,
		wake:   make(chan struct{}),
		sm:     NewStateMachine(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.logger = s.logger.WithPrefix("engine").With("session", s.id[:8], "engine", kind)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// ID returns the unique session identifier.
func (s *session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.Current()
}

// Done is closed when the session goroutine has exited.
func (s *session) Done() <-chan struct{} {
	return s.done
}

// Play issues the start trigger.
func (s *session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	s.broadcastLocked()
}

// Release cancels the session without waiting for it to wind down. No
// completion or error event is emitted afterwards.
func (s *session) Release() {
	s.mu.Lock()
	if s.sm.Current().Terminal() {
		s.mu.Unlock()
		return
	}
	s.disposing = true
	if !s.started {
		s.transitionLocked(StateReleased)
		close(s.done)
	}
	s.broadcastLocked()
	s.mu.Unlock()

	s.cancel()
	s.logger.Debug("Release requested")
}

func (s *session) start(run func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sm.Current() == StateReleased {
		return ErrReleased
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.transitionLocked(StatePreparing)

	go func() {
		defer close(s.done)
		s.begin()
		defer s.finish()
		run()
	}()
	return nil
}

func (s *session) begin() {
	_, s.span = tracer.Start(s.ctx, "voiceclock.session", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("engine", s.kind),
		attribute.Int("items", len(s.seq)),
		attribute.Bool("repeat", s.cfg.Repeat),
	))
	sessionsStarted.Add(s.ctx, 1, metric.WithAttributes(attribute.String("engine", s.kind)))
	s.logger.Debug("Session started", "sequence", s.seq.String(), "repeat", s.cfg.Repeat)
}

func (s *session) finish() {
	s.mu.Lock()
	if !s.sm.Current().Terminal() {
		s.transitionLocked(StateReleased)
	}
	state := s.sm.Current()
	s.mu.Unlock()

	s.cancel()
	s.span.SetAttributes(attribute.String("state", state.String()))
	s.span.End()
	s.logger.Debug("Session finished", "state", state)
}

func (s *session) transitionLocked(to State) bool {
	from := s.sm.Current()
	if !s.sm.Transition(to) {
		s.logger.Warn("Invalid state transition", "from", from, "to", to)
		return false
	}
	s.logger.Debug("State changed", "from", from, "to", to)
	return true
}

func (s *session) broadcastLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}

func (s *session) isDisposing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposing
}

// awaitLocked waits until cond holds, the session is released or timeout
// elapses. It reports expired only if cond still fails once the deadline
// fires. A zero timeout waits without deadline. s.mu must be held; it is
// released while waiting and held again on return.
func (s *session) awaitLocked(cond func() bool, timeout time.Duration) (expired bool) {
	if s.disposing || cond() {
		return false
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := s.clock.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.Chan()
	}

	for !s.disposing && !cond() {
		wake := s.wake
		s.mu.Unlock()
		select {
		case <-wake:
		case <-deadline:
			expired = true
		}
		s.mu.Lock()
		if expired {
			return !s.disposing && !cond()
		}
	}
	return false
}

// sleepLocked pauses for d unless the session is released first. It reports
// whether the session is still live.
func (s *session) sleepLocked(d time.Duration) bool {
	if d > 0 {
		s.awaitLocked(func() bool { return false }, d)
	}
	return !s.disposing
}

// arm enters StateArmed, emits OnPrepare and waits for the start trigger.
func (s *session) arm() bool {
	s.mu.Lock()
	if s.disposing || !s.transitionLocked(StateArmed) {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	s.emitPrepare()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitLocked(func() bool { return s.armed }, 0)
	if s.disposing {
		return false
	}
	return s.transitionLocked(StatePlaying)
}

// playPasses runs once for the first pass and again for every repeat.
func (s *session) playPasses(once func(pass int) error) error {
	for pass := 0; ; pass++ {
		if pass > 0 && !s.repeatPause() {
			return nil
		}
		if err := once(pass); err != nil {
			if s.isDisposing() {
				s.logger.Debug("Ignoring error after release", "error", err)
				return nil
			}
			return err
		}
		if s.isDisposing() || !s.cfg.Repeat {
			return nil
		}
	}
}

func (s *session) repeatPause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposing || !s.transitionLocked(StateRepeating) {
		return false
	}
	if !s.sleepLocked(s.cfg.DelayBeforeRepeat) {
		return false
	}
	return s.transitionLocked(StatePlaying)
}

// deviceFault records the first error reported by a device callback.
func (s *session) deviceFault(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault == nil {
		s.fault = err
	}
	s.broadcastLocked()
}

// complete enters StateCompleting and emits OnCompletion unless the session
// was released or failed.
func (s *session) complete() bool {
	s.mu.Lock()
	if s.disposing || s.failed || !s.transitionLocked(StateCompleting) {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	sessionsCompleted.Add(s.ctx, 1, metric.WithAttributes(attribute.String("engine", s.kind)))
	s.logger.Debug("Sequence completed")
	if s.events.OnCompletion != nil {
		s.emit("completion", s.events.OnCompletion)
	}
	return true
}

// fail moves to StateErrored and emits OnError once. Errors raised after
// Release or after completion are only logged.
func (s *session) fail(err error) {
	s.mu.Lock()
	if s.failed || s.disposing {
		s.mu.Unlock()
		s.logger.Debug("Suppressed session error", "error", err)
		return
	}
	s.failed = true
	// OnCompletion has already been emitted once the session is completing.
	completed := s.sm.Current() == StateCompleting
	s.transitionLocked(StateErrored)
	s.mu.Unlock()

	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	sessionsFailed.Add(s.ctx, 1, metric.WithAttributes(attribute.String("engine", s.kind)))
	s.logger.Error("Playback failed", "error", err)

	if s.events.OnError != nil && !completed {
		s.emit("error", func() { s.events.OnError(err) })
	}
}

func (s *session) emitPrepare() {
	if s.events.OnPrepare != nil {
		s.emit("prepare", func() { s.events.OnPrepare(s.self) })
	}
}

func (s *session) emitContinue() {
	if s.events.OnContinue != nil && !s.isDisposing() {
		s.emit("continue", s.events.OnContinue)
	}
}

// emit runs one event handler. A panicking handler is logged and does not
// reach the session goroutine.
func (s *session) emit(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Event handler panicked", "event", name, "panic", r)
		}
	}()
	fn()
}
