// Package announcer turns a time of day into a spoken announcement. A
// Player builds the clip sequence for the configured reading mode, hands it
// to a playback engine and reports progress to a Listener. At most one
// announcement plays at a time.
package announcer

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/voiceclock/voiceclock/engine"
	"github.com/voiceclock/voiceclock/sequence"
)

// Listener receives announcement events. Methods run on the engine's
// goroutine; a panic inside one is recovered and logged.
type Listener interface {
	// OnContinue is called before every clip after the first.
	OnContinue(p *Player)
	// OnEnd is called when the announcement finished playing.
	OnEnd(p *Player)
	// OnError is called when the announcement failed.
	OnError(p *Player)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Continue func(*Player)
	End      func(*Player)
	Error    func(*Player)
}

func (l ListenerFuncs) OnContinue(p *Player) {
	if l.Continue != nil {
		l.Continue(p)
	}
}

func (l ListenerFuncs) OnEnd(p *Player) {
	if l.End != nil {
		l.End(p)
	}
}

func (l ListenerFuncs) OnError(p *Player) {
	if l.Error != nil {
		l.Error(p)
	}
}

// Option configures a Player.
type Option func(*Player)

// WithClock sets the time source for PlayVoiceCurrent and the engines.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Player) {
		p.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Player) {
		p.baseLogger = logger
	}
}

// WithClipPlayers sets the devices used by engine version A.
func WithClipPlayers(f engine.ClipPlayerFactory) Option {
	return func(p *Player) {
		p.clipPlayers = f
	}
}

// WithDecoder sets the clip decoder used by engine version B.
func WithDecoder(d engine.Decoder) Option {
	return func(p *Player) {
		p.decoder = d
	}
}

// WithStreamDevices sets the devices used by engine version B.
func WithStreamDevices(f engine.StreamDeviceFactory) Option {
	return func(p *Player) {
		p.streamDevices = f
	}
}

// WithListener sets the initial listener.
func WithListener(l Listener) Option {
	return func(p *Player) {
		p.listener = l
	}
}

// Player announces times of day.
type Player struct {
	cfg           Config
	clock         clockwork.Clock
	baseLogger    *log.Logger
	logger        *log.Logger
	clipPlayers   engine.ClipPlayerFactory
	decoder       engine.Decoder
	streamDevices engine.StreamDeviceFactory

	mu       sync.Mutex
	listener Listener
	repeat   bool
	notice   sequence.ClipID
	attrs    engine.Attributes
	active   bool
	current  engine.Engine
	// live is the id of the session whose events reach the listener.
	live string
}

// New creates a Player. The engine version in cfg decides which devices
// must be supplied: version A needs WithClipPlayers, version B needs
// WithDecoder and WithStreamDevices.
func New(cfg Config, opts ...Option) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Player{
		cfg:    cfg,
		repeat: cfg.Repeat,
		notice: cfg.NoticeClip,
		attrs:  cfg.Attributes,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.baseLogger == nil {
		p.baseLogger = log.Default()
	}
	p.logger = p.baseLogger.WithPrefix("announcer")

	switch cfg.Engine {
	case VersionA:
		if p.clipPlayers == nil {
			return nil, fmt.Errorf("%w: engine %s needs clip players", ErrInvalidConfig, cfg.Engine)
		}
	case VersionB:
		if p.decoder == nil || p.streamDevices == nil {
			return nil, fmt.Errorf("%w: engine %s needs a decoder and stream devices", ErrInvalidConfig, cfg.Engine)
		}
	}
	return p, nil
}

// PlayVoice announces hourOfDay:minute in the configured reading mode.
func (p *Player) PlayVoice(hourOfDay, minute int) bool {
	return p.PlayVoiceMode(p.cfg.Mode, hourOfDay, minute)
}

// PlayVoiceCurrent announces the current time in the configured reading mode.
func (p *Player) PlayVoiceCurrent() bool {
	return p.PlayVoiceCurrentMode(p.cfg.Mode)
}

// PlayVoiceCurrentMode announces the current time in mode.
func (p *Player) PlayVoiceCurrentMode(mode sequence.Mode) bool {
	now := p.clock.Now()
	return p.PlayVoiceMode(mode, now.Hour(), now.Minute())
}

// PlayVoiceMode announces hourOfDay:minute in mode. It returns false
// without side effects when an announcement is already playing or the time
// is invalid.
func (p *Player) PlayVoiceMode(mode sequence.Mode, hourOfDay, minute int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		p.logger.Debug("Announcement already playing")
		return false
	}

	cfg := p.cfg
	cfg.NoticeClip = p.notice
	seq, err := BuildSequence(cfg, mode, hourOfDay, minute)
	if err != nil {
		p.logger.Error("Illegal time",
			"mode", mode,
			"params", sequence.Describe(mode, hourOfDay, minute),
			"error", err)
		return false
	}

	if p.current != nil {
		p.current.Release()
		p.current = nil
	}

	var id string
	eng, err := p.newEngine(seq, engine.Events{
		OnPrepare:    func(e engine.Engine) { e.Play() },
		OnContinue:   func() { p.deliver(id, "continue", false, Listener.OnContinue) },
		OnCompletion: func() { p.deliver(id, "end", true, Listener.OnEnd) },
		OnError:      func(error) { p.deliver(id, "error", true, Listener.OnError) },
	})
	if err != nil {
		p.logger.Error("Failed to create playback engine", "error", err)
		return false
	}
	id = eng.ID()

	if err := eng.Start(); err != nil {
		p.logger.Error("Failed to start playback engine", "error", err)
		return false
	}
	p.current = eng
	p.live = id
	p.active = true

	p.logger.Debug("Announcing",
		"time", fmt.Sprintf("%02d:%02d", hourOfDay, minute),
		"mode", mode,
		"engine", p.cfg.Engine,
		"sequence", seq.String())
	return true
}

func (p *Player) newEngine(seq sequence.Sequence, events engine.Events) (engine.Engine, error) {
	cfg := engine.Config{
		Attributes:        p.attrs,
		Repeat:            p.repeat,
		DelayBeforeRepeat: p.cfg.Delays.RepeatDelay(),
		Watchdog:          p.cfg.Watchdog,
		EndDelay:          p.cfg.EndDelay,
		StreamOffset:      p.cfg.StreamOffset(),
	}
	opts := []engine.Option{
		engine.WithClock(p.clock),
		engine.WithLogger(p.baseLogger),
	}

	if p.cfg.Engine == VersionA {
		return engine.NewPerClip(seq, cfg, p.clipPlayers, events, opts...)
	}
	return engine.NewStream(seq, cfg, p.decoder, p.streamDevices, events, opts...)
}

// deliver passes an event of session id to the listener. Events of released
// or replaced sessions are dropped. A final event ends the announcement.
func (p *Player) deliver(id, event string, final bool, call func(Listener, *Player)) {
	p.mu.Lock()
	if id == "" || p.live != id {
		p.mu.Unlock()
		p.logger.Debug("Dropped event of stale session", "event", event, "session", id)
		return
	}
	if final {
		p.live = ""
		p.active = false
	}
	listener := p.listener
	p.mu.Unlock()
	if listener == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Listener panicked", "event", event, "session", id, "panic", r)
		}
	}()
	call(listener, p)
}

// SetRepeat sets whether later announcements repeat until released.
func (p *Player) SetRepeat(enable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = enable
}

// SetNoticeClip sets a clip played before every later announcement. An
// empty id disables it.
func (p *Player) SetNoticeClip(clip sequence.ClipID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice = clip
}

// SetAttributes sets the audio attributes of later announcements.
func (p *Player) SetAttributes(attrs engine.Attributes) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attrs = attrs
}

// SetListener replaces the listener. Nil removes it.
func (p *Player) SetListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// Release stops the current announcement. No end or error event follows,
// and a new announcement may start right away.
func (p *Player) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.Release()
	}
	p.live = ""
	p.active = false
}

// IsPlaying reports whether an announcement is in progress.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Current returns the engine of the latest announcement, or nil.
func (p *Player) Current() engine.Engine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
