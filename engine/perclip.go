package engine

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/voiceclock/voiceclock/sequence"
)

// PerClip plays every clip on its own player. Each clip start is guarded by
// a watchdog, and OnContinue is emitted before every clip but the first.
type PerClip struct {
	*session
	factory ClipPlayerFactory

	// guarded by session.mu
	players    []ClipPlayer
	active     int
	activeDone bool
}

// NewPerClip creates a per-clip session. Call Start to begin preparing.
func NewPerClip(seq sequence.Sequence, cfg Config, factory ClipPlayerFactory, events Events, opts ...Option) (*PerClip, error) {
	if factory == nil {
		return nil, errors.New("clip player factory is required")
	}
	s, err := newSession("per-clip", seq, cfg, events, opts)
	if err != nil {
		return nil, err
	}
	e := &PerClip{session: s, factory: factory, active: -1}
	s.self = e
	return e, nil
}

// Start spawns the session goroutine.
func (e *PerClip) Start() error {
	return e.start(e.run)
}

func (e *PerClip) run() {
	if err := e.prepare(); err != nil {
		e.fail(fmt.Errorf("%w: %w", ErrPrepare, err))
		e.teardown()
		return
	}
	if !e.arm() {
		e.teardown()
		return
	}
	if err := e.playPasses(e.playOnce); err != nil {
		e.fail(err)
		e.teardown()
		return
	}

	// Players are detached first so nothing else can touch them while the
	// completion handler runs and the end delay elapses.
	players := e.detach()
	if e.complete() {
		e.mu.Lock()
		e.sleepLocked(e.cfg.EndDelay)
		e.mu.Unlock()
	}
	closePlayers(players, e.logger)
}

func (e *PerClip) prepare() error {
	players := make([]ClipPlayer, 0, len(e.seq))
	for i, item := range e.seq {
		if e.isDisposing() {
			break
		}
		p, err := e.factory.NewClipPlayer(e.ctx, item.Clip, e.cfg.Attributes, e.callbacks(i))
		if err != nil {
			closePlayers(players, e.logger)
			return &ItemError{Index: i, Clip: item.Clip, Err: err}
		}
		players = append(players, p)
	}

	e.mu.Lock()
	e.players = players
	e.mu.Unlock()
	e.logger.Debug("Clip players ready", "count", len(players))
	return nil
}

func (e *PerClip) callbacks(i int) Callbacks {
	return Callbacks{
		OnComplete: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.active == i {
				e.activeDone = true
				e.broadcastLocked()
			}
		},
		OnError: func(err error) {
			e.deviceFault(&ItemError{Index: i, Clip: e.seq[i].Clip, Err: fmt.Errorf("%w: %w", ErrDevice, err)})
		},
	}
}

func (e *PerClip) playOnce(int) error {
	watchdog := e.cfg.watchdog()

	for i, item := range e.seq {
		if i > 0 {
			e.emitContinue()
		}

		e.mu.Lock()
		if !e.sleepLocked(item.Delay()) {
			e.mu.Unlock()
			return nil
		}
		player := e.players[i]
		e.active = i
		e.activeDone = false
		e.mu.Unlock()

		if err := player.Start(); err != nil {
			return &ItemError{Index: i, Clip: item.Clip, Err: fmt.Errorf("%w: %w", ErrDevice, err)}
		}

		e.mu.Lock()
		expired := e.awaitLocked(func() bool { return e.activeDone || e.fault != nil }, watchdog)
		fault, disposing := e.fault, e.disposing
		e.active = -1
		e.mu.Unlock()

		switch {
		case fault != nil:
			return fault
		case expired:
			return &ItemError{Index: i, Clip: item.Clip, Err: fmt.Errorf("%w: no completion within %v", ErrStalled, watchdog)}
		case disposing:
			return nil
		}
	}
	return nil
}

// detach takes ownership of the players away from the session.
func (e *PerClip) detach() []ClipPlayer {
	e.mu.Lock()
	defer e.mu.Unlock()
	players := e.players
	e.players = nil
	return players
}

func (e *PerClip) teardown() {
	closePlayers(e.detach(), e.logger)
}

func closePlayers(players []ClipPlayer, logger *log.Logger) {
	for i, p := range players {
		if err := p.Close(); err != nil {
			logger.Warn("Closing clip player failed", "item", i, "error", err)
		}
	}
}
