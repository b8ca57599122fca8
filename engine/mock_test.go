package engine

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/sequence"
)

// fakeClipFactory hands out players that complete after clipDuration.
type fakeClipFactory struct {
	clipDuration time.Duration
	stall        map[sequence.ClipID]bool
	failOpen     map[sequence.ClipID]error
	failStart    map[sequence.ClipID]error
	deviceErr    map[sequence.ClipID]error

	mu      sync.Mutex
	started []sequence.ClipID
	opened  int
	closed  int
}

func (f *fakeClipFactory) NewClipPlayer(_ context.Context, clip sequence.ClipID, _ Attributes, cb Callbacks) (ClipPlayer, error) {
	if err := f.failOpen[clip]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
	return &fakeClipPlayer{factory: f, clip: clip, cb: cb}, nil
}

func (f *fakeClipFactory) Started() []sequence.ClipID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sequence.ClipID(nil), f.started...)
}

func (f *fakeClipFactory) Counts() (opened, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.closed
}

type fakeClipPlayer struct {
	factory *fakeClipFactory
	clip    sequence.ClipID
	cb      Callbacks
}

func (p *fakeClipPlayer) Start() error {
	f := p.factory
	f.mu.Lock()
	f.started = append(f.started, p.clip)
	f.mu.Unlock()

	if err := f.failStart[p.clip]; err != nil {
		return err
	}
	if f.stall[p.clip] {
		return nil
	}
	go func() {
		time.Sleep(f.clipDuration)
		if err := f.deviceErr[p.clip]; err != nil {
			p.cb.OnError(err)
			return
		}
		p.cb.OnComplete()
	}()
	return nil
}

func (p *fakeClipPlayer) Close() error {
	p.factory.mu.Lock()
	defer p.factory.mu.Unlock()
	p.factory.closed++
	return nil
}

// fakeDecoder returns clipLength of non-zero samples per clip.
type fakeDecoder struct {
	format     pcm.Format
	clipLength time.Duration
	fail       map[sequence.ClipID]error
}

func (d *fakeDecoder) Format() pcm.Format {
	return d.format
}

func (d *fakeDecoder) DecodeAll(_ context.Context, clips []sequence.ClipID) ([][]byte, error) {
	out := make([][]byte, len(clips))
	for i, clip := range clips {
		if err := d.fail[clip]; err != nil {
			return nil, err
		}
		out[i] = bytes.Repeat([]byte{0x7f}, d.format.Bytes(d.clipLength))
	}
	return out, nil
}

// fakeStreamFactory records what the engine asks of its single device.
type fakeStreamFactory struct {
	playTime time.Duration
	stall    bool
	openErr  error
	playErr  error

	mu      sync.Mutex
	data    []byte
	starts  int
	rewinds int
	closes  int
}

func (f *fakeStreamFactory) NewStreamDevice(_ context.Context, data []byte, _ pcm.Format, _ Attributes, cb Callbacks) (StreamDevice, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	f.data = data
	f.mu.Unlock()
	return &fakeStream{factory: f, cb: cb}, nil
}

func (f *fakeStreamFactory) Counts() (starts, rewinds, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.rewinds, f.closes
}

type fakeStream struct {
	factory *fakeStreamFactory
	cb      Callbacks
	closed  bool
}

func (s *fakeStream) Start() error {
	f := s.factory
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.closed {
		return errors.New("device closed")
	}
	f.starts++
	if f.stall {
		return nil
	}
	go func() {
		time.Sleep(f.playTime)
		if f.playErr != nil {
			s.cb.OnError(f.playErr)
			return
		}
		s.cb.OnComplete()
	}()
	return nil
}

func (s *fakeStream) Rewind() error {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	if s.closed {
		return errors.New("device closed")
	}
	s.factory.rewinds++
	return nil
}

func (s *fakeStream) Close() error {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.factory.closes++
	}
	return nil
}

// recorder collects events in arrival order.
type recorder struct {
	autoPlay bool

	mu       sync.Mutex
	events   []string
	errs     []error
	prepared chan struct{}
	once     sync.Once
}

func newRecorder(autoPlay bool) *recorder {
	return &recorder{autoPlay: autoPlay, prepared: make(chan struct{})}
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recorder) Events() Events {
	return Events{
		OnPrepare: func(e Engine) {
			r.add("prepare")
			r.once.Do(func() { close(r.prepared) })
			if r.autoPlay {
				e.Play()
			}
		},
		OnContinue:   func() { r.add("continue") },
		OnCompletion: func() { r.add("completion") },
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.add("error")
		},
	}
}

func (r *recorder) Got() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...), append([]error(nil), r.errs...)
}

func waitDone(t *testing.T, e Engine) {
	t.Helper()
	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not finish, state %s", e.State())
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DelayBeforeRepeat = 2 * time.Millisecond
	cfg.EndDelay = time.Millisecond
	return cfg
}
