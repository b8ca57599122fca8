package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/sequence"
)

// Stream decodes every clip up front, lays the sequence out as one PCM
// buffer with silence standing in for the delays, and plays that buffer
// through a single device. It emits no OnContinue events and has no
// watchdog.
type Stream struct {
	*session
	decoder Decoder
	devices StreamDeviceFactory

	// guarded by session.mu
	device     StreamDevice
	streamDone bool
}

// NewStream creates a unified-stream session. Call Start to begin preparing.
func NewStream(seq sequence.Sequence, cfg Config, decoder Decoder, devices StreamDeviceFactory, events Events, opts ...Option) (*Stream, error) {
	if decoder == nil {
		return nil, errors.New("decoder is required")
	}
	if devices == nil {
		return nil, errors.New("stream device factory is required")
	}
	s, err := newSession("stream", seq, cfg, events, opts)
	if err != nil {
		return nil, err
	}
	e := &Stream{session: s, decoder: decoder, devices: devices}
	s.self = e
	return e, nil
}

// Start spawns the session goroutine.
func (e *Stream) Start() error {
	return e.start(e.run)
}

// Release cancels the session and closes the device right away.
func (e *Stream) Release() {
	e.session.Release()
	e.closeDevice()
}

func (e *Stream) run() {
	if err := e.prepare(); err != nil {
		e.fail(fmt.Errorf("%w: %w", ErrPrepare, err))
		e.closeDevice()
		return
	}
	if !e.arm() {
		e.closeDevice()
		return
	}
	if err := e.playPasses(e.playOnce); err != nil {
		e.fail(err)
		e.closeDevice()
		return
	}
	e.complete()
	e.closeDevice()
}

func (e *Stream) prepare() error {
	format := e.decoder.Format()
	clips, err := e.decoder.DecodeAll(e.ctx, e.seq.Clips())
	if err != nil {
		return err
	}

	data, err := BuildStream(e.seq, clips, format, e.cfg.StreamOffset)
	if err != nil {
		return err
	}

	device, err := e.devices.NewStreamDevice(e.ctx, data, format, e.cfg.Attributes, Callbacks{
		OnComplete: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.streamDone = true
			e.broadcastLocked()
		},
		OnError: func(err error) {
			e.deviceFault(fmt.Errorf("%w: %w", ErrDevice, err))
		},
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.disposing {
		e.mu.Unlock()
		if err := device.Close(); err != nil {
			e.logger.Warn("Closing stream device failed", "error", err)
		}
		return nil
	}
	e.device = device
	e.mu.Unlock()

	e.logger.Debug("Stream ready", "bytes", len(data), "duration", format.Duration(len(data)))
	return nil
}

func (e *Stream) playOnce(pass int) error {
	e.mu.Lock()
	device := e.device
	e.streamDone = false
	e.mu.Unlock()
	if device == nil {
		return nil
	}

	if pass > 0 {
		if err := device.Rewind(); err != nil {
			return fmt.Errorf("%w: rewind: %w", ErrDevice, err)
		}
	}
	if err := device.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrDevice, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.awaitLocked(func() bool { return e.streamDone || e.fault != nil }, 0)
	return e.fault
}

func (e *Stream) closeDevice() {
	e.mu.Lock()
	device := e.device
	e.device = nil
	e.mu.Unlock()

	if device != nil {
		if err := device.Close(); err != nil {
			e.logger.Warn("Closing stream device failed", "error", err)
		}
	}
}

// BuildStream lays out the sequence as one buffer: for every item, the
// item's delay plus offset of silence followed by the clip's samples.
func BuildStream(seq sequence.Sequence, clips [][]byte, format pcm.Format, offset time.Duration) ([]byte, error) {
	if len(clips) != len(seq) {
		return nil, fmt.Errorf("got %d decoded clips for %d items", len(clips), len(seq))
	}

	size := 0
	for i, item := range seq {
		if err := format.Check(clips[i]); err != nil {
			return nil, &ItemError{Index: i, Clip: item.Clip, Err: err}
		}
		size += format.Bytes(item.Delay()+offset) + len(clips[i])
	}

	out := make([]byte, 0, size)
	for i, item := range seq {
		out = append(out, format.Silence(item.Delay()+offset)...)
		out = append(out, clips[i]...)
	}
	return out, nil
}
