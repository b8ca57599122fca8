// Package miniaudio provides stream devices and clip players backed by
// miniaudio through malgo, as an alternative to the oto backend.
package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/voiceclock/voiceclock/audio"
	"github.com/voiceclock/voiceclock/engine"
	"github.com/voiceclock/voiceclock/sequence"
)

type clipPlayers struct {
	backend *Backend
	source  audio.ClipSource
}

func (f clipPlayers) NewClipPlayer(ctx context.Context, clip sequence.ClipID, attrs engine.Attributes, cb engine.Callbacks) (engine.ClipPlayer, error) {
	data, err := f.source.Decode(ctx, clip)
	if err != nil {
		return nil, err
	}
	d, err := f.backend.open(data, attrs, cb)
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", clip, err)
	}
	return clipPlayer{d}, nil
}

type clipPlayer struct {
	*Device
}

func (c clipPlayer) Start() error {
	if err := c.Rewind(); err != nil {
		return err
	}
	return c.Device.Start()
}

// hardware is the part of *malgo.Device a Device drives.
type hardware interface {
	IsStarted() bool
	Start() error
	Uninit()
}

// Device plays one buffer on its own miniaudio device. The device keeps
// running once started and outputs silence whenever the buffer is paused or
// exhausted.
type Device struct {
	hw hardware
	cb engine.Callbacks

	mu      sync.Mutex
	data    []byte
	pos     int
	playing bool
	closed  bool
}

// Start plays from the current position.
func (d *Device) Start() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return audio.ErrClosed
	}
	d.playing = true
	d.mu.Unlock()

	// The data callback takes d.mu, so the device is started without it.
	if !d.hw.IsStarted() {
		if err := d.hw.Start(); err != nil {
			d.mu.Lock()
			d.playing = false
			d.mu.Unlock()
			return fmt.Errorf("failed to start playback device: %w", err)
		}
	}
	return nil
}

// Rewind moves back to the beginning of the buffer.
func (d *Device) Rewind() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return audio.ErrClosed
	}
	d.pos = 0
	return nil
}

// Close stops and releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.playing = false
	d.data = nil
	d.mu.Unlock()

	d.hw.Uninit()
	return nil
}

// process fills out from the buffer. It runs on the audio thread.
func (d *Device) process(out []byte) {
	d.mu.Lock()
	n := 0
	if d.playing {
		n = copy(out, d.data[d.pos:])
		d.pos += n
	}
	clear(out[n:])

	finished := d.playing && d.pos >= len(d.data)
	if finished {
		d.playing = false
	}
	d.mu.Unlock()

	if finished && d.cb.OnComplete != nil {
		go d.cb.OnComplete()
	}
}
