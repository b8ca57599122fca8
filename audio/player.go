package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/engine"
	"github.com/voiceclock/voiceclock/sequence"
)

// DefaultPollInterval is how often a playing device checks for completion.
const DefaultPollInterval = 10 * time.Millisecond

// DeviceConfig contains settings shared by clip players and stream devices.
type DeviceConfig struct {
	Volumes      engine.Volumes
	PollInterval time.Duration
	Clock        clockwork.Clock
	Logger       *log.Logger
}

func (c DeviceConfig) withDefaults() DeviceConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	c.Logger = c.Logger.WithPrefix("audio")
	return c
}

// ClipSource decodes one clip to PCM in the backend's format.
type ClipSource interface {
	Decode(ctx context.Context, clip sequence.ClipID) ([]byte, error)
}

// ClipPlayers opens one oto player per clip. It implements
// engine.ClipPlayerFactory.
type ClipPlayers struct {
	backend Backend
	source  ClipSource
	config  DeviceConfig
}

// NewClipPlayers creates a clip player factory.
func NewClipPlayers(backend Backend, source ClipSource, config DeviceConfig) *ClipPlayers {
	return &ClipPlayers{backend: backend, source: source, config: config.withDefaults()}
}

// NewClipPlayer decodes clip and opens a player for it.
func (f *ClipPlayers) NewClipPlayer(ctx context.Context, clip sequence.ClipID, attrs engine.Attributes, cb engine.Callbacks) (engine.ClipPlayer, error) {
	data, err := f.source.Decode(ctx, clip)
	if err != nil {
		return nil, err
	}
	p, err := newBufferPlayer(f.backend, data, attrs, cb, f.config)
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", clip, err)
	}
	return clipPlayer{p}, nil
}

// StreamDevices opens one oto player over a whole rendered sequence. It
// implements engine.StreamDeviceFactory.
type StreamDevices struct {
	backend Backend
	config  DeviceConfig
}

// NewStreamDevices creates a stream device factory.
func NewStreamDevices(backend Backend, config DeviceConfig) *StreamDevices {
	return &StreamDevices{backend: backend, config: config.withDefaults()}
}

// NewStreamDevice opens a device over data, which must be in the backend's format.
func (f *StreamDevices) NewStreamDevice(_ context.Context, data []byte, format pcm.Format, attrs engine.Attributes, cb engine.Callbacks) (engine.StreamDevice, error) {
	if format != f.backend.Format() {
		return nil, fmt.Errorf("stream format %+v does not match device format %+v", format, f.backend.Format())
	}
	return newBufferPlayer(f.backend, data, attrs, cb, f.config)
}

// clipPlayer always starts from the beginning of its clip.
type clipPlayer struct {
	*bufferPlayer
}

func (c clipPlayer) Start() error {
	if err := c.Rewind(); err != nil {
		return err
	}
	return c.bufferPlayer.Start()
}

// bufferPlayer plays an in-memory buffer and reports the end of playback
// through its callbacks. A monitor goroutine polls the player while it plays.
type bufferPlayer struct {
	// Keep audio data alive during playback.
	data   []byte
	player Player
	cb     engine.Callbacks
	config DeviceConfig

	mu     sync.Mutex
	closed bool
	gen    int
}

func newBufferPlayer(backend Backend, data []byte, attrs engine.Attributes, cb engine.Callbacks, config DeviceConfig) (*bufferPlayer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyStream
	}
	if err := backend.Format().Check(data); err != nil {
		return nil, err
	}

	player := backend.NewPlayer(bytes.NewReader(data))
	player.SetVolume(config.Volumes.For(attrs.Usage))

	return &bufferPlayer{
		data:   data,
		player: player,
		cb:     cb,
		config: config,
	}, nil
}

// Start plays from the current position to the end of the buffer.
func (p *bufferPlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.player.Err(); err != nil {
		return err
	}

	p.gen++
	p.player.Play()
	go p.monitor(p.gen)
	return nil
}

// Rewind moves back to the beginning of the buffer.
func (p *bufferPlayer) Rewind() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if _, err := p.player.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind: %w", err)
	}
	return nil
}

// Close stops playback and releases the player.
func (p *bufferPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.player.Pause()
	err := p.player.Close()
	p.data = nil
	return err
}

func (p *bufferPlayer) monitor(gen int) {
	ticker := p.config.Clock.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for range ticker.Chan() {
		p.mu.Lock()
		if p.closed || p.gen != gen {
			p.mu.Unlock()
			return
		}
		if err := p.player.Err(); err != nil {
			p.mu.Unlock()
			p.config.Logger.Debug("Playback error", "error", err)
			if p.cb.OnError != nil {
				p.cb.OnError(err)
			}
			return
		}
		if p.player.IsPlaying() {
			p.mu.Unlock()
			continue
		}
		p.mu.Unlock()

		if p.cb.OnComplete != nil {
			p.cb.OnComplete()
		}
		return
	}
}
