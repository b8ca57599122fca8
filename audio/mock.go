package audio

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/voiceclock/voiceclock/audio/pcm"
)

// MockBackend simulates an output device. Players finish after the playing
// time of their remaining bytes divided by Speed.
type MockBackend struct {
	format pcm.Format

	// Speed scales simulated playback; 1 is real time.
	Speed float64
	// PlayErr, if set, is reported by every player when it reaches the end.
	PlayErr error

	mu      sync.Mutex
	players []*MockPlayer
}

// NewMockBackend creates a real-time mock backend.
func NewMockBackend(format pcm.Format) *MockBackend {
	return &MockBackend{format: format, Speed: 1}
}

// Format returns the simulated device format.
func (b *MockBackend) Format() pcm.Format {
	return b.format
}

// NewPlayer opens a simulated player over r.
func (b *MockBackend) NewPlayer(r io.ReadSeeker) Player {
	size, _ := r.Seek(0, io.SeekEnd)
	_, _ = r.Seek(0, io.SeekStart)

	p := &MockPlayer{backend: b, size: size, volume: 1.0}
	b.mu.Lock()
	b.players = append(b.players, p)
	b.mu.Unlock()
	return p
}

// Players returns every player opened so far.
func (b *MockBackend) Players() []*MockPlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MockPlayer(nil), b.players...)
}

// MockPlayer implements Player without producing sound.
type MockPlayer struct {
	backend *MockBackend
	size    int64

	mu        sync.Mutex
	pos       int64
	playing   bool
	closed    bool
	err       error
	volume    float64
	timer     *time.Timer
	tick      int
	playCount int
}

// Play starts or resumes simulated playback.
func (p *MockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.playing {
		return
	}
	p.playing = true
	p.playCount++
	p.scheduleLocked()
}

func (p *MockPlayer) scheduleLocked() {
	speed := p.backend.Speed
	if speed <= 0 {
		speed = 1
	}
	p.tick++
	tick := p.tick
	remaining := p.backend.format.Duration(int(p.size - p.pos))
	p.timer = time.AfterFunc(time.Duration(float64(remaining)/speed), func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.playing || p.tick != tick {
			return
		}
		p.playing = false
		p.pos = p.size
		if p.backend.PlayErr != nil {
			p.err = p.backend.PlayErr
		}
	})
}

func (p *MockPlayer) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Pause stops simulated playback.
func (p *MockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.playing = false
}

// IsPlaying reports whether the simulated player is playing.
func (p *MockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Err returns the simulated playback error.
func (p *MockPlayer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Seek supports io.SeekStart only.
func (p *MockPlayer) Seek(offset int64, whence int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if whence != io.SeekStart {
		return p.pos, errors.New("mock player only seeks from start")
	}
	if offset < 0 || offset > p.size {
		return p.pos, errors.New("seek out of range")
	}
	p.stopLocked()
	p.pos = offset
	if p.playing {
		p.scheduleLocked()
	}
	return p.pos, nil
}

// SetVolume records the volume.
func (p *MockPlayer) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
}

// Close releases the simulated player.
func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.playing = false
	p.closed = true
	return nil
}

// Volume returns the last volume set.
func (p *MockPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlayCount returns how often playback was started.
func (p *MockPlayer) PlayCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playCount
}

// Closed reports whether Close was called.
func (p *MockPlayer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
