//go:build nocgo
// +build nocgo

package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/voiceclock/voiceclock/audio/pcm"
)

// OtoBackend stub for nocgo builds
type OtoBackend struct {
	format pcm.Format
}

// NewOtoBackend always fails: there is no output device without cgo.
func NewOtoBackend(format pcm.Format, _ time.Duration) (*OtoBackend, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	return nil, fmt.Errorf("%w: audio not available in nocgo build", ErrContextNotReady)
}

func (b *OtoBackend) Format() pcm.Format {
	return b.format
}

func (b *OtoBackend) NewPlayer(io.ReadSeeker) Player {
	return nopPlayer{}
}

type nopPlayer struct{}

func (nopPlayer) Play() {}
func (nopPlayer) Pause() {}
func (nopPlayer) IsPlaying() bool { return false }
func (nopPlayer) Err() error { return ErrContextNotReady }
func (nopPlayer) Seek(int64, int) (int64, error) { return 0, ErrContextNotReady }
func (nopPlayer) SetVolume(float64) {}
func (nopPlayer) Close() error { return nil }
