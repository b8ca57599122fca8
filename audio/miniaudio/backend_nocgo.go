//go:build nocgo
// +build nocgo

package miniaudio

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/voiceclock/voiceclock/audio"
	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/engine"
)

// Backend stub for nocgo builds
type Backend struct {
	format pcm.Format
}

// NewBackend always fails: malgo needs cgo.
func NewBackend(format pcm.Format, _ engine.Volumes, _ *log.Logger) (*Backend, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	return nil, fmt.Errorf("%w: miniaudio not available in nocgo build", audio.ErrContextNotReady)
}

func (b *Backend) Format() pcm.Format {
	return b.format
}

func (b *Backend) Close() error {
	return nil
}

func (b *Backend) NewStreamDevice(context.Context, []byte, pcm.Format, engine.Attributes, engine.Callbacks) (engine.StreamDevice, error) {
	return nil, audio.ErrContextNotReady
}

func (b *Backend) ClipPlayers(source audio.ClipSource) engine.ClipPlayerFactory {
	return clipPlayers{backend: b, source: source}
}

func (b *Backend) open([]byte, engine.Attributes, engine.Callbacks) (*Device, error) {
	return nil, audio.ErrContextNotReady
}
