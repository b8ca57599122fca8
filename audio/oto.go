//go:build !nocgo
// +build !nocgo

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/voiceclock/voiceclock/audio/pcm"
)

// OtoBackend is the Backend for the real output device.
type OtoBackend struct {
	context *oto.Context
	format  pcm.Format
}

var (
	contextOnce   sync.Once
	sharedContext *oto.Context
	contextFormat pcm.Format
	contextErr    error
)

// NewOtoBackend returns a backend on the process-wide oto context, creating
// the context on first use. oto permits a single context per process, so
// every later call must ask for the same format.
func NewOtoBackend(format pcm.Format, bufferSize time.Duration) (*OtoBackend, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}

	contextOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferSize,
		}

		log.Debug("Initializing audio context",
			"sample_rate", op.SampleRate,
			"channels", op.ChannelCount,
			"buffer_size", op.BufferSize)

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			contextErr = fmt.Errorf("%w: %w", ErrContextNotReady, err)
			return
		}
		<-ready

		sharedContext = ctx
		contextFormat = format
	})

	if contextErr != nil {
		return nil, contextErr
	}
	if format != contextFormat {
		return nil, fmt.Errorf("audio context already open as %d Hz/%d ch, requested %d Hz/%d ch",
			contextFormat.SampleRate, contextFormat.Channels, format.SampleRate, format.Channels)
	}
	return &OtoBackend{context: sharedContext, format: format}, nil
}

// Format returns the context's sample format.
func (b *OtoBackend) Format() pcm.Format {
	return b.format
}

// NewPlayer opens an oto player reading from r.
func (b *OtoBackend) NewPlayer(r io.ReadSeeker) Player {
	return b.context.NewPlayer(r)
}
