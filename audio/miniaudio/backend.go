//go:build !nocgo
// +build !nocgo

package miniaudio

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"

	"github.com/voiceclock/voiceclock/audio"
	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/engine"
)

// Backend owns a miniaudio context and opens one playback device per
// stream or clip.
type Backend struct {
	context *malgo.AllocatedContext
	format  pcm.Format
	volumes engine.Volumes
	logger  *log.Logger
}

// NewBackend initializes a miniaudio context for format.
func NewBackend(format pcm.Format, volumes engine.Volumes, logger *log.Logger) (*Backend, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("miniaudio")

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrContextNotReady, err)
	}

	return &Backend{
		context: ctx,
		format:  format,
		volumes: volumes,
		logger:  logger,
	}, nil
}

// Format returns the device sample format.
func (b *Backend) Format() pcm.Format {
	return b.format
}

// Close releases the miniaudio context. Devices must be closed first.
func (b *Backend) Close() error {
	err := b.context.Uninit()
	b.context.Free()
	return err
}

// NewStreamDevice opens a playback device over data. It implements
// engine.StreamDeviceFactory.
func (b *Backend) NewStreamDevice(_ context.Context, data []byte, format pcm.Format, attrs engine.Attributes, cb engine.Callbacks) (engine.StreamDevice, error) {
	if format != b.format {
		return nil, fmt.Errorf("stream format %+v does not match device format %+v", format, b.format)
	}
	return b.open(data, attrs, cb)
}

// ClipPlayers returns a clip player factory that decodes through source.
func (b *Backend) ClipPlayers(source audio.ClipSource) engine.ClipPlayerFactory {
	return clipPlayers{backend: b, source: source}
}

func (b *Backend) open(data []byte, attrs engine.Attributes, cb engine.Callbacks) (*Device, error) {
	if len(data) == 0 {
		return nil, audio.ErrEmptyStream
	}
	if err := b.format.Check(data); err != nil {
		return nil, err
	}

	// Volume is baked into a private copy; miniaudio has no per-device gain.
	buf := append([]byte(nil), data...)
	pcm.Scale(buf, b.volumes.For(attrs.Usage))

	d := &Device{data: buf, cb: cb}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(b.format.SampleRate)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(b.format.Channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(b.format.SampleRate / 20) // ~50ms
	config.Periods = 4

	device, err := malgo.InitDevice(b.context.Context, config, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) { d.process(out) },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open playback device: %w", err)
	}
	d.hw = device
	b.logger.Debug("Opened playback device", "duration", b.format.Duration(len(buf)), "usage", attrs.Usage)
	return d, nil
}
