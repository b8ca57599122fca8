package announcer

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/voiceclock/voiceclock/engine"
	"github.com/voiceclock/voiceclock/internal/cache"
	"github.com/voiceclock/voiceclock/sequence"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// EngineVersion selects the playback strategy.
type EngineVersion int

const (
	// VersionA plays every clip on its own player.
	VersionA EngineVersion = iota
	// VersionB renders the sequence into one stream.
	VersionB
)

func (v EngineVersion) String() string {
	switch v {
	case VersionA:
		return "a"
	case VersionB:
		return "b"
	default:
		return "unknown"
	}
}

// ParseEngineVersion parses "a" or "b". The strategy names "perclip" and
// "stream" are accepted too.
func ParseEngineVersion(s string) (EngineVersion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "v1", "perclip":
		return VersionA, nil
	case "b", "v2", "stream":
		return VersionB, nil
	default:
		return VersionB, fmt.Errorf("%w: unknown engine version %q", ErrInvalidConfig, s)
	}
}

// Audio backends.
const (
	BackendOto       = "oto"
	BackendMiniaudio = "miniaudio"
)

var validSampleRates = []int{8000, 16000, 22050, 24000, 44100, 48000}

// AudioConfig describes the output device.
type AudioConfig struct {
	Backend    string
	SampleRate int
	BufferSize time.Duration
	Volumes    engine.Volumes
}

// Config holds every announcer setting.
type Config struct {
	Mode   sequence.Mode
	Engine EngineVersion

	Delays sequence.DelayProfile

	// VoiceDelayA and VoiceDelayB are added to the clip delays, in
	// milliseconds, for the matching engine version. Stream sessions also
	// add VoiceDelayB in front of every clip.
	VoiceDelayA int
	VoiceDelayB int

	Watchdog time.Duration
	EndDelay time.Duration

	Attributes engine.Attributes
	Repeat     bool
	NoticeClip sequence.ClipID

	ClipDir string
	Cache   cache.Config
	Audio   AudioConfig
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Mode:       sequence.Mode12Hour,
		Engine:     VersionB,
		Delays:     sequence.DefaultDelayProfile(),
		Watchdog:   engine.DefaultWatchdog,
		EndDelay:   engine.DefaultEndDelay,
		Attributes: engine.DefaultAttributes(),
		ClipDir:    "~/.local/share/voiceclock/clips",
		Cache:      cache.DefaultConfig(),
		Audio: AudioConfig{
			Backend:    BackendOto,
			SampleRate: 44100,
			BufferSize: 100 * time.Millisecond,
		},
	}
}

// Validate checks every field. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Mode < sequence.Mode12Hour || c.Mode > sequence.Mode24Hour {
		return fmt.Errorf("unknown reading mode %d", c.Mode)
	}
	if c.Engine != VersionA && c.Engine != VersionB {
		return fmt.Errorf("unknown engine version %d", c.Engine)
	}
	if err := c.Delays.Validate(); err != nil {
		return err
	}
	if c.VoiceDelayA < 0 || c.VoiceDelayB < 0 {
		return fmt.Errorf("voice delays must not be negative, got a=%d b=%d", c.VoiceDelayA, c.VoiceDelayB)
	}
	if c.Watchdog < 0 {
		return fmt.Errorf("watchdog must not be negative, got %v", c.Watchdog)
	}
	if c.EndDelay < 0 {
		return fmt.Errorf("end delay must not be negative, got %v", c.EndDelay)
	}
	if strings.ContainsAny(string(c.NoticeClip), `/\`) {
		return fmt.Errorf("notice clip %q must be a clip name, not a path", c.NoticeClip)
	}

	c.Audio.Backend = strings.ToLower(c.Audio.Backend)
	if c.Audio.Backend != BackendOto && c.Audio.Backend != BackendMiniaudio {
		return fmt.Errorf("invalid audio backend %q: must be %s or %s", c.Audio.Backend, BackendOto, BackendMiniaudio)
	}
	if !slices.Contains(validSampleRates, c.Audio.SampleRate) {
		return fmt.Errorf("invalid sample rate %d: must be one of %v", c.Audio.SampleRate, validSampleRates)
	}
	if c.Audio.BufferSize < 0 {
		return fmt.Errorf("buffer size must not be negative, got %v", c.Audio.BufferSize)
	}
	if err := c.Audio.Volumes.Validate(); err != nil {
		return err
	}

	if c.Cache.MemoryCapacity < 0 || c.Cache.DiskCapacity < 0 {
		return errors.New("cache sizes must not be negative")
	}
	if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("zstd level must be between 0 and 22, got %d", c.Cache.CompressionLevel)
	}
	return nil
}

// VoiceDelay returns the voice delay for the configured engine version.
func (c *Config) VoiceDelay() int {
	if c.Engine == VersionA {
		return c.VoiceDelayA
	}
	return c.VoiceDelayB
}

// StreamOffset returns the silence the stream engine adds before every clip.
// Engine version A has none.
func (c *Config) StreamOffset() time.Duration {
	if c.Engine == VersionB {
		return time.Duration(c.VoiceDelayB) * time.Millisecond
	}
	return 0
}

// BuildSequence returns the clips announcing hourOfDay:minute in mode, led
// by the notice clip of cfg when one is set.
func BuildSequence(cfg Config, mode sequence.Mode, hourOfDay, minute int) (sequence.Sequence, error) {
	voiceDelay := cfg.VoiceDelay()
	seq, err := sequence.New(mode, hourOfDay, minute, cfg.Delays, voiceDelay)
	if err != nil {
		return nil, err
	}
	if cfg.NoticeClip != "" {
		seq = seq.Prepend(cfg.NoticeClip, voiceDelay)
	}
	return seq, nil
}
