// Package engine plays an announcement sequence on a background goroutine.
//
// Two strategies are available: PerClip drives one player per clip and
// watches each for completion, Stream renders the whole sequence into a
// single PCM buffer and plays it through one continuous device. Both share
// the same lifecycle and event contract.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/sequence"
)

// Engine is one playback session.
type Engine interface {
	// ID returns the unique session identifier.
	ID() string
	// Start spawns the session goroutine; preparation begins immediately.
	Start() error
	// Play is the start trigger. The session stays armed until it is called.
	Play()
	// Release cancels the session. It does not block.
	Release()
	// State returns the current lifecycle state.
	State() State
	// Done is closed when the session goroutine has exited.
	Done() <-chan struct{}
}

// Events receives session lifecycle notifications. Any field may be nil.
// Handlers run on the session goroutine; a panic inside one is recovered
// and logged.
type Events struct {
	OnPrepare    func(Engine)
	OnContinue   func()
	OnCompletion func()
	OnError      func(error)
}

// Default timings.
const (
	DefaultWatchdog          = 10 * time.Second
	DefaultEndDelay          = 250 * time.Millisecond
	DefaultDelayBeforeRepeat = time.Second
)

// Config is fixed for the lifetime of a session.
type Config struct {
	Attributes Attributes

	// Repeat plays the sequence again until the session is released.
	Repeat            bool
	DelayBeforeRepeat time.Duration

	// Watchdog bounds how long PerClip waits for one clip to finish.
	// Zero selects DefaultWatchdog.
	Watchdog time.Duration
	// EndDelay is the grace period PerClip waits after completion before
	// closing its players.
	EndDelay time.Duration

	// StreamOffset is added to every item's delay when Stream renders the
	// sequence.
	StreamOffset time.Duration
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Attributes:        DefaultAttributes(),
		DelayBeforeRepeat: DefaultDelayBeforeRepeat,
		Watchdog:          DefaultWatchdog,
		EndDelay:          DefaultEndDelay,
	}
}

// Validate rejects negative durations.
func (c Config) Validate() error {
	switch {
	case c.DelayBeforeRepeat < 0:
		return fmt.Errorf("delay before repeat must not be negative, got %v", c.DelayBeforeRepeat)
	case c.Watchdog < 0:
		return fmt.Errorf("watchdog must not be negative, got %v", c.Watchdog)
	case c.EndDelay < 0:
		return fmt.Errorf("end delay must not be negative, got %v", c.EndDelay)
	case c.StreamOffset < 0:
		return fmt.Errorf("stream offset must not be negative, got %v", c.StreamOffset)
	}
	return nil
}

func (c Config) watchdog() time.Duration {
	if c.Watchdog == 0 {
		return DefaultWatchdog
	}
	return c.Watchdog
}

// Usage describes why audio is played. Devices map it to an output volume.
type Usage int

const (
	UsageMedia Usage = iota
	UsageAlarm
	UsageNotification
	UsageAssistant
)

func (u Usage) String() string {
	switch u {
	case UsageMedia:
		return "media"
	case UsageAlarm:
		return "alarm"
	case UsageNotification:
		return "notification"
	case UsageAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// ParseUsage parses the names produced by Usage.String.
func ParseUsage(s string) (Usage, error) {
	for u := UsageMedia; u <= UsageAssistant; u++ {
		if strings.EqualFold(s, u.String()) {
			return u, nil
		}
	}
	return UsageMedia, fmt.Errorf("unknown audio usage %q", s)
}

// ContentType describes what the audio contains.
type ContentType int

const (
	ContentUnknown ContentType = iota
	ContentSpeech
	ContentMusic
	ContentSonification
)

func (c ContentType) String() string {
	switch c {
	case ContentUnknown:
		return "unknown"
	case ContentSpeech:
		return "speech"
	case ContentMusic:
		return "music"
	case ContentSonification:
		return "sonification"
	default:
		return "invalid"
	}
}

// ParseContentType parses the names produced by ContentType.String.
func ParseContentType(s string) (ContentType, error) {
	for c := ContentUnknown; c <= ContentSonification; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return ContentUnknown, fmt.Errorf("unknown content type %q", s)
}

// Attributes are handed to every device a session opens.
type Attributes struct {
	Usage       Usage
	ContentType ContentType
}

// DefaultAttributes returns media usage with unknown content.
func DefaultAttributes() Attributes {
	return Attributes{Usage: UsageMedia, ContentType: ContentUnknown}
}

// Callbacks are invoked by devices from their own goroutines.
type Callbacks struct {
	OnComplete func()
	OnError    func(error)
}

// ClipPlayer plays one decoded clip. Start may be called again after the
// clip completed; it restarts from the beginning.
type ClipPlayer interface {
	Start() error
	Close() error
}

// ClipPlayerFactory opens one player per clip for PerClip.
type ClipPlayerFactory interface {
	NewClipPlayer(ctx context.Context, clip sequence.ClipID, attrs Attributes, cb Callbacks) (ClipPlayer, error)
}

// Decoder resolves clips to PCM in its output format. DecodeAll fails as a
// whole if any clip fails.
type Decoder interface {
	Format() pcm.Format
	DecodeAll(ctx context.Context, clips []sequence.ClipID) ([][]byte, error)
}

// StreamDevice plays one continuous buffer. Start plays from the current
// position to the end; Rewind moves back to the beginning.
type StreamDevice interface {
	Start() error
	Rewind() error
	Close() error
}

// StreamDeviceFactory opens the single device used by Stream.
type StreamDeviceFactory interface {
	NewStreamDevice(ctx context.Context, data []byte, format pcm.Format, attrs Attributes, cb Callbacks) (StreamDevice, error)
}
