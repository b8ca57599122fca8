// Package sequence maps a time of day and a reading mode to the ordered list
// of voice clips that announce it, together with the pause before each clip.
package sequence

import (
	"fmt"
	"strings"
	"time"
)

// Item is one step of an announcement: wait DelayMillis, then play Clip.
type Item struct {
	DelayMillis int
	Clip        ClipID
}

// Delay returns the pause before the clip as a duration.
func (i Item) Delay() time.Duration {
	return time.Duration(i.DelayMillis) * time.Millisecond
}

// Sequence is an ordered announcement. Engines never accept an empty one.
type Sequence []Item

// Validate reports whether the sequence can be handed to an engine.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmpty
	}
	for i, item := range s {
		if item.DelayMillis < 0 {
			return fmt.Errorf("item %d (%s): %w", i, item.Clip, ErrNegativeDelay)
		}
	}
	return nil
}

// Clips returns the clip identifiers in playback order.
func (s Sequence) Clips() []ClipID {
	ids := make([]ClipID, len(s))
	for i, item := range s {
		ids[i] = item.Clip
	}
	return ids
}

// Clone returns a copy that can be modified without touching s.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Prepend returns a new sequence with clip played first, without delay.
// The delay of the item that used to be first is increased by extra.
func (s Sequence) Prepend(clip ClipID, extra int) Sequence {
	out := make(Sequence, 0, len(s)+1)
	out = append(out, Item{Clip: clip})
	for i, item := range s {
		if i == 0 {
			item.DelayMillis += extra
		}
		out = append(out, item)
	}
	return out
}

// Duration returns the sum of all delays.
func (s Sequence) Duration() time.Duration {
	var d time.Duration
	for _, item := range s {
		d += item.Delay()
	}
	return d
}

func (s Sequence) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "(%d, %s)", item.DelayMillis, item.Clip)
	}
	b.WriteByte(']')
	return b.String()
}

// DelayProfile holds the tuning delays, in milliseconds, used to space
// announcement clips.
type DelayProfile struct {
	Default      int `yaml:"default" mapstructure:"default"`
	AfterAmPm    int `yaml:"after_am_pm" mapstructure:"after_am_pm"`
	AfterHours   int `yaml:"after_hours" mapstructure:"after_hours"`
	BeforeRepeat int `yaml:"before_repeat" mapstructure:"before_repeat"`
}

// DefaultDelayProfile returns the profile used when nothing is configured.
func DefaultDelayProfile() DelayProfile {
	return DelayProfile{
		Default:      0,
		AfterAmPm:    0,
		AfterHours:   0,
		BeforeRepeat: 1000,
	}
}

// Validate rejects negative delays.
func (p DelayProfile) Validate() error {
	switch {
	case p.Default < 0:
		return fmt.Errorf("default delay %d: %w", p.Default, ErrNegativeDelay)
	case p.AfterAmPm < 0:
		return fmt.Errorf("delay after AM/PM %d: %w", p.AfterAmPm, ErrNegativeDelay)
	case p.AfterHours < 0:
		return fmt.Errorf("delay after hours %d: %w", p.AfterHours, ErrNegativeDelay)
	case p.BeforeRepeat < 0:
		return fmt.Errorf("delay before repeat %d: %w", p.BeforeRepeat, ErrNegativeDelay)
	}
	return nil
}

// RepeatDelay returns BeforeRepeat as a duration.
func (p DelayProfile) RepeatDelay() time.Duration {
	return time.Duration(p.BeforeRepeat) * time.Millisecond
}

// Mode selects how the hour is read.
type Mode int

const (
	// Mode12Hour reads hours 1 to 12.
	Mode12Hour Mode = iota
	// Mode12HourAmPm prefixes AM or PM and reads hours 0 to 11.
	Mode12HourAmPm
	// Mode24Hour reads hours 0 to 23.
	Mode24Hour
)

func (m Mode) String() string {
	switch m {
	case Mode12Hour:
		return "12h"
	case Mode12HourAmPm:
		return "12h-ampm"
	case Mode24Hour:
		return "24h"
	default:
		return "unknown"
	}
}

// ParseMode parses the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "12h", "12":
		return Mode12Hour, nil
	case "12h-ampm", "ampm", "am-pm":
		return Mode12HourAmPm, nil
	case "24h", "24":
		return Mode24Hour, nil
	default:
		return Mode12Hour, fmt.Errorf("%q: %w", s, ErrInvalidMode)
	}
}

// Marker is the AM/PM half of the day.
type Marker int

const (
	AM Marker = iota
	PM
)

func (m Marker) String() string {
	switch m {
	case AM:
		return "AM"
	case PM:
		return "PM"
	default:
		return fmt.Sprintf("Marker(%d)", int(m))
	}
}

// MarkerFor returns the half of the day hourOfDay falls in.
func MarkerFor(hourOfDay int) Marker {
	if hourOfDay < 12 {
		return AM
	}
	return PM
}
