// Package pcm holds helpers for signed little-endian linear PCM buffers.
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMisaligned is returned when a buffer does not hold whole frames.
var ErrMisaligned = errors.New("PCM data is not frame aligned")

// Format describes interleaved signed little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is mono 16-bit at 44.1 kHz.
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		Channels:   1,
		BitDepth:   16,
	}
}

// Validate checks that the format is one the output devices accept.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", f.BitDepth)
	}
	return nil
}

// BytesPerFrame returns the size of one sample for all channels.
func (f Format) BytesPerFrame() int {
	return f.BitDepth / 8 * f.Channels
}

// Frames returns the number of whole frames that fit in d.
func (f Format) Frames(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second))
}

// Bytes returns the frame-aligned byte length of d.
func (f Format) Bytes(d time.Duration) int {
	return f.Frames(d) * f.BytesPerFrame()
}

// Duration returns the playing time of n bytes.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate == 0 || f.BytesPerFrame() == 0 {
		return 0
	}
	frames := n / f.BytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Silence returns d of zeroed samples.
func (f Format) Silence(d time.Duration) []byte {
	return make([]byte, f.Bytes(d))
}

// Check validates that data holds whole frames.
func (f Format) Check(data []byte) error {
	if len(data)%f.BytesPerFrame() != 0 {
		return fmt.Errorf("%w: %d bytes, %d-byte frames", ErrMisaligned, len(data), f.BytesPerFrame())
	}
	return nil
}

// AppendStereo converts float stereo samples in [-1, 1] to the format's
// channel layout and appends them to dst. Mono output averages both channels.
func (f Format) AppendStereo(dst []byte, samples [][2]float64) []byte {
	var buf [2]byte
	for _, s := range samples {
		if f.Channels == 1 {
			binary.LittleEndian.PutUint16(buf[:], uint16(toInt16((s[0]+s[1])/2)))
			dst = append(dst, buf[:]...)
			continue
		}
		for c := 0; c < 2; c++ {
			binary.LittleEndian.PutUint16(buf[:], uint16(toInt16(s[c])))
			dst = append(dst, buf[:]...)
		}
	}
	return dst
}

func toInt16(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(math.Round(v * math.MaxInt16))
}

// Scale multiplies every 16-bit sample in data by volume in place.
func Scale(data []byte, volume float64) {
	if volume == 1 {
		return
	}
	for i := 0; i+1 < len(data); i += 2 {
		s := int16(binary.LittleEndian.Uint16(data[i:]))
		binary.LittleEndian.PutUint16(data[i:], uint16(toInt16(float64(s)/math.MaxInt16*volume)))
	}
}
