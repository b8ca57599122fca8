// Package audio implements the output devices used by the playback engines
// on top of oto. One oto context is shared by the whole process; every clip
// player and stream device opens its own oto player on it.
//
// Builds with the nocgo tag replace the oto backend with a stub that never
// opens a device.
package audio

import (
	"io"

	"github.com/voiceclock/voiceclock/audio/pcm"
)

// Player is the subset of *oto.Player the devices rely on.
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	Err() error
	Seek(offset int64, whence int) (int64, error)
	SetVolume(volume float64)
	Close() error
}

// Backend opens players over PCM readers in a fixed format.
type Backend interface {
	Format() pcm.Format
	NewPlayer(r io.ReadSeeker) Player
}
