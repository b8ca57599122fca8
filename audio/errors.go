package audio

import "errors"

var (
	// ErrContextNotReady is returned when the output device cannot be opened.
	ErrContextNotReady = errors.New("audio context not ready")

	// ErrEmptyStream is returned when there is nothing to play.
	ErrEmptyStream = errors.New("audio data is empty")

	// ErrClosed is returned by devices used after Close.
	ErrClosed = errors.New("audio device is closed")
)
