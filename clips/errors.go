package clips

import "errors"

var (
	// ErrClipNotFound is returned when the clip directory has no file for a clip.
	ErrClipNotFound = errors.New("clip not found")

	// ErrUnsupportedFormat is returned when a clip file is neither WAV nor MP3.
	ErrUnsupportedFormat = errors.New("unsupported clip format")

	// ErrDecode is returned when a clip file cannot be decoded.
	ErrDecode = errors.New("failed to decode clip")
)
