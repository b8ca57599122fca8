package engine

import (
	"errors"
	"fmt"

	"github.com/voiceclock/voiceclock/sequence"
)

// Common errors for playback sessions.
var (
	// Construction errors
	ErrEmptySequence  = errors.New("sequence is empty")
	ErrAlreadyStarted = errors.New("engine already started")
	ErrReleased       = errors.New("engine released")

	// Errors delivered through Events.OnError
	ErrPrepare = errors.New("preparing playback failed")
	ErrDevice  = errors.New("audio device error")
	ErrStalled = errors.New("clip playback stalled")
)

// ItemError ties a failure to one item of the sequence.
type ItemError struct {
	Index int
	Clip  sequence.ClipID
	Err   error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.Clip, e.Err)
}

// Unwrap returns the underlying error.
func (e *ItemError) Unwrap() error {
	return e.Err
}
