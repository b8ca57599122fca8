package sequence

import (
	"errors"
	"fmt"
)

// Construction errors. A factory that returns one of these produces no
// sequence at all.
var (
	ErrInvalidParameter = errors.New("invalid sequence parameter")
	ErrInvalidTime      = fmt.Errorf("%w: time of day out of range", ErrInvalidParameter)
	ErrInvalidMarker    = fmt.Errorf("%w: marker is neither AM nor PM", ErrInvalidParameter)
	ErrInvalidMode      = fmt.Errorf("%w: unknown reading mode", ErrInvalidParameter)
	ErrNegativeDelay    = fmt.Errorf("%w: negative delay", ErrInvalidParameter)
	ErrEmpty            = errors.New("sequence is empty")
)
