package engine

import "fmt"

// Volumes maps an audio usage to a player volume in [0, 1]. Usages that are
// not listed play at full volume.
type Volumes map[Usage]float64

// For returns the volume for usage.
func (v Volumes) For(usage Usage) float64 {
	if vol, ok := v[usage]; ok {
		return vol
	}
	return 1.0
}

// Validate checks every volume is in range.
func (v Volumes) Validate() error {
	for usage, vol := range v {
		if vol < 0.0 || vol > 1.0 {
			return fmt.Errorf("volume for %s must be between 0.0 and 1.0, got %f", usage, vol)
		}
	}
	return nil
}
