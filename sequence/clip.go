package sequence

import "fmt"

// ClipID identifies one pre-recorded voice clip. The engine treats it as
// opaque; the clip library maps it to a file.
type ClipID string

// Marker clips.
const (
	ClipAM ClipID = "am"
	ClipPM ClipID = "pm"
)

// HourJust returns the clip for "H o'clock", spoken when the minute is zero.
func HourJust(hour int) ClipID {
	return ClipID(fmt.Sprintf("hn%d", hour))
}

// HourContinue returns the hour clip used when minutes follow.
func HourContinue(hour int) ClipID {
	return ClipID(fmt.Sprintf("hc%d", hour))
}

// MinuteTens returns the clip for an exact multiple of ten minutes (10..50).
func MinuteTens(tens int) ClipID {
	return ClipID(fmt.Sprintf("mt%d", tens))
}

// MinuteTensContinue returns the tens clip used when a ones clip follows.
func MinuteTensContinue(tens int) ClipID {
	return ClipID(fmt.Sprintf("mc%d", tens))
}

// MinuteOnes returns the clip for the ones digit of the minute (1..9).
func MinuteOnes(ones int) ClipID {
	return ClipID(fmt.Sprintf("mn%d", ones))
}

// AllClips lists every clip identifier any reading mode can produce.
func AllClips() []ClipID {
	ids := make([]ClipID, 0, 24*2+5*2+9+2)
	for h := 0; h < 24; h++ {
		ids = append(ids, HourJust(h), HourContinue(h))
	}
	for t := 1; t <= 5; t++ {
		ids = append(ids, MinuteTens(t), MinuteTensContinue(t))
	}
	for o := 1; o <= 9; o++ {
		ids = append(ids, MinuteOnes(o))
	}
	return append(ids, ClipAM, ClipPM)
}
