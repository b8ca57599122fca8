package sequence

import "fmt"

// New builds the announcement for hourOfDay:minute in the given mode.
// voiceDelay is the engine-specific extra pause added to every non-first
// time item.
func New(mode Mode, hourOfDay, minute int, profile DelayProfile, voiceDelay int) (Sequence, error) {
	switch mode {
	case Mode12Hour:
		return Hour12(hourOfDay, minute, profile, voiceDelay)
	case Mode12HourAmPm:
		return AmPm(MarkerFor(hourOfDay), hourOfDay, minute, profile, voiceDelay)
	case Mode24Hour:
		return Hour24(hourOfDay, minute, profile, voiceDelay)
	default:
		return nil, fmt.Errorf("mode %d: %w", int(mode), ErrInvalidMode)
	}
}

// Hour12 reads the hour on a 1 to 12 dial: 0 and 12 are read as 12.
func Hour12(hourOfDay, minute int, profile DelayProfile, voiceDelay int) (Sequence, error) {
	if err := checkInput(hourOfDay, minute, profile, voiceDelay); err != nil {
		return nil, err
	}
	h := hourOfDay % 12
	if h == 0 {
		h = 12
	}
	return build(nil, h, minute, profile, voiceDelay, 0), nil
}

// AmPm prefixes the AM or PM clip and reads the hour on a 0 to 11 dial.
func AmPm(marker Marker, hourOfDay, minute int, profile DelayProfile, voiceDelay int) (Sequence, error) {
	var prefix ClipID
	switch marker {
	case AM:
		prefix = ClipAM
	case PM:
		prefix = ClipPM
	default:
		return nil, fmt.Errorf("%s: %w", marker, ErrInvalidMarker)
	}
	if err := checkInput(hourOfDay, minute, profile, voiceDelay); err != nil {
		return nil, err
	}
	hourDelay := profile.Default + voiceDelay + profile.AfterAmPm
	return build(&Item{Clip: prefix}, hourOfDay%12, minute, profile, voiceDelay, hourDelay), nil
}

// Hour24 reads the hour as given.
func Hour24(hourOfDay, minute int, profile DelayProfile, voiceDelay int) (Sequence, error) {
	if err := checkInput(hourOfDay, minute, profile, voiceDelay); err != nil {
		return nil, err
	}
	return build(nil, hourOfDay, minute, profile, voiceDelay, 0), nil
}

// Describe renders factory parameters the way they appear in error logs.
func Describe(mode Mode, hourOfDay, minute int) string {
	switch mode {
	case Mode12HourAmPm:
		return fmt.Sprintf("amPm=%s, h=%d, m=%d", MarkerFor(hourOfDay), hourOfDay%12, minute)
	case Mode12Hour:
		h := hourOfDay % 12
		if h == 0 {
			h = 12
		}
		return fmt.Sprintf("h=%d, m=%d", h, minute)
	default:
		return fmt.Sprintf("h=%d, m=%d", hourOfDay, minute)
	}
}

func checkInput(hourOfDay, minute int, profile DelayProfile, voiceDelay int) error {
	if hourOfDay < 0 || hourOfDay > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%02d:%02d: %w", hourOfDay, minute, ErrInvalidTime)
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	if voiceDelay < 0 {
		return fmt.Errorf("voice delay %d: %w", voiceDelay, ErrNegativeDelay)
	}
	return nil
}

// build assembles the minute buckets shared by all reading modes. hourDelay
// is the pause before the hour clip.
func build(prefix *Item, hour, minute int, p DelayProfile, voiceDelay, hourDelay int) Sequence {
	seq := make(Sequence, 0, 4)
	if prefix != nil {
		seq = append(seq, *prefix)
	}

	afterHours := p.Default + voiceDelay + p.AfterHours
	switch {
	case minute == 0:
		seq = append(seq, Item{DelayMillis: hourDelay, Clip: HourJust(hour)})
	case minute < 10:
		seq = append(seq,
			Item{DelayMillis: hourDelay, Clip: HourContinue(hour)},
			Item{DelayMillis: afterHours, Clip: MinuteOnes(minute)},
		)
	case minute%10 == 0:
		seq = append(seq,
			Item{DelayMillis: hourDelay, Clip: HourContinue(hour)},
			Item{DelayMillis: afterHours, Clip: MinuteTens(minute / 10)},
		)
	default:
		seq = append(seq,
			Item{DelayMillis: hourDelay, Clip: HourContinue(hour)},
			Item{DelayMillis: afterHours, Clip: MinuteTensContinue(minute / 10)},
			Item{DelayMillis: p.Default + voiceDelay, Clip: MinuteOnes(minute % 10)},
		)
	}
	return seq
}
