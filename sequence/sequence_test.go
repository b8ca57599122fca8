package sequence

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestSequencePrepend(t *testing.T) {
	seq := Sequence{{0, "hc9"}, {190, "mn5"}}

	got := seq.Prepend("chime", 100)
	want := Sequence{{0, "chime"}, {100, "hc9"}, {190, "mn5"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Prepend() = %v, want %v", got, want)
	}
	if seq[0].DelayMillis != 0 {
		t.Errorf("Prepend() modified the receiver: %v", seq)
	}
}

func TestSequenceValidate(t *testing.T) {
	if err := (Sequence{}).Validate(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Validate(empty) = %v, want ErrEmpty", err)
	}
	if err := (Sequence{{-1, "hn1"}}).Validate(); !errors.Is(err, ErrNegativeDelay) {
		t.Errorf("Validate(negative) = %v, want ErrNegativeDelay", err)
	}
	if err := (Sequence{{0, "hn1"}}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestSequenceString(t *testing.T) {
	seq := Sequence{{0, "hc9"}, {190, "mn5"}}
	if got, want := seq.String(), "[(0, hc9) (190, mn5)]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := seq.Duration(), 190*time.Millisecond; got != want {
		t.Errorf("Duration() = %v, want %v", got, want)
	}
	if got, want := seq.Clips(), []ClipID{"hc9", "mn5"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Clips() = %v, want %v", got, want)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Mode12Hour, false},
		{"12h", Mode12Hour, false},
		{"12H-AMPM", Mode12HourAmPm, false},
		{"24h", Mode24Hour, false},
		{"48h", Mode12Hour, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !tt.wantErr && tt.in != "" {
			if back, _ := ParseMode(got.String()); back != got {
				t.Errorf("ParseMode(%q.String()) = %v", got, back)
			}
		}
	}
}

func TestAllClips(t *testing.T) {
	ids := AllClips()
	if len(ids) != 69 {
		t.Errorf("AllClips() returned %d ids, want 69", len(ids))
	}
	seen := make(map[ClipID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Errorf("AllClips() duplicates %s", id)
		}
		seen[id] = true
	}
	for _, id := range []ClipID{"hn0", "hc23", "mt5", "mc1", "mn9", "am", "pm"} {
		if !seen[id] {
			t.Errorf("AllClips() missing %s", id)
		}
	}
}
