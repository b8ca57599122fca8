package engine

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/sequence"
)

// One frame per millisecond keeps byte arithmetic readable.
var milliFormat = pcm.Format{SampleRate: 1000, Channels: 1, BitDepth: 16}

func TestBuildStream(t *testing.T) {
	seq := sequence.Sequence{{DelayMillis: 0, Clip: "hc9"}, {DelayMillis: 5, Clip: "mn5"}}
	clip := bytes.Repeat([]byte{0x7f}, 6)

	got, err := BuildStream(seq, [][]byte{clip, clip}, milliFormat, 2*time.Millisecond)
	if err != nil {
		t.Fatalf("BuildStream() error = %v", err)
	}

	var want []byte
	want = append(want, make([]byte, 4)...)  // 2ms offset
	want = append(want, clip...)             // hc9
	want = append(want, make([]byte, 14)...) // 5ms delay + 2ms offset
	want = append(want, clip...)             // mn5
	if !bytes.Equal(got, want) {
		t.Errorf("BuildStream() = %v, want %v", got, want)
	}
}

func TestBuildStreamErrors(t *testing.T) {
	seq := sequence.Sequence{{DelayMillis: 0, Clip: "hc9"}, {DelayMillis: 5, Clip: "mn5"}}

	if _, err := BuildStream(seq, [][]byte{{0, 0}}, milliFormat, 0); err == nil {
		t.Error("BuildStream() with missing clip succeeded")
	}

	_, err := BuildStream(seq, [][]byte{{0, 0}, {0, 0, 0}}, milliFormat, 0)
	var itemErr *ItemError
	if !errors.As(err, &itemErr) || itemErr.Index != 1 || !errors.Is(err, pcm.ErrMisaligned) {
		t.Errorf("BuildStream() misaligned error = %v, want item 1 ErrMisaligned", err)
	}
}

func newTestStream(t *testing.T, seq sequence.Sequence, cfg Config, dec *fakeDecoder, devices *fakeStreamFactory, rec *recorder) *Stream {
	t.Helper()
	e, err := NewStream(seq, cfg, dec, devices, rec.Events())
	if err != nil {
		t.Fatalf("NewStream() error = %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return e
}

func TestStreamPlaysSequence(t *testing.T) {
	dec := &fakeDecoder{format: milliFormat, clipLength: 3 * time.Millisecond}
	devices := &fakeStreamFactory{playTime: 2 * time.Millisecond}
	rec := newRecorder(true)
	cfg := testConfig()
	cfg.StreamOffset = 2 * time.Millisecond

	e := newTestStream(t, threeItems, cfg, dec, devices, rec)
	waitDone(t, e)

	events, errs := rec.Got()
	if want := []string{"prepare", "completion"}; !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	starts, rewinds, closes := devices.Counts()
	if starts != 1 || rewinds != 0 || closes != 1 {
		t.Errorf("starts/rewinds/closes = %d/%d/%d, want 1/0/1", starts, rewinds, closes)
	}
	// (0+2) + (5+2) + (5+2) ms of silence and 3 clips of 3ms, 2 bytes per ms.
	if got, want := len(devices.data), 2*(2+7+7+3*3); got != want {
		t.Errorf("stream length = %d, want %d", got, want)
	}
	if e.State() != StateReleased {
		t.Errorf("final state = %s, want released", e.State())
	}
}

func TestStreamRepeatRewinds(t *testing.T) {
	dec := &fakeDecoder{format: milliFormat, clipLength: time.Millisecond}
	devices := &fakeStreamFactory{playTime: time.Millisecond}
	rec := newRecorder(true)
	cfg := testConfig()
	cfg.Repeat = true

	e := newTestStream(t, threeItems, cfg, dec, devices, rec)
	waitFor(t, "third pass", func() bool {
		starts, _, _ := devices.Counts()
		return starts >= 3
	})
	e.Release()
	waitDone(t, e)

	starts, rewinds, closes := devices.Counts()
	if rewinds < 2 || rewinds > starts {
		t.Errorf("rewinds = %d with %d starts", rewinds, starts)
	}
	if closes != 1 {
		t.Errorf("closes = %d, want 1", closes)
	}
	events, _ := rec.Got()
	for _, ev := range events {
		if ev != "prepare" {
			t.Errorf("unexpected %s event: %v", ev, events)
		}
	}
}

func TestStreamReleaseClosesDevice(t *testing.T) {
	dec := &fakeDecoder{format: milliFormat, clipLength: time.Millisecond}
	devices := &fakeStreamFactory{stall: true}
	rec := newRecorder(true)

	e := newTestStream(t, threeItems, testConfig(), dec, devices, rec)
	waitFor(t, "playback", func() bool {
		starts, _, _ := devices.Counts()
		return starts == 1
	})

	e.Release()
	if _, _, closes := devices.Counts(); closes != 1 {
		t.Errorf("closes right after Release = %d, want 1", closes)
	}
	waitDone(t, e)

	events, _ := rec.Got()
	if want := []string{"prepare"}; !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if e.State() != StateReleased {
		t.Errorf("final state = %s, want released", e.State())
	}
}

func TestStreamFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name       string
		dec        *fakeDecoder
		devices    *fakeStreamFactory
		wantErr    error
		wantEvents []string
		wantCloses int
	}{
		{
			name:       "decode failure",
			dec:        &fakeDecoder{format: milliFormat, fail: map[sequence.ClipID]error{"mn7": boom}},
			devices:    &fakeStreamFactory{},
			wantErr:    ErrPrepare,
			wantEvents: []string{"error"},
		},
		{
			name:       "device open failure",
			dec:        &fakeDecoder{format: milliFormat},
			devices:    &fakeStreamFactory{openErr: boom},
			wantErr:    ErrPrepare,
			wantEvents: []string{"error"},
		},
		{
			name:       "device error while playing",
			dec:        &fakeDecoder{format: milliFormat},
			devices:    &fakeStreamFactory{playErr: boom},
			wantErr:    ErrDevice,
			wantEvents: []string{"prepare", "error"},
			wantCloses: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder(true)
			e := newTestStream(t, threeItems, testConfig(), tt.dec, tt.devices, rec)
			waitDone(t, e)

			events, errs := rec.Got()
			if !reflect.DeepEqual(events, tt.wantEvents) {
				t.Errorf("events = %v, want %v", events, tt.wantEvents)
			}
			if len(errs) != 1 || !errors.Is(errs[0], tt.wantErr) || !errors.Is(errs[0], boom) {
				t.Errorf("errors = %v, want %v wrapping boom", errs, tt.wantErr)
			}
			if e.State() != StateErrored {
				t.Errorf("final state = %s, want errored", e.State())
			}
			if _, _, closes := tt.devices.Counts(); closes != tt.wantCloses {
				t.Errorf("closes = %d, want %d", closes, tt.wantCloses)
			}
		})
	}
}
