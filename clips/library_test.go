package clips

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/internal/cache"
	"github.com/voiceclock/voiceclock/sequence"
)

// writeWAV writes a 16-bit PCM WAV file where every frame holds samples.
func writeWAV(t *testing.T, path string, rate, frames int, samples ...int16) {
	t.Helper()

	channels := len(samples)
	dataLen := frames * channels * 2

	var b bytes.Buffer
	le := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	b.WriteString("RIFF")
	le(uint32(36 + dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1))
	le(uint16(channels))
	le(uint32(rate))
	le(uint32(rate * channels * 2))
	le(uint16(channels * 2))
	le(uint16(16))
	b.WriteString("data")
	le(uint32(dataLen))
	for i := 0; i < frames; i++ {
		for _, s := range samples {
			le(s)
		}
	}

	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func sampleAt(data []byte, frame int) int16 {
	return int16(binary.LittleEndian.Uint16(data[frame*2:]))
}

func near(got, want int16) bool {
	d := int(got) - int(want)
	return d >= -2 && d <= 2
}

func newTestLibrary(t *testing.T, opts ...Option) (*Library, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := New(dir, pcm.DefaultFormat(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, dir
}

func TestDecodeWAV(t *testing.T) {
	l, dir := newTestLibrary(t)
	writeWAV(t, filepath.Join(dir, "hn9.wav"), 44100, 100, 16384)

	data, err := l.Decode(context.Background(), "hn9")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(data) != 200 {
		t.Fatalf("decoded %d bytes, want 200", len(data))
	}
	if got := sampleAt(data, 50); !near(got, 16384) {
		t.Errorf("sample = %d, want ~16384", got)
	}
}

func TestDecodeStereoDownmix(t *testing.T) {
	l, dir := newTestLibrary(t)
	writeWAV(t, filepath.Join(dir, "am.wav"), 44100, 10, 16384, 0)

	data, err := l.Decode(context.Background(), "am")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(data) != 20 {
		t.Fatalf("decoded %d bytes, want 20 (mono)", len(data))
	}
	if got := sampleAt(data, 5); !near(got, 8192) {
		t.Errorf("sample = %d, want ~8192", got)
	}
}

func TestDecodeResamples(t *testing.T) {
	l, dir := newTestLibrary(t)
	writeWAV(t, filepath.Join(dir, "pm.wav"), 22050, 2205, 1000)

	data, err := l.Decode(context.Background(), "pm")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	d := l.Format().Duration(len(data))
	if d < 95*time.Millisecond || d > 105*time.Millisecond {
		t.Errorf("resampled duration = %v, want ~100ms", d)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(dir string)
		wantErr error
	}{
		{
			name:    "missing clip",
			setup:   func(string) {},
			wantErr: ErrClipNotFound,
		},
		{
			name: "unsupported extension",
			setup: func(dir string) {
				_ = os.WriteFile(filepath.Join(dir, "mn5.ogg"), []byte("OggS"), 0o644)
			},
			wantErr: ErrUnsupportedFormat,
		},
		{
			name: "corrupt wav",
			setup: func(dir string) {
				_ = os.WriteFile(filepath.Join(dir, "mn5.wav"), []byte("not a riff file"), 0o644)
			},
			wantErr: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, dir := newTestLibrary(t)
			tt.setup(dir)

			_, err := l.Decode(context.Background(), "mn5")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePrefersWAV(t *testing.T) {
	l, dir := newTestLibrary(t)
	writeWAV(t, filepath.Join(dir, "hc1.wav"), 44100, 1, 0)
	_ = os.WriteFile(filepath.Join(dir, "hc1.mp3"), []byte{}, 0o644)
	writeWAV(t, filepath.Join(dir, "hc10.wav"), 44100, 1, 0)

	path, err := l.Resolve("hc1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if filepath.Base(path) != "hc1.wav" {
		t.Errorf("Resolve() = %s, want hc1.wav", path)
	}
}

func TestDecodeAll(t *testing.T) {
	l, dir := newTestLibrary(t)
	writeWAV(t, filepath.Join(dir, "hc9.wav"), 44100, 10, 100)
	writeWAV(t, filepath.Join(dir, "mn5.wav"), 44100, 20, 200)

	out, err := l.DecodeAll(context.Background(), []sequence.ClipID{"hc9", "mn5", "hc9"})
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("DecodeAll() returned %d clips, want 3", len(out))
	}
	for i, want := range []int{20, 40, 20} {
		if len(out[i]) != want {
			t.Errorf("clip %d has %d bytes, want %d", i, len(out[i]), want)
		}
	}

	if _, err := l.DecodeAll(context.Background(), []sequence.ClipID{"hc9", "am"}); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("DecodeAll() with a missing clip error = %v, want ErrClipNotFound", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.DecodeAll(ctx, []sequence.ClipID{"hc9"}); !errors.Is(err, context.Canceled) {
		t.Errorf("DecodeAll() after cancel error = %v, want context.Canceled", err)
	}
}

func TestMissing(t *testing.T) {
	l, dir := newTestLibrary(t)
	writeWAV(t, filepath.Join(dir, "am.wav"), 44100, 1, 0)

	missing := l.Missing()
	if len(missing) != len(sequence.AllClips())-1 {
		t.Errorf("Missing() has %d clips, want %d", len(missing), len(sequence.AllClips())-1)
	}
	for _, clip := range missing {
		if clip == sequence.ClipAM {
			t.Error("am reported missing")
		}
	}
}

func TestDecodeUsesCache(t *testing.T) {
	store, err := cache.NewManager(cache.Config{MemoryCapacity: 1 << 20}, nil)
	if err != nil {
		t.Fatal(err)
	}
	l, dir := newTestLibrary(t, WithCache(store))
	writeWAV(t, filepath.Join(dir, "hn3.wav"), 44100, 10, 100)

	for i := 0; i < 3; i++ {
		if _, err := l.Decode(context.Background(), "hn3"); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
	}
	stats := store.Stats()
	if stats.MemoryHits != 2 || stats.Memory.ItemCount != 1 {
		t.Errorf("hits/items = %d/%d, want 2/1", stats.MemoryHits, stats.Memory.ItemCount)
	}

	if n := l.Invalidate("hn3"); n != 1 {
		t.Errorf("Invalidate() = %d, want 1", n)
	}
	if n := l.Invalidate("hn30"); n != 0 {
		t.Errorf("Invalidate() of another clip = %d, want 0", n)
	}
}

func TestWatchInvalidatesChangedClips(t *testing.T) {
	store, err := cache.NewManager(cache.Config{MemoryCapacity: 1 << 20}, nil)
	if err != nil {
		t.Fatal(err)
	}
	l, dir := newTestLibrary(t, WithCache(store))
	path := filepath.Join(dir, "mt2.wav")
	writeWAV(t, path, 44100, 10, 100)

	if _, err := l.Decode(context.Background(), "mt2"); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	watcher, err := l.newWatcher()
	if err != nil {
		t.Fatalf("newWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.watch(ctx, watcher) }()

	writeWAV(t, path, 44100, 20, 100)

	deadline := time.Now().Add(5 * time.Second)
	for store.Stats().Memory.ItemCount != 0 {
		if time.Now().After(deadline) {
			t.Fatal("cached clip not invalidated after the file changed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch() error = %v", err)
	}
}

func TestClipFromPath(t *testing.T) {
	tests := []struct {
		path string
		want sequence.ClipID
		ok   bool
	}{
		{"/clips/hn9.wav", "hn9", true},
		{"/clips/mc4.MP3", "mc4", true},
		{"/clips/notes.txt", "", false},
		{"/clips/am.wav.swp", "", false},
	}
	for _, tt := range tests {
		got, ok := clipFromPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("clipFromPath(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewRejectsMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope"), pcm.DefaultFormat()); err == nil {
		t.Error("New() accepted a missing directory")
	}
}
