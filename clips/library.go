// Package clips resolves clip identifiers to audio files in a directory and
// decodes them to PCM for the playback engines.
package clips

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/sequence"
)

// decodeWorkers bounds concurrent decoding in DecodeAll.
const decodeWorkers = 4

// Cache stores decoded clips. *cache.Manager implements it.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	DeleteMatching(match func(key string) bool) int
}

// Library reads clips named "<id>.wav" or "<id>.mp3" from one directory.
// It implements engine.Decoder and audio.ClipSource.
type Library struct {
	dir    string
	format pcm.Format
	cache  Cache
	logger *log.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithCache stores decoded clips in c.
func WithCache(c Cache) Option {
	return func(l *Library) {
		l.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// New creates a library over dir that decodes to format.
func New(dir string, format pcm.Format, opts ...Option) (*Library, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("clip directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("clip directory %s is not a directory", dir)
	}

	l := &Library{dir: dir, format: format}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.Default()
	}
	l.logger = l.logger.WithPrefix("clips")
	return l, nil
}

// Dir returns the clip directory.
func (l *Library) Dir() string {
	return l.dir
}

// Format returns the PCM format clips are decoded to.
func (l *Library) Format() pcm.Format {
	return l.format
}

// Resolve returns the file that holds clip. WAV is preferred over MP3 when
// both exist.
func (l *Library) Resolve(clip sequence.ClipID) (string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, globEscape(string(clip))+".*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s in %s", ErrClipNotFound, clip, l.dir)
	}

	for _, ext := range []string{".wav", ".mp3"} {
		for _, m := range matches {
			if strings.EqualFold(filepath.Ext(m), ext) {
				return m, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(matches[0]))
}

// Missing returns the clips the directory cannot provide.
func (l *Library) Missing() []sequence.ClipID {
	var missing []sequence.ClipID
	for _, clip := range sequence.AllClips() {
		if _, err := l.Resolve(clip); err != nil {
			missing = append(missing, clip)
		}
	}
	return missing
}

// Decode returns the PCM for clip, from the cache when the file is unchanged.
func (l *Library) Decode(ctx context.Context, clip sequence.ClipID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := l.Resolve(clip)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClipNotFound, err)
	}

	key := l.cacheKey(clip, info)
	if l.cache != nil {
		if data, ok := l.cache.Get(key); ok {
			return data, nil
		}
	}

	start := time.Now()
	data, err := decodeFile(path, l.format)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, filepath.Base(path), err)
	}
	l.logger.Debug("Decoded clip",
		"clip", clip,
		"size", humanize.Bytes(uint64(len(data))),
		"duration", l.format.Duration(len(data)),
		"took", time.Since(start))

	if l.cache != nil {
		if err := l.cache.Put(key, data); err != nil {
			l.logger.Warn("Failed to cache clip", "clip", clip, "error", err)
		}
	}
	return data, nil
}

// DecodeAll decodes clips concurrently and returns their PCM in order.
func (l *Library) DecodeAll(ctx context.Context, clips []sequence.ClipID) ([][]byte, error) {
	out := make([][]byte, len(clips))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(decodeWorkers)
	for i, clip := range clips {
		// Repeated clips are decoded once.
		if j := slices.Index(clips, clip); j < i {
			continue
		}
		g.Go(func() error {
			data, err := l.Decode(ctx, clip)
			if err != nil {
				return err
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, clip := range clips {
		if out[i] == nil {
			out[i] = out[slices.Index(clips, clip)]
		}
	}
	return out, nil
}

// Invalidate drops every cached decoding of clip.
func (l *Library) Invalidate(clip sequence.ClipID) int {
	if l.cache == nil {
		return 0
	}
	prefix := string(clip) + "|"
	return l.cache.DeleteMatching(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// cacheKey identifies one decoding of one version of a clip file.
func (l *Library) cacheKey(clip sequence.ClipID, info os.FileInfo) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%d",
		clip, strings.ToLower(filepath.Ext(info.Name())),
		info.Size(), info.ModTime().UnixNano(),
		l.format.SampleRate, l.format.Channels)
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[\`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
