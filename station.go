package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/voiceclock/voiceclock/announcer"
	"github.com/voiceclock/voiceclock/audio"
	"github.com/voiceclock/voiceclock/audio/miniaudio"
	"github.com/voiceclock/voiceclock/audio/pcm"
	"github.com/voiceclock/voiceclock/clips"
	"github.com/voiceclock/voiceclock/internal/cache"
	"github.com/voiceclock/voiceclock/internal/logging"
)

// releaseTimeout bounds how long Close waits for a released session to
// hand back its devices.
const releaseTimeout = 2 * time.Second

// station wires a Player to the clip library, the cache and an audio backend.
type station struct {
	player  *announcer.Player
	library *clips.Library
	cache   *cache.Manager
	closers []func() error
}

func outputFormat(cfg announcer.Config) pcm.Format {
	format := pcm.DefaultFormat()
	format.SampleRate = cfg.Audio.SampleRate
	return format
}

// openCache opens the decoded clip cache. Without a configured directory
// the disk level lives in the user cache directory.
func openCache(cfg announcer.Config) (*cache.Manager, error) {
	config := cfg.Cache
	if config.DiskPath == "" {
		dir, err := gap.NewScope(gap.User, logging.Scope).CacheDir()
		if err != nil {
			log.Warn("Could not find cache directory, caching in memory only", "error", err)
		} else {
			config.DiskPath = filepath.Join(dir, "clips")
		}
	}
	return cache.NewManager(config, log.Default())
}

func openLibrary(cfg announcer.Config, c *cache.Manager) (*clips.Library, error) {
	library, err := clips.New(cfg.ClipDir, outputFormat(cfg),
		clips.WithCache(c),
		clips.WithLogger(log.Default()))
	if err != nil {
		return nil, fmt.Errorf("unable to open clips: %w", err)
	}
	return library, nil
}

func newStation(cfg announcer.Config, listener announcer.Listener) (*station, error) {
	st := &station{}

	c, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	st.cache = c
	st.closers = append(st.closers, c.Close)

	st.library, err = openLibrary(cfg, c)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	opts := []announcer.Option{
		announcer.WithLogger(log.Default()),
		announcer.WithListener(listener),
		announcer.WithDecoder(st.library),
	}

	format := outputFormat(cfg)
	switch cfg.Audio.Backend {
	case announcer.BackendMiniaudio:
		backend, err := miniaudio.NewBackend(format, cfg.Audio.Volumes, log.Default())
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.closers = append(st.closers, backend.Close)
		opts = append(opts,
			announcer.WithClipPlayers(backend.ClipPlayers(st.library)),
			announcer.WithStreamDevices(backend))
	default:
		backend, err := audio.NewOtoBackend(format, cfg.Audio.BufferSize)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		devices := audio.DeviceConfig{Volumes: cfg.Audio.Volumes, Logger: log.Default()}
		opts = append(opts,
			announcer.WithClipPlayers(audio.NewClipPlayers(backend, st.library, devices)),
			announcer.WithStreamDevices(audio.NewStreamDevices(backend, devices)))
	}

	st.player, err = announcer.New(cfg, opts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// Close releases the current announcement, waits for its devices to close
// and then shuts the backend and the cache down.
func (st *station) Close() error {
	if st.player != nil {
		st.player.Release()
		if current := st.player.Current(); current != nil {
			select {
			case <-current.Done():
			case <-time.After(releaseTimeout):
				log.Warn("Announcement did not stop in time")
			}
		}
	}

	var errs []error
	for i := len(st.closers) - 1; i >= 0; i-- {
		errs = append(errs, st.closers[i]())
	}
	return errors.Join(errs...)
}
