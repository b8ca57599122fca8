package announcer

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/voiceclock/voiceclock/engine"
	"github.com/voiceclock/voiceclock/sequence"
)

// EnvPrefix is the prefix of the environment overrides.
const EnvPrefix = "VOICECLOCK_"

// LoadConfigFromViper builds a Config from v, starting from DefaultConfig.
// Environment overrides are applied last, then the result is validated.
func LoadConfigFromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("mode") {
		mode, err := sequence.ParseMode(v.GetString("mode"))
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		cfg.Mode = mode
	}
	if v.IsSet("engine") {
		version, err := ParseEngineVersion(v.GetString("engine"))
		if err != nil {
			return cfg, err
		}
		cfg.Engine = version
	}

	// Delays
	if v.IsSet("delays.default") {
		cfg.Delays.Default = v.GetInt("delays.default")
	}
	if v.IsSet("delays.after_am_pm") {
		cfg.Delays.AfterAmPm = v.GetInt("delays.after_am_pm")
	}
	if v.IsSet("delays.after_hours") {
		cfg.Delays.AfterHours = v.GetInt("delays.after_hours")
	}
	if v.IsSet("delays.before_repeat") {
		cfg.Delays.BeforeRepeat = v.GetInt("delays.before_repeat")
	}
	if v.IsSet("voice_delay.a") {
		cfg.VoiceDelayA = v.GetInt("voice_delay.a")
	}
	if v.IsSet("voice_delay.b") {
		cfg.VoiceDelayB = v.GetInt("voice_delay.b")
	}
	if v.IsSet("watchdog") {
		cfg.Watchdog = v.GetDuration("watchdog")
	}
	if v.IsSet("end_delay") {
		cfg.EndDelay = v.GetDuration("end_delay")
	}

	// Playback
	if v.IsSet("usage") {
		usage, err := engine.ParseUsage(v.GetString("usage"))
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		cfg.Attributes.Usage = usage
	}
	if v.IsSet("content_type") {
		ct, err := engine.ParseContentType(v.GetString("content_type"))
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		cfg.Attributes.ContentType = ct
	}
	if v.IsSet("repeat") {
		cfg.Repeat = v.GetBool("repeat")
	}
	if v.IsSet("notice") {
		cfg.NoticeClip = sequence.ClipID(v.GetString("notice"))
	}
	if v.IsSet("clips") {
		cfg.ClipDir = v.GetString("clips")
	}

	// Cache
	if v.IsSet("cache.memory_bytes") {
		cfg.Cache.MemoryCapacity = v.GetInt64("cache.memory_bytes")
	}
	if v.IsSet("cache.disk_bytes") {
		cfg.Cache.DiskCapacity = v.GetInt64("cache.disk_bytes")
	}
	if v.IsSet("cache.dir") {
		cfg.Cache.DiskPath = v.GetString("cache.dir")
	}
	if v.IsSet("cache.zstd_level") {
		cfg.Cache.CompressionLevel = v.GetInt("cache.zstd_level")
	}

	// Audio
	if v.IsSet("audio.backend") {
		cfg.Audio.Backend = v.GetString("audio.backend")
	}
	if v.IsSet("audio.sample_rate") {
		cfg.Audio.SampleRate = v.GetInt("audio.sample_rate")
	}
	if v.IsSet("audio.buffer_size") {
		cfg.Audio.BufferSize = v.GetDuration("audio.buffer_size")
	}
	if v.IsSet("audio.volumes") {
		volumes, err := parseVolumes(v.GetStringMap("audio.volumes"), v)
		if err != nil {
			return cfg, err
		}
		cfg.Audio.Volumes = volumes
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := ExpandPaths(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseVolumes(raw map[string]any, v *viper.Viper) (engine.Volumes, error) {
	volumes := make(engine.Volumes, len(raw))
	for name := range raw {
		usage, err := engine.ParseUsage(name)
		if err != nil {
			return nil, fmt.Errorf("%w: audio.volumes: %w", ErrInvalidConfig, err)
		}
		volumes[usage] = v.GetFloat64("audio.volumes." + name)
	}
	return volumes, nil
}

// envConfig lists the settings that can be overridden from the environment.
type envConfig struct {
	Mode       *string        `env:"MODE"`
	Engine     *string        `env:"ENGINE"`
	Repeat     *bool          `env:"REPEAT"`
	NoticeClip *string        `env:"NOTICE"`
	ClipDir    *string        `env:"CLIPS"`
	CacheDir   *string        `env:"CACHE_DIR"`
	Backend    *string        `env:"AUDIO_BACKEND"`
	Watchdog   *time.Duration `env:"WATCHDOG"`
}

// ApplyEnv overrides cfg with the VOICECLOCK_* environment variables that
// are set.
func ApplyEnv(cfg *Config) error {
	var e envConfig
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
	}

	if e.Mode != nil {
		mode, err := sequence.ParseMode(*e.Mode)
		if err != nil {
			return fmt.Errorf("%w: %sMODE: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Mode = mode
	}
	if e.Engine != nil {
		version, err := ParseEngineVersion(*e.Engine)
		if err != nil {
			return err
		}
		cfg.Engine = version
	}
	if e.Repeat != nil {
		cfg.Repeat = *e.Repeat
	}
	if e.NoticeClip != nil {
		cfg.NoticeClip = sequence.ClipID(*e.NoticeClip)
	}
	if e.ClipDir != nil {
		cfg.ClipDir = *e.ClipDir
	}
	if e.CacheDir != nil {
		cfg.Cache.DiskPath = *e.CacheDir
	}
	if e.Backend != nil {
		cfg.Audio.Backend = *e.Backend
	}
	if e.Watchdog != nil {
		cfg.Watchdog = *e.Watchdog
	}
	return nil
}

// ExpandPaths resolves a leading ~ in the clip and cache directories.
func ExpandPaths(cfg *Config) error {
	var err error
	if cfg.ClipDir, err = homedir.Expand(cfg.ClipDir); err != nil {
		return fmt.Errorf("clip directory: %w", err)
	}
	if cfg.Cache.DiskPath, err = homedir.Expand(cfg.Cache.DiskPath); err != nil {
		return fmt.Errorf("cache directory: %w", err)
	}
	return nil
}

// SetDefaults registers the default values in v.
func SetDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("mode", defaults.Mode.String())
	v.SetDefault("engine", defaults.Engine.String())

	v.SetDefault("delays.default", defaults.Delays.Default)
	v.SetDefault("delays.after_am_pm", defaults.Delays.AfterAmPm)
	v.SetDefault("delays.after_hours", defaults.Delays.AfterHours)
	v.SetDefault("delays.before_repeat", defaults.Delays.BeforeRepeat)
	v.SetDefault("voice_delay.a", defaults.VoiceDelayA)
	v.SetDefault("voice_delay.b", defaults.VoiceDelayB)
	v.SetDefault("watchdog", defaults.Watchdog.String())
	v.SetDefault("end_delay", defaults.EndDelay.String())

	v.SetDefault("usage", defaults.Attributes.Usage.String())
	v.SetDefault("content_type", defaults.Attributes.ContentType.String())
	v.SetDefault("repeat", defaults.Repeat)
	v.SetDefault("clips", defaults.ClipDir)

	v.SetDefault("cache.memory_bytes", defaults.Cache.MemoryCapacity)
	v.SetDefault("cache.disk_bytes", defaults.Cache.DiskCapacity)
	v.SetDefault("cache.zstd_level", defaults.Cache.CompressionLevel)

	v.SetDefault("audio.backend", defaults.Audio.Backend)
	v.SetDefault("audio.sample_rate", defaults.Audio.SampleRate)
	v.SetDefault("audio.buffer_size", defaults.Audio.BufferSize.String())
}
