package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# reading mode: 12h, 12h-ampm or 24h
mode: "12h"
# playback engine: a (one player per clip) or b (one rendered stream)
engine: "b"
# repeat the announcement until interrupted
repeat: false
# clip played before every announcement, empty for none
notice: ""
# directory holding <clip>.wav or <clip>.mp3 files
clips: "~/.local/share/voiceclock/clips"

# pauses between clips, in milliseconds
delays:
  default: 0
  after_am_pm: 0
  after_hours: 0
  before_repeat: 1000

# extra pause per engine, in milliseconds
voice_delay:
  a: 0
  b: 0

# engine a: give up on a clip that does not finish in time
watchdog: "10s"
# engine a: grace period before players are closed
end_delay: "250ms"

# media, alarm, notification or assistant
usage: "media"
# unknown, speech, music or sonification
content_type: "unknown"

# decoded clip cache
cache:
  memory_bytes: 33554432
  disk_bytes: 268435456
  # dir: "~/.cache/voiceclock"
  zstd_level: 3

audio:
  # oto or miniaudio
  backend: "oto"
  sample_rate: 44100
  buffer_size: "100ms"
  # volume per usage, between 0.0 and 1.0
  # volumes:
  #   alarm: 1.0
  #   media: 0.8
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the voiceclock config file",
	Long:    paragraph(fmt.Sprintf("\n%s the voiceclock config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("voiceclock config\nvoiceclock config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("voiceclock", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	_, err := os.Stat(configFile)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return fmt.Errorf("unable create directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}
