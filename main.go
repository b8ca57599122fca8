// Package main provides the entry point for the voiceclock CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/voiceclock/voiceclock/announcer"
	"github.com/voiceclock/voiceclock/internal/logging"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	errAnnouncementFailed = errors.New("announcement failed, see the log for details")

	rootCmd = &cobra.Command{
		Use:   "voiceclock [HH:MM]",
		Short: "Speak the time with recorded voice clips",
		Long: paragraph(
			fmt.Sprintf("\nAnnounce the current time, or the time given as %s, by playing %s from the clip directory.",
				keyword("HH:MM"), keyword("pre-recorded voice clips")),
		),
		Example:          paragraph("voiceclock\nvoiceclock 21:05 --mode 12h-ampm\nvoiceclock --repeat --notice chime"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if debug || viper.GetBool("debug") {
				logging.Debug()
			}
			if cmd.Flags().Changed("config") && cmd != configCmd {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config file: %w", err)
				}
			}
			return nil
		},
		RunE: execute,
	}
)

// loadConfig reads the announcer settings from the config file, flags and
// environment.
func loadConfig() (announcer.Config, error) {
	cfg, err := announcer.LoadConfigFromViper(viper.GetViper())
	if err != nil {
		return cfg, fmt.Errorf("unable to load configuration: %w", err)
	}
	return cfg, nil
}

// parseClock parses HH:MM in 24-hour notation.
func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: use HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	hour, minute := -1, -1
	if len(args) == 1 {
		if hour, minute, err = parseClock(args[0]); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	report := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	listener := announcer.ListenerFuncs{
		End:   func(*announcer.Player) { report(nil) },
		Error: func(*announcer.Player) { report(errAnnouncementFailed) },
	}

	st, err := newStation(cfg, listener)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("Shutdown incomplete", "error", err)
		}
	}()

	if missing := st.library.Missing(); len(missing) > 0 {
		log.Warn("Clip directory is incomplete", "dir", st.library.Dir(), "missing", len(missing))
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		if err := st.library.Watch(watchCtx); err != nil {
			log.Warn("Not watching clip directory", "error", err)
		}
	}()

	var started bool
	if hour < 0 {
		started = st.player.PlayVoiceCurrent()
	} else {
		started = st.player.PlayVoice(hour, minute)
	}
	if !started {
		return errors.New("could not start the announcement, see the log for details")
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		log.Info("Interrupted, stopping announcement")
		st.player.Release()
		return nil
	}
}

func main() {
	closer, err := logging.Setup()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}
	flags.StringVar(&configFile, "config", configFile, "config file")
	flags.String("mode", "", "reading mode: 12h, 12h-ampm or 24h")
	flags.String("engine", "", "playback engine: a (per clip) or b (single stream)")
	flags.String("clips", "", "directory holding the voice clips")
	flags.String("notice", "", "clip played before the announcement")
	flags.BoolVar(&debug, "debug", false, "log to stderr at debug level")
	rootCmd.Flags().BoolP("repeat", "r", false, "repeat until interrupted")

	// Config bindings
	_ = viper.BindPFlag("mode", flags.Lookup("mode"))
	_ = viper.BindPFlag("engine", flags.Lookup("engine"))
	_ = viper.BindPFlag("clips", flags.Lookup("clips"))
	_ = viper.BindPFlag("notice", flags.Lookup("notice"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("repeat", rootCmd.Flags().Lookup("repeat"))

	announcer.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(configCmd, manCmd, sequenceCmd, cacheCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, logging.Scope)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, logging.Scope)}, dirs...)
	}

	if c := os.Getenv("VOICECLOCK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(logging.Scope)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(logging.Scope)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], logging.Scope+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
