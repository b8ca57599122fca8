package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voiceclock/voiceclock/announcer"
	"github.com/voiceclock/voiceclock/clips"
	"github.com/voiceclock/voiceclock/sequence"
)

var allModes bool

var sequenceCmd = &cobra.Command{
	Use:     "sequence [HH:MM]",
	Short:   "Print the clips that announce a time",
	Long:    paragraph(fmt.Sprintf("\n%s the clips and pauses voiceclock would play for the current time, or for HH:MM.", keyword("Print"))),
	Example: paragraph("voiceclock sequence\nvoiceclock sequence 00:00 --all"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		now := time.Now()
		hour, minute := now.Hour(), now.Minute()
		if len(args) == 1 {
			if hour, minute, err = parseClock(args[0]); err != nil {
				return err
			}
		}

		modes := []sequence.Mode{cfg.Mode}
		if allModes {
			modes = []sequence.Mode{sequence.Mode12Hour, sequence.Mode12HourAmPm, sequence.Mode24Hour}
		}

		// The file column is only shown when the clip directory is usable.
		var resolve func(sequence.ClipID) string
		if library, err := clips.New(cfg.ClipDir, outputFormat(cfg)); err == nil {
			resolve = func(clip sequence.ClipID) string {
				path, err := library.Resolve(clip)
				if err != nil {
					return "missing"
				}
				return filepath.Base(path)
			}
		}

		styled := term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec
		for _, mode := range modes {
			seq, err := announcer.BuildSequence(cfg, mode, hour, minute)
			if err != nil {
				return fmt.Errorf("cannot announce %s: %w", sequence.Describe(mode, hour, minute), err)
			}
			if err := printSequence(os.Stdout, mode, seq, cfg.StreamOffset(), resolve, styled); err != nil {
				return err
			}
		}
		return nil
	},
}

func printSequence(w io.Writer, mode sequence.Mode, seq sequence.Sequence, offset time.Duration, resolve func(sequence.ClipID) string, styled bool) error {
	if !styled {
		_, err := fmt.Fprintf(w, "%s\t%s\n", mode, seq)
		return err
	}

	headers := []string{"#", "PAUSE", "CLIP"}
	if resolve != nil {
		headers = append(headers, "FILE")
	}
	rows := make([][]string, 0, len(seq))
	for i, item := range seq {
		row := []string{strconv.Itoa(i + 1), (item.Delay() + offset).String(), string(item.Clip)}
		if resolve != nil {
			row = append(row, resolve(item.Clip))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(faintStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	_, err := fmt.Fprintf(w, "%s %s\n%s\n", keyword(mode.String()),
		faintStyle.Render(fmt.Sprintf("(%d clips, %v of pauses)", len(seq), seq.Duration()+time.Duration(len(seq))*offset)),
		t.Render())
	return err
}

func init() {
	sequenceCmd.Flags().BoolVarP(&allModes, "all", "a", false, "show every reading mode")
}
