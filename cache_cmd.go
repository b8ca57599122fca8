package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/voiceclock/voiceclock/internal/cache"
	"github.com/voiceclock/voiceclock/sequence"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the decoded clip cache",
	Long:  paragraph(fmt.Sprintf("\nDecoded clips are kept in a %s so announcements start without decoding.", keyword("compressed disk cache"))),
	Args:  cobra.NoArgs,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache usage",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return withCache(func(c *cache.Manager) error {
			return printCacheStats(os.Stdout, c.Stats())
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached clip",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return withCache(func(c *cache.Manager) error {
			before := c.Stats().Disk
			if err := c.Clear(); err != nil {
				return fmt.Errorf("unable to clear cache: %w", err)
			}
			fmt.Printf("Removed %d clips (%s)\n", before.ItemCount, humanize.IBytes(uint64(before.Size))) //nolint:gosec
			return nil
		})
	},
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Decode every available clip into the cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return withCache(func(c *cache.Manager) error {
			library, err := openLibrary(cfg, c)
			if err != nil {
				return err
			}

			missing := library.Missing()
			available := slices.DeleteFunc(sequence.AllClips(), func(clip sequence.ClipID) bool {
				return slices.Contains(missing, clip)
			})
			if cfg.NoticeClip != "" {
				if _, err := library.Resolve(cfg.NoticeClip); err == nil {
					available = append(available, cfg.NoticeClip)
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			decoded, err := library.DecodeAll(ctx, available)
			if err != nil {
				return fmt.Errorf("unable to decode clips: %w", err)
			}

			var total int
			for _, data := range decoded {
				total += len(data)
			}
			fmt.Printf("Decoded %d clips (%s of audio, %s)\n",
				len(decoded), library.Format().Duration(total), humanize.IBytes(uint64(total))) //nolint:gosec
			if len(missing) > 0 {
				fmt.Printf("Missing %d clips in %s\n", len(missing), library.Dir())
				log.Warn("Missing clips", "clips", missing)
			}
			return nil
		})
	},
}

func withCache(fn func(*cache.Manager) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := openCache(cfg)
	if err != nil {
		return fmt.Errorf("unable to open cache: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("Could not save cache index", "error", err)
		}
	}()
	return fn(c)
}

func printCacheStats(w io.Writer, stats cache.ManagerStats) error {
	if !stats.DiskEnabled {
		_, err := fmt.Fprintln(w, "Disk cache is disabled.")
		return err
	}

	disk := stats.Disk
	usage := 0.0
	if disk.Capacity > 0 {
		usage = float64(disk.Size) / float64(disk.Capacity) * 100
	}
	_, err := fmt.Fprintf(w, "%s %d\n%s %s of %s (%.1f%%)\n",
		keyword("Clips:"), disk.ItemCount,
		keyword("Size: "), humanize.IBytes(uint64(disk.Size)), humanize.IBytes(uint64(disk.Capacity)), usage) //nolint:gosec
	if err != nil {
		return err
	}
	if !disk.LastEvict.IsZero() {
		_, err = fmt.Fprintf(w, "%s %s\n", keyword("Last eviction:"), humanize.Time(disk.LastEvict))
	}
	return err
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheWarmCmd)
}
