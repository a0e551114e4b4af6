package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pior/mpd"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		count    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the player status",
		Long: `Poll the player status

Every poll opens a new connection. After repeated network failures the
server is left alone for a while instead of being polled.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("invalid interval %s", interval)
			}

			cfg, err := a.config(cmd)
			if err != nil {
				return err
			}
			log := cfg.Logger

			guard := mpd.NewGuard(cfg, mpd.GuardSettings{
				Timeout: 10 * interval,
				OnStateChange: func(name string, from, to gobreaker.State) {
					log.Warn("Server state changed", zap.String("addr", name), zap.Stringer("from", from), zap.Stringer("to", to))
				},
			})

			return watch(cmd.Context(), a, guard, log, interval, count)
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Time between polls")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after this many polls (0 polls forever)")

	return cmd
}

func watch(ctx context.Context, a *app, guard *mpd.Guard, log *zap.Logger, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		err := guard.Do(ctx, func(ctx context.Context, client *mpd.Client) error {
			status, err := client.Status(ctx)
			if err != nil {
				return err
			}
			return a.print(formatWatchLine(status), statusObject(status))
		})
		if err != nil {
			log.Warn("Poll failed", zap.Error(err))
		}

		if count > 0 && polls >= count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func formatWatchLine(s *mpd.Status) string {
	line := fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), s.State)
	if s.Song >= 0 {
		line += fmt.Sprintf(" #%d/%d %s/%s", s.Song+1, s.PlaylistLength, formatDuration(s.Elapsed), formatDuration(s.Duration))
	}
	if s.Volume >= 0 {
		line += fmt.Sprintf(" vol %d%%", s.Volume)
	}
	if s.Error != "" {
		line += " error: " + s.Error
	}
	return line + "\n"
}
