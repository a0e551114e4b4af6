package main

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pior/mpd"
	"github.com/pior/mpd/protocol"
)

// Filled in using the linker -X flag
var version = "dev"

// print writes text, or json when --json is set.
func (a *app) print(text string, obj *object) error {
	if !a.opts.json {
		_, err := fmt.Fprint(a.out, text)
		return err
	}

	raw, err := obj.build()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, raw)
	return err
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mpdctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := fmt.Sprintf("mpdctl %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			obj := newObject().
				set("version", version).
				set("go", runtime.Version()).
				set("platform", runtime.GOOS+"/"+runtime.GOARCH)
			return a.print(text, obj)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the player status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				status, err := client.Status(ctx)
				if err != nil {
					return err
				}
				return a.print(formatStatus(status), statusObject(status))
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the database and uptime statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				stats, err := client.ServerStats(ctx)
				if err != nil {
					return err
				}
				return a.print(formatServerStats(stats), serverStatsObject(stats))
			})
		},
	}
}

func newCurrentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the current song",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				song, err := client.CurrentSong(ctx)
				if err != nil {
					return err
				}
				if song == nil {
					return a.print("", newObject())
				}
				return a.print(formatSong(song)+"\n", songObject(song))
			})
		},
	}
}

func newPlaylistCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "playlist",
		Aliases: []string{"queue"},
		Short:   "Print the songs of the queue",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				songs, err := client.PlaylistInfo(ctx)
				if err != nil {
					return err
				}

				if a.opts.json {
					objects := make([]*object, len(songs))
					for i, song := range songs {
						objects[i] = songObject(song)
					}
					raw, err := array(objects)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(a.out, raw)
					return err
				}

				for _, song := range songs {
					if _, err := fmt.Fprintf(a.out, "%3d  %s  %s\n", song.Pos+1, formatDuration(song.Duration), formatSong(song)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newOutputsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "outputs",
		Short: "Print the audio outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				outputs, err := client.Outputs(ctx)
				if err != nil {
					return err
				}

				if a.opts.json {
					objects := make([]*object, len(outputs))
					for i, output := range outputs {
						objects[i] = outputObject(output)
					}
					raw, err := array(objects)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(a.out, raw)
					return err
				}

				for _, output := range outputs {
					if _, err := fmt.Fprintln(a.out, formatOutput(output)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play [position]",
		Short: "Start playing, at the 1-based queue position when given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos := -1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid position %q", args[0])
				}
				pos = n - 1
			}

			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				return client.Play(ctx, pos)
			})
		},
	}
}

// simpleCmd runs a client method without arguments nor output.
func simpleCmd(a *app, use, short string, method func(*mpd.Client, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				return method(client, ctx)
			})
		},
	}
}

func newPauseCmd(a *app) *cobra.Command {
	return simpleCmd(a, "pause", "Pause playback", func(client *mpd.Client, ctx context.Context) error {
		return client.Pause(ctx, true)
	})
}

func newResumeCmd(a *app) *cobra.Command {
	return simpleCmd(a, "resume", "Resume playback", func(client *mpd.Client, ctx context.Context) error {
		return client.Pause(ctx, false)
	})
}

func newStopCmd(a *app) *cobra.Command {
	return simpleCmd(a, "stop", "Stop playback", (*mpd.Client).Stop)
}

func newNextCmd(a *app) *cobra.Command {
	return simpleCmd(a, "next", "Play the next song", (*mpd.Client).Next)
}

func newPrevCmd(a *app) *cobra.Command {
	return simpleCmd(a, "prev", "Play the previous song", (*mpd.Client).Previous)
}

func newClearCmd(a *app) *cobra.Command {
	return simpleCmd(a, "clear", "Empty the queue", (*mpd.Client).Clear)
}

func newVolumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "volume <0-100>",
		Short: "Set the volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid volume %q", args[0])
			}

			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				return client.SetVolume(ctx, volume)
			})
		},
	}
}

func newToggleCmd(a *app, mode string, set func(*mpd.Client, context.Context, bool) error) *cobra.Command {
	return &cobra.Command{
		Use:       mode + " <on|off>",
		Short:     "Enable or disable " + mode + " mode",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on := args[0] == "on"
			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				return set(client, ctx, on)
			})
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <uri>...",
		Short: "Append files or directories to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				for _, uri := range args {
					if err := client.Add(ctx, uri); err != nil {
						return fmt.Errorf("add %s: %w", uri, err)
					}
				}
				return nil
			})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update [uri]",
		Short: "Update the music database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var uri string
			if len(args) == 1 {
				uri = args[0]
			}

			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				job, err := client.Update(ctx, uri)
				if err != nil {
					return err
				}
				return a.print(fmt.Sprintf("updating: job %d\n", job), newObject().set("updating_db", job))
			})
		},
	}
}

func newRawCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <command> [argument]...",
		Short: "Send a command and print the raw response",
		Long: `Send a command and print the raw response

Arguments are sent as given: quote them for the server when they contain
spaces, for example:

	mpdctl raw find artist '"Miles Davis"'
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdArgs := make([]any, len(args)-1)
			for i, arg := range args[1:] {
				cmdArgs[i] = arg
			}

			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				resp, err := client.Exec(ctx, protocol.NewCommand(args[0], cmdArgs...))
				if err != nil {
					return err
				}
				if err := resp.Err(); err != nil {
					return err
				}

				return a.print(formatFields(resp.Fields), recordObject(resp.Record))
			})
		},
	}
}
