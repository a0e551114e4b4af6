package main

import (
	"context"
	"io"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pior/mpd"
	"github.com/pior/mpd/protocol"
)

// options are the persistent flags shared by every command
type options struct {
	host       string
	port       int
	timeout    time.Duration
	password   string
	strict     bool
	configPath string
	envFile    string
	json       bool
	verbose    bool
}

type app struct {
	out      io.Writer
	lookuper envconfig.Lookuper

	// for testing purposes only
	log *zap.Logger

	opts options
}

func newApp(out io.Writer) *app {
	return &app{
		out:      out,
		lookuper: envconfig.OsLookuper(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mpdctl",
		Short: "Control a Music Player Daemon",
		Long: `Control a Music Player Daemon

The server is selected with, from highest to lowest precedence:
	--host, --port, --timeout, --password flags
	MPD_HOST, MPD_PORT, MPD_TIMEOUT, MPD_PASSWORD environment (and --env-file)
	the --config TOML profile
	localhost:6600 with a 1s timeout

MPD_HOST may carry a password as password@host.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.host, "host", "H", "", "Server host (default localhost)")
	flags.IntVarP(&a.opts.port, "port", "p", 0, "Server port (default 6600)")
	flags.DurationVarP(&a.opts.timeout, "timeout", "t", 0, "Timeout of every network operation (default 1s)")
	flags.StringVar(&a.opts.password, "password", "", "Server password")
	flags.BoolVar(&a.opts.strict, "strict", false, "Fail on malformed response lines instead of skipping them")
	flags.StringVarP(&a.opts.configPath, "config", "c", "", "TOML profile file")
	flags.StringVar(&a.opts.envFile, "env-file", "", "Load environment variables from a dotenv file")
	flags.BoolVar(&a.opts.json, "json", false, "Print results as JSON")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Log protocol activity to stderr")

	root.AddCommand(
		newVersionCmd(a),
		newStatusCmd(a),
		newStatsCmd(a),
		newCurrentCmd(a),
		newPlaylistCmd(a),
		newOutputsCmd(a),
		newPlayCmd(a),
		newPauseCmd(a),
		newResumeCmd(a),
		newStopCmd(a),
		newNextCmd(a),
		newPrevCmd(a),
		newVolumeCmd(a),
		newToggleCmd(a, "random", (*mpd.Client).SetRandom),
		newToggleCmd(a, "repeat", (*mpd.Client).SetRepeat),
		newToggleCmd(a, "single", (*mpd.Client).SetSingle),
		newToggleCmd(a, "consume", (*mpd.Client).SetConsume),
		newAddCmd(a),
		newClearCmd(a),
		newUpdateCmd(a),
		newAlbumArtCmd(a),
		newRawCmd(a),
		newWatchCmd(a),
	)

	return root
}

// logger returns the logger selected by --verbose.
func (a *app) logger() (*zap.Logger, error) {
	if a.log != nil {
		return a.log, nil
	}
	return makeLogger(a.opts.verbose)
}

// withClient dials the server, runs fn and closes the connection.
func (a *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, client *mpd.Client) error) error {
	ctx := cmd.Context()

	cfg, err := a.config(cmd)
	if err != nil {
		return err
	}

	client, err := mpd.Dial(ctx, cfg)
	if err != nil {
		return err
	}

	err = fn(ctx, client)
	return multierr.Append(err, client.Close())
}

// config resolves the connection configuration of cmd.
func (a *app) config(cmd *cobra.Command) (mpd.Config, error) {
	log, err := a.logger()
	if err != nil {
		return mpd.Config{}, err
	}

	cfg, err := resolveConfig(cmd.Context(), a.lookuper, a.opts, a.flagOverrides(cmd))
	if err != nil {
		return mpd.Config{}, err
	}
	cfg.Logger = log

	return cfg, nil
}

// flagOverrides returns the configuration set explicitly on the command line.
func (a *app) flagOverrides(cmd *cobra.Command) mpd.Config {
	var cfg mpd.Config

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = a.opts.host
	}
	if flags.Changed("port") {
		cfg.Port = a.opts.port
	}
	if flags.Changed("timeout") {
		cfg.Timeout = a.opts.timeout
	}
	if flags.Changed("password") {
		cfg.Password = a.opts.password
	}
	if flags.Changed("strict") {
		cfg.Mode = protocol.Lenient
		if a.opts.strict {
			cfg.Mode = protocol.Strict
		}
	}

	return cfg
}
