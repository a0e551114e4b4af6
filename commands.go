package mpd

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/pior/mpd/protocol"
)

// ErrNoPicture is returned by ReadPicture when the file has no embedded picture.
var ErrNoPicture = errors.New("mpd: no picture")

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.run(ctx, protocol.NewCommand("ping"))
	return err
}

// ClearError clears the error reported by status.
func (c *Client) ClearError(ctx context.Context) error {
	_, err := c.run(ctx, protocol.NewCommand("clearerror"))
	return err
}

// Status returns the player status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	resp, err := c.run(ctx, protocol.NewCommand("status"))
	if err != nil {
		return nil, err
	}
	return newStatus(resp.Record), nil
}

// ServerStats returns the database and uptime statistics of the server.
func (c *Client) ServerStats(ctx context.Context) (*ServerStats, error) {
	resp, err := c.run(ctx, protocol.NewCommand("stats"))
	if err != nil {
		return nil, err
	}
	return newServerStats(resp.Record), nil
}

// CurrentSong returns the song being played, or nil when the queue is stopped
// on no song.
func (c *Client) CurrentSong(ctx context.Context) (*Song, error) {
	resp, err := c.run(ctx, protocol.NewCommand("currentsong"))
	if err != nil {
		return nil, err
	}
	if resp.Record.Len() == 0 {
		return nil, nil
	}
	return newSong(resp.Record), nil
}

// PlaylistInfo returns the songs of the queue.
func (c *Client) PlaylistInfo(ctx context.Context) ([]*Song, error) {
	resp, err := c.run(ctx, protocol.NewCommand("playlistinfo"))
	if err != nil {
		return nil, err
	}

	records := resp.Group("file")
	songs := make([]*Song, len(records))
	for i, rec := range records {
		songs[i] = newSong(rec)
	}
	return songs, nil
}

// Outputs returns the audio outputs.
func (c *Client) Outputs(ctx context.Context) ([]*Output, error) {
	resp, err := c.run(ctx, protocol.NewCommand("outputs"))
	if err != nil {
		return nil, err
	}

	records := resp.Group("outputid")
	outputs := make([]*Output, len(records))
	for i, rec := range records {
		outputs[i] = newOutput(rec)
	}
	return outputs, nil
}

// Play starts playing the song at position pos in the queue.
// A negative pos resumes the current song.
func (c *Client) Play(ctx context.Context, pos int) error {
	if pos < 0 {
		return c.playback(ctx, protocol.NewCommand("play"))
	}
	return c.playback(ctx, protocol.NewCommand("play", pos))
}

// PlayID starts playing the song with the given id.
func (c *Client) PlayID(ctx context.Context, id int) error {
	if id < 0 {
		return &protocol.InvalidArgumentError{Arg: "id", Message: "must not be negative"}
	}
	return c.playback(ctx, protocol.NewCommand("playid", id))
}

// Pause pauses (true) or resumes (false) playback.
func (c *Client) Pause(ctx context.Context, pause bool) error {
	return c.playback(ctx, protocol.NewCommand("pause", pause))
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.run(ctx, protocol.NewCommand("stop"))
	return err
}

// Next plays the next song in the queue.
func (c *Client) Next(ctx context.Context) error {
	return c.playback(ctx, protocol.NewCommand("next"))
}

// Previous plays the previous song in the queue.
func (c *Client) Previous(ctx context.Context) error {
	return c.playback(ctx, protocol.NewCommand("previous"))
}

// Seek seeks to position d in the song at position pos in the queue.
func (c *Client) Seek(ctx context.Context, pos int, d time.Duration) error {
	if pos < 0 {
		return &protocol.InvalidArgumentError{Arg: "pos", Message: "must not be negative"}
	}
	if d < 0 {
		return &protocol.InvalidArgumentError{Arg: "time", Message: "must not be negative"}
	}
	return c.playback(ctx, protocol.NewCommand("seek", pos, d))
}

// playback runs a command that may set the server error state (decoder or
// output failures). The previous error is cleared first, in the same
// connection turn, so that status reports the outcome of this command only.
func (c *Client) playback(ctx context.Context, cmd *protocol.Command) error {
	resps, err := c.conn.executeSequence(ctx, protocol.NewCommand("clearerror"), cmd)
	if err != nil {
		return err
	}
	for _, resp := range resps {
		if err := resp.Err(); err != nil {
			return err
		}
	}
	return nil
}

// SetVolume sets the volume, between 0 and 100.
func (c *Client) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 || volume > 100 {
		return &protocol.InvalidArgumentError{Arg: "volume", Message: "must be between 0 and 100, got " + strconv.Itoa(volume)}
	}
	_, err := c.run(ctx, protocol.NewCommand("setvol", volume))
	return err
}

// Crossfade sets the crossfade between songs, rounded down to the second.
func (c *Client) Crossfade(ctx context.Context, d time.Duration) error {
	if d < 0 {
		return &protocol.InvalidArgumentError{Arg: "crossfade", Message: "must not be negative"}
	}
	_, err := c.run(ctx, protocol.NewCommand("crossfade", int(d/time.Second)))
	return err
}

// SetRepeat enables or disables repeat mode.
func (c *Client) SetRepeat(ctx context.Context, on bool) error {
	_, err := c.run(ctx, protocol.NewCommand("repeat", on))
	return err
}

// SetRandom enables or disables random mode.
func (c *Client) SetRandom(ctx context.Context, on bool) error {
	_, err := c.run(ctx, protocol.NewCommand("random", on))
	return err
}

// SetSingle enables or disables single mode.
func (c *Client) SetSingle(ctx context.Context, on bool) error {
	_, err := c.run(ctx, protocol.NewCommand("single", on))
	return err
}

// SetConsume enables or disables consume mode.
func (c *Client) SetConsume(ctx context.Context, on bool) error {
	_, err := c.run(ctx, protocol.NewCommand("consume", on))
	return err
}

// Add appends a file or directory to the queue.
func (c *Client) Add(ctx context.Context, uri string) error {
	_, err := c.run(ctx, protocol.NewCommand("add", protocol.Quote(uri)))
	return err
}

// Clear empties the queue.
func (c *Client) Clear(ctx context.Context) error {
	_, err := c.run(ctx, protocol.NewCommand("clear"))
	return err
}

// Update starts a database update of uri (everything when empty) and returns
// the job id.
func (c *Client) Update(ctx context.Context, uri string) (int, error) {
	cmd := protocol.NewCommand("update")
	if uri != "" {
		cmd = protocol.NewCommand("update", protocol.Quote(uri))
	}

	resp, err := c.run(ctx, cmd)
	if err != nil {
		return 0, err
	}

	job, ok := resp.Record.Int("updating_db")
	if !ok {
		return 0, &protocol.ProtocolError{Message: "update response missing updating_db"}
	}
	return job, nil
}

// AlbumArt returns the cover image stored next to the song file (cover.jpg,
// cover.png, ...).
func (c *Client) AlbumArt(ctx context.Context, uri string) (*Picture, error) {
	return c.readChunks(ctx, "albumart", uri)
}

// ReadPicture returns the picture embedded in the song file.
// ErrNoPicture is returned when the file has none.
func (c *Client) ReadPicture(ctx context.Context, uri string) (*Picture, error) {
	return c.readChunks(ctx, "readpicture", uri)
}

// readChunks collects a binary resource transferred in chunks.
// Each response carries the total size and one binary chunk, the client asks
// for the next chunk at the offset it reached.
func (c *Client) readChunks(ctx context.Context, verb, uri string) (*Picture, error) {
	var (
		pic    = &Picture{}
		offset = 0
		size   = -1
	)

	for {
		resp, err := c.run(ctx, protocol.NewCommand(verb, protocol.Quote(uri), offset))
		if err != nil {
			return nil, err
		}

		rec := resp.Record
		if rec.Len() == 0 {
			return nil, ErrNoPicture
		}

		total, ok := rec.Int("size")
		if !ok || total < 0 {
			return nil, &protocol.ProtocolError{Message: verb + " response missing size"}
		}
		if size < 0 {
			size = total
			pic.Data = make([]byte, 0, size)
		}
		if mime := rec.String("type"); mime != "" {
			pic.MIMEType = mime
		}

		chunk := rec.Binary()
		pic.Data = append(pic.Data, chunk...)
		offset += len(chunk)

		if offset >= size {
			return pic, nil
		}
		if len(chunk) == 0 {
			return nil, &protocol.ProtocolError{Message: verb + " returned an empty chunk at offset " + strconv.Itoa(offset)}
		}
	}
}
