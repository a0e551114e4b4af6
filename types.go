package mpd

import (
	"strings"
	"time"

	"github.com/pior/mpd/protocol"
)

// Player states reported by status
const (
	StatePlay  = "play"
	StatePause = "pause"
	StateStop  = "stop"
)

// Status is the projection of the status command.
// Integer fields that the server omits are set to -1.
type Status struct {
	Volume         int
	Repeat         bool
	Random         bool
	Single         bool // true for "1" and "oneshot"
	Consume        bool // true for "1" and "oneshot"
	Playlist       int64
	PlaylistLength int
	State          string
	Song           int
	SongID         int
	NextSong       int
	NextSongID     int
	Elapsed        time.Duration
	Duration       time.Duration
	Bitrate        int
	Crossfade      time.Duration
	Audio          string
	UpdatingDB     int
	Error          string
}

func newStatus(rec *protocol.Record) *Status {
	return &Status{
		Volume:         intOr(rec, "volume", -1),
		Repeat:         flag(rec, "repeat"),
		Random:         flag(rec, "random"),
		Single:         flag(rec, "single"),
		Consume:        flag(rec, "consume"),
		Playlist:       int64Or(rec, "playlist", 0),
		PlaylistLength: intOr(rec, "playlistlength", 0),
		State:          rec.String("state"),
		Song:           intOr(rec, "song", -1),
		SongID:         intOr(rec, "songid", -1),
		NextSong:       intOr(rec, "nextsong", -1),
		NextSongID:     intOr(rec, "nextsongid", -1),
		Elapsed:        durationOr(rec, "elapsed"),
		Duration:       durationOr(rec, "duration"),
		Bitrate:        intOr(rec, "bitrate", 0),
		Crossfade:      durationOr(rec, "xfade"),
		Audio:          rec.String("audio"),
		UpdatingDB:     intOr(rec, "updating_db", 0),
		Error:          rec.String("error"),
	}
}

// ServerStats is the projection of the stats command.
type ServerStats struct {
	Artists    int
	Albums     int
	Songs      int
	Uptime     time.Duration
	Playtime   time.Duration
	DBPlaytime time.Duration
	DBUpdate   time.Time
}

func newServerStats(rec *protocol.Record) *ServerStats {
	stats := &ServerStats{
		Artists:    intOr(rec, "artists", 0),
		Albums:     intOr(rec, "albums", 0),
		Songs:      intOr(rec, "songs", 0),
		Uptime:     durationOr(rec, "uptime"),
		Playtime:   durationOr(rec, "playtime"),
		DBPlaytime: durationOr(rec, "db_playtime"),
	}
	if ts, ok := rec.Int64("db_update"); ok {
		stats.DBUpdate = time.Unix(ts, 0)
	}
	return stats
}

// Song is a song entry as returned by currentsong and playlistinfo.
// Tags holds every field of the entry, including the ones mapped to named fields.
type Song struct {
	File         string
	Title        string
	Artist       string
	Album        string
	Pos          int
	ID           int
	Duration     time.Duration
	LastModified time.Time
	Tags         map[string]string
}

func newSong(rec *protocol.Record) *Song {
	song := &Song{
		File:     rec.String("file"),
		Title:    rec.String("Title"),
		Artist:   rec.String("Artist"),
		Album:    rec.String("Album"),
		Pos:      intOr(rec, "Pos", -1),
		ID:       intOr(rec, "Id", -1),
		Duration: durationOr(rec, "duration"),
		Tags:     rec.Map(),
	}
	if song.Duration == 0 {
		// Servers before 0.20 only send whole seconds in Time
		song.Duration = durationOr(rec, "Time")
	}
	if lm, ok := rec.Get("Last-Modified"); ok {
		if t, err := time.Parse(time.RFC3339, lm); err == nil {
			song.LastModified = t
		}
	}
	return song
}

// Output is an audio output as returned by outputs.
type Output struct {
	ID      int
	Name    string
	Plugin  string
	Enabled bool
}

func newOutput(rec *protocol.Record) *Output {
	return &Output{
		ID:      intOr(rec, "outputid", -1),
		Name:    rec.String("outputname"),
		Plugin:  rec.String("plugin"),
		Enabled: flag(rec, "outputenabled"),
	}
}

// Picture is an image transferred with albumart or readpicture.
type Picture struct {
	Data []byte

	// MIMEType is only reported by readpicture.
	MIMEType string
}

func intOr(rec *protocol.Record, key string, fallback int) int {
	if v, ok := rec.Int(key); ok {
		return v
	}
	return fallback
}

func int64Or(rec *protocol.Record, key string, fallback int64) int64 {
	if v, ok := rec.Int64(key); ok {
		return v
	}
	return fallback
}

func durationOr(rec *protocol.Record, key string) time.Duration {
	d, _ := rec.Duration(key)
	return d
}

func flag(rec *protocol.Record, key string) bool {
	v := strings.TrimSpace(rec.String(key))
	return v == "1" || v == "oneshot"
}
