package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/pior/mpd"
	"github.com/pior/mpd/protocol"
)

// object builds a JSON object, the first error sticks.
type object struct {
	json string
	err  error
}

func newObject() *object {
	return &object{json: "{}"}
}

func (o *object) set(key string, value any) *object {
	if o.err == nil {
		o.json, o.err = sjson.Set(o.json, escapePath(key), value)
	}
	return o
}

func (o *object) setRaw(key, raw string) *object {
	if o.err == nil {
		o.json, o.err = sjson.SetRaw(o.json, escapePath(key), raw)
	}
	return o
}

func (o *object) build() (string, error) {
	return o.json, o.err
}

// array joins objects into a JSON array.
func array(objects []*object) (string, error) {
	arr := "[]"
	for _, obj := range objects {
		raw, err := obj.build()
		if err != nil {
			return "", err
		}
		if arr, err = sjson.SetRaw(arr, "-1", raw); err != nil {
			return "", err
		}
	}
	return arr, nil
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
)

// escapePath turns a record key into a literal sjson path.
func escapePath(key string) string {
	return pathEscaper.Replace(key)
}

// recordObject maps every field of rec, binary payloads as their size.
func recordObject(rec *protocol.Record) *object {
	obj := newObject()
	for _, f := range rec.Fields() {
		if f.IsBinary() {
			obj.set(f.Key, len(f.Data))
			continue
		}
		obj.set(f.Key, f.Value)
	}
	return obj
}

func statusObject(s *mpd.Status) *object {
	return newObject().
		set("state", s.State).
		set("volume", s.Volume).
		set("repeat", s.Repeat).
		set("random", s.Random).
		set("single", s.Single).
		set("consume", s.Consume).
		set("playlist", s.Playlist).
		set("playlistlength", s.PlaylistLength).
		set("song", s.Song).
		set("songid", s.SongID).
		set("nextsong", s.NextSong).
		set("nextsongid", s.NextSongID).
		set("elapsed", s.Elapsed.Seconds()).
		set("duration", s.Duration.Seconds()).
		set("bitrate", s.Bitrate).
		set("xfade", s.Crossfade.Seconds()).
		set("audio", s.Audio).
		set("updating_db", s.UpdatingDB).
		set("error", s.Error)
}

func serverStatsObject(s *mpd.ServerStats) *object {
	obj := newObject().
		set("artists", s.Artists).
		set("albums", s.Albums).
		set("songs", s.Songs).
		set("uptime", s.Uptime.Seconds()).
		set("playtime", s.Playtime.Seconds()).
		set("db_playtime", s.DBPlaytime.Seconds())
	if !s.DBUpdate.IsZero() {
		obj.set("db_update", s.DBUpdate.UTC().Format(time.RFC3339))
	}
	return obj
}

func songObject(s *mpd.Song) *object {
	obj := newObject().
		set("file", s.File).
		set("title", s.Title).
		set("artist", s.Artist).
		set("album", s.Album).
		set("pos", s.Pos).
		set("id", s.ID).
		set("duration", s.Duration.Seconds())
	if !s.LastModified.IsZero() {
		obj.set("last_modified", s.LastModified.UTC().Format(time.RFC3339))
	}

	tags := newObject()
	for _, key := range sortedKeys(s.Tags) {
		tags.set(key, s.Tags[key])
	}
	raw, err := tags.build()
	if err != nil {
		obj.err = err
		return obj
	}
	return obj.setRaw("tags", raw)
}

func outputObject(o *mpd.Output) *object {
	return newObject().
		set("id", o.ID).
		set("name", o.Name).
		set("plugin", o.Plugin).
		set("enabled", o.Enabled)
}

func formatStatus(s *mpd.Status) string {
	var b strings.Builder

	fmt.Fprintf(&b, "state: %s\n", s.State)
	if s.Song >= 0 {
		fmt.Fprintf(&b, "song: %d/%d\n", s.Song+1, s.PlaylistLength)
		fmt.Fprintf(&b, "time: %s/%s\n", formatDuration(s.Elapsed), formatDuration(s.Duration))
	}
	if s.Volume >= 0 {
		fmt.Fprintf(&b, "volume: %d%%\n", s.Volume)
	} else {
		b.WriteString("volume: n/a\n")
	}
	fmt.Fprintf(&b, "repeat: %s random: %s single: %s consume: %s\n",
		onOff(s.Repeat), onOff(s.Random), onOff(s.Single), onOff(s.Consume))
	if s.Bitrate > 0 {
		fmt.Fprintf(&b, "bitrate: %dkbps\n", s.Bitrate)
	}
	if s.Audio != "" {
		fmt.Fprintf(&b, "audio: %s\n", s.Audio)
	}
	if s.UpdatingDB > 0 {
		fmt.Fprintf(&b, "updating: job %d\n", s.UpdatingDB)
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", s.Error)
	}

	return b.String()
}

func formatServerStats(s *mpd.ServerStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "artists: %d\n", s.Artists)
	fmt.Fprintf(&b, "albums: %d\n", s.Albums)
	fmt.Fprintf(&b, "songs: %d\n", s.Songs)
	fmt.Fprintf(&b, "uptime: %s\n", s.Uptime)
	fmt.Fprintf(&b, "playtime: %s\n", s.Playtime)
	fmt.Fprintf(&b, "db playtime: %s\n", s.DBPlaytime)
	if !s.DBUpdate.IsZero() {
		fmt.Fprintf(&b, "db updated: %s\n", s.DBUpdate.UTC().Format(time.RFC3339))
	}

	return b.String()
}

// formatSong returns "Artist - Title", or the file when tags are missing.
func formatSong(s *mpd.Song) string {
	switch {
	case s.Artist != "" && s.Title != "":
		return s.Artist + " - " + s.Title
	case s.Title != "":
		return s.Title
	default:
		return s.File
	}
}

func formatOutput(o *mpd.Output) string {
	state := "disabled"
	if o.Enabled {
		state = "enabled"
	}
	return fmt.Sprintf("%d (%s) %s: %s", o.ID, o.Plugin, o.Name, state)
}

// formatFields prints fields in wire order, duplicates included.
func formatFields(fields []protocol.Field) string {
	var b strings.Builder
	for _, f := range fields {
		if f.IsBinary() {
			fmt.Fprintf(&b, "%s: %d bytes\n", f.Key, len(f.Data))
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
	}
	return b.String()
}

// formatDuration formats d as m:ss.
func formatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
