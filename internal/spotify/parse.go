package spotify

import (
	"time"

	"github.com/tidwall/gjson"

	"accessify/internal/core"
	"accessify/pkg/text"
)

// ParseQueue reads a /me/player/queue body. Either half may be missing or null.
func ParseQueue(body []byte) *core.QueueSnapshot {
	parsed := gjson.ParseBytes(body)
	snapshot := &core.QueueSnapshot{}

	if current, ok := parseEntry(parsed.Get("currently_playing"), core.RoleCurrent); ok {
		snapshot.Current = &current
	}

	// Null and uri-less entries are dropped on purpose: remove and move
	// rebuild playback from the listed uris, so an entry without one could
	// never be replayed. Display indexes count the listed entries only.
	parsed.Get("queue").ForEach(func(_, value gjson.Result) bool {
		if entry, ok := parseEntry(value, core.RoleQueued); ok {
			snapshot.Queue = append(snapshot.Queue, entry)
		}
		return true
	})

	return snapshot
}

// ParsePlayback reads a /me/player body. Item stays nil when the vendor
// reports nothing playing or an item type it does not describe.
func ParsePlayback(body []byte) *core.PlaybackState {
	parsed := gjson.ParseBytes(body)

	state := &core.PlaybackState{
		Playing:    parsed.Get("is_playing").Bool(),
		Progress:   time.Duration(parsed.Get("progress_ms").Int()) * time.Millisecond,
		Shuffle:    parsed.Get("shuffle_state").Bool(),
		Repeat:     parsed.Get("repeat_state").String(),
		ContextURI: parsed.Get("context.uri").String(),
	}
	if state.Repeat == "" {
		state.Repeat = core.RepeatOff
	}

	if device := parsed.Get("device"); device.IsObject() {
		state.Device = core.Device{
			ID:         device.Get("id").String(),
			Name:       device.Get("name").String(),
			Type:       device.Get("type").String(),
			Active:     device.Get("is_active").Bool(),
			Restricted: device.Get("is_restricted").Bool(),
			Volume:     int(device.Get("volume_percent").Int()),
		}
	}

	if item, ok := parseEntry(parsed.Get("item"), core.RoleCurrent); ok {
		state.Item = &item
	}

	return state
}

func parseEntry(value gjson.Result, role core.EntryRole) (core.QueueEntry, bool) {
	if !value.IsObject() {
		return core.QueueEntry{}, false
	}

	uri := value.Get("uri").String()
	if uri == "" {
		return core.QueueEntry{}, false
	}

	entry := core.QueueEntry{
		Role:     role,
		Kind:     core.MediaTrack,
		Name:     text.Normalize(value.Get("name").String()),
		URI:      uri,
		Link:     value.Get("external_urls.spotify").String(),
		Duration: time.Duration(value.Get("duration_ms").Int()) * time.Millisecond,
	}

	if value.Get("type").String() == string(core.MediaEpisode) {
		entry.Kind = core.MediaEpisode
		entry.Artist = text.Normalize(value.Get("show.name").String())
	} else {
		var names []string
		value.Get("artists.#.name").ForEach(func(_, name gjson.Result) bool {
			names = append(names, name.String())
			return true
		})
		entry.Artist = text.JoinNames(names)
	}

	if entry.Link == "" {
		entry.Link = linkFor(uri, nil)
	}

	return entry, true
}
