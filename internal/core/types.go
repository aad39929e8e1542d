package core

import (
	"time"
)

type MediaKind string

const (
	// MediaTrack is a music track.
	MediaTrack MediaKind = "track"
	// MediaEpisode is a podcast episode.
	MediaEpisode MediaKind = "episode"
)

type EntryRole int

const (
	// RoleCurrent marks the item that is playing right now
	RoleCurrent EntryRole = iota
	// RoleQueued marks an upcoming item
	RoleQueued
)

func (r EntryRole) String() string {
	if r == RoleCurrent {
		return "current"
	}
	return "queued"
}

// QueueEntry is one row of the display queue. Its identity for mutations is its
// position in the snapshot it came from.
type QueueEntry struct {
	Role   EntryRole
	Kind   MediaKind
	Name   string
	Artist string // artist names for tracks, show name for episodes
	URI    string
	Link   string
	// Duration is zero when the vendor omitted it.
	Duration time.Duration
}

// QueueSnapshot is the raw read-only queue as reported by the vendor.
type QueueSnapshot struct {
	Current *QueueEntry
	Queue   []QueueEntry
}

type Device struct {
	ID         string
	Name       string
	Type       string
	Active     bool
	Restricted bool
	Volume     int
}

// PlaybackState is the subset of the player state the UI announces.
// Item is nil when nothing plays.
type PlaybackState struct {
	Playing    bool
	Progress   time.Duration
	Item       *QueueEntry
	Device     Device
	Shuffle    bool
	Repeat     string
	ContextURI string
}

const (
	// RepeatOff disables repeat
	RepeatOff = "off"
	// RepeatContext repeats the album/playlist
	RepeatContext = "context"
	// RepeatTrack repeats the current track
	RepeatTrack = "track"
)

// NextRepeatState cycles off -> context -> track -> off.
func NextRepeatState(state string) string {
	switch state {
	case RepeatOff:
		return RepeatContext
	case RepeatContext:
		return RepeatTrack
	default:
		return RepeatOff
	}
}

// Item is a catalog or library entry shown in list dialogs.
type Item struct {
	Kind     string // track, album, artist, playlist, show, episode
	ID       string
	Name     string
	Subtitle string // artists, owner or show
	URI      string
	Link     string
}

// Page is one page of an offset-paginated endpoint.
type Page[T any] struct {
	Items   []T
	Total   int
	HasNext bool
}

// CursorPage is one page of a cursor-paginated endpoint. An empty Next means
// the vendor has no further page.
type CursorPage[T any] struct {
	Items []T
	Next  string
}
