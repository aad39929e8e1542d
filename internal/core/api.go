package core

import (
	"context"
	"time"
)

// PlayerAPI covers the device-scoped player endpoints. An empty deviceID lets
// the vendor pick the active device.
type PlayerAPI interface {
	Devices(ctx context.Context) ([]Device, error)
	TransferPlayback(ctx context.Context, deviceID string, play bool) error
	PlayURIs(ctx context.Context, deviceID string, uris []string) error
	PlayContext(ctx context.Context, deviceID, contextURI, offsetURI string) error
	Resume(ctx context.Context, deviceID string) error
	Pause(ctx context.Context, deviceID string) error
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error
	Seek(ctx context.Context, deviceID string, position time.Duration) error
	SetVolume(ctx context.Context, deviceID string, percent int) error
	SetShuffle(ctx context.Context, deviceID string, shuffle bool) error
	SetRepeat(ctx context.Context, deviceID, state string) error
	AddToQueue(ctx context.Context, deviceID, uri string) error
	Queue(ctx context.Context) (*QueueSnapshot, error)
	Playback(ctx context.Context) (*PlaybackState, error)
}

// LibraryAPI covers catalog and user-library endpoints that need no device.
type LibraryAPI interface {
	CurrentUser(ctx context.Context) (string, error)
	Search(ctx context.Context, query, kind string, limit, offset int) (Page[Item], error)
	Playlists(ctx context.Context, limit, offset int) (Page[Item], error)
	PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (Page[Item], error)
	AlbumTracks(ctx context.Context, albumID string, limit, offset int) (Page[Item], error)
	SavedTracks(ctx context.Context, limit, offset int) (Page[Item], error)
	FollowedArtists(ctx context.Context, limit int, after string) (CursorPage[Item], error)
	SaveTracks(ctx context.Context, ids ...string) error
	RemoveSavedTracks(ctx context.Context, ids ...string) error
}

// API is the authenticated vendor handle a Session carries.
type API interface {
	PlayerAPI
	LibraryAPI
}

// Announcer speaks a message to the user.
type Announcer interface {
	Announce(message string)
}
