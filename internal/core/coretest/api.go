// Package coretest provides an in-memory core.API for package tests.
package coretest

import (
	"context"
	"sync"
	"time"

	"accessify/internal/core"
)

var _ core.API = (*FakeAPI)(nil)

// Call records one invocation of a FakeAPI method.
type Call struct {
	Method   string
	DeviceID string
	Args     []any
}

// FakeAPI answers from its fields and records every call. Errs fails a method
// by name; DeviceErrs is consumed one error per Devices call before
// DeviceList is returned.
type FakeAPI struct {
	mu    sync.Mutex
	calls []Call

	User       string
	DeviceList []core.Device
	DeviceErrs []error
	Snapshot   *core.QueueSnapshot
	State      *core.PlaybackState
	Errs       map[string]error

	// PageFunc serves every offset-paginated library method.
	PageFunc func(method string, limit, offset int) (core.Page[core.Item], error)
	// CursorFunc serves FollowedArtists.
	CursorFunc func(limit int, after string) (core.CursorPage[core.Item], error)
	// OnCall runs after a call is recorded and before its result is returned.
	OnCall func(call Call)
}

func (f *FakeAPI) record(method, deviceID string, args ...any) error {
	call := Call{Method: method, DeviceID: deviceID, Args: args}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.Errs[method]
	hook := f.OnCall
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return err
}

// Calls returns the recorded calls, filtered to the given methods when any
// are named.
func (f *FakeAPI) Calls(methods ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(methods) == 0 {
		return append([]Call(nil), f.calls...)
	}

	var out []Call
	for _, call := range f.calls {
		for _, m := range methods {
			if call.Method == m {
				out = append(out, call)
				break
			}
		}
	}
	return out
}

// SetErr fails method with err from now on; a nil err clears it.
func (f *FakeAPI) SetErr(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Errs == nil {
		f.Errs = make(map[string]error)
	}
	if err == nil {
		delete(f.Errs, method)
		return
	}
	f.Errs[method] = err
}

// SetState replaces the playback state returned by Playback.
func (f *FakeAPI) SetState(state *core.PlaybackState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.State = state
}

func (f *FakeAPI) CurrentUser(context.Context) (string, error) {
	if err := f.record("CurrentUser", ""); err != nil {
		return "", err
	}
	return f.User, nil
}

func (f *FakeAPI) Devices(context.Context) ([]core.Device, error) {
	if err := f.record("Devices", ""); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.DeviceErrs) > 0 {
		err := f.DeviceErrs[0]
		f.DeviceErrs = f.DeviceErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return append([]core.Device(nil), f.DeviceList...), nil
}

func (f *FakeAPI) TransferPlayback(_ context.Context, deviceID string, play bool) error {
	return f.record("TransferPlayback", deviceID, play)
}

func (f *FakeAPI) PlayURIs(_ context.Context, deviceID string, uris []string) error {
	return f.record("PlayURIs", deviceID, append([]string(nil), uris...))
}

func (f *FakeAPI) PlayContext(_ context.Context, deviceID, contextURI, offsetURI string) error {
	return f.record("PlayContext", deviceID, contextURI, offsetURI)
}

func (f *FakeAPI) Resume(_ context.Context, deviceID string) error {
	return f.record("Resume", deviceID)
}

func (f *FakeAPI) Pause(_ context.Context, deviceID string) error {
	return f.record("Pause", deviceID)
}

func (f *FakeAPI) Next(_ context.Context, deviceID string) error {
	return f.record("Next", deviceID)
}

func (f *FakeAPI) Previous(_ context.Context, deviceID string) error {
	return f.record("Previous", deviceID)
}

func (f *FakeAPI) Seek(_ context.Context, deviceID string, position time.Duration) error {
	return f.record("Seek", deviceID, position)
}

func (f *FakeAPI) SetVolume(_ context.Context, deviceID string, percent int) error {
	return f.record("SetVolume", deviceID, percent)
}

func (f *FakeAPI) SetShuffle(_ context.Context, deviceID string, shuffle bool) error {
	return f.record("SetShuffle", deviceID, shuffle)
}

func (f *FakeAPI) SetRepeat(_ context.Context, deviceID, state string) error {
	return f.record("SetRepeat", deviceID, state)
}

func (f *FakeAPI) AddToQueue(_ context.Context, deviceID, uri string) error {
	return f.record("AddToQueue", deviceID, uri)
}

func (f *FakeAPI) Queue(context.Context) (*core.QueueSnapshot, error) {
	if err := f.record("Queue", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Snapshot == nil {
		return &core.QueueSnapshot{}, nil
	}
	return f.Snapshot, nil
}

func (f *FakeAPI) Playback(context.Context) (*core.PlaybackState, error) {
	if err := f.record("Playback", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.State, nil
}

func (f *FakeAPI) page(method string, limit, offset int, args ...any) (core.Page[core.Item], error) {
	if err := f.record(method, "", append(args, limit, offset)...); err != nil {
		return core.Page[core.Item]{}, err
	}
	if f.PageFunc == nil {
		return core.Page[core.Item]{}, nil
	}
	return f.PageFunc(method, limit, offset)
}

func (f *FakeAPI) Search(_ context.Context, query, kind string, limit, offset int) (core.Page[core.Item], error) {
	return f.page("Search", limit, offset, query, kind)
}

func (f *FakeAPI) Playlists(_ context.Context, limit, offset int) (core.Page[core.Item], error) {
	return f.page("Playlists", limit, offset)
}

func (f *FakeAPI) PlaylistItems(_ context.Context, playlistID string, limit, offset int) (core.Page[core.Item], error) {
	return f.page("PlaylistItems", limit, offset, playlistID)
}

func (f *FakeAPI) AlbumTracks(_ context.Context, albumID string, limit, offset int) (core.Page[core.Item], error) {
	return f.page("AlbumTracks", limit, offset, albumID)
}

func (f *FakeAPI) SavedTracks(_ context.Context, limit, offset int) (core.Page[core.Item], error) {
	return f.page("SavedTracks", limit, offset)
}

func (f *FakeAPI) FollowedArtists(_ context.Context, limit int, after string) (core.CursorPage[core.Item], error) {
	if err := f.record("FollowedArtists", "", limit, after); err != nil {
		return core.CursorPage[core.Item]{}, err
	}
	if f.CursorFunc == nil {
		return core.CursorPage[core.Item]{}, nil
	}
	return f.CursorFunc(limit, after)
}

func (f *FakeAPI) SaveTracks(_ context.Context, ids ...string) error {
	return f.record("SaveTracks", "", ids)
}

func (f *FakeAPI) RemoveSavedTracks(_ context.Context, ids ...string) error {
	return f.record("RemoveSavedTracks", "", ids)
}

// Track builds a playing track entry for tests.
func Track(uri, name, artist string) core.QueueEntry {
	return core.QueueEntry{Kind: core.MediaTrack, URI: uri, Name: name, Artist: artist}
}
