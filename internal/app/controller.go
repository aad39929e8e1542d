// Package app is the inbound surface a user interface drives: every user
// action runs on the worker pool behind the throttle and its outcome is
// announced.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"accessify/internal/core"
	"accessify/internal/executor"
	"accessify/internal/flood"
	"accessify/internal/i18n"
	"accessify/internal/paging"
	"accessify/internal/queue"
	"accessify/internal/worker"
	"accessify/pkg/fuzzy"
	"accessify/pkg/musiclink"
	"accessify/pkg/spotifyuri"
	"accessify/pkg/text"
)

const (
	// matchCandidates is how many catalog tracks a foreign link is scored against.
	matchCandidates = 10
	matchThreshold  = 0.5
)

// ErrThrottled is returned by Dispatch when an action repeats too quickly.
var ErrThrottled = errors.New("action throttled")

// Action is one user action. Its value is announced on success.
type Action func(ctx context.Context) core.Result[string]

// DeviceSelector lists devices and transfers playback between them.
type DeviceSelector interface {
	Devices(ctx context.Context) ([]core.Device, error)
	Select(ctx context.Context, deviceID string, play bool) error
}

// LinkResolver reads title and artist from links of other music services.
type LinkResolver interface {
	CanResolve(rawURL string) bool
	Resolve(ctx context.Context, rawURL string) (*musiclink.TrackInfo, error)
}

type Config struct {
	Sessions  *core.SessionHolder
	Executor  *executor.Executor
	Queue     *queue.Model
	Devices   DeviceSelector
	Pool      *worker.Pool
	Throttle  *flood.Floodgate
	Announcer core.Announcer
	// Links is optional; without it only Spotify links are accepted.
	Links    LinkResolver
	Playback core.PlaybackConfig
	Logger   *zap.Logger
}

type Controller struct {
	sessions  *core.SessionHolder
	executor  *executor.Executor
	queue     *queue.Model
	devices   DeviceSelector
	pool      *worker.Pool
	throttle  *flood.Floodgate
	announcer core.Announcer
	links     LinkResolver
	localizer *i18n.Localizer
	playback  core.PlaybackConfig
	logger    *zap.Logger
}

func NewController(cfg Config) *Controller {
	c := &Controller{
		sessions:  cfg.Sessions,
		executor:  cfg.Executor,
		queue:     cfg.Queue,
		devices:   cfg.Devices,
		pool:      cfg.Pool,
		throttle:  cfg.Throttle,
		announcer: cfg.Announcer,
		links:     cfg.Links,
		localizer: cfg.Executor.Localizer(),
		playback:  cfg.Playback,
		logger:    cfg.Logger,
	}
	if c.playback.SearchPageSize <= 0 {
		c.playback.SearchPageSize = core.DefaultSearchPageSize
	}
	if c.playback.SeekDuration <= 0 {
		c.playback.SeekDuration = core.DefaultSeekDuration
	}
	if c.playback.VolumeStep <= 0 {
		c.playback.VolumeStep = core.DefaultVolumeStep
	}
	return c
}

// Start starts the workers.
func (c *Controller) Start() {
	c.pool.Start()
}

// Stop cancels in-flight actions and waits for the workers to exit.
func (c *Controller) Stop() {
	c.pool.Stop()
	if c.throttle != nil {
		c.throttle.Stop()
	}
}

// Ready reports whether a verified session is installed.
func (c *Controller) Ready() bool {
	return c.sessions.Load().Authenticated()
}

// Status is the runtime snapshot served on the status endpoint.
type Status struct {
	Authenticated bool         `json:"authenticated"`
	User          string       `json:"user,omitempty"`
	DeviceID      string       `json:"device_id,omitempty"`
	Workers       worker.Stats `json:"workers"`
	Throttle      *flood.Stats `json:"throttle,omitempty"`
}

func (c *Controller) Status() Status {
	session := c.sessions.Load()
	status := Status{
		Authenticated: session.Authenticated(),
		User:          session.User,
		DeviceID:      session.DeviceID,
		Workers:       c.pool.Stats(),
	}
	if c.throttle != nil {
		stats := c.throttle.Stats()
		status.Throttle = &stats
	}
	return status
}

// Dispatch runs action on the pool and announces its outcome. A throttled or
// rejected action is announced immediately and its error returned.
func (c *Controller) Dispatch(name string, action Action) error {
	if c.throttle != nil && !c.throttle.Allow(name) {
		c.logger.Debug("Action throttled", zap.String("action", name))
		c.announcer.Announce(c.localizer.T("error.throttled"))
		return fmt.Errorf("%s: %w", name, ErrThrottled)
	}

	err := c.pool.Submit(worker.Job{
		Name: name,
		Run: func(ctx context.Context) {
			c.announce(name, action(ctx))
		},
	})
	if err != nil {
		c.logger.Warn("Action rejected", zap.String("action", name), zap.Error(err))
		c.announcer.Announce(c.localizer.T("error.busy"))
		return fmt.Errorf("failed to submit %s: %w", name, err)
	}
	return nil
}

func (c *Controller) announce(name string, result core.Result[string]) {
	if result.Failed() {
		// Cancelled actions belong to a shutdown nobody listens to.
		if errors.Is(result.Err, context.Canceled) {
			return
		}
		c.announcer.Announce(result.Err.Message)
		return
	}
	if result.Value != "" {
		c.announcer.Announce(result.Value)
	}
	c.logger.Debug("Action finished", zap.String("action", name))
}

// ErrorMessage returns the announceable text of an error returned by a pager.
func (c *Controller) ErrorMessage(err error) string {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr.Message
	}
	return c.localizer.T("error.generic")
}

// Player controls.

func (c *Controller) PlayPause(ctx context.Context) core.Result[string] {
	return executor.ExecutePlayback(ctx, c.executor, "play_pause", func(ctx context.Context, api core.API, deviceID string) (string, error) {
		state, err := api.Playback(ctx)
		if err != nil {
			return "", err
		}
		if state != nil && state.Playing {
			if err := api.Pause(ctx, deviceID); err != nil {
				return "", err
			}
			return c.localizer.T("playback.paused"), nil
		}
		if err := api.Resume(ctx, deviceID); err != nil {
			return "", err
		}
		return c.localizer.T("playback.resumed"), nil
	})
}

func (c *Controller) Next(ctx context.Context) core.Result[string] {
	return c.simple(ctx, "next", "playback.next", func(ctx context.Context, api core.API, deviceID string) error {
		return api.Next(ctx, deviceID)
	})
}

func (c *Controller) Previous(ctx context.Context) core.Result[string] {
	return c.simple(ctx, "previous", "playback.previous", func(ctx context.Context, api core.API, deviceID string) error {
		return api.Previous(ctx, deviceID)
	})
}

func (c *Controller) simple(ctx context.Context, name, messageKey string, fn func(ctx context.Context, api core.API, deviceID string) error) core.Result[string] {
	result := c.executor.Playback(ctx, name, fn)
	if result.Failed() {
		return core.FailAs[string](result)
	}
	return core.Ok(c.localizer.T(messageKey))
}

func (c *Controller) SeekForward(ctx context.Context) core.Result[string] {
	return c.seekBy(ctx, "seek_forward", c.playback.SeekDuration)
}

func (c *Controller) SeekBack(ctx context.Context) core.Result[string] {
	return c.seekBy(ctx, "seek_back", -c.playback.SeekDuration)
}

// seekBy clamps the target to the playing item, so seeking past the end
// lands on its last second rather than skipping.
func (c *Controller) seekBy(ctx context.Context, name string, delta time.Duration) core.Result[string] {
	return executor.ExecutePlayback(ctx, c.executor, name, func(ctx context.Context, api core.API, deviceID string) (string, error) {
		state, err := api.Playback(ctx)
		if err != nil {
			return "", err
		}
		if state == nil || state.Item == nil {
			return "", core.Invalid(c.localizer.T("error.nothing_playing"))
		}

		duration := state.Item.Duration
		target := state.Progress + delta
		if target < 0 {
			target = 0
		}
		if duration > 0 && target >= duration {
			target = duration - time.Second
		}

		if err := api.Seek(ctx, deviceID, target); err != nil {
			return "", err
		}
		return c.localizer.T("playback.position", text.Clock(target), text.Clock(duration)), nil
	})
}

func (c *Controller) VolumeUp(ctx context.Context) core.Result[string] {
	return c.volumeBy(ctx, "volume_up", c.playback.VolumeStep)
}

func (c *Controller) VolumeDown(ctx context.Context) core.Result[string] {
	return c.volumeBy(ctx, "volume_down", -c.playback.VolumeStep)
}

func (c *Controller) volumeBy(ctx context.Context, name string, step int) core.Result[string] {
	return executor.ExecutePlayback(ctx, c.executor, name, func(ctx context.Context, api core.API, deviceID string) (string, error) {
		current, err := currentVolume(ctx, api, deviceID)
		if err != nil {
			return "", err
		}

		target := min(max(current+step, 0), 100)
		if err := api.SetVolume(ctx, deviceID, target); err != nil {
			return "", err
		}
		return c.localizer.T("playback.volume", target), nil
	})
}

// currentVolume prefers the playback state and falls back to the device list
// when nothing is loaded on the device.
func currentVolume(ctx context.Context, api core.API, deviceID string) (int, error) {
	state, err := api.Playback(ctx)
	if err != nil {
		return 0, err
	}
	if state != nil && state.Device.ID != "" {
		return state.Device.Volume, nil
	}

	devices, err := api.Devices(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range devices {
		if d.ID == deviceID {
			return d.Volume, nil
		}
	}
	return 0, nil
}

func (c *Controller) ToggleShuffle(ctx context.Context) core.Result[string] {
	return executor.ExecutePlayback(ctx, c.executor, "shuffle", func(ctx context.Context, api core.API, deviceID string) (string, error) {
		state, err := api.Playback(ctx)
		if err != nil {
			return "", err
		}
		shuffle := state == nil || !state.Shuffle

		if err := api.SetShuffle(ctx, deviceID, shuffle); err != nil {
			return "", err
		}
		if shuffle {
			return c.localizer.T("playback.shuffle_on"), nil
		}
		return c.localizer.T("playback.shuffle_off"), nil
	})
}

// CycleRepeat steps through off, context and track.
func (c *Controller) CycleRepeat(ctx context.Context) core.Result[string] {
	return executor.ExecutePlayback(ctx, c.executor, "repeat", func(ctx context.Context, api core.API, deviceID string) (string, error) {
		state, err := api.Playback(ctx)
		if err != nil {
			return "", err
		}
		current := core.RepeatOff
		if state != nil {
			current = state.Repeat
		}
		next := core.NextRepeatState(current)

		if err := api.SetRepeat(ctx, deviceID, next); err != nil {
			return "", err
		}
		return c.localizer.T("playback.repeat_" + next), nil
	})
}

// AnnounceNowPlaying describes the playing item and its position.
func (c *Controller) AnnounceNowPlaying(ctx context.Context) core.Result[string] {
	return executor.ExecuteWebAPI(ctx, c.executor, "now_playing", func(ctx context.Context, api core.API) (string, error) {
		state, err := api.Playback(ctx)
		if err != nil {
			return "", err
		}
		if state == nil || state.Item == nil {
			return c.localizer.T("error.nothing_playing"), nil
		}

		description := queue.Describe(c.localizer, state.Item)
		if state.Item.Duration > 0 {
			description += ", " + c.localizer.T("playback.position",
				text.Clock(state.Progress), text.Clock(state.Item.Duration))
		}
		if !state.Playing {
			description += ", " + c.localizer.T("playback.paused")
		}
		return description, nil
	})
}

// Queue and playback of links.

// PlayURI plays a Spotify link, or the closest catalog match of a link from
// another service.
func (c *Controller) PlayURI(ctx context.Context, raw string) core.Result[string] {
	link := c.spotifyLink(ctx, raw)
	if link.Failed() {
		return link
	}
	return c.queue.PlayURI(ctx, link.Value, "")
}

// PlayItem plays a listed item, announcing it by name.
func (c *Controller) PlayItem(ctx context.Context, item core.Item) core.Result[string] {
	return c.queue.PlayURI(ctx, item.URI, item.Name)
}

// PlayFromContext plays contextURI starting at item, e.g. a playlist row.
func (c *Controller) PlayFromContext(ctx context.Context, contextURI string, item core.Item) core.Result[string] {
	return c.queue.PlayFrom(ctx, contextURI, item.URI, item.Name)
}

func (c *Controller) Enqueue(ctx context.Context, raw string) core.Result[string] {
	link := c.spotifyLink(ctx, raw)
	if link.Failed() {
		return link
	}
	return c.queue.Enqueue(ctx, link.Value)
}

// EnqueueText adds every link found in pasted text and reports the last
// outcome. It stops at the first failure.
func (c *Controller) EnqueueText(ctx context.Context, pasted string) core.Result[string] {
	refs := text.FindReferences(pasted)
	if len(refs) == 0 {
		return core.Fail[string](core.Invalid(c.localizer.T("error.invalid_link")))
	}

	var result core.Result[string]
	for _, ref := range refs {
		result = c.Enqueue(ctx, ref)
		if result.Failed() {
			return result
		}
	}
	return result
}

// spotifyLink passes Spotify references and links nobody resolves through
// unchanged. Other music links are looked up and replaced by the URI of the
// best scoring catalog track.
func (c *Controller) spotifyLink(ctx context.Context, raw string) core.Result[string] {
	if _, err := spotifyuri.Parse(raw); err == nil || c.links == nil || !c.links.CanResolve(raw) {
		return core.Ok(raw)
	}

	info, err := c.links.Resolve(ctx, raw)
	if err != nil {
		c.logger.Warn("Failed to resolve music link", zap.String("url", raw), zap.Error(err))
		return core.Fail[string](&core.Error{
			Kind:    core.KindInvalidInput,
			Message: c.localizer.T("error.link_unreadable"),
			Cause:   err,
		})
	}

	found := executor.ExecuteWebAPI(ctx, c.executor, "match_link", func(ctx context.Context, api core.API) (core.Page[core.Item], error) {
		return api.Search(ctx, info.Query(), string(core.MediaTrack), matchCandidates, 0)
	})
	if found.Failed() {
		return core.FailAs[string](found)
	}

	items := found.Value.Items
	candidates := make([]fuzzy.Candidate, len(items))
	for i, item := range items {
		candidates[i] = fuzzy.Candidate{Title: item.Name, Artist: item.Subtitle}
	}

	best, score := fuzzy.Best(fuzzy.Candidate{Title: info.Title, Artist: info.Artist}, candidates, matchThreshold)
	if best < 0 {
		c.logger.Info("No catalog match for music link",
			zap.String("url", raw), zap.String("query", info.Query()), zap.Float64("best_score", score))
		return core.Fail[string](core.Invalid(c.localizer.T("error.link_not_found", info.Query())))
	}

	c.logger.Debug("Matched music link",
		zap.String("url", raw), zap.String("uri", items[best].URI), zap.Float64("score", score))
	return core.Ok(items[best].URI)
}

func (c *Controller) Queue(ctx context.Context) core.Result[[]core.QueueEntry] {
	return c.queue.DisplayQueue(ctx)
}

func (c *Controller) SkipTo(ctx context.Context, index int) core.Result[string] {
	return c.queue.SkipToIndex(ctx, index)
}

func (c *Controller) RemoveAt(ctx context.Context, index int) core.Result[string] {
	return c.queue.Remove(ctx, index)
}

// Move announces the predicted position before playback is rebuilt. When the
// rebuild fails the queue is reloaded and that is announced before the error.
func (c *Controller) Move(ctx context.Context, from, to int) core.Result[string] {
	return c.queue.Move(ctx, from, to, queue.MoveHooks{
		Predicted: func(entries []core.QueueEntry, at int) {
			c.announcer.Announce(c.localizer.T("queue.move_predicted", entries[at].Name, at+1))
		},
		Reloaded: func(entries []core.QueueEntry) {
			c.announcer.Announce(c.localizer.T("queue.reloaded", len(entries)))
		},
	})
}

// Library lists.

// Search returns a pager over results of kind (track, album, artist or
// playlist). Each Next loads one more page.
func (c *Controller) Search(query, kind string) *paging.OffsetPager[core.Item] {
	return paging.NewOffsetPager(c.playback.SearchPageSize, c.offsetFetch("search", func(ctx context.Context, api core.API, limit, offset int) (core.Page[core.Item], error) {
		if query == "" {
			return core.Page[core.Item]{}, core.Invalid(c.localizer.T("library.no_results"))
		}
		return api.Search(ctx, query, kind, limit, offset)
	}))
}

func (c *Controller) SavedTracks() *paging.OffsetPager[core.Item] {
	return paging.NewOffsetPager(c.playback.SearchPageSize, c.offsetFetch("saved_tracks", func(ctx context.Context, api core.API, limit, offset int) (core.Page[core.Item], error) {
		return api.SavedTracks(ctx, limit, offset)
	}))
}

// PlaylistItems pages through the tracks and episodes of a playlist link.
func (c *Controller) PlaylistItems(raw string) *paging.OffsetPager[core.Item] {
	return paging.NewOffsetPager(c.playback.SearchPageSize, c.offsetFetch("playlist_items", func(ctx context.Context, api core.API, limit, offset int) (core.Page[core.Item], error) {
		id, err := spotifyuri.ID(raw, "playlist")
		if err != nil {
			return core.Page[core.Item]{}, core.Invalid(c.localizer.T("error.invalid_link"))
		}
		return api.PlaylistItems(ctx, id, limit, offset)
	}))
}

// AlbumTracks pages through the tracks of an album link.
func (c *Controller) AlbumTracks(raw string) *paging.OffsetPager[core.Item] {
	return paging.NewOffsetPager(c.playback.SearchPageSize, c.offsetFetch("album_tracks", func(ctx context.Context, api core.API, limit, offset int) (core.Page[core.Item], error) {
		id, err := spotifyuri.ID(raw, "album")
		if err != nil {
			return core.Page[core.Item]{}, core.Invalid(c.localizer.T("error.invalid_link"))
		}
		return api.AlbumTracks(ctx, id, limit, offset)
	}))
}

// offsetFetch runs every page request through the executor, so a failed page
// carries an announceable *core.Error.
func (c *Controller) offsetFetch(name string, fn func(ctx context.Context, api core.API, limit, offset int) (core.Page[core.Item], error)) paging.OffsetFetch[core.Item] {
	return func(ctx context.Context, limit, offset int) (core.Page[core.Item], error) {
		result := executor.ExecuteWebAPI(ctx, c.executor, name, func(ctx context.Context, api core.API) (core.Page[core.Item], error) {
			return fn(ctx, api, limit, offset)
		})
		if result.Failed() {
			return core.Page[core.Item]{}, result.Err
		}
		return result.Value, nil
	}
}

// Playlists loads all of the user's playlists. Every page is its own
// executor call with its own deadline.
func (c *Controller) Playlists(ctx context.Context) core.Result[[]core.Item] {
	items, err := paging.CollectOffset(ctx, c.playback.SearchPageSize, c.offsetFetch("playlists", func(ctx context.Context, api core.API, limit, offset int) (core.Page[core.Item], error) {
		return api.Playlists(ctx, limit, offset)
	}))
	return c.collected(items, err)
}

// FollowedArtists loads every followed artist.
func (c *Controller) FollowedArtists(ctx context.Context) core.Result[[]core.Item] {
	items, err := paging.CollectCursor(ctx, c.playback.SearchPageSize, c.cursorFetch("followed_artists", func(ctx context.Context, api core.API, limit int, after string) (core.CursorPage[core.Item], error) {
		return api.FollowedArtists(ctx, limit, after)
	}))
	return c.collected(items, err)
}

func (c *Controller) cursorFetch(name string, fn func(ctx context.Context, api core.API, limit int, after string) (core.CursorPage[core.Item], error)) paging.CursorFetch[core.Item] {
	return func(ctx context.Context, limit int, after string) (core.CursorPage[core.Item], error) {
		result := executor.ExecuteWebAPI(ctx, c.executor, name, func(ctx context.Context, api core.API) (core.CursorPage[core.Item], error) {
			return fn(ctx, api, limit, after)
		})
		if result.Failed() {
			return core.CursorPage[core.Item]{}, result.Err
		}
		return result.Value, nil
	}
}

// collected turns an aggregated list into a result. Page errors already
// carry an announceable *core.Error under the paging context.
func (c *Controller) collected(items []core.Item, err error) core.Result[[]core.Item] {
	if err == nil {
		return core.Ok(items)
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return core.Fail[[]core.Item](coreErr)
	}
	return core.Fail[[]core.Item](&core.Error{Kind: core.KindUnexpected, Message: c.localizer.T("error.generic"), Cause: err})
}

// Devices.

func (c *Controller) Devices(ctx context.Context) core.Result[[]core.Device] {
	return executor.ExecuteWebAPI(ctx, c.executor, "devices", func(ctx context.Context, _ core.API) ([]core.Device, error) {
		return c.devices.Devices(ctx)
	})
}

// SelectDevice moves playback to device and keeps playing there.
func (c *Controller) SelectDevice(ctx context.Context, device core.Device) core.Result[string] {
	result := c.executor.WebAPI(ctx, "select_device", func(ctx context.Context, _ core.API) error {
		return c.devices.Select(ctx, device.ID, true)
	})
	if result.Failed() {
		return core.FailAs[string](result)
	}
	return core.Ok(c.localizer.T("device.transferred", device.Name))
}

// Current item.

func (c *Controller) SaveCurrentTrack(ctx context.Context) core.Result[string] {
	return c.withCurrentTrack(ctx, "save_track", "library.saved", func(ctx context.Context, api core.API, id string) error {
		return api.SaveTracks(ctx, id)
	})
}

func (c *Controller) RemoveCurrentTrack(ctx context.Context) core.Result[string] {
	return c.withCurrentTrack(ctx, "remove_saved_track", "library.unsaved", func(ctx context.Context, api core.API, id string) error {
		return api.RemoveSavedTracks(ctx, id)
	})
}

func (c *Controller) withCurrentTrack(ctx context.Context, name, messageKey string, fn func(ctx context.Context, api core.API, id string) error) core.Result[string] {
	return executor.ExecuteWebAPI(ctx, c.executor, name, func(ctx context.Context, api core.API) (string, error) {
		item, err := c.currentItem(ctx, api)
		if err != nil {
			return "", err
		}
		id, err := spotifyuri.ID(item.URI, string(core.MediaTrack))
		if err != nil {
			return "", core.Invalid(c.localizer.T("error.unsupported_item"))
		}
		if err := fn(ctx, api, id); err != nil {
			return "", err
		}
		return c.localizer.T(messageKey), nil
	})
}

// CopyCurrentLink returns the shareable link of the playing item.
func (c *Controller) CopyCurrentLink(ctx context.Context) core.Result[string] {
	return executor.ExecuteWebAPI(ctx, c.executor, "copy_link", func(ctx context.Context, api core.API) (string, error) {
		item, err := c.currentItem(ctx, api)
		if err != nil {
			return "", err
		}
		if link := text.CleanLink(item.Link); link != "" {
			return link, nil
		}
		parsed, err := spotifyuri.Parse(item.URI)
		if err != nil {
			return "", core.Invalid(c.localizer.T("error.unsupported_item"))
		}
		return parsed.URL(), nil
	})
}

func (c *Controller) currentItem(ctx context.Context, api core.API) (*core.QueueEntry, error) {
	state, err := api.Playback(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Item == nil {
		return nil, core.Invalid(c.localizer.T("error.nothing_playing"))
	}
	return state.Item, nil
}
