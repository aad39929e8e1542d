// Package queue builds the editable display queue on top of Spotify's
// read-only queue and implements remove, move and skip-to by replaying
// explicit playback.
package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"accessify/internal/core"
	"accessify/internal/executor"
	"accessify/internal/i18n"
	"accessify/pkg/spotifyuri"
)

type Model struct {
	executor  *executor.Executor
	localizer *i18n.Localizer
	skipDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *zap.Logger
}

func NewModel(exec *executor.Executor, skipDelay time.Duration, logger *zap.Logger) *Model {
	return &Model{
		executor:  exec,
		localizer: exec.Localizer(),
		skipDelay: skipDelay,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// DisplayQueue returns the playing item (role current) followed by the
// upcoming items in vendor order, trimmed by AutoplayBoundary.
func (m *Model) DisplayQueue(ctx context.Context) core.Result[[]core.QueueEntry] {
	result := executor.ExecuteWebAPI(ctx, m.executor, "queue", func(ctx context.Context, api core.API) (*core.QueueSnapshot, error) {
		return api.Queue(ctx)
	})
	if result.Failed() {
		return core.FailAs[[]core.QueueEntry](result)
	}

	return core.Ok(buildDisplay(result.Value))
}

func buildDisplay(snapshot *core.QueueSnapshot) []core.QueueEntry {
	if snapshot == nil {
		return nil
	}

	var currentURI string
	entries := make([]core.QueueEntry, 0, len(snapshot.Queue)+1)
	if snapshot.Current != nil {
		current := *snapshot.Current
		current.Role = core.RoleCurrent
		currentURI = current.URI
		entries = append(entries, current)
	}

	for _, entry := range AutoplayBoundary(currentURI, snapshot.Queue) {
		entry.Role = core.RoleQueued
		entries = append(entries, entry)
	}
	return entries
}

// Rebuild starts playback of uris in order and seeks to resumeAt. It is the
// single primitive behind remove and move.
func (m *Model) Rebuild(ctx context.Context, uris []string, resumeAt time.Duration) core.Result[struct{}] {
	if len(uris) == 0 {
		return core.Fail[struct{}](core.Invalid(m.localizer.T("queue.empty")))
	}

	return m.executor.Playback(ctx, "rebuild_queue", func(ctx context.Context, api core.API, deviceID string) error {
		if err := api.PlayURIs(ctx, deviceID, uris); err != nil {
			return err
		}
		if resumeAt > 0 {
			return api.Seek(ctx, deviceID, resumeAt)
		}
		return nil
	})
}

// SkipToIndex advances playback to display index n by issuing n next-track
// commands spaced by skipDelay, stopping at the first failure. Nothing is
// rolled back.
func (m *Model) SkipToIndex(ctx context.Context, n int) core.Result[string] {
	if n < 0 {
		return core.Fail[string](core.Invalid(m.localizer.T("error.index_out_of_range")))
	}
	if n == 0 {
		return core.Ok(m.localizer.T("queue.already_playing"))
	}

	for i := 0; i < n; i++ {
		step := m.executor.Playback(ctx, "skip_to", func(ctx context.Context, api core.API, deviceID string) error {
			return api.Next(ctx, deviceID)
		})
		if step.Failed() {
			m.logger.Info("Skip sequence aborted",
				zap.Int("target", n),
				zap.Int("completed", i))
			return core.FailAs[string](step)
		}

		if i < n-1 {
			if err := m.sleep(ctx, m.skipDelay); err != nil {
				return m.interrupted(err)
			}
		}
	}

	// The player keeps reporting the previous item for a moment after the
	// last next, so the read-back waits one more delay.
	if err := m.sleep(ctx, m.skipDelay); err != nil {
		return m.interrupted(err)
	}
	return m.NowPlaying(ctx)
}

func (m *Model) interrupted(err error) core.Result[string] {
	return core.Fail[string](&core.Error{Kind: core.KindUnexpected, Message: m.localizer.T("error.generic"), Cause: err})
}

// NowPlaying reads back playback and describes the playing item.
func (m *Model) NowPlaying(ctx context.Context) core.Result[string] {
	state := m.playback(ctx)
	if state.Failed() {
		return core.FailAs[string](state)
	}
	if state.Value == nil || state.Value.Item == nil {
		return core.Ok(m.localizer.T("error.nothing_playing"))
	}
	return core.Ok(Describe(m.localizer, state.Value.Item))
}

// Remove drops display index from the queue and resumes the playing item
// where it was. Removing the playing item starts the next one from the top.
func (m *Model) Remove(ctx context.Context, index int) core.Result[string] {
	display := m.DisplayQueue(ctx)
	if display.Failed() {
		return core.FailAs[string](display)
	}
	entries := display.Value
	if index < 0 || index >= len(entries) {
		return core.Fail[string](core.Invalid(m.localizer.T("error.index_out_of_range")))
	}

	removed := entries[index]
	remaining := make([]core.QueueEntry, 0, len(entries)-1)
	remaining = append(remaining, entries[:index]...)
	remaining = append(remaining, entries[index+1:]...)

	if rebuilt := m.replay(ctx, entries, remaining); rebuilt.Failed() {
		return core.FailAs[string](rebuilt)
	}

	m.logger.Info("Removed queue entry", zap.Int("index", index), zap.String("uri", removed.URI))
	return core.Ok(m.localizer.T("queue.removed", removed.Name))
}

// MoveHooks let a caller show the predicted order before the vendor confirms
// a move, and the reloaded order when it does not. Either may be nil.
type MoveHooks struct {
	Predicted func(entries []core.QueueEntry, to int)
	Reloaded  func(entries []core.QueueEntry)
}

// Move reorders display index from to index to. The prediction is handed to
// hooks.Predicted before playback is rebuilt; a failed rebuild reloads the
// display queue and hands it to hooks.Reloaded.
func (m *Model) Move(ctx context.Context, from, to int, hooks MoveHooks) core.Result[string] {
	display := m.DisplayQueue(ctx)
	if display.Failed() {
		return core.FailAs[string](display)
	}
	entries := display.Value

	predicted, ok := PredictMove(entries, from, to)
	if !ok {
		return core.Fail[string](core.Invalid(m.localizer.T("error.index_out_of_range")))
	}
	moved := entries[from]
	if from == to {
		return core.Ok(m.localizer.T("queue.moved", moved.Name, to+1))
	}

	if hooks.Predicted != nil {
		hooks.Predicted(predicted, to)
	}

	if rebuilt := m.replay(ctx, entries, predicted); rebuilt.Failed() {
		m.logger.Info("Move failed, reloading queue", zap.Int("from", from), zap.Int("to", to))
		if reloaded := m.DisplayQueue(ctx); !reloaded.Failed() && hooks.Reloaded != nil {
			hooks.Reloaded(reloaded.Value)
		}
		return core.FailAs[string](rebuilt)
	}

	m.logger.Info("Moved queue entry", zap.Int("from", from), zap.Int("to", to), zap.String("uri", moved.URI))
	return core.Ok(m.localizer.T("queue.moved", moved.Name, to+1))
}

// PredictMove is the local reorder shown before the vendor confirms it. Roles
// follow position: index 0 is current when the original list had a current
// entry.
func PredictMove(entries []core.QueueEntry, from, to int) ([]core.QueueEntry, bool) {
	if from < 0 || from >= len(entries) || to < 0 || to >= len(entries) {
		return nil, false
	}

	out := make([]core.QueueEntry, 0, len(entries))
	out = append(out, entries[:from]...)
	out = append(out, entries[from+1:]...)

	moved := entries[from]
	out = append(out[:to], append([]core.QueueEntry{moved}, out[to:]...)...)

	hasCurrent := entries[0].Role == core.RoleCurrent
	for i := range out {
		out[i].Role = core.RoleQueued
	}
	if hasCurrent {
		out[0].Role = core.RoleCurrent
	}
	return out, true
}

// replay rebuilds playback as next, resuming the playing item at its current
// progress when it stays first.
func (m *Model) replay(ctx context.Context, before, next []core.QueueEntry) core.Result[struct{}] {
	if len(next) == 0 {
		return m.executor.Playback(ctx, "pause", func(ctx context.Context, api core.API, deviceID string) error {
			return api.Pause(ctx, deviceID)
		})
	}

	var resumeAt time.Duration
	if len(before) > 0 && before[0].Role == core.RoleCurrent && next[0].URI == before[0].URI {
		state := m.playback(ctx)
		if state.Failed() {
			return core.FailAs[struct{}](state)
		}
		if state.Value != nil && state.Value.Item != nil && state.Value.Item.URI == before[0].URI {
			resumeAt = state.Value.Progress
		}
	}

	uris := make([]string, 0, len(next))
	for i := range next {
		uris = append(uris, next[i].URI)
	}
	return m.Rebuild(ctx, uris, resumeAt)
}

func (m *Model) playback(ctx context.Context) core.Result[*core.PlaybackState] {
	return executor.ExecuteWebAPI(ctx, m.executor, "playback_state", func(ctx context.Context, api core.API) (*core.PlaybackState, error) {
		return api.Playback(ctx)
	})
}

// Enqueue appends a track or episode to the vendor queue.
func (m *Model) Enqueue(ctx context.Context, raw string) core.Result[string] {
	link, err := spotifyuri.Parse(raw)
	if err != nil {
		return core.Fail[string](core.Invalid(m.localizer.T("error.invalid_link")))
	}
	if link.Type != string(core.MediaTrack) && link.Type != string(core.MediaEpisode) {
		return core.Fail[string](core.Invalid(m.localizer.T("error.unsupported_item")))
	}

	added := m.executor.Playback(ctx, "enqueue", func(ctx context.Context, api core.API, deviceID string) error {
		return api.AddToQueue(ctx, deviceID, link.URI())
	})
	if added.Failed() {
		return core.FailAs[string](added)
	}
	return core.Ok(m.localizer.T("queue.added"))
}

// PlayURI plays a track or episode on its own, or a whole album, playlist,
// artist or show as a context. label names it in the announcement.
func (m *Model) PlayURI(ctx context.Context, raw, label string) core.Result[string] {
	return m.PlayFrom(ctx, raw, "", label)
}

// PlayFrom plays the context raw starting at offsetURI. An empty offsetURI
// starts at the top.
func (m *Model) PlayFrom(ctx context.Context, raw, offsetURI, label string) core.Result[string] {
	link, err := spotifyuri.Parse(raw)
	if err != nil {
		return core.Fail[string](core.Invalid(m.localizer.T("error.invalid_link")))
	}
	if label == "" {
		label = link.URI()
	}

	var played core.Result[struct{}]
	switch link.Type {
	case string(core.MediaTrack), string(core.MediaEpisode):
		played = m.executor.Playback(ctx, "play_uri", func(ctx context.Context, api core.API, deviceID string) error {
			return api.PlayURIs(ctx, deviceID, []string{link.URI()})
		})
	case "album", "playlist", "artist", "show":
		played = m.executor.Playback(ctx, "play_context", func(ctx context.Context, api core.API, deviceID string) error {
			return api.PlayContext(ctx, deviceID, link.URI(), offsetURI)
		})
	default:
		return core.Fail[string](core.Invalid(m.localizer.T("error.unsupported_item")))
	}

	if played.Failed() {
		return core.FailAs[string](played)
	}
	return core.Ok(m.localizer.T("playback.started", label))
}

// Describe renders an entry the way it is announced.
func Describe(localizer *i18n.Localizer, entry *core.QueueEntry) string {
	if entry.Artist == "" {
		return entry.Name
	}
	if entry.Kind == core.MediaEpisode {
		return localizer.T("playback.episode", entry.Name, entry.Artist)
	}
	return localizer.T("playback.track", entry.Name, entry.Artist)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
