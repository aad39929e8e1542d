package app

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"accessify/internal/core"
	"accessify/internal/core/coretest"
	"accessify/internal/device"
	"accessify/internal/executor"
	"accessify/internal/flood"
	"accessify/internal/i18n"
	"accessify/internal/queue"
	"accessify/internal/worker"
	"accessify/pkg/musiclink"
)

type alwaysActive struct{}

func (alwaysActive) EnsureActiveDevice(context.Context) bool { return true }

type noRefresh struct{}

func (noRefresh) RefreshSilently(context.Context) bool { return false }

type recordingAnnouncer struct {
	messages chan string
}

func newRecordingAnnouncer() *recordingAnnouncer {
	return &recordingAnnouncer{messages: make(chan string, 16)}
}

func (a *recordingAnnouncer) Announce(message string) {
	a.messages <- message
}

func (a *recordingAnnouncer) next(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-a.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no announcement")
		return ""
	}
}

type fixture struct {
	api        *coretest.FakeAPI
	sessions   *core.SessionHolder
	announcer  *recordingAnnouncer
	controller *Controller
}

func newFixture(t *testing.T, pool *worker.Pool, throttle *flood.Floodgate) *fixture {
	t.Helper()

	api := &coretest.FakeAPI{User: "Ada"}
	sessions := core.NewSessionHolder()
	sessions.Store(&core.Session{API: api, DeviceID: "d1", User: "Ada"})

	logger := zap.NewNop()
	exec := executor.New(executor.Config{
		Sessions:  sessions,
		Devices:   alwaysActive{},
		Refresher: noRefresh{},
		Localizer: i18n.NewLocalizer("en"),
		Timeout:   time.Second,
		Logger:    logger,
	})

	if pool == nil {
		pool = worker.NewPool(1, 4, logger)
	}
	announcer := newRecordingAnnouncer()

	controller := NewController(Config{
		Sessions:  sessions,
		Executor:  exec,
		Queue:     queue.NewModel(exec, 0, logger),
		Devices:   device.NewManager(sessions, nil, logger),
		Pool:      pool,
		Throttle:  throttle,
		Announcer: announcer,
		Playback: core.PlaybackConfig{
			SearchPageSize: 2,
			SeekDuration:   15 * time.Second,
			VolumeStep:     10,
		},
		Logger: logger,
	})
	t.Cleanup(controller.Stop)

	return &fixture{api: api, sessions: sessions, announcer: announcer, controller: controller}
}

func playing(progress, duration time.Duration) *core.PlaybackState {
	item := coretest.Track("spotify:track:T1", "Song", "Band")
	item.Duration = duration
	return &core.PlaybackState{
		Playing:  true,
		Progress: progress,
		Item:     &item,
		Device:   core.Device{ID: "d1", Name: "Desk", Volume: 50},
		Repeat:   core.RepeatOff,
	}
}

func mustOK[T any](t *testing.T, result core.Result[T]) T {
	t.Helper()
	if result.Failed() {
		t.Fatalf("unexpected failure: %v", result.Err)
	}
	return result.Value
}

func TestPlayPause(t *testing.T) {
	f := newFixture(t, nil, nil)

	f.api.SetState(playing(0, time.Minute))
	if got := mustOK(t, f.controller.PlayPause(context.Background())); got != "Paused" {
		t.Errorf("PlayPause() = %q, expected Paused", got)
	}
	if len(f.api.Calls("Pause")) != 1 {
		t.Error("expected a pause call")
	}

	f.api.SetState(nil)
	if got := mustOK(t, f.controller.PlayPause(context.Background())); got != "Playing" {
		t.Errorf("PlayPause() = %q, expected Playing", got)
	}
	if calls := f.api.Calls("Resume"); len(calls) != 1 || calls[0].DeviceID != "d1" {
		t.Errorf("Resume calls = %+v", calls)
	}
}

func TestNextAndPrevious(t *testing.T) {
	f := newFixture(t, nil, nil)

	if got := mustOK(t, f.controller.Next(context.Background())); got != "Next" {
		t.Errorf("Next() = %q", got)
	}
	if got := mustOK(t, f.controller.Previous(context.Background())); got != "Previous" {
		t.Errorf("Previous() = %q", got)
	}

	f.api.SetErr("Next", &core.VendorError{Status: 403, Message: "Player command failed: Premium required", Reason: core.ReasonPremiumRequired})
	result := f.controller.Next(context.Background())
	if !result.Failed() || result.Message() != "Player command failed: Premium required" {
		t.Errorf("Next() with restriction = %+v", result)
	}
}

func TestSeek_Clamps(t *testing.T) {
	tests := []struct {
		name     string
		forward  bool
		progress time.Duration
		want     time.Duration
		message  string
	}{
		{"forward", true, 60 * time.Second, 75 * time.Second, "1:15 of 3:45"},
		{"forward past end", true, 220 * time.Second, 224 * time.Second, "3:44 of 3:45"},
		{"back", false, 60 * time.Second, 45 * time.Second, "0:45 of 3:45"},
		{"back past start", false, 5 * time.Second, 0, "0:00 of 3:45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)
			f.api.SetState(playing(tt.progress, 225*time.Second))

			seek := f.controller.SeekBack
			if tt.forward {
				seek = f.controller.SeekForward
			}
			if got := mustOK(t, seek(context.Background())); got != tt.message {
				t.Errorf("message = %q, expected %q", got, tt.message)
			}

			calls := f.api.Calls("Seek")
			if len(calls) != 1 || calls[0].Args[0] != tt.want {
				t.Errorf("Seek calls = %+v, expected position %v", calls, tt.want)
			}
		})
	}
}

func TestSeek_NothingPlaying(t *testing.T) {
	f := newFixture(t, nil, nil)

	result := f.controller.SeekForward(context.Background())
	if !result.Failed() || result.Err.Kind != core.KindInvalidInput {
		t.Fatalf("SeekForward() = %+v, expected invalid input", result)
	}
	if result.Message() != "Nothing is playing." {
		t.Errorf("message = %q", result.Message())
	}
	if len(f.api.Calls("Seek")) != 0 {
		t.Error("no seek should be issued")
	}
}

func TestVolume(t *testing.T) {
	f := newFixture(t, nil, nil)

	state := playing(0, time.Minute)
	state.Device.Volume = 95
	f.api.SetState(state)
	if got := mustOK(t, f.controller.VolumeUp(context.Background())); got != "Volume 100 percent" {
		t.Errorf("VolumeUp() = %q", got)
	}

	// Nothing loaded: the volume comes from the device list.
	f.api.SetState(nil)
	f.api.DeviceList = []core.Device{{ID: "d0", Volume: 90}, {ID: "d1", Volume: 30}}
	if got := mustOK(t, f.controller.VolumeDown(context.Background())); got != "Volume 20 percent" {
		t.Errorf("VolumeDown() = %q", got)
	}

	calls := f.api.Calls("SetVolume")
	if len(calls) != 2 || calls[0].Args[0] != 100 || calls[1].Args[0] != 20 {
		t.Errorf("SetVolume calls = %+v", calls)
	}
}

func TestToggleShuffleAndCycleRepeat(t *testing.T) {
	f := newFixture(t, nil, nil)

	state := playing(0, time.Minute)
	state.Shuffle = true
	state.Repeat = core.RepeatContext
	f.api.SetState(state)

	if got := mustOK(t, f.controller.ToggleShuffle(context.Background())); got != "Shuffle off" {
		t.Errorf("ToggleShuffle() = %q", got)
	}
	if got := mustOK(t, f.controller.CycleRepeat(context.Background())); got != "Repeat one" {
		t.Errorf("CycleRepeat() = %q", got)
	}

	if calls := f.api.Calls("SetShuffle"); len(calls) != 1 || calls[0].Args[0] != false {
		t.Errorf("SetShuffle calls = %+v", calls)
	}
	if calls := f.api.Calls("SetRepeat"); len(calls) != 1 || calls[0].Args[0] != core.RepeatTrack {
		t.Errorf("SetRepeat calls = %+v", calls)
	}
}

func TestAnnounceNowPlaying(t *testing.T) {
	f := newFixture(t, nil, nil)

	if got := mustOK(t, f.controller.AnnounceNowPlaying(context.Background())); got != "Nothing is playing." {
		t.Errorf("AnnounceNowPlaying() = %q", got)
	}

	state := playing(65*time.Second, 3*time.Minute)
	f.api.SetState(state)
	if got := mustOK(t, f.controller.AnnounceNowPlaying(context.Background())); got != "Song by Band, 1:05 of 3:00" {
		t.Errorf("AnnounceNowPlaying() = %q", got)
	}

	state.Playing = false
	if got := mustOK(t, f.controller.AnnounceNowPlaying(context.Background())); got != "Song by Band, 1:05 of 3:00, Paused" {
		t.Errorf("AnnounceNowPlaying() paused = %q", got)
	}
}

func TestEnqueueText(t *testing.T) {
	f := newFixture(t, nil, nil)

	pasted := "listen to https://open.spotify.com/track/abc?si=1 and spotify:episode:xyz"
	if got := mustOK(t, f.controller.EnqueueText(context.Background(), pasted)); got != "Added to queue." {
		t.Errorf("EnqueueText() = %q", got)
	}

	var added []any
	for _, call := range f.api.Calls("AddToQueue") {
		added = append(added, call.Args[0])
	}
	if want := []any{"spotify:track:abc", "spotify:episode:xyz"}; !reflect.DeepEqual(added, want) {
		t.Errorf("AddToQueue uris = %v, expected %v", added, want)
	}

	if result := f.controller.EnqueueText(context.Background(), "no links here"); !result.Failed() {
		t.Error("text without links should fail")
	}
}

func TestSearch_Pager(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.api.PageFunc = func(_ string, limit, offset int) (core.Page[core.Item], error) {
		if offset == 0 {
			return core.Page[core.Item]{Items: []core.Item{{Name: "A"}, {Name: "B"}}, HasNext: true}, nil
		}
		return core.Page[core.Item]{Items: []core.Item{{Name: "C"}}}, nil
	}

	pager := f.controller.Search("queen", "track")
	first, err := pager.Next(context.Background())
	if err != nil || len(first) != 2 {
		t.Fatalf("first page = %v, %v", first, err)
	}
	if pager.Done() {
		t.Fatal("pager should offer more results")
	}
	second, err := pager.Next(context.Background())
	if err != nil || len(second) != 1 || !pager.Done() {
		t.Fatalf("second page = %v, %v, done %v", second, err, pager.Done())
	}

	calls := f.api.Calls("Search")
	if len(calls) != 2 || calls[0].Args[0] != "queen" || calls[0].Args[1] != "track" || calls[1].Args[3] != 2 {
		t.Errorf("Search calls = %+v", calls)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.controller.Search("", "track").Next(context.Background())
	if err == nil {
		t.Fatal("expected an error for an empty query")
	}
	if got := f.controller.ErrorMessage(err); got != "No results." {
		t.Errorf("ErrorMessage() = %q", got)
	}
	if len(f.api.Calls("Search")) != 0 {
		t.Error("empty query should not reach Spotify")
	}
}

func TestPlaylists_CollectsAllPages(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.api.PageFunc = func(_ string, _, offset int) (core.Page[core.Item], error) {
		switch offset {
		case 0:
			return core.Page[core.Item]{Items: []core.Item{{Name: "P1"}, {Name: "P2"}}, HasNext: true}, nil
		case 2:
			return core.Page[core.Item]{Items: []core.Item{{Name: "P3"}, {Name: "P4"}}, HasNext: true}, nil
		default:
			return core.Page[core.Item]{}, nil
		}
	}

	items := mustOK(t, f.controller.Playlists(context.Background()))
	if len(items) != 4 || items[3].Name != "P4" {
		t.Errorf("Playlists() = %+v", items)
	}
}

func TestFollowedArtists_FollowsCursor(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.api.CursorFunc = func(_ int, after string) (core.CursorPage[core.Item], error) {
		if after == "" {
			return core.CursorPage[core.Item]{Items: []core.Item{{Name: "A1"}, {Name: "A2"}}, Next: "A2"}, nil
		}
		return core.CursorPage[core.Item]{Items: []core.Item{{Name: "A3"}}}, nil
	}

	items := mustOK(t, f.controller.FollowedArtists(context.Background()))
	if len(items) != 3 {
		t.Errorf("FollowedArtists() = %+v", items)
	}
}

func TestPlaylists_EachPageHasItsOwnDeadline(t *testing.T) {
	f := newFixture(t, nil, nil)
	// Five pages at 300ms outlast the one second call timeout together but
	// never alone.
	f.api.PageFunc = func(_ string, limit, offset int) (core.Page[core.Item], error) {
		time.Sleep(300 * time.Millisecond)
		if offset >= 8 {
			return core.Page[core.Item]{Items: []core.Item{{Name: "last"}}}, nil
		}
		return core.Page[core.Item]{Items: make([]core.Item, limit), HasNext: true}, nil
	}

	items := mustOK(t, f.controller.Playlists(context.Background()))
	if len(items) != 9 || items[8].Name != "last" {
		t.Errorf("Playlists() returned %d items", len(items))
	}
	if got := len(f.api.Calls("Playlists")); got != 5 {
		t.Errorf("Playlists pages = %d, expected 5", got)
	}
}

func TestFollowedArtists_EachPageHasItsOwnDeadline(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.api.CursorFunc = func(_ int, after string) (core.CursorPage[core.Item], error) {
		time.Sleep(300 * time.Millisecond)
		switch after {
		case "":
			return core.CursorPage[core.Item]{Items: []core.Item{{Name: "A1"}, {Name: "A2"}}, Next: "A2"}, nil
		case "A2":
			return core.CursorPage[core.Item]{Items: []core.Item{{Name: "A3"}, {Name: "A4"}}, Next: "A4"}, nil
		case "A4":
			return core.CursorPage[core.Item]{Items: []core.Item{{Name: "A5"}, {Name: "A6"}}, Next: "A6"}, nil
		default:
			return core.CursorPage[core.Item]{Items: []core.Item{{Name: "A7"}}}, nil
		}
	}

	items := mustOK(t, f.controller.FollowedArtists(context.Background()))
	if len(items) != 7 || items[6].Name != "A7" {
		t.Errorf("FollowedArtists() = %+v", items)
	}
}

func TestPlaylists_PageFailureIsAnnounceable(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.api.PageFunc = func(_ string, _, offset int) (core.Page[core.Item], error) {
		if offset == 0 {
			return core.Page[core.Item]{Items: []core.Item{{Name: "P1"}, {Name: "P2"}}, HasNext: true}, nil
		}
		return core.Page[core.Item]{}, &core.VendorError{Status: 403, Message: "Restricted"}
	}

	result := f.controller.Playlists(context.Background())
	if !result.Failed() || result.Err.Kind != core.KindVendorRestriction {
		t.Fatalf("Playlists() = %+v, expected vendor restriction", result)
	}
	if result.Message() == "" {
		t.Error("failure should carry a message")
	}
}

func TestMove_AnnouncesPredictionThenReload(t *testing.T) {
	f := newFixture(t, nil, nil)
	current := coretest.Track("spotify:track:T1", "One", "Band")
	second := coretest.Track("spotify:track:T2", "Two", "Band")
	third := coretest.Track("spotify:track:T3", "Three", "Band")
	f.api.Snapshot = &core.QueueSnapshot{Current: &current, Queue: []core.QueueEntry{second, third}}
	f.api.State = &core.PlaybackState{Playing: true, Item: &current}
	f.api.SetErr("PlayURIs", &core.VendorError{Status: 403, Message: "Restricted"})

	result := f.controller.Move(context.Background(), 2, 1)
	if !result.Failed() {
		t.Fatal("Move() should fail when playback cannot be rebuilt")
	}

	if got := f.announcer.next(t); got != "Moving Three to position 2." {
		t.Errorf("first announcement = %q", got)
	}
	if got := f.announcer.next(t); got != "Move failed. Queue reloaded, 3 items." {
		t.Errorf("second announcement = %q", got)
	}
}

func TestMove_AnnouncesPredictionBeforeConfirming(t *testing.T) {
	f := newFixture(t, nil, nil)
	current := coretest.Track("spotify:track:T1", "One", "Band")
	second := coretest.Track("spotify:track:T2", "Two", "Band")
	third := coretest.Track("spotify:track:T3", "Three", "Band")
	f.api.Snapshot = &core.QueueSnapshot{Current: &current, Queue: []core.QueueEntry{second, third}}
	f.api.State = &core.PlaybackState{Playing: true, Item: &current}

	var rebuiltAfterPrediction bool
	f.api.OnCall = func(call coretest.Call) {
		if call.Method == "PlayURIs" {
			rebuiltAfterPrediction = len(f.announcer.messages) == 1
		}
	}

	if got := mustOK(t, f.controller.Move(context.Background(), 2, 1)); got != "Moved Three to position 2." {
		t.Errorf("Move() = %q", got)
	}
	if !rebuiltAfterPrediction {
		t.Error("prediction should be announced before playback is rebuilt")
	}
	if got := f.announcer.next(t); got != "Moving Three to position 2." {
		t.Errorf("announcement = %q", got)
	}
}

func TestPlaylistItems_InvalidLink(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.controller.PlaylistItems("spotify:album:XYZ").Next(context.Background())
	if got := f.controller.ErrorMessage(err); got != "That is not a Spotify link." {
		t.Errorf("ErrorMessage() = %q", got)
	}
}

func TestSelectDevice(t *testing.T) {
	f := newFixture(t, nil, nil)

	kitchen := core.Device{ID: "d2", Name: "Kitchen"}
	if got := mustOK(t, f.controller.SelectDevice(context.Background(), kitchen)); got != "Playing on Kitchen." {
		t.Errorf("SelectDevice() = %q", got)
	}

	calls := f.api.Calls("TransferPlayback")
	if len(calls) != 1 || calls[0].DeviceID != "d2" || calls[0].Args[0] != true {
		t.Errorf("TransferPlayback calls = %+v", calls)
	}
	if got := f.sessions.Load().DeviceID; got != "d2" {
		t.Errorf("remembered device = %q, expected d2", got)
	}
}

func TestDevices(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.api.DeviceList = []core.Device{{ID: "d1", Name: "Desk"}, {ID: "d2", Name: "Kitchen"}}

	devices := mustOK(t, f.controller.Devices(context.Background()))
	if len(devices) != 2 {
		t.Errorf("Devices() = %+v", devices)
	}

	f.sessions.Clear()
	if result := f.controller.Devices(context.Background()); !result.Failed() || result.Err.Kind != core.KindNotAuthenticated {
		t.Errorf("Devices() without session = %+v", result)
	}
}

func TestSaveCurrentTrack(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.api.SetState(playing(0, time.Minute))

	if got := mustOK(t, f.controller.SaveCurrentTrack(context.Background())); got != "Saved to your library." {
		t.Errorf("SaveCurrentTrack() = %q", got)
	}
	if calls := f.api.Calls("SaveTracks"); len(calls) != 1 || !reflect.DeepEqual(calls[0].Args[0], []string{"T1"}) {
		t.Errorf("SaveTracks calls = %+v", calls)
	}

	episode := core.QueueEntry{Kind: core.MediaEpisode, URI: "spotify:episode:E1", Name: "Ep"}
	f.api.SetState(&core.PlaybackState{Item: &episode})
	if result := f.controller.SaveCurrentTrack(context.Background()); !result.Failed() || result.Err.Kind != core.KindInvalidInput {
		t.Errorf("SaveCurrentTrack() on an episode = %+v", result)
	}
}

func TestCopyCurrentLink(t *testing.T) {
	f := newFixture(t, nil, nil)

	state := playing(0, time.Minute)
	state.Item.Link = "https://open.spotify.com/track/T1?si=abc"
	f.api.SetState(state)
	if got := mustOK(t, f.controller.CopyCurrentLink(context.Background())); got != "https://open.spotify.com/track/T1" {
		t.Errorf("CopyCurrentLink() = %q", got)
	}

	state.Item.Link = ""
	if got := mustOK(t, f.controller.CopyCurrentLink(context.Background())); got != "https://open.spotify.com/track/T1" {
		t.Errorf("CopyCurrentLink() without link = %q", got)
	}
}

func TestDispatch_AnnouncesOutcome(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.controller.Start()

	if err := f.controller.Dispatch("next", f.controller.Next); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if got := f.announcer.next(t); got != "Next" {
		t.Errorf("announced %q, expected Next", got)
	}

	f.api.SetErr("Previous", &core.VendorError{Status: 404, Message: "Player command failed: No active device found", Reason: core.ReasonNoActiveDevice})
	if err := f.controller.Dispatch("previous", f.controller.Previous); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if got := f.announcer.next(t); got != i18n.NewLocalizer("en").T("error.no_active_device") {
		t.Errorf("announced %q", got)
	}
}

func TestDispatch_Throttled(t *testing.T) {
	throttle := flood.New(1)
	f := newFixture(t, nil, throttle)
	f.controller.Start()

	if err := f.controller.Dispatch("next", f.controller.Next); err != nil {
		t.Fatalf("first Dispatch() = %v", err)
	}
	f.announcer.next(t)

	err := f.controller.Dispatch("next", f.controller.Next)
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("second Dispatch() = %v, expected ErrThrottled", err)
	}
	if got := f.announcer.next(t); got != "Too many requests. Please slow down." {
		t.Errorf("announced %q", got)
	}
}

func TestDispatch_QueueFull(t *testing.T) {
	pool := worker.NewPool(1, 1, zap.NewNop())
	f := newFixture(t, pool, nil)
	f.controller.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := func(ctx context.Context) core.Result[string] {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return core.Ok("")
	}
	idle := func(context.Context) core.Result[string] { return core.Ok("") }

	if err := f.controller.Dispatch("blocking", blocking); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	<-started

	if err := f.controller.Dispatch("queued", idle); err != nil {
		t.Fatalf("Dispatch() into the queue = %v", err)
	}
	err := f.controller.Dispatch("rejected", idle)
	if !errors.Is(err, worker.ErrQueueFull) {
		t.Fatalf("Dispatch() = %v, expected ErrQueueFull", err)
	}
	if got := f.announcer.next(t); got != "Still working on earlier commands. Please wait." {
		t.Errorf("announced %q", got)
	}
	close(release)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil, flood.New(5))

	status := f.controller.Status()
	if !status.Authenticated || status.User != "Ada" || status.DeviceID != "d1" {
		t.Errorf("Status() = %+v", status)
	}
	if status.Throttle == nil || status.Throttle.LimitPerMinute != 5 {
		t.Errorf("Status().Throttle = %+v", status.Throttle)
	}
	if !f.controller.Ready() {
		t.Error("Ready() should be true with a session")
	}
}

type fakeLinks struct {
	info *musiclink.TrackInfo
	err  error
}

func (f fakeLinks) CanResolve(rawURL string) bool {
	return strings.HasPrefix(rawURL, "https://youtu.be/")
}

func (f fakeLinks) Resolve(context.Context, string) (*musiclink.TrackInfo, error) {
	return f.info, f.err
}

func TestEnqueue_ForeignLink(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.controller.links = fakeLinks{info: &musiclink.TrackInfo{Title: "Hey Jude", Artist: "The Beatles"}}
	f.api.PageFunc = func(string, int, int) (core.Page[core.Item], error) {
		return core.Page[core.Item]{Items: []core.Item{
			{Kind: "track", Name: "Hey Jude - Cover", Subtitle: "Tribute Band", URI: "spotify:track:cover"},
			{Kind: "track", Name: "Hey Jude - Remastered 2015", Subtitle: "The Beatles", URI: "spotify:track:orig"},
		}}, nil
	}

	pasted := "this one https://youtu.be/A_MjCqQoLLA?si=x and spotify:track:abc"
	mustOK(t, f.controller.EnqueueText(context.Background(), pasted))

	searches := f.api.Calls("Search")
	if len(searches) != 1 || searches[0].Args[0] != "The Beatles Hey Jude" || searches[0].Args[1] != "track" {
		t.Errorf("Search calls = %+v", searches)
	}

	var added []any
	for _, call := range f.api.Calls("AddToQueue") {
		added = append(added, call.Args[0])
	}
	if want := []any{"spotify:track:orig", "spotify:track:abc"}; !reflect.DeepEqual(added, want) {
		t.Errorf("AddToQueue uris = %v, expected %v", added, want)
	}
}

func TestEnqueue_ForeignLinkNoMatch(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.controller.links = fakeLinks{info: &musiclink.TrackInfo{Title: "Obscure Demo", Artist: "Nobody"}}
	f.api.PageFunc = func(string, int, int) (core.Page[core.Item], error) {
		return core.Page[core.Item]{Items: []core.Item{{Name: "Hey Jude", Subtitle: "The Beatles", URI: "spotify:track:orig"}}}, nil
	}

	result := f.controller.Enqueue(context.Background(), "https://youtu.be/abc")
	if !result.Failed() || result.Err.Kind != core.KindInvalidInput {
		t.Fatalf("Enqueue() = %+v, expected invalid input", result)
	}
	if got := result.Message(); got != "Could not find Nobody Obscure Demo on Spotify." {
		t.Errorf("message = %q", got)
	}
	if calls := f.api.Calls("AddToQueue"); len(calls) != 0 {
		t.Errorf("nothing should be queued, got %v", calls)
	}
}

func TestPlayURI_ForeignLinkUnreadable(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.controller.links = fakeLinks{err: errors.New("provider down")}

	result := f.controller.PlayURI(context.Background(), "https://youtu.be/abc")
	if !result.Failed() || result.Message() != "Could not read that link." {
		t.Fatalf("PlayURI() = %+v", result)
	}
	if calls := f.api.Calls("Search", "PlayURIs", "PlayContext"); len(calls) != 0 {
		t.Errorf("no vendor call expected, got %v", calls)
	}
}

func TestEnqueue_UnknownHostWithoutResolver(t *testing.T) {
	f := newFixture(t, nil, nil)

	result := f.controller.Enqueue(context.Background(), "https://youtu.be/abc")
	if !result.Failed() || result.Message() != "That is not a Spotify link." {
		t.Errorf("Enqueue() = %+v", result)
	}
}
