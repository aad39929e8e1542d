package executor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"accessify/internal/core"
	"accessify/internal/core/coretest"
	"accessify/internal/i18n"
)

type stubDevices struct {
	ok    bool
	calls int
}

func (s *stubDevices) EnsureActiveDevice(context.Context) bool {
	s.calls++
	return s.ok
}

type stubRefresher struct {
	ok       bool
	calls    int
	onCalled func()
}

func (s *stubRefresher) RefreshSilently(context.Context) bool {
	s.calls++
	if s.onCalled != nil {
		s.onCalled()
	}
	return s.ok
}

type recordedCommand struct {
	command, outcome string
}

type stubRecorder struct {
	mu        sync.Mutex
	commands  []recordedCommand
	refreshes []bool
}

func (r *stubRecorder) RecordCommand(command, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, recordedCommand{command, outcome})
}

func (r *stubRecorder) RecordTokenRefresh(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes = append(r.refreshes, success)
}

type fixture struct {
	executor  *Executor
	sessions  *core.SessionHolder
	api       *coretest.FakeAPI
	devices   *stubDevices
	refresher *stubRefresher
	recorder  *stubRecorder
}

func newFixture(authenticated bool) *fixture {
	f := &fixture{
		sessions:  core.NewSessionHolder(),
		api:       &coretest.FakeAPI{},
		devices:   &stubDevices{ok: true},
		refresher: &stubRefresher{ok: true},
		recorder:  &stubRecorder{},
	}
	if authenticated {
		f.sessions.Store(&core.Session{API: f.api, DeviceID: "d1", User: "Ada"})
	}

	f.executor = New(Config{
		Sessions:  f.sessions,
		Devices:   f.devices,
		Refresher: f.refresher,
		Recorder:  f.recorder,
		Localizer: i18n.NewLocalizer("en"),
		Timeout:   time.Second,
		Logger:    zap.NewNop(),
	})
	return f
}

func TestExecutePlayback_NotAuthenticated(t *testing.T) {
	f := newFixture(false)

	result := f.executor.Playback(context.Background(), "next", func(ctx context.Context, api core.API, deviceID string) error {
		t.Error("command should not run without a session")
		return nil
	})

	if !result.Failed() || result.Err.Kind != core.KindNotAuthenticated {
		t.Fatalf("result = %+v, expected NotAuthenticated", result)
	}
	if f.devices.calls != 0 {
		t.Errorf("EnsureActiveDevice calls = %d, expected 0", f.devices.calls)
	}
}

func TestExecutePlayback_NoActiveDevice(t *testing.T) {
	f := newFixture(true)
	f.devices.ok = false

	result := f.executor.Playback(context.Background(), "next", func(context.Context, core.API, string) error {
		t.Error("command should not run without a device")
		return nil
	})

	if !result.Failed() || result.Err.Kind != core.KindNoActiveDevice {
		t.Fatalf("result = %+v, expected NoActiveDevice", result)
	}
	if result.Message() == "" {
		t.Error("expected an instructive message")
	}
}

func TestExecutePlayback_InjectsDeviceID(t *testing.T) {
	f := newFixture(true)

	result := ExecutePlayback(context.Background(), f.executor, "volume", func(ctx context.Context, api core.API, deviceID string) (int, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the call context")
		}
		return 42, api.SetVolume(ctx, deviceID, 42)
	})

	if result.Failed() || result.Value != 42 {
		t.Fatalf("result = %+v, expected 42", result)
	}
	calls := f.api.Calls("SetVolume")
	if len(calls) != 1 || calls[0].DeviceID != "d1" {
		t.Errorf("SetVolume calls = %+v, expected one on d1", calls)
	}
	if len(f.recorder.commands) != 1 || f.recorder.commands[0] != (recordedCommand{"volume", OutcomeOK}) {
		t.Errorf("recorded = %+v", f.recorder.commands)
	}
}

func TestExecuteWebAPI_SkipsDeviceReconciliation(t *testing.T) {
	f := newFixture(true)
	f.devices.ok = false

	result := ExecuteWebAPI(context.Background(), f.executor, "user", func(ctx context.Context, api core.API) (string, error) {
		return "Ada", nil
	})

	if result.Failed() || result.Value != "Ada" {
		t.Fatalf("result = %+v", result)
	}
	if f.devices.calls != 0 {
		t.Errorf("EnsureActiveDevice calls = %d, expected 0", f.devices.calls)
	}
}

func TestExecute_UnauthorizedRefreshesWithoutReplay(t *testing.T) {
	f := newFixture(true)
	runs := 0

	result := f.executor.WebAPI(context.Background(), "save", func(context.Context, core.API) error {
		runs++
		return &core.VendorError{Status: http.StatusUnauthorized, Message: "The access token expired"}
	})

	if !result.Failed() || result.Err.Kind != core.KindUnauthorized {
		t.Fatalf("result = %+v, expected Unauthorized", result)
	}
	if runs != 1 {
		t.Errorf("command ran %d times, expected exactly once", runs)
	}
	if f.refresher.calls != 1 {
		t.Errorf("refresh calls = %d, expected 1", f.refresher.calls)
	}
	if result.Message() != i18n.NewLocalizer("en").T("error.unauthorized") {
		t.Errorf("Message() = %q, expected try-again message", result.Message())
	}
	if len(f.recorder.refreshes) != 1 || !f.recorder.refreshes[0] {
		t.Errorf("recorded refreshes = %v", f.recorder.refreshes)
	}
}

func TestExecute_UnauthorizedRefreshLoggedOut(t *testing.T) {
	f := newFixture(true)
	f.refresher.ok = false
	f.refresher.onCalled = f.sessions.Clear

	result := f.executor.WebAPI(context.Background(), "save", func(context.Context, core.API) error {
		return &core.VendorError{Status: http.StatusUnauthorized}
	})

	if want := i18n.NewLocalizer("en").T("error.not_authenticated"); result.Message() != want {
		t.Errorf("Message() = %q, expected %q", result.Message(), want)
	}
}

func TestExecute_Classification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		kind        core.ErrorKind
		wantMessage string
	}{
		{
			name:        "premium required is announced verbatim",
			err:         &core.VendorError{Status: 403, Message: "Player command failed: Premium required", Reason: core.ReasonPremiumRequired},
			kind:        core.KindVendorRestriction,
			wantMessage: "Player command failed: Premium required",
		},
		{
			name:        "rate limited",
			err:         &core.VendorError{Status: 429, Message: "API rate limit exceeded"},
			kind:        core.KindVendorRestriction,
			wantMessage: "API rate limit exceeded",
		},
		{
			name: "no active device mid-call",
			err:  &core.VendorError{Status: 404, Message: "Player command failed: No active device found", Reason: core.ReasonNoActiveDevice},
			kind: core.KindNoActiveDevice,
		},
		{
			name: "connection reset",
			err:  syscall.ECONNRESET,
			kind: core.KindTransientNetwork,
		},
		{
			name: "unexpected",
			err:  errors.New("json: cannot unmarshal"),
			kind: core.KindUnexpected,
		},
		{
			name:        "local rejection passes through",
			err:         &core.Error{Kind: core.KindVendorRestriction, Message: "There is no item at that position."},
			kind:        core.KindVendorRestriction,
			wantMessage: "There is no item at that position.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)

			result := f.executor.Playback(context.Background(), "cmd", func(context.Context, core.API, string) error {
				return tt.err
			})

			if !result.Failed() || result.Err.Kind != tt.kind {
				t.Fatalf("result = %+v, expected kind %v", result, tt.kind)
			}
			if result.Message() == "" {
				t.Error("expected a message")
			}
			if tt.wantMessage != "" && result.Message() != tt.wantMessage {
				t.Errorf("Message() = %q, expected %q", result.Message(), tt.wantMessage)
			}
			if f.refresher.calls != 0 {
				t.Errorf("refresh calls = %d, expected 0", f.refresher.calls)
			}
			if got := f.recorder.commands[0].outcome; got != tt.kind.String() {
				t.Errorf("recorded outcome = %q, expected %q", got, tt.kind.String())
			}
		})
	}
}

func TestExecute_NoActiveDeviceForgetsDevice(t *testing.T) {
	f := newFixture(true)

	f.executor.Playback(context.Background(), "next", func(context.Context, core.API, string) error {
		return &core.VendorError{Status: 404, Reason: core.ReasonNoActiveDevice}
	})

	if got := f.sessions.Load().DeviceID; got != "" {
		t.Errorf("DeviceID = %q, expected it to be forgotten", got)
	}
}
