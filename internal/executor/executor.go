// Package executor runs vendor calls under a uniform contract: session and
// device preconditions, a per-call deadline, and classification of every
// failure into a core.Result.
package executor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"accessify/internal/core"
	"accessify/internal/i18n"
)

// Refresher renews the access token after the vendor rejected it.
type Refresher interface {
	RefreshSilently(ctx context.Context) bool
}

// DeviceEnsurer makes sure a playback device is available.
type DeviceEnsurer interface {
	EnsureActiveDevice(ctx context.Context) bool
}

// Recorder observes command outcomes. Outcome is "ok" or an ErrorKind name.
type Recorder interface {
	RecordCommand(command, outcome string, duration time.Duration)
	RecordTokenRefresh(success bool)
}

// OutcomeOK is the outcome recorded for successful commands.
const OutcomeOK = "ok"

type Executor struct {
	sessions  *core.SessionHolder
	devices   DeviceEnsurer
	refresher Refresher
	recorder  Recorder
	localizer *i18n.Localizer
	timeout   time.Duration
	logger    *zap.Logger
}

type Config struct {
	Sessions  *core.SessionHolder
	Devices   DeviceEnsurer
	Refresher Refresher
	// Recorder may be nil.
	Recorder  Recorder
	Localizer *i18n.Localizer
	// Timeout bounds each vendor call and each device reconciliation.
	Timeout time.Duration
	Logger  *zap.Logger
}

func New(cfg Config) *Executor {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = core.DefaultRequestTimeout
	}

	return &Executor{
		sessions:  cfg.Sessions,
		devices:   cfg.Devices,
		refresher: cfg.Refresher,
		recorder:  recorder,
		localizer: cfg.Localizer,
		timeout:   timeout,
		logger:    cfg.Logger,
	}
}

// Localizer returns the catalog used for failure messages.
func (e *Executor) Localizer() *i18n.Localizer {
	return e.localizer
}

// PlaybackFunc is a device-scoped vendor call.
type PlaybackFunc[T any] func(ctx context.Context, api core.API, deviceID string) (T, error)

// WebAPIFunc is a vendor call that needs no device.
type WebAPIFunc[T any] func(ctx context.Context, api core.API) (T, error)

// ExecutePlayback requires a session and a reconciled device and passes the
// device id to fn.
func ExecutePlayback[T any](ctx context.Context, e *Executor, name string, fn PlaybackFunc[T]) core.Result[T] {
	start := time.Now()

	if !e.sessions.Load().Authenticated() {
		return finish(e, name, start, core.Fail[T](e.notAuthenticated()))
	}

	ensureCtx, cancel := context.WithTimeout(ctx, e.timeout)
	ok := e.devices.EnsureActiveDevice(ensureCtx)
	cancel()
	if !ok {
		return finish(e, name, start, core.Fail[T](&core.Error{
			Kind:    core.KindNoActiveDevice,
			Message: e.localizer.T("error.no_active_device"),
		}))
	}

	// Reconciliation may have installed a new device id.
	session := e.sessions.Load()
	if !session.Authenticated() {
		return finish(e, name, start, core.Fail[T](e.notAuthenticated()))
	}

	callCtx, callCancel := context.WithTimeout(ctx, e.timeout)
	defer callCancel()

	value, err := fn(callCtx, session.API, session.DeviceID)
	if err != nil {
		return finish(e, name, start, core.Fail[T](e.classify(ctx, name, session, err)))
	}
	return finish(e, name, start, core.Ok(value))
}

// ExecuteWebAPI requires a session only.
func ExecuteWebAPI[T any](ctx context.Context, e *Executor, name string, fn WebAPIFunc[T]) core.Result[T] {
	start := time.Now()

	session := e.sessions.Load()
	if !session.Authenticated() {
		return finish(e, name, start, core.Fail[T](e.notAuthenticated()))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	value, err := fn(callCtx, session.API)
	if err != nil {
		return finish(e, name, start, core.Fail[T](e.classify(ctx, name, session, err)))
	}
	return finish(e, name, start, core.Ok(value))
}

// Playback is ExecutePlayback for commands without a payload.
func (e *Executor) Playback(ctx context.Context, name string, fn func(ctx context.Context, api core.API, deviceID string) error) core.Result[struct{}] {
	return ExecutePlayback(ctx, e, name, func(ctx context.Context, api core.API, deviceID string) (struct{}, error) {
		return struct{}{}, fn(ctx, api, deviceID)
	})
}

// WebAPI is ExecuteWebAPI for commands without a payload.
func (e *Executor) WebAPI(ctx context.Context, name string, fn func(ctx context.Context, api core.API) error) core.Result[struct{}] {
	return ExecuteWebAPI(ctx, e, name, func(ctx context.Context, api core.API) (struct{}, error) {
		return struct{}{}, fn(ctx, api)
	})
}

func finish[T any](e *Executor, name string, start time.Time, result core.Result[T]) core.Result[T] {
	outcome := OutcomeOK
	if result.Failed() {
		outcome = result.Err.Kind.String()
	}
	e.recorder.RecordCommand(name, outcome, time.Since(start))
	return result
}

func (e *Executor) notAuthenticated() *core.Error {
	return &core.Error{
		Kind:    core.KindNotAuthenticated,
		Message: e.localizer.T("error.not_authenticated"),
	}
}

// classify turns a failed call into the announced error. A 401 triggers one
// silent token refresh; the command itself is not replayed.
func (e *Executor) classify(ctx context.Context, name string, session *core.Session, err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		e.logger.Debug("Command rejected locally",
			zap.String("command", name),
			zap.Stringer("kind", coreErr.Kind),
			zap.String("message", coreErr.Message))
		return coreErr
	}

	kind := core.ClassifyError(err)
	result := &core.Error{Kind: kind, Cause: err}

	switch kind {
	case core.KindNotAuthenticated:
		result.Message = e.localizer.T("error.not_authenticated")
		e.logger.Info("Command needs a session", zap.String("command", name))

	case core.KindUnauthorized:
		e.logger.Info("Access token rejected, refreshing", zap.String("command", name), zap.Error(err))

		refreshCtx, cancel := context.WithTimeout(ctx, e.timeout)
		refreshed := e.refresher.RefreshSilently(refreshCtx)
		cancel()
		e.recorder.RecordTokenRefresh(refreshed)

		result.Message = e.localizer.T("error.unauthorized")
		if !refreshed && !e.sessions.Load().Authenticated() {
			result.Message = e.localizer.T("error.not_authenticated")
		}

	case core.KindNoActiveDevice:
		// The remembered device went away; the next command rediscovers.
		e.sessions.SetDevice(session, "")
		result.Message = e.localizer.T("error.no_active_device")
		e.logger.Info("Device no longer active", zap.String("command", name), zap.Error(err))

	case core.KindVendorRestriction:
		result.Message = vendorMessage(err)
		e.logger.Info("Command restricted by Spotify", zap.String("command", name), zap.Error(err))

	case core.KindTransientNetwork:
		result.Message = e.localizer.T("error.network")
		e.logger.Warn("Network error", zap.String("command", name), zap.Error(err))

	default:
		result.Message = e.localizer.T("error.generic")
		if errors.Is(err, context.Canceled) {
			e.logger.Debug("Command cancelled", zap.String("command", name))
		} else {
			e.logger.Error("Unexpected command failure", zap.String("command", name), zap.Error(err))
		}
	}

	return result
}

func vendorMessage(err error) string {
	var ve *core.VendorError
	if errors.As(err, &ve) && ve.Message != "" {
		return ve.Message
	}
	return err.Error()
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string, string, time.Duration) {}
func (nopRecorder) RecordTokenRefresh(bool)                     {}
