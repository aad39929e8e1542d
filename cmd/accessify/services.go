package main

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/zap"

	"accessify/internal/app"
	"accessify/internal/auth"
	"accessify/internal/core"
	"accessify/internal/device"
	"accessify/internal/executor"
	"accessify/internal/flood"
	httpserver "accessify/internal/http"
	"accessify/internal/i18n"
	"accessify/internal/poller"
	"accessify/internal/queue"
	"accessify/internal/spotify"
	"accessify/internal/worker"
	"accessify/pkg/musiclink"
)

type services struct {
	sessions   *core.SessionHolder
	localizer  *i18n.Localizer
	metrics    *httpserver.Metrics
	auth       *auth.Manager
	devices    *device.Manager
	executor   *executor.Executor
	queue      *queue.Model
	pool       *worker.Pool
	announcer  *app.ConsoleAnnouncer
	controller *app.Controller
}

func initializeServices() *services {
	sessions := core.NewSessionHolder()
	localizer := i18n.NewLocalizer(config.App.Language)
	metrics := httpserver.NewMetrics()

	newAPI := func(httpClient *http.Client) core.API {
		return spotify.NewClient(httpClient, spotify.DefaultBaseURL, logger.Named("spotify"))
	}
	authManager := auth.NewManager(&config.Spotify, sessions, newAPI, logger.Named("auth"))
	deviceManager := device.NewManager(sessions, metrics, logger.Named("device"))

	exec := executor.New(executor.Config{
		Sessions:  sessions,
		Devices:   deviceManager,
		Refresher: authManager,
		Recorder:  metrics,
		Localizer: localizer,
		Timeout:   config.Spotify.RequestTimeout,
		Logger:    logger.Named("executor"),
	})
	model := queue.NewModel(exec, config.Playback.SkipDelay, logger.Named("queue"))

	pool := worker.NewPool(config.App.Workers, config.App.ActionQueueSize, logger.Named("worker"))
	metrics.RegisterQueueDepth(func() int { return pool.Stats().QueueDepth })

	announcer := app.NewConsoleAnnouncer(os.Stdout, logger.Named("announcer"))

	var links app.LinkResolver
	if config.App.ForeignLinks {
		links = musiclink.NewManager(nil, musiclink.DefaultEndpoints(), config.App.LinkCacheSize)
	}

	controller := app.NewController(app.Config{
		Sessions:  sessions,
		Executor:  exec,
		Queue:     model,
		Devices:   deviceManager,
		Pool:      pool,
		Throttle:  flood.New(config.App.ActionLimitPerMinute),
		Announcer: announcer,
		Links:     links,
		Playback:  config.Playback,
		Logger:    logger.Named("controller"),
	})

	return &services{
		sessions:   sessions,
		localizer:  localizer,
		metrics:    metrics,
		auth:       authManager,
		devices:    deviceManager,
		executor:   exec,
		queue:      model,
		pool:       pool,
		announcer:  announcer,
		controller: controller,
	}
}

// connect restores the cached session. Commands still run without one and
// announce that the user is not connected.
func (s *services) connect(ctx context.Context) bool {
	ok := s.auth.InitializeSilently(ctx)
	logger.Debug("Session restored", zap.Bool("authenticated", ok))
	return ok
}

func (s *services) newPoller() *poller.Poller {
	return poller.New(s.executor, s.announcer, config.Playback.PollInterval, logger.Named("poller"))
}

func (s *services) newStatusServer() *httpserver.Server {
	return httpserver.NewServer(&config.Server, s.metrics, s.controller.Ready,
		func() any { return s.controller.Status() }, logger.Named("http"))
}

// report announces a result and turns a failure into errReported.
func (s *services) report(result core.Result[string]) error {
	if result.Failed() {
		s.announcer.Announce(result.Err.Message)
		return errReported
	}
	s.announcer.Announce(result.Value)
	return nil
}
