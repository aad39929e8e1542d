package core

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// AppName names the per-user config directory and the log file.
	AppName = "accessify"

	// DefaultCallbackPort is the loopback port registered as the OAuth redirect.
	DefaultCallbackPort = 8539
	// DefaultSearchPageSize is the number of results fetched per "load more".
	DefaultSearchPageSize = 50
	// DefaultSeekDuration is how far seek forward/back jumps.
	DefaultSeekDuration = 15 * time.Second
	// DefaultSkipDelay separates the next-track calls issued by skip-to-index.
	DefaultSkipDelay = 250 * time.Millisecond
	// DefaultPollInterval is how often the background poller reads playback.
	DefaultPollInterval = 5 * time.Second
	// DefaultRequestTimeout bounds every vendor call.
	DefaultRequestTimeout = 10 * time.Second
	// DefaultAuthTimeout bounds the interactive browser consent.
	DefaultAuthTimeout = 3 * time.Minute
	// DefaultVolumeStep is the volume change per volume up/down in percent.
	DefaultVolumeStep = 10
	// DefaultWorkers is the number of concurrent user actions.
	DefaultWorkers = 2
	// DefaultActionQueueSize is how many user actions may wait for a worker.
	DefaultActionQueueSize = 16
	// DefaultActionLimitPerMinute caps how often a single action may run.
	DefaultActionLimitPerMinute = 60
	// DefaultLinkCacheSize is how many resolved music links are remembered.
	DefaultLinkCacheSize = 256
	// DefaultLanguage is the language of user-facing messages.
	DefaultLanguage = "en"
)

type Config struct {
	Spotify  SpotifyConfig
	Playback PlaybackConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type SpotifyConfig struct {
	// ClientID seeds the client-id file when it does not exist yet.
	ClientID       string
	ConfigDir      string
	TokenPath      string
	ClientIDPath   string
	CallbackPort   int
	RequestTimeout time.Duration
	AuthTimeout    time.Duration
}

// RedirectURL is the loopback address Spotify sends the user back to.
func (c SpotifyConfig) RedirectURL() string {
	return "http://127.0.0.1:" + strconv.Itoa(c.CallbackPort) + "/callback"
}

type PlaybackConfig struct {
	SearchPageSize int
	SeekDuration   time.Duration
	SkipDelay      time.Duration
	PollInterval   time.Duration
	VolumeStep     int
}

type ServerConfig struct {
	Enabled      bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

type AppConfig struct {
	Language             string
	Workers              int
	ActionQueueSize      int
	ActionLimitPerMinute int
	// ForeignLinks enables matching YouTube, SoundCloud and Apple Music links
	// against the Spotify catalog.
	ForeignLinks  bool
	LinkCacheSize int
}

func DefaultConfig() *Config {
	dir := DefaultConfigDir()

	return &Config{
		Spotify: SpotifyConfig{
			ConfigDir:      dir,
			TokenPath:      filepath.Join(dir, "token.json"),
			ClientIDPath:   filepath.Join(dir, "client_id.json"),
			CallbackPort:   DefaultCallbackPort,
			RequestTimeout: DefaultRequestTimeout,
			AuthTimeout:    DefaultAuthTimeout,
		},
		Playback: PlaybackConfig{
			SearchPageSize: DefaultSearchPageSize,
			SeekDuration:   DefaultSeekDuration,
			SkipDelay:      DefaultSkipDelay,
			PollInterval:   DefaultPollInterval,
			VolumeStep:     DefaultVolumeStep,
		},
		Server: ServerConfig{
			Enabled:      false,
			Host:         "127.0.0.1",
			Port:         8540,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, AppName+".log"),
		},
		App: AppConfig{
			Language:             DefaultLanguage,
			Workers:              DefaultWorkers,
			ActionQueueSize:      DefaultActionQueueSize,
			ActionLimitPerMinute: DefaultActionLimitPerMinute,
			ForeignLinks:         true,
			LinkCacheSize:        DefaultLinkCacheSize,
		},
	}
}

// DefaultConfigDir returns the per-user directory holding the credential files.
// It falls back to the working directory when no user config dir is known.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, AppName)
}
