// Package main provides the accessify CLI: keyboard and screen reader
// friendly control of Spotify playback.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"accessify/internal/core"
	"accessify/internal/i18n"
)

// envPrefix prefixes every environment variable accessify reads.
const envPrefix = "ACCESSIFY"

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger

	// errReported marks failures whose message was already announced.
	errReported = errors.New("command failed")
)

var rootCmd = &cobra.Command{
	Use:   "accessify",
	Short: "Accessify - Spotify control for keyboards and screen readers",
	Long: `Accessify controls Spotify playback from the terminal. Every command answers
with a short sentence suitable for a screen reader. Run "accessify listen" for an
interactive session that announces track changes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-file", "", "log file (default is accessify.log in the config dir)")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Announcement language (%s)", supportedLangs))

	flags.String("spotify-client-id", "", "Spotify client ID, saved on first use")
	flags.String("config-dir", defaults.Spotify.ConfigDir, "Directory holding the token cache and client ID")
	flags.Int("callback-port", defaults.Spotify.CallbackPort, "Loopback port of the OAuth redirect")
	flags.Duration("request-timeout", defaults.Spotify.RequestTimeout, "Timeout of every Spotify request")
	flags.Duration("auth-timeout", defaults.Spotify.AuthTimeout, "How long to wait for browser consent")

	flags.Int("search-page-size", defaults.Playback.SearchPageSize, "Results loaded per page")
	flags.Duration("seek-duration", defaults.Playback.SeekDuration, "Seek step")
	flags.Duration("skip-delay", defaults.Playback.SkipDelay, "Pause between next-track calls when skipping ahead")
	flags.Duration("poll-interval", defaults.Playback.PollInterval, "How often listen mode checks for track changes")
	flags.Int("volume-step", defaults.Playback.VolumeStep, "Volume step in percent")

	flags.Bool("server-enabled", defaults.Server.Enabled, "Serve health and metrics endpoints in listen mode")
	flags.String("server-host", defaults.Server.Host, "Status server host")
	flags.Int("server-port", defaults.Server.Port, "Status server port")

	flags.Int("workers", defaults.App.Workers, "Concurrent user actions in listen mode")
	flags.Int("action-queue-size", defaults.App.ActionQueueSize, "User actions that may wait for a worker")
	flags.Int("action-limit-per-minute", defaults.App.ActionLimitPerMinute, "Maximum runs of one action per minute (0 disables)")
	flags.Bool("foreign-links", defaults.App.ForeignLinks, "Match YouTube, SoundCloud and Apple Music links against Spotify")
	flags.Int("link-cache-size", defaults.App.LinkCacheSize, "Resolved music links to remember (0 disables)")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	addCommands(rootCmd)
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureSpotify(cfg)
	configurePlayback(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = strings.TrimSpace(viper.GetString("spotify-client-id"))

	if dir := viper.GetString("config-dir"); dir != "" && dir != cfg.Spotify.ConfigDir {
		cfg.Spotify.ConfigDir = dir
		cfg.Spotify.TokenPath = filepath.Join(dir, "token.json")
		cfg.Spotify.ClientIDPath = filepath.Join(dir, "client_id.json")
		cfg.Log.File = filepath.Join(dir, core.AppName+".log")
	}

	if port := viper.GetInt("callback-port"); port > 0 {
		cfg.Spotify.CallbackPort = port
	}
	if timeout := viper.GetDuration("request-timeout"); timeout > 0 {
		cfg.Spotify.RequestTimeout = timeout
	}
	if timeout := viper.GetDuration("auth-timeout"); timeout > 0 {
		cfg.Spotify.AuthTimeout = timeout
	}
}

func configurePlayback(cfg *core.Config) {
	if size := viper.GetInt("search-page-size"); size > 0 && size <= core.DefaultSearchPageSize {
		cfg.Playback.SearchPageSize = size
	}
	if d := viper.GetDuration("seek-duration"); d > 0 {
		cfg.Playback.SeekDuration = d
	}
	if d := viper.GetDuration("skip-delay"); d >= 0 {
		cfg.Playback.SkipDelay = d
	}
	if d := viper.GetDuration("poll-interval"); d > 0 {
		cfg.Playback.PollInterval = d
	}
	if step := viper.GetInt("volume-step"); step > 0 && step <= 100 {
		cfg.Playback.VolumeStep = step
	}
}

func configureServer(cfg *core.Config) {
	cfg.Server.Enabled = viper.GetBool("server-enabled")
	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	if port := viper.GetInt("server-port"); port > 0 {
		cfg.Server.Port = port
	}

	cfg.Log.Level = viper.GetString("log-level")
	if file := viper.GetString("log-file"); file != "" {
		cfg.Log.File = file
	}
}

func configureApp(cfg *core.Config) {
	requested := viper.GetString("language")
	cfg.App.Language = i18n.Match(requested)
	if requested != "" && !strings.HasPrefix(strings.ToLower(requested), cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', using '%s' instead. Supported languages: %s\n",
			requested, cfg.App.Language, strings.Join(i18n.GetSupportedLanguages(), ", "))
	}

	if workers := viper.GetInt("workers"); workers > 0 {
		cfg.App.Workers = workers
	}
	if size := viper.GetInt("action-queue-size"); size >= 0 {
		cfg.App.ActionQueueSize = size
	}
	cfg.App.ActionLimitPerMinute = viper.GetInt("action-limit-per-minute")
	cfg.App.ForeignLinks = viper.GetBool("foreign-links")
	cfg.App.LinkCacheSize = viper.GetInt("link-cache-size")
}

// buildLogger writes JSON logs to a rotating file and warnings and errors to
// stderr, keeping the terminal quiet for screen readers.
func buildLogger(cfg core.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.WarnLevel
	})
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), consoleLevel),
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		} else {
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(&lumberjack.Logger{
					Filename:   cfg.File,
					MaxSize:    10, // MB
					MaxBackups: 3,
					MaxAge:     28, // days
					Compress:   true,
				}),
				level,
			))
		}
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}
