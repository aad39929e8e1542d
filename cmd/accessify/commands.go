package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"accessify/internal/core"
)

func addCommands(root *cobra.Command) {
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List Spotify Connect devices",
		Args:  cobra.NoArgs,
		RunE:  withServices(runDevices),
	}
	devicesCmd.AddCommand(&cobra.Command{
		Use:   "use <number>",
		Short: "Move playback to a device from the list",
		Args:  cobra.ExactArgs(1),
		RunE:  withServices(runUseDevice),
	})

	searchCmd := &cobra.Command{
		Use:   "search <track|album|artist|playlist> <query>",
		Short: "Search the Spotify catalog",
		Args:  cobra.MinimumNArgs(2),
		RunE:  withServices(runSearch),
	}
	searchCmd.Flags().Int("pages", 1, "Number of result pages to load")

	root.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Connect to Spotify in the browser",
			Args:  cobra.NoArgs,
			RunE:  withServices(runLogin),
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Remove the saved client ID and token",
			Args:  cobra.NoArgs,
			RunE:  withServices(runLogout),
		},
		&cobra.Command{
			Use:   "client-id <id>",
			Short: "Save the Spotify client ID of your app",
			Args:  cobra.ExactArgs(1),
			RunE:  withServices(runClientID),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the connected account, device and playing item",
			Args:  cobra.NoArgs,
			RunE:  withServices(runStatus),
		},
		devicesCmd,
		&cobra.Command{
			Use:   "queue",
			Short: "List the playing item and the upcoming queue",
			Args:  cobra.NoArgs,
			RunE:  withServices(runQueue),
		},
		&cobra.Command{
			Use:   "play <uri or link>",
			Short: "Play a track, episode, album, playlist, artist or show",
			Long: "Play a Spotify URI or link. YouTube, SoundCloud and Apple Music track links\n" +
				"are matched against the Spotify catalog unless --foreign-links=false.",
			Args: cobra.ExactArgs(1),
			RunE: withServices(runPlay),
		},
		&cobra.Command{
			Use:   "add <uri, link or text with links>",
			Short: "Add tracks or episodes to the queue",
			Args:  cobra.MinimumNArgs(1),
			RunE:  withServices(runAdd),
		},
		simpleCommand("toggle", "Pause or resume playback", playerAction("play_pause")),
		simpleCommand("next", "Skip to the next item", playerAction("next")),
		simpleCommand("previous", "Go back to the previous item", playerAction("previous")),
		simpleCommand("now", "Announce the playing item", playerAction("now_playing")),
		simpleCommand("save", "Save the playing track to your library", playerAction("save")),
		simpleCommand("unsave", "Remove the playing track from your library", playerAction("unsave")),
		simpleCommand("link", "Print the link of the playing item", playerAction("link")),
		simpleCommand("shuffle", "Toggle shuffle", playerAction("shuffle")),
		simpleCommand("repeat", "Cycle repeat between off, all and one", playerAction("repeat")),
		&cobra.Command{
			Use:       "volume <up|down>",
			Short:     "Change the volume by one step",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"up", "down"},
			RunE:      withServices(runDirectional("volume")),
		},
		&cobra.Command{
			Use:       "seek <forward|back>",
			Short:     "Seek by one step",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"forward", "back"},
			RunE:      withServices(runDirectional("seek")),
		},
		&cobra.Command{
			Use:   "skip-to <position>",
			Short: "Skip ahead to a queue position (1 is the playing item)",
			Args:  cobra.ExactArgs(1),
			RunE:  withServices(runSkipTo),
		},
		&cobra.Command{
			Use:   "remove <position>",
			Short: "Remove a queue position",
			Args:  cobra.ExactArgs(1),
			RunE:  withServices(runRemove),
		},
		&cobra.Command{
			Use:   "move <from> <to>",
			Short: "Move a queue entry to another position",
			Args:  cobra.ExactArgs(2),
			RunE:  withServices(runMove),
		},
		searchCmd,
		&cobra.Command{
			Use:   "playlists",
			Short: "List your playlists",
			Args:  cobra.NoArgs,
			RunE:  withServices(runPlaylists),
		},
		&cobra.Command{
			Use:   "saved",
			Short: "List your saved tracks",
			Args:  cobra.NoArgs,
			RunE:  withServices(runSaved),
		},
		&cobra.Command{
			Use:   "artists",
			Short: "List the artists you follow",
			Args:  cobra.NoArgs,
			RunE:  withServices(runArtists),
		},
		&cobra.Command{
			Use:   "listen",
			Short: "Interactive mode: type commands, hear track changes",
			Args:  cobra.NoArgs,
			RunE:  withServices(runListen),
		},
	)
}

type serviceRunner func(ctx context.Context, svcs *services, cmd *cobra.Command, args []string) error

// withServices builds the services, restores the session and runs fn until
// it returns or the process is interrupted.
func withServices(fn serviceRunner) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svcs := initializeServices()
		if cmd.Name() != "login" && cmd.Name() != "logout" && cmd.Name() != "client-id" {
			svcs.connect(ctx)
		}
		return fn(ctx, svcs, cmd, args)
	}
}

func simpleCommand(use, short string, fn serviceRunner) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  withServices(fn),
	}
}

func playerAction(name string) serviceRunner {
	return func(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
		action, ok := svcs.actions()[name]
		if !ok {
			return fmt.Errorf("unknown action %q", name)
		}
		return svcs.report(action(ctx))
	}
}

func runDirectional(kind string) serviceRunner {
	return func(ctx context.Context, svcs *services, _ *cobra.Command, args []string) error {
		name := kind + "_" + strings.ToLower(args[0])
		action, ok := svcs.actions()[name]
		if !ok {
			return fmt.Errorf("unknown direction %q for %s", args[0], kind)
		}
		return svcs.report(action(ctx))
	}
}

func runLogin(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	authCtx, cancel := context.WithTimeout(ctx, config.Spotify.AuthTimeout)
	defer cancel()

	fmt.Println("Opening the Spotify consent page in your browser...")
	if !svcs.auth.ValidateInteractively(authCtx) {
		svcs.announcer.Announce(svcs.localizer.T("auth.failed"))
		return errReported
	}
	svcs.announcer.Announce(svcs.localizer.T("auth.connected", svcs.sessions.Load().User))
	return nil
}

func runLogout(_ context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	if !svcs.auth.ClearCredentials() {
		svcs.announcer.Announce(svcs.localizer.T("error.generic"))
		return errReported
	}
	svcs.announcer.Announce(svcs.localizer.T("auth.cleared"))
	return nil
}

func runClientID(_ context.Context, svcs *services, _ *cobra.Command, args []string) error {
	if !svcs.auth.SetClientID(args[0]) {
		svcs.announcer.Announce(svcs.localizer.T("auth.no_client_id"))
		return errReported
	}
	fmt.Println("Client ID saved. Run \"accessify login\" to connect.")
	return nil
}

func runStatus(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	session := svcs.sessions.Load()
	if !session.Authenticated() {
		svcs.announcer.Announce(svcs.localizer.T("error.not_authenticated"))
		return errReported
	}

	svcs.announcer.Announce(svcs.localizer.T("auth.connected", session.User))
	return svcs.report(svcs.controller.AnnounceNowPlaying(ctx))
}

func runDevices(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	result := svcs.controller.Devices(ctx)
	if result.Failed() {
		return svcs.report(core.FailAs[string](result))
	}
	if len(result.Value) == 0 {
		svcs.announcer.Announce(svcs.localizer.T("device.none"))
		return nil
	}
	printDevicesTable(result.Value)
	return nil
}

func runUseDevice(ctx context.Context, svcs *services, _ *cobra.Command, args []string) error {
	result := svcs.controller.Devices(ctx)
	if result.Failed() {
		return svcs.report(core.FailAs[string](result))
	}

	index, err := parsePosition(args[0], len(result.Value))
	if err != nil {
		svcs.announcer.Announce(svcs.localizer.T("error.index_out_of_range"))
		return errReported
	}
	return svcs.report(svcs.controller.SelectDevice(ctx, result.Value[index]))
}

func runQueue(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	result := svcs.controller.Queue(ctx)
	if result.Failed() {
		return svcs.report(core.FailAs[string](result))
	}
	if len(result.Value) == 0 {
		svcs.announcer.Announce(svcs.localizer.T("queue.empty"))
		return nil
	}
	printQueueTable(svcs.localizer, result.Value)
	return nil
}

func runPlay(ctx context.Context, svcs *services, _ *cobra.Command, args []string) error {
	return svcs.report(svcs.controller.PlayURI(ctx, args[0]))
}

func runAdd(ctx context.Context, svcs *services, _ *cobra.Command, args []string) error {
	return svcs.report(svcs.controller.EnqueueText(ctx, strings.Join(args, " ")))
}

func runSkipTo(ctx context.Context, svcs *services, _ *cobra.Command, args []string) error {
	position, err := strconv.Atoi(args[0])
	if err != nil {
		svcs.announcer.Announce(svcs.localizer.T("error.index_out_of_range"))
		return errReported
	}
	return svcs.report(svcs.controller.SkipTo(ctx, position-1))
}

func runRemove(ctx context.Context, svcs *services, _ *cobra.Command, args []string) error {
	position, err := strconv.Atoi(args[0])
	if err != nil {
		svcs.announcer.Announce(svcs.localizer.T("error.index_out_of_range"))
		return errReported
	}
	return svcs.report(svcs.controller.RemoveAt(ctx, position-1))
}

func runMove(ctx context.Context, svcs *services, _ *cobra.Command, args []string) error {
	from, errFrom := strconv.Atoi(args[0])
	to, errTo := strconv.Atoi(args[1])
	if errFrom != nil || errTo != nil {
		svcs.announcer.Announce(svcs.localizer.T("error.index_out_of_range"))
		return errReported
	}
	return svcs.report(svcs.controller.Move(ctx, from-1, to-1))
}

func runSearch(ctx context.Context, svcs *services, cmd *cobra.Command, args []string) error {
	pages, err := cmd.Flags().GetInt("pages")
	if err != nil || pages < 1 {
		pages = 1
	}

	pager := svcs.controller.Search(strings.Join(args[1:], " "), strings.ToLower(args[0]))
	var items []core.Item
	for i := 0; i < pages && !pager.Done(); i++ {
		page, err := pager.Next(ctx)
		if err != nil {
			svcs.announcer.Announce(svcs.controller.ErrorMessage(err))
			return errReported
		}
		items = append(items, page...)
	}

	return printItems(svcs, "Search results", items)
}

func runPlaylists(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	result := svcs.controller.Playlists(ctx)
	if result.Failed() {
		return svcs.report(core.FailAs[string](result))
	}
	return printItems(svcs, "Your playlists", result.Value)
}

func runSaved(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	pager := svcs.controller.SavedTracks()
	items, err := pager.Next(ctx)
	if err != nil {
		svcs.announcer.Announce(svcs.controller.ErrorMessage(err))
		return errReported
	}
	return printItems(svcs, "Saved tracks", items)
}

func runArtists(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	result := svcs.controller.FollowedArtists(ctx)
	if result.Failed() {
		return svcs.report(core.FailAs[string](result))
	}
	return printItems(svcs, "Followed artists", result.Value)
}

func printItems(svcs *services, title string, items []core.Item) error {
	if len(items) == 0 {
		svcs.announcer.Announce(svcs.localizer.T("library.no_results"))
		return nil
	}
	printItemsTable(title, items)
	return nil
}

// runListen runs the poller, the optional status server and the command
// prompt until the user quits or the process is interrupted.
func runListen(ctx context.Context, svcs *services, _ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !svcs.sessions.Load().Authenticated() {
		svcs.announcer.Announce(svcs.localizer.T("error.not_authenticated"))
	}

	svcs.controller.Start()
	defer svcs.controller.Stop()

	g, gCtx := errgroup.WithContext(ctx)

	p := svcs.newPoller()
	g.Go(func() error {
		return p.Run(gCtx)
	})

	if config.Server.Enabled {
		server := svcs.newStatusServer()
		g.Go(func() error {
			return server.Start(gCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return runPrompt(gCtx, svcs, os.Stdin, os.Stdout)
	})

	logger.Info("Listen mode started",
		zap.Bool("status_server", config.Server.Enabled),
		zap.Duration("poll_interval", config.Playback.PollInterval))

	if err := g.Wait(); err != nil {
		logger.Error("Listen mode stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Listen mode stopped")
	return nil
}
