package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"accessify/internal/app"
	"accessify/internal/core"
	"accessify/internal/queue"
)

var errUnknownCommand = errors.New("unknown command")

// promptAliases maps typed shortcuts to action names.
var promptAliases = map[string]string{
	"t": "play_pause", "toggle": "play_pause", "pause": "play_pause", "resume": "play_pause",
	"n": "next", "next": "next",
	"p": "previous", "prev": "previous", "previous": "previous",
	"w": "now_playing", "now": "now_playing",
	"+": "volume_up", "up": "volume_up",
	"-": "volume_down", "down": "volume_down",
	"f": "seek_forward", "forward": "seek_forward",
	"b": "seek_back", "back": "seek_back",
	"s": "shuffle", "shuffle": "shuffle",
	"r": "repeat", "repeat": "repeat",
	"save": "save", "unsave": "unsave",
	"c": "link", "link": "link",
	"queue": "queue", "devices": "devices",
	"play": "play", "add": "add",
	"skip": "skip_to", "rm": "remove", "mv": "move",
	"use": "use_device",
}

// argCounts lists the actions that take arguments and how many at least.
var argCounts = map[string]int{
	"play": 1, "add": 1, "skip_to": 1, "remove": 1, "move": 2, "use_device": 1,
}

const promptHelp = `Commands:
  t        play or pause         n / p     next / previous
  + / -    volume up / down      f / b     seek forward / back
  s        shuffle               r         repeat
  w        what is playing       c         link of the playing item
  save     save track            unsave    remove saved track
  queue    list the queue        devices   list devices
  play <link>   add <link>   skip <pos>   rm <pos>   mv <from> <to>   use <device>
  q        quit`

type promptCommand struct {
	name string
	args []string
	quit bool
	help bool
}

func parsePromptLine(line string) (promptCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return promptCommand{}, nil
	}

	word := strings.ToLower(fields[0])
	switch word {
	case "q", "quit", "exit":
		return promptCommand{quit: true}, nil
	case "?", "h", "help":
		return promptCommand{help: true}, nil
	}

	name, ok := promptAliases[word]
	if !ok {
		return promptCommand{}, fmt.Errorf("%w: %s", errUnknownCommand, word)
	}
	args := fields[1:]
	if len(args) < argCounts[name] {
		return promptCommand{}, fmt.Errorf("%s needs %d argument(s)", word, argCounts[name])
	}
	return promptCommand{name: name, args: args}, nil
}

// runPrompt reads commands line by line and dispatches them to the pool.
// It returns nil on quit, end of input or cancellation.
func runPrompt(ctx context.Context, svcs *services, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, `Type a command, "help" for the list or "q" to quit.`)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			cmd, err := parsePromptLine(line)
			switch {
			case err != nil:
				fmt.Fprintf(out, "%v. Type \"help\" for the list.\n", err)
			case cmd.quit:
				return nil
			case cmd.help:
				fmt.Fprintln(out, promptHelp)
			case cmd.name != "":
				action, err := svcs.promptAction(cmd)
				if err != nil {
					svcs.announcer.Announce(svcs.localizer.T("error.index_out_of_range"))
					continue
				}
				if err := svcs.controller.Dispatch(cmd.name, action); err != nil {
					logger.Debug("Prompt command not dispatched", zap.String("command", cmd.name), zap.Error(err))
				}
			}
		}
	}
}

// actions are the argument-less user actions shared by the one-shot commands
// and the prompt.
func (s *services) actions() map[string]app.Action {
	c := s.controller
	return map[string]app.Action{
		"play_pause":   c.PlayPause,
		"next":         c.Next,
		"previous":     c.Previous,
		"now_playing":  c.AnnounceNowPlaying,
		"volume_up":    c.VolumeUp,
		"volume_down":  c.VolumeDown,
		"seek_forward": c.SeekForward,
		"seek_back":    c.SeekBack,
		"shuffle":      c.ToggleShuffle,
		"repeat":       c.CycleRepeat,
		"save":         c.SaveCurrentTrack,
		"unsave":       c.RemoveCurrentTrack,
		"link":         c.CopyCurrentLink,
		"queue":        s.queueListing,
		"devices":      s.deviceListing,
	}
}

func (s *services) promptAction(cmd promptCommand) (app.Action, error) {
	if action, ok := s.actions()[cmd.name]; ok {
		return action, nil
	}

	c := s.controller
	switch cmd.name {
	case "play":
		return func(ctx context.Context) core.Result[string] { return c.PlayURI(ctx, cmd.args[0]) }, nil
	case "add":
		text := strings.Join(cmd.args, " ")
		return func(ctx context.Context) core.Result[string] { return c.EnqueueText(ctx, text) }, nil
	case "skip_to", "remove", "use_device":
		position, err := strconv.Atoi(cmd.args[0])
		if err != nil {
			return nil, err
		}
		switch cmd.name {
		case "skip_to":
			return func(ctx context.Context) core.Result[string] { return c.SkipTo(ctx, position-1) }, nil
		case "remove":
			return func(ctx context.Context) core.Result[string] { return c.RemoveAt(ctx, position-1) }, nil
		default:
			return func(ctx context.Context) core.Result[string] { return s.useDevice(ctx, position) }, nil
		}
	case "move":
		from, err := strconv.Atoi(cmd.args[0])
		if err != nil {
			return nil, err
		}
		to, err := strconv.Atoi(cmd.args[1])
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) core.Result[string] { return c.Move(ctx, from-1, to-1) }, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnknownCommand, cmd.name)
}

// queueListing renders the display queue as one announceable line per entry.
func (s *services) queueListing(ctx context.Context) core.Result[string] {
	result := s.controller.Queue(ctx)
	if result.Failed() {
		return core.FailAs[string](result)
	}
	if len(result.Value) == 0 {
		return core.Ok(s.localizer.T("queue.empty"))
	}

	lines := make([]string, 0, len(result.Value))
	for i := range result.Value {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, queue.Describe(s.localizer, &result.Value[i])))
	}
	return core.Ok(strings.Join(lines, "\n"))
}

func (s *services) deviceListing(ctx context.Context) core.Result[string] {
	result := s.controller.Devices(ctx)
	if result.Failed() {
		return core.FailAs[string](result)
	}
	if len(result.Value) == 0 {
		return core.Ok(s.localizer.T("device.none"))
	}

	lines := make([]string, 0, len(result.Value))
	for i, d := range result.Value {
		line := fmt.Sprintf("%d. %s", i+1, d.Name)
		if d.Active {
			line += " *"
		}
		lines = append(lines, line)
	}
	return core.Ok(strings.Join(lines, "\n"))
}

func (s *services) useDevice(ctx context.Context, position int) core.Result[string] {
	result := s.controller.Devices(ctx)
	if result.Failed() {
		return core.FailAs[string](result)
	}
	index, err := parsePosition(strconv.Itoa(position), len(result.Value))
	if err != nil {
		return core.Fail[string](core.Invalid(s.localizer.T("error.index_out_of_range")))
	}
	return s.controller.SelectDevice(ctx, result.Value[index])
}

// parsePosition turns a 1-based position into an index below n.
func parsePosition(raw string, n int) (int, error) {
	position, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", raw, err)
	}
	if position < 1 || position > n {
		return 0, fmt.Errorf("position %d out of range 1-%d", position, n)
	}
	return position - 1, nil
}
