package app

import (
	"io"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// ConsoleAnnouncer writes announcements as lines, for terminals and the
// screen readers that read them.
type ConsoleAnnouncer struct {
	mu     sync.Mutex
	out    io.Writer
	style  *color.Color
	logger *zap.Logger
}

func NewConsoleAnnouncer(out io.Writer, logger *zap.Logger) *ConsoleAnnouncer {
	return &ConsoleAnnouncer{
		out:    out,
		style:  color.New(color.FgCyan),
		logger: logger,
	}
}

func (a *ConsoleAnnouncer) Announce(message string) {
	if message == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.style.Fprintln(a.out, message); err != nil {
		a.logger.Warn("Failed to write announcement", zap.Error(err))
		return
	}
	a.logger.Debug("Announced", zap.String("message", message))
}
