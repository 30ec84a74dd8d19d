// Package logger prints pipeline and codec diagnostics. Messages are
// translated through go-l10n before formatting, so the English format string
// is the lookup key in the lexicon.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/user/camencoder/pkg/ports"
)

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// sink is shared by a logger and every component logger derived from it, so
// lines from the encoder and the muxer never interleave.
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	err   io.Writer
	color bool
}

// ConsoleLogger writes progress to one stream and warnings and errors to
// another. Component loggers prefix lines with "[component]".
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	sink      *sink
}

// NewConsoleWriters logs progress to out and warnings and errors to errOut.
// Colour is used only when out is a terminal.
func NewConsoleWriters(level ports.LogLevel, out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{
		level: level,
		sink:  &sink{out: out, err: errOut, color: isTerminal(out)},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.log(ports.LevelDebug, msg, args...) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.log(ports.LevelInfo, msg, args...) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.log(ports.LevelWarn, msg, args...) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.log(ports.LevelError, msg, args...) }

// WithComponent returns a logger tagging its lines with component, e.g.
// "video" or "mp4muxer". It shares the level and output streams.
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	return &ConsoleLogger{level: l.level, component: component, sink: l.sink}
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args ...interface{}) {
	if level < l.level {
		return
	}
	line := l10n.F(msg, args...)

	color := l.sink.color
	if l.component != "" {
		if color {
			line = fmt.Sprintf("%s[%s]%s %s", colorCyan, l.component, colorReset, line)
		} else {
			line = fmt.Sprintf("[%s] %s", l.component, line)
		}
	}
	if color {
		switch level {
		case ports.LevelDebug:
			line = colorGray + line + colorReset
		case ports.LevelWarn:
			line = colorYellow + line + colorReset
		case ports.LevelError:
			line = colorRed + line + colorReset
		}
	}

	w := l.sink.out
	if level >= ports.LevelWarn {
		w = l.sink.err
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	fmt.Fprintln(w, line)
}
