// SPDX-License-Identifier: Apache-2.0

// Package logging provides the terminal log handler of the command line
// tools. Records are printed one per line behind a fixed width level tag,
// e.g. "[  INFO]: arena initialised permanent=2097152".
package logging

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/exp/slog"
)

type levelStyle struct {
	tag  string
	tagC *color.Color
	msgC *color.Color
}

func styleFor(l slog.Level) levelStyle {
	switch {
	case l >= slog.LevelError:
		return levelStyle{" ERROR", color.New(color.FgRed), color.New(color.FgHiRed)}
	case l >= slog.LevelWarn:
		return levelStyle{"  WARN", color.New(color.FgYellow), color.New(color.FgHiYellow)}
	case l >= slog.LevelInfo:
		return levelStyle{"  INFO", color.New(color.FgHiBlue), color.New(color.FgHiCyan)}
	default:
		return levelStyle{"   MSG", color.New(color.FgWhite), nil}
	}
}

// Handler is a slog.Handler writing human readable lines.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	color  bool
	attrs  string
	prefix string
}

// NewHandler returns a handler writing records at or above level to w.
// With useColor set the level tag and message are wrapped in ANSI colours.
func NewHandler(w io.Writer, level slog.Leveler, useColor bool) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{mu: new(sync.Mutex), w: w, level: level, color: useColor}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	style := styleFor(r.Level)

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(h.paint(style.tagC, style.tag))
	b.WriteString("]: ")
	b.WriteString(h.paint(style.msgC, r.Message))
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *Handler) paint(c *color.Color, s string) string {
	if !h.color || c == nil {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, group, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	s := a.Value.String()
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		s = strconv.Quote(s)
	}
	b.WriteString(s)
}

// UseColor reports whether f is a terminal that understands colours.
func UseColor(f *os.File) bool {
	fd := f.Fd()
	return (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
}

// New returns a logger writing to stderr. verbose lowers the level to debug.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	usecolor := UseColor(os.Stderr)
	output := io.Writer(os.Stderr)
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	return slog.New(NewHandler(output, level, usecolor))
}
