// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelDebug, false))

	log.Debug("starting")
	log.Info("timer stopped", "seconds", 2)
	log.Warn("transient region exhausted", "requested", 4096)
	log.Error("permanent free is not implemented", "err", errors.New("arena: operation not supported"))

	require.Equal(t, ""+
		"[   MSG]: starting\n"+
		"[  INFO]: timer stopped seconds=2\n"+
		"[  WARN]: transient region exhausted requested=4096\n"+
		"[ ERROR]: permanent free is not implemented err=\"arena: operation not supported\"\n",
		buf.String())
}

func TestHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelInfo, false))

	log.Debug("hidden")
	require.Empty(t, buf.String())

	log.Info("shown")
	require.Equal(t, "[  INFO]: shown\n", buf.String())
}

func TestHandlerLevelVar(t *testing.T) {
	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(slog.LevelWarn)
	log := slog.New(NewHandler(&buf, &level, false))

	log.Info("hidden")
	require.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	log.Info("shown")
	require.Equal(t, "[  INFO]: shown\n", buf.String())
}

func TestHandlerAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelInfo, false))

	log.With("cycle", 3).WithGroup("arena").Info("reset", "used", 0, slog.Group("peak", "bytes", 1056))
	require.Equal(t, "[  INFO]: reset cycle=3 arena.used=0 arena.peak.bytes=1056\n", buf.String())

	buf.Reset()
	log.Info("empty", "value", "")
	require.Equal(t, "[  INFO]: empty value=\"\"\n", buf.String())
}

func TestHandlerColor(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelInfo, true))

	log.Info("coloured")
	require.Contains(t, buf.String(), "\x1b[")
	require.Contains(t, buf.String(), "INFO")
	require.Contains(t, buf.String(), "coloured")
}
