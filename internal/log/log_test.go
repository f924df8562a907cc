package log_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/aircontroller/padbridge/internal/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace":   log.LevelTrace,
		"DEBUG":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, expected := range cases {
		assert.Equal(t, expected, log.ParseLevel(in), in)
	}
}

func TestHandlerSplitsByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(log.NewHandler(&stdout, &stderr, slog.LevelDebug))

	logger.Debug("debug line")
	logger.Info("info line", "k", "v")
	logger.Error("error line")
	logger.Log(t.Context(), log.LevelTrace, "trace line")

	assert.Contains(t, stdout.String(), "debug line")
	assert.Contains(t, stdout.String(), "k=v")
	assert.NotContains(t, stdout.String(), "error line")
	assert.NotContains(t, stdout.String(), "trace line")
	assert.Equal(t, 1, strings.Count(stderr.String(), "\n"))
	assert.Contains(t, stderr.String(), "error line")

	stdout.Reset()
	logger.With("session", "ABC123").Info("joined")
	assert.Contains(t, stdout.String(), "session=ABC123")
}

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	raw := log.NewRaw(&buf)
	raw.Log(true, []byte(`42["bridge:join-session",{"code":"ABC123"}]`))
	raw.Log(false, []byte("2"))
	raw.Log(false, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `-> 43 "42[\"bridge:join-session\"`)
	assert.Contains(t, lines[1], `<- 1 "2"`)

	log.NewRaw(nil).Log(true, []byte("x"))
}
