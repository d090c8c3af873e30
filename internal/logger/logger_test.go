package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// Init only takes effect once per process, so every test shares the same
// captured output buffer.
var logBuf bytes.Buffer

func setup(t *testing.T) {
	t.Helper()
	Init(Options{Level: "debug", Out: &logBuf})
	logBuf.Reset()
}

func TestPackageLevelHelpers(t *testing.T) {
	setup(t)

	Info("pipeline started")
	Warn("source slow")
	Error("fetch failed", errors.New("connection refused"))
	Debug("cache probe")

	out := logBuf.String()
	for _, want := range []string{
		"pipeline started", "source slow",
		"fetch failed", "connection refused",
		"cache probe",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q\noutput: %s", want, out)
		}
	}
}

func TestWithTagsComponent(t *testing.T) {
	setup(t)

	log := With("dedup")
	log.Info().Msg("index rebuilt")

	if !strings.Contains(logBuf.String(), `"component":"dedup"`) {
		t.Errorf("component tag missing from output: %s", logBuf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{" INFO ", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
