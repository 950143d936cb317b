package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLevelFromEnv(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want log.Level
	}{
		{map[string]string{}, log.WarnLevel},
		{map[string]string{EnvDebug: "true"}, log.DebugLevel},
		{map[string]string{EnvDebug: "nope"}, log.WarnLevel},
		{map[string]string{EnvLevel: "info", EnvDebug: "1"}, log.InfoLevel},
		{map[string]string{EnvLevel: "loud"}, log.WarnLevel},
	}
	for _, tc := range cases {
		if got := levelFromEnv(envOf(tc.env)); got != tc.want {
			t.Fatalf("levelFromEnv(%v) = %v, want %v", tc.env, got, tc.want)
		}
	}
}

func TestTUIProfileWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := New(ProfileTUI, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.SetLevel(log.InfoLevel)
	logger.WithField("task_id", "t1").Info("moved")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, TUILogFile))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "task_id=t1") {
		t.Fatalf("unexpected log contents %q", data)
	}
}

func TestServerProfileUsesJSON(t *testing.T) {
	logger, _, err := New(ProfileServer, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := logger.Formatter.(*log.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", logger.Formatter)
	}
}
