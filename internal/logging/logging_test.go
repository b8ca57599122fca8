package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSetupWritesToFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "nested", fileName)
	closer, err := setup(path)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}

	log.Debug("hidden at info level")
	log.Info("Announcement finished", "clip", "hc9")
	if err := closer(); err != nil {
		t.Fatalf("closer() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "Announcement finished") || !strings.Contains(out, "clip=hc9") {
		t.Errorf("log file = %q, want the info record", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Errorf("log file = %q, debug record should be filtered", out)
	}
}

func TestSetupAppends(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), fileName)
	for _, msg := range []string{"first", "second"} {
		closer, err := setup(path)
		if err != nil {
			t.Fatalf("setup() error = %v", err)
		}
		log.Info(msg)
		_ = closer()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("log file has %d lines, want 2", n)
	}
}

func TestPath(t *testing.T) {
	path, err := Path()
	if err != nil {
		t.Skipf("no log directory: %v", err)
	}
	if filepath.Base(path) != fileName {
		t.Errorf("Path() = %q, want file %q", path, fileName)
	}
}
