package record

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantrail/gatewire/internal/protocol"
	"github.com/quantrail/gatewire/internal/testutil/testlog"
)

func TestNewFromEnvDisabledByDefault(t *testing.T) {
	testlog.Start(t)
	t.Setenv(EnvCaptureDir, "")
	if _, ok := NewFromEnv().(Nop); !ok {
		t.Fatalf("expected no-op recorder without capture dir")
	}
}

func TestNewFromEnvEnablesFileCapture(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	t.Setenv(EnvCaptureDir, dir)
	rec := NewFromEnv()
	if _, ok := rec.(*FileRecorder); !ok {
		t.Fatalf("expected file recorder, got %T", rec)
	}
	rec.Close()
}

func TestFileRecorderCapturesReplayableFrames(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	rec, err := NewFileRecorder(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	req := []byte("49\x001\x00")
	resp := []byte("49\x001\x001709994600\x00")
	rec.Request(req)
	rec.Response(resp)
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sessions, err := os.ReadDir(dir)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("sessions=%d err=%v", len(sessions), err)
	}
	session := filepath.Join(dir, sessions[0].Name())

	check := func(name string, want []byte) {
		raw, err := os.ReadFile(filepath.Join(session, name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		// captures keep the length prefix so they replay through ReadFrame
		got, err := protocol.ReadFrame(bytes.NewReader(raw), protocol.DefaultLimits())
		if err != nil {
			t.Fatalf("%s: replay: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%s: got %q, want %q", name, got, want)
		}
	}
	check("out.log", req)
	check("in.log", resp)

	index, err := os.ReadFile(filepath.Join(session, "index.log"))
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(index), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("index lines: %d", len(lines))
	}
	if !bytes.Contains(lines[0], []byte(" out ")) || !bytes.Contains(lines[1], []byte(" in ")) {
		t.Fatalf("index order: %q", index)
	}
}

func TestNewFromEnvFallsBackOnUnwritableDir(t *testing.T) {
	testlog.Start(t)
	blocker := filepath.Join(t.TempDir(), "missing")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvCaptureDir, filepath.Join(blocker, "bad"))
	if _, ok := NewFromEnv().(Nop); !ok {
		t.Fatalf("unwritable dir should fall back to no-op")
	}
}
