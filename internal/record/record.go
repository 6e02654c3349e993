// Package record captures raw wire traffic to disk for offline diagnostics.
// It is entirely optional: without the capture directory env var every hook
// is a no-op, and capture failures never surface to the transport.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantrail/gatewire/internal/protocol"
)

// EnvCaptureDir enables capture when set to a writable directory path.
const EnvCaptureDir = "GATEWIRE_CAPTURE_DIR"

// Recorder mirrors the bus hook contract.
type Recorder interface {
	Request(payload []byte)
	Response(payload []byte)
	Close() error
}

// NewFromEnv returns a file recorder when EnvCaptureDir is set, otherwise a
// no-op recorder.
func NewFromEnv() Recorder {
	dir := os.Getenv(EnvCaptureDir)
	if dir == "" {
		return Nop{}
	}
	rec, err := NewFileRecorder(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("record: capture disabled")
		return Nop{}
	}
	return rec
}

// Nop discards everything.
type Nop struct{}

func (Nop) Request([]byte)  {}
func (Nop) Response([]byte) {}
func (Nop) Close() error    { return nil }

// FileRecorder appends raw frames to per-session out/in logs. Each frame is
// written with its length prefix so captures replay through the same codec.
type FileRecorder struct {
	logg zerolog.Logger

	mu    sync.Mutex
	out   *os.File
	in    *os.File
	index *os.File
}

func NewFileRecorder(dir string) (*FileRecorder, error) {
	session := filepath.Join(dir, time.Now().UTC().Format("20060102T150405")+"-"+uuid.NewString()[:8])
	if err := os.MkdirAll(session, 0o755); err != nil {
		return nil, fmt.Errorf("record: create session dir: %w", err)
	}
	out, err := os.Create(filepath.Join(session, "out.log"))
	if err != nil {
		return nil, fmt.Errorf("record: create out log: %w", err)
	}
	in, err := os.Create(filepath.Join(session, "in.log"))
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("record: create in log: %w", err)
	}
	index, err := os.Create(filepath.Join(session, "index.log"))
	if err != nil {
		out.Close()
		in.Close()
		return nil, fmt.Errorf("record: create index log: %w", err)
	}
	logg := log.With().Str("component", "record").Str("session", session).Logger()
	logg.Info().Msg("wire capture enabled")
	return &FileRecorder{logg: logg, out: out, in: in, index: index}, nil
}

func (r *FileRecorder) Request(payload []byte) {
	r.append(r.out, "out", payload)
}

func (r *FileRecorder) Response(payload []byte) {
	r.append(r.in, "in", payload)
}

func (r *FileRecorder) append(f *os.File, direction string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := f.Write(protocol.Frame(payload)); err != nil {
		r.logg.Warn().Err(err).Msg("capture write failed")
		return
	}
	line := fmt.Sprintf("%s %s %d\n", time.Now().UTC().Format(time.RFC3339Nano), direction, len(payload))
	if _, err := r.index.WriteString(line); err != nil {
		r.logg.Warn().Err(err).Msg("capture index write failed")
	}
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	errOut := r.out.Close()
	errIn := r.in.Close()
	if err := r.index.Close(); err != nil && errOut == nil && errIn == nil {
		return err
	}
	if errOut != nil {
		return errOut
	}
	return errIn
}
