package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"tabaudit/internal/core/port"
)

// fileEntry is the NDJSON-serializable form of a check event.
type fileEntry struct {
	Timestamp  string  `json:"ts"`
	RunID      string  `json:"run_id"`
	Column     string  `json:"column"`
	Check      string  `json:"check"`
	DurationMS int64   `json:"duration_ms"`
	Error      *string `json:"error"`
}

// FileSink writes check events as NDJSON (one JSON object per line) to a file.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileSink opens (or creates) the file at path for append-only writing.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileSink{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

func (s *FileSink) Record(_ context.Context, event port.CheckEvent) {
	fe := fileEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RunID:      event.RunID,
		Column:     event.Column,
		Check:      event.Check,
		DurationMS: event.DurationMS,
	}
	if event.Err != nil {
		msg := event.Err.Error()
		fe.Error = &msg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(fe) // best-effort; don't fail the audit for trail I/O
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// NoopSink discards all check events.
type NoopSink struct{}

func (NoopSink) Record(context.Context, port.CheckEvent) {}
func (NoopSink) Close() error                            { return nil }
