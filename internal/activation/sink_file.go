package activation

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// WriterSink writes one JSON event per line to an io.Writer.
type WriterSink struct {
	name string
	mu   sync.Mutex
	w    *bufio.Writer
	c    io.Closer
}

// NewStdoutSink writes events to standard output.
func NewStdoutSink() *WriterSink {
	return &WriterSink{name: "stdout", w: bufio.NewWriter(os.Stdout)}
}

// NewFileSink appends events to a JSONL file, creating parent dirs.
func NewFileSink(path string) (*WriterSink, error) {
	if path == "" {
		return nil, errors.New("file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return &WriterSink{name: "file_jsonl:" + path, w: bufio.NewWriter(f), c: f}, nil
}

func (s *WriterSink) Name() string { return s.name }

func (s *WriterSink) Deliver(_ context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return s.w.Flush()
}

func (s *WriterSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.w.Flush()
	if s.c != nil {
		err = errors.Join(err, s.c.Close())
		s.c = nil
	}
	return err
}
