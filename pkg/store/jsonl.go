package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ShroXd/cascade"
)

// JSONLinesStore writes one JSON object per result and line, keeping the result's key order.
type JSONLinesStore struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
	logger cascade.Logger
}

func NewJSONLinesStore(w io.Writer) *JSONLinesStore {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return &JSONLinesStore{
		w:      w,
		enc:    enc,
		logger: cascade.NewNopLogger(),
	}
}

// OpenJSONLinesFile appends to path, creating it and its directory when missing.
func OpenJSONLinesFile(path string) (*JSONLinesStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	s := NewJSONLinesStore(file)
	s.closer = file
	return s, nil
}

func (s *JSONLinesStore) SetLogger(logger cascade.Logger) {
	s.logger = logger
}

func (s *JSONLinesStore) Store(_ context.Context, result *cascade.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	s.logger.Debug("Stored result", cascade.LogContext{"store": "jsonl", "keys": result.Len()})

	return nil
}

// Close closes the underlying file if the store opened it.
func (s *JSONLinesStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
