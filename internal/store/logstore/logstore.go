// Package logstore is a durable key-value store backed by an append-only
// log of "key,value" lines.
//
// Open replays the log into an in-memory index, last write per key winning.
// Get reads the index only. Set appends to the log first and updates the
// index only after the append succeeded, so the index never holds a value
// that is not on disk.
package logstore

import (
	"fmt"
	"sync"

	"kvlog/internal/logging"
	"kvlog/internal/record"
	"kvlog/internal/store"
	"kvlog/internal/wal"
)

var logger = logging.For("logstore")

// Options configures Open.
type Options struct {
	Replay store.ReplayPolicy
	// Sync fsyncs the log after every Set.
	Sync bool
}

// DefaultOptions returns strict replay with fsync on every write.
func DefaultOptions() Options {
	return Options{Replay: store.Strict, Sync: true}
}

// journal is the part of *wal.Log the store depends on.
type journal interface {
	ReadAll() ([]string, error)
	Append(line string) error
	Close() error
}

// Store is a log-backed key-value store.
type Store struct {
	mu       sync.RWMutex
	path     string
	log      journal
	index    index
	replayed store.ReplayStats
}

// Compile-time check to ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the log at path and rebuilds the index
// from it. Errors opening the file are *wal.OpenError; a malformed line
// under store.Strict yields an error matching record.ErrMalformed.
func Open(path string, opts Options) (*Store, error) {
	l, err := wal.Open(path, wal.Options{Sync: opts.Sync})
	if err != nil {
		return nil, err
	}
	s, err := rehydrate(path, l, opts.Replay)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	return s, nil
}

func rehydrate(path string, j journal, policy store.ReplayPolicy) (*Store, error) {
	lines, err := j.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("rehydrating %s: %w", path, err)
	}
	idx, stats, err := replay(lines, policy, logger.With("path", path))
	if err != nil {
		return nil, fmt.Errorf("rehydrating %s: %w", path, err)
	}
	logger.Info("rehydrated store",
		"path", path, "records", stats.Applied, "keys", len(idx), "skipped", stats.Skipped, "policy", policy)
	return &Store{path: path, log: j, index: idx, replayed: stats}, nil
}

// Get returns the current value for key. It never touches the log.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.index[key]
	return v, ok
}

// Set appends key/value to the log and then updates the index. If the
// append fails the index is left unchanged and the error is returned.
// Keys and values containing ',' or line terminators are rejected with
// record.ErrInvalidField.
func (s *Store) Set(key, value string) error {
	line, err := record.Encode(key, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.log.Append(line); err != nil {
		logger.Error("set not applied", "path", s.path, "key", key, "err", err)
		return err
	}
	s.index.apply(record.Record{Key: key, Value: value})
	return nil
}

// Len returns the number of distinct keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Path returns the log path the store was opened with.
func (s *Store) Path() string { return s.path }

// Replayed reports what happened while the index was rebuilt.
func (s *Store) Replayed() store.ReplayStats { return s.replayed }

// Close releases the log file. The index stays readable; further Sets fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Close()
}
