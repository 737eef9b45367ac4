package bolt

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"kvlog/internal/logging"
	"kvlog/internal/record"
	"kvlog/internal/store"
)

var (
	bucket = []byte("kv")
	logger = logging.For("bolt")
)

// lockTimeout bounds how long Open waits for another process holding the db.
const lockTimeout = time.Second

// Store implements store.Store on a bbolt file. Like the log store it keeps
// the full key space in memory; every Set commits a bbolt transaction
// before the in-memory index changes.
type Store struct {
	db       *bolt.DB
	mu       sync.RWMutex
	index    map[string]string
	replayed store.ReplayStats
}

// Compile-time check to ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Open creates or opens a bbolt database at path and loads it into memory.
// Entries that fail to decode abort the open under store.Strict and are
// skipped under store.Lenient.
func Open(path string, policy store.ReplayPolicy) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("opening bolt db: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	s := &Store{db: db, index: make(map[string]string)}
	if err := s.load(policy); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("loading bolt db %s: %w", path, err)
	}
	logger.Info("loaded store", "path", path, "keys", len(s.index), "skipped", s.replayed.Skipped, "policy", policy)
	return s, nil
}

func (s *Store) load(policy store.ReplayPolicy) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			value, err := decodeValue(v)
			if err != nil {
				if policy == store.Lenient {
					logger.Warn("skipping corrupt entry", "key", string(k), "err", err)
					s.replayed.Skipped++
					return nil
				}
				return fmt.Errorf("entry %q: %w", k, err)
			}
			s.index[string(k)] = value
			s.replayed.Applied++
			return nil
		})
	})
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.index[key]
	return v, ok
}

// Set commits key/value to the database, then updates the index. The same
// field rules as the log store apply so data can move between backends.
func (s *Store) Set(key, value string) error {
	if err := record.Validate(key, value); err != nil {
		return err
	}
	data, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		logger.Error("set not applied", "key", key, "err", err)
		return err
	}
	s.index[key] = value
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Replayed reports how many entries were loaded and skipped at open.
func (s *Store) Replayed() store.ReplayStats { return s.replayed }

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeValue(v string) ([]byte, error) {
	return proto.Marshal(wrapperspb.String(v))
}

func decodeValue(data []byte) (string, error) {
	var w wrapperspb.StringValue
	if err := proto.Unmarshal(data, &w); err != nil {
		return "", err
	}
	return w.GetValue(), nil
}
