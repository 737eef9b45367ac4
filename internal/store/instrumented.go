package store

import (
	"sync/atomic"
	"time"
)

type counters struct {
	gets      atomic.Uint64
	hits      atomic.Uint64
	sets      atomic.Uint64
	setErrors atomic.Uint64

	// cumulative latencies in nanoseconds
	getNs atomic.Uint64
	setNs atomic.Uint64
}

// Instrumented wraps a Store and counts operations and their latency.
type Instrumented struct {
	Store
	c counters
}

// Compile-time check to ensure Instrumented implements Store.
var _ Store = (*Instrumented)(nil)

// NewInstrumented wraps st with counters.
func NewInstrumented(st Store) *Instrumented {
	return &Instrumented{Store: st}
}

func (s *Instrumented) Get(key string) (string, bool) {
	start := time.Now()
	value, found := s.Store.Get(key)
	s.c.getNs.Add(uint64(time.Since(start).Nanoseconds()))
	s.c.gets.Add(1)
	if found {
		s.c.hits.Add(1)
	}
	return value, found
}

func (s *Instrumented) Set(key, value string) error {
	start := time.Now()
	err := s.Store.Set(key, value)
	s.c.setNs.Add(uint64(time.Since(start).Nanoseconds()))
	s.c.sets.Add(1)
	if err != nil {
		s.c.setErrors.Add(1)
	}
	return err
}

// Snapshot returns a point-in-time view of the counters.
func (s *Instrumented) Snapshot() Stats {
	gets := s.c.gets.Load()
	sets := s.c.sets.Load()
	return Stats{
		Keys:          s.Store.Len(),
		Gets:          gets,
		Hits:          s.c.hits.Load(),
		Sets:          sets,
		SetErrors:     s.c.setErrors.Load(),
		GetAvgLatency: avg(s.c.getNs.Load(), gets),
		SetAvgLatency: avg(s.c.setNs.Load(), sets),
	}
}

func avg(totalNs, n uint64) time.Duration {
	if n == 0 {
		return 0
	}
	return time.Duration(totalNs / n)
}

// Stats is a snapshot of an Instrumented store.
type Stats struct {
	Keys          int
	Gets          uint64
	Hits          uint64
	Sets          uint64
	SetErrors     uint64
	GetAvgLatency time.Duration
	SetAvgLatency time.Duration
}
