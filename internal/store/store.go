package store

import (
	"fmt"
	"strings"
)

// Store is a durable string key-value map. Get is served from memory and
// never fails; Set is acknowledged only after the write is durable.
// Implementations live in subpackages (logstore, bolt).
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Len() int
	Close() error
}

// ReplayPolicy decides what happens to undecodable records while a store
// rebuilds its index at open.
type ReplayPolicy int

const (
	// Strict aborts the open on the first undecodable record.
	Strict ReplayPolicy = iota
	// Lenient skips undecodable records with a warning.
	Lenient
)

func (p ReplayPolicy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	default:
		return fmt.Sprintf("ReplayPolicy(%d)", int(p))
	}
}

// ParseReplayPolicy accepts "strict" or "lenient" in any case. The empty
// string selects Strict.
func ParseReplayPolicy(s string) (ReplayPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	default:
		return Strict, fmt.Errorf("unknown replay policy %q (want strict or lenient)", s)
	}
}

// ReplayStats describes the outcome of an index rebuild.
type ReplayStats struct {
	Applied int // records folded into the index
	Skipped int // undecodable records ignored under Lenient
}
