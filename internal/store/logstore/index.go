package logstore

import (
	"fmt"
	"log/slog"

	"kvlog/internal/record"
	"kvlog/internal/store"
)

// index is the in-memory view of the log: the last value written per key.
type index map[string]string

func (ix index) apply(rec record.Record) {
	ix[rec.Key] = rec.Value
}

// replay folds lines into a fresh index in file order. Blank lines are not
// records. Undecodable lines abort under store.Strict and are skipped under
// store.Lenient. Line numbers in errors and logs are 1-based.
func replay(lines []string, policy store.ReplayPolicy, log *slog.Logger) (index, store.ReplayStats, error) {
	ix := make(index, len(lines))
	var stats store.ReplayStats
	for i, line := range lines {
		if record.IsBlank(line) {
			continue
		}
		rec, err := record.Decode(line)
		if err != nil {
			if policy == store.Lenient {
				log.Warn("skipping malformed record", "line", i+1, "content", line)
				stats.Skipped++
				continue
			}
			return nil, stats, fmt.Errorf("line %d: %w", i+1, err)
		}
		ix.apply(rec)
		stats.Applied++
	}
	return ix, stats, nil
}
