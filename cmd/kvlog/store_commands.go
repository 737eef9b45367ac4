package main

import (
	"fmt"
	"io"

	"kvlog/internal/config"
	"kvlog/internal/shell"
	"kvlog/internal/store"
)

// replayReporter is implemented by backends that rebuild an index at open.
type replayReporter interface {
	Replayed() store.ReplayStats
}

func registerStoreCommands(reg shell.CommandRegistrar, inst *store.Instrumented, backing store.Store, cfg *config.Config) {
	reg.Register("STATS", shell.Command{
		Help: "show store statistics for this session",
		Handler: func(ctx shell.CommandContext) bool {
			var replayed *store.ReplayStats
			if r, ok := backing.(replayReporter); ok {
				rs := r.Replayed()
				replayed = &rs
			}
			writeStats(ctx.Out, cfg, inst.Snapshot(), replayed)
			return false
		},
	})
}

func writeStats(w io.Writer, cfg *config.Config, s store.Stats, replayed *store.ReplayStats) {
	_, _ = fmt.Fprintf(w, "backend:  %s (%s replay)\n", cfg.Store.Backend, cfg.ReplayPolicy())
	_, _ = fmt.Fprintf(w, "path:     %s\n", cfg.Store.Path)
	_, _ = fmt.Fprintf(w, "keys:     %d\n", s.Keys)
	if replayed != nil {
		_, _ = fmt.Fprintf(w, "replayed: %d records, %d skipped\n", replayed.Applied, replayed.Skipped)
	}
	_, _ = fmt.Fprintf(w, "gets:     %d (%d hits, avg %s)\n", s.Gets, s.Hits, s.GetAvgLatency)
	_, _ = fmt.Fprintf(w, "sets:     %d (%d failed, avg %s)\n", s.Sets, s.SetErrors, s.SetAvgLatency)
}
