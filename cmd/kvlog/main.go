package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"kvlog/internal/config"
	"kvlog/internal/logging"
	"kvlog/internal/shell"
	"kvlog/internal/store"
	boltstore "kvlog/internal/store/bolt"
	"kvlog/internal/store/logstore"
)

func main() {
	configPath := flag.String("config", "", "path to config file (.toml, .yaml or .yml)")
	backend := flag.String("backend", "", "storage backend: log or bolt (overrides config)")
	replay := flag.String("replay", "", "malformed record policy: strict or lenient (overrides config)")
	noFsync := flag.Bool("no-fsync", false, "skip fsync after each write (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() > 1 {
		usage()
		os.Exit(2)
	}

	// Load config (file, then environment)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// CLI flags override config file values
	if flag.NArg() == 1 {
		cfg.Store.Path = flag.Arg(0)
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *replay != "" {
		cfg.Store.Replay = *replay
	}
	if *noFsync {
		cfg.Store.Fsync = false
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	cfg.Store.Path = config.ExpandHome(cfg.Store.Path)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	// Without a store there is nothing useful to do
	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	inst := store.NewInstrumented(st)
	sh := shell.New(inst, cfg.Shell.Prompt)
	registerStoreCommands(sh.Commands(), inst, st, cfg)

	runErr := runShell(sh, inst, cfg)
	if err := st.Close(); err != nil {
		log.Printf("closing store: %v", err)
	}
	if runErr != nil {
		log.Fatalf("shell: %v", runErr)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendBolt:
		s, err := boltstore.Open(cfg.Store.Path, cfg.ReplayPolicy())
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := logstore.Open(cfg.Store.Path, logstore.Options{
			Replay: cfg.ReplayPolicy(),
			Sync:   cfg.Store.Fsync,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// readWriter combines separate read and write halves into an io.ReadWriter.
type readWriter struct {
	io.Reader
	io.Writer
}

// runShell uses a line-editing terminal when both stdin and stdout are
// ttys, and plain line reading otherwise (pipes, files, tests).
func runShell(sh *shell.Shell, st store.Store, cfg *config.Config) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return sh.Run(os.Stdin, os.Stdout)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return sh.Run(os.Stdin, os.Stdout)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	terminal := term.NewTerminal(readWriter{os.Stdin, os.Stdout}, sh.Prompt())
	_, _ = fmt.Fprintf(terminal, "kvlog %s store at %s (%d keys)\n", cfg.Store.Backend, cfg.Store.Path, st.Len())
	_, _ = fmt.Fprintln(terminal, "Type HELP for commands.")
	return sh.RunTerminal(terminal)
}

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintln(out, "Usage: kvlog [flags] [path]")
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintln(out, "Opens the store at path (default ./kv_log.txt) and reads commands from stdin:")
	_, _ = fmt.Fprintln(out, "  GET <key>")
	_, _ = fmt.Fprintln(out, "  SET <key> <value>")
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintln(out, "Environment variables:")
	_, _ = fmt.Fprintln(out, "  KVLOG_PATH, KVLOG_BACKEND, KVLOG_REPLAY, KVLOG_FSYNC, KVLOG_LOG_LEVEL, KVLOG_LOG_FORMAT")
}
