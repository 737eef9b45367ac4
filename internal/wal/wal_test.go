package wal

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kvlog/internal/logging"
)

func tempLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv_log.txt")
	l, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestOpenCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "kv_log.txt")
	l, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("new log size = %d, want 0", info.Size())
	}
	lines, err := l.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Fatalf("ReadAll on empty log = %v, want none", lines)
	}
}

func TestOpenPreservesExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv_log.txt")
	if err := os.WriteFile(path, []byte("x,10\nx,20\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		l, err := Open(path, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		_ = l.Close()
	}
	if got := readFile(t, path); got != "x,10\nx,20\n" {
		t.Fatalf("content after reopen = %q", got)
	}
}

func TestOpenDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, DefaultOptions())
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("Open(dir): got %v, want *OpenError", err)
	}
	if oe.Path != dir {
		t.Errorf("OpenError.Path = %q, want %q", oe.Path, dir)
	}
}

func TestOpenUnderRegularFileFails(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(parent, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(filepath.Join(parent, "kv_log.txt"), DefaultOptions())
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("got %v, want *OpenError", err)
	}
}

func TestAppendAndReadAll(t *testing.T) {
	l, path := tempLog(t)
	for _, line := range []string{"a,1", "b,2", "a,3"} {
		if err := l.Append(line); err != nil {
			t.Fatalf("Append(%q): %v", line, err)
		}
	}
	if got := readFile(t, path); got != "a,1\nb,2\na,3\n" {
		t.Fatalf("file = %q", got)
	}
	if l.Size() != int64(len("a,1\nb,2\na,3\n")) {
		t.Errorf("Size = %d", l.Size())
	}

	lines, err := l.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a,1", "b,2", "a,3"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("ReadAll = %q, want %q", lines, want)
	}
}

func TestAppendOnlyGrowth(t *testing.T) {
	l, path := tempLog(t)
	var prev string
	for i, line := range []string{"k,1", "k,2", "other,x", "k,3"} {
		if err := l.Append(line); err != nil {
			t.Fatal(err)
		}
		cur := readFile(t, path)
		if len(cur) < len(prev) {
			t.Fatalf("append %d: file shrank from %d to %d bytes", i, len(prev), len(cur))
		}
		if !strings.HasPrefix(cur, prev) {
			t.Fatalf("append %d: earlier content modified: %q -> %q", i, prev, cur)
		}
		prev = cur
	}
}

func TestAppendWithoutSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv_log.txt")
	l, err := Open(path, Options{Sync: false})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if err := l.Append("k,v"); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "k,v\n" {
		t.Fatalf("file = %q", got)
	}
}

func TestAppendRejectsEmbeddedNewline(t *testing.T) {
	l, path := tempLog(t)
	if err := l.Append("a,1\nb,2"); !errors.Is(err, ErrLineTerminator) {
		t.Fatalf("got %v, want ErrLineTerminator", err)
	}
	if got := readFile(t, path); got != "" {
		t.Fatalf("nothing should be written, got %q", got)
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	l, _ := tempLog(t)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	err := l.Append("a,1")
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("got %v, want *WriteError", err)
	}
	if !errors.Is(err, os.ErrClosed) {
		t.Errorf("WriteError should wrap os.ErrClosed: %v", err)
	}
	if _, err := l.ReadAll(); err == nil {
		t.Error("ReadAll after Close should fail")
	}
}

func TestAppendWriteFailureRepairsNextLine(t *testing.T) {
	c := logging.CaptureForTest()
	defer c.Restore()

	l, path := tempLog(t)
	if err := l.Append("a,1"); err != nil {
		t.Fatal(err)
	}

	// Swap in a read-only handle so the next write fails.
	good := l.file
	ro, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	l.file = ro
	err = l.Append("b,2")
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("got %v, want *WriteError", err)
	}
	if !c.Has(slog.LevelError, "append failed") {
		t.Error("expected an error log for the failed append")
	}
	_ = ro.Close()

	l.file = good
	if err := l.Append("c,3"); err != nil {
		t.Fatal(err)
	}
	// the failed append leaves a blank separator line rather than merging
	if got := readFile(t, path); got != "a,1\n\nc,3\n" {
		t.Fatalf("file = %q", got)
	}
}

func TestTornTailIsTerminatedBeforeNextAppend(t *testing.T) {
	c := logging.CaptureForTest()
	defer c.Restore()

	path := filepath.Join(t.TempDir(), "kv_log.txt")
	if err := os.WriteFile(path, []byte("a,1\nb,"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if !c.Has(slog.LevelWarn, "unterminated") {
		t.Error("expected a warning about the unterminated tail")
	}

	lines, err := l.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[1] != "b," {
		t.Fatalf("ReadAll = %q", lines)
	}

	if err := l.Append("c,3"); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "a,1\nb,\nc,3\n" {
		t.Fatalf("file = %q", got)
	}
}

func TestReadAllStripsCarriageReturn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv_log.txt")
	if err := os.WriteFile(path, []byte("x,10\r\ny,5\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	lines, err := l.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "x,10" || lines[1] != "y,5" {
		t.Fatalf("ReadAll = %q", lines)
	}
}
