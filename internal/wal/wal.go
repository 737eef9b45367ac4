// Package wal implements the append-only log file that backs the store.
//
// A Log is opened in a mode that creates the file when it is missing and
// never truncates it. Every Append writes one terminated line at the end of
// the file and, unless disabled, fsyncs before returning. Bytes already in
// the file are never rewritten.
package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"kvlog/internal/logging"
)

var logger = logging.For("wal")

// ErrLineTerminator is returned by Append for a line that embeds a newline.
var ErrLineTerminator = errors.New("line contains a line terminator")

// OpenError reports that the log file could not be created or opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string { return fmt.Sprintf("opening log %s: %v", e.Path, e.Err) }
func (e *OpenError) Unwrap() error { return e.Err }

// WriteError reports a failed append. The file may end in a partial line;
// the next successful Append starts on a fresh line.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("appending to log %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Options tunes a Log.
type Options struct {
	// Sync fsyncs the file after every append. When false, Append returns
	// once the kernel accepted the write, which survives process exit but
	// not power loss.
	Sync bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{Sync: true}
}

// Log is an open append-only log file.
type Log struct {
	path string
	file *os.File
	sync bool
	size int64

	// set when the file does not end in '\n', e.g. after a torn write
	needsNewline bool
}

// Open opens the log at path for reading and appending, creating the file
// (and its parent directory) if it does not exist.
func Open(path string, opts Options) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &OpenError{Path: path, Err: err}
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, &OpenError{Path: path, Err: fmt.Errorf("not a regular file (mode %s)", info.Mode())}
	}

	l := &Log{path: path, file: f, sync: opts.Sync, size: info.Size()}
	if l.size > 0 {
		var last [1]byte
		if _, err := f.ReadAt(last[:], l.size-1); err != nil {
			_ = f.Close()
			return nil, &OpenError{Path: path, Err: err}
		}
		if last[0] != '\n' {
			logger.Warn("log ends with an unterminated line", "path", path, "size", l.size)
			l.needsNewline = true
		}
	}
	return l, nil
}

// Path returns the file path the log was opened with.
func (l *Log) Path() string { return l.path }

// Size returns the number of bytes in the file as seen by this Log.
func (l *Log) Size() int64 { return l.size }

// ReadAll returns every line in file order, without terminators. A line that
// ends in "\r\n" is returned without the "\r".
func (l *Log) ReadAll() ([]string, error) {
	if l.file == nil {
		return nil, fmt.Errorf("reading log %s: %w", l.path, os.ErrClosed)
	}
	r := bufio.NewReader(io.NewSectionReader(l.file, 0, math.MaxInt64))
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading log %s: %w", l.path, err)
		}
	}
}

// Append writes line plus a terminator at the end of the file. It returns
// only after the write reached the kernel, and the disk when Sync is set.
func (l *Log) Append(line string) error {
	if strings.ContainsAny(line, "\n") {
		return ErrLineTerminator
	}
	if l.file == nil {
		return &WriteError{Path: l.path, Err: os.ErrClosed}
	}

	buf := make([]byte, 0, len(line)+2)
	if l.needsNewline {
		buf = append(buf, '\n')
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')

	n, err := l.file.Write(buf)
	l.size += int64(n)
	if err != nil {
		l.needsNewline = true
		logger.Error("append failed", "path", l.path, "written", n, "want", len(buf), "err", err)
		return &WriteError{Path: l.path, Err: err}
	}
	l.needsNewline = false
	if l.sync {
		if err := l.file.Sync(); err != nil {
			logger.Error("fsync failed", "path", l.path, "err", err)
			return &WriteError{Path: l.path, Err: fmt.Errorf("sync: %w", err)}
		}
	}
	return nil
}

// Close releases the file handle. Appends after Close fail with a
// WriteError.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
