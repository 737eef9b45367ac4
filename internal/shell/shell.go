// Package shell is the interactive front end of the store: it reads command
// lines, dispatches them through a CommandRegistry and prints the results.
// It talks to the store only through store.Store.
package shell

import (
	"bufio"
	"errors"
	"io"

	"github.com/google/uuid"
	"golang.org/x/term"

	"kvlog/internal/logging"
	"kvlog/internal/store"
)

var shlog = logging.For("shell")

// LineReader yields one input line per call and io.EOF at the end.
// *term.Terminal satisfies it.
type LineReader interface {
	ReadLine() (string, error)
}

// Shell runs the read-dispatch loop against a store.
type Shell struct {
	store    store.Store
	commands *CommandRegistry
	prompt   string
}

// New creates a shell with the builtin commands registered.
func New(st store.Store, prompt string) *Shell {
	registry := NewCommandRegistry()
	registry.RegisterBuiltins()
	return &Shell{store: st, commands: registry, prompt: prompt}
}

// Commands returns the shell's command registry so callers can add
// commands before Run. The registry is frozen once a loop starts.
func (s *Shell) Commands() CommandRegistrar {
	return s.commands
}

// Prompt returns the prompt shown in terminal mode.
func (s *Shell) Prompt() string { return s.prompt }

// Run reads newline-terminated commands from in until EOF or QUIT, writing
// results to out. No prompt is printed, which suits piped input.
func (s *Shell) Run(in io.Reader, out io.Writer) error {
	return s.loop(&bufferedLines{r: bufio.NewReader(in)}, out)
}

// RunTerminal runs the loop on a terminal with line editing and history.
func (s *Shell) RunTerminal(t *term.Terminal) error {
	t.SetPrompt(s.prompt)
	return s.loop(t, t)
}

func (s *Shell) loop(lines LineReader, out io.Writer) error {
	s.commands.Freeze()
	log := shlog.With("session", uuid.NewString())
	log.Debug("session started")

	n := 0
	for {
		line, err := lines.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("session ended", "commands", n)
				return nil
			}
			return err
		}
		n++
		if s.commands.Dispatch(line, out, s.store) {
			log.Debug("session closed by command", "commands", n)
			return nil
		}
	}
}

// bufferedLines adapts a bufio.Reader to LineReader. A final line without
// a terminator is still returned.
type bufferedLines struct {
	r *bufio.Reader
}

func (b *bufferedLines) ReadLine() (string, error) {
	line, err := b.r.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		return line, nil
	}
	return line, err
}
