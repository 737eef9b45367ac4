package shell

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"kvlog/internal/store"
)

// CommandContext holds the state available to command handlers.
type CommandContext struct {
	Out   io.Writer
	Store store.Store
	Args  []string
}

// CommandHandler runs a command. Returns true if the shell should exit.
type CommandHandler func(ctx CommandContext) bool

// AnyArgs disables the argument count check for a command.
const AnyArgs = -1

// Command describes a registered shell command.
type Command struct {
	Usage   string // e.g. "SET <key> <value>"; defaults to the command name
	Help    string
	Args    int // exact argument count, or AnyArgs
	Handler CommandHandler
}

// CommandRegistrar is the interface for registering commands before the shell runs.
type CommandRegistrar interface {
	Register(name string, cmd Command)
	RegisterBuiltins()
}

// CommandRegistry maps command names to handlers and produces help text.
// Names are case-insensitive. Once frozen (via Freeze), no new commands
// can be registered.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]Command
	order    []string // insertion order for stable help output
	frozen   bool
}

// NewCommandRegistry creates an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]Command),
	}
}

// Register adds a command to the registry. Registering the same name twice
// overwrites the previous entry. Panics if cmd.Handler is nil or if the
// registry is frozen.
func (r *CommandRegistry) Register(name string, cmd Command) {
	if cmd.Handler == nil {
		panic("shell: Register called with nil handler for " + name)
	}
	name = strings.ToUpper(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("shell: Register called on frozen registry for " + name)
	}
	if _, exists := r.commands[name]; !exists {
		r.order = append(r.order, name)
	}
	r.commands[name] = cmd
}

// Freeze prevents further command registration.
func (r *CommandRegistry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Dispatch parses a whitespace-delimited command line and calls the
// matching handler. Unknown commands and wrong argument counts are reported
// on out. Returns true if the shell should exit.
func (r *CommandRegistry) Dispatch(line string, out io.Writer, st store.Store) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	name := strings.ToUpper(parts[0])
	args := parts[1:]

	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		_, _ = fmt.Fprintf(out, "Unknown command: %s (try HELP)\n", parts[0])
		return false
	}
	if cmd.Args != AnyArgs && len(args) != cmd.Args {
		_, _ = fmt.Fprintf(out, "Usage: %s\n", usage(name, cmd))
		return false
	}

	return cmd.Handler(CommandContext{
		Out:   out,
		Store: st,
		Args:  args,
	})
}

// HelpText returns a formatted help string listing all registered commands
// in registration order.
func (r *CommandRegistry) HelpText() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range r.order {
		cmd := r.commands[name]
		_, _ = fmt.Fprintf(&b, "  %-20s %s\n", usage(name, cmd), cmd.Help)
	}
	return b.String()
}

func usage(name string, cmd Command) string {
	if cmd.Usage != "" {
		return cmd.Usage
	}
	return name
}

// RegisterBuiltins registers GET, SET, LEN, HELP, QUIT and EXIT.
func (r *CommandRegistry) RegisterBuiltins() {
	r.Register("GET", Command{
		Usage: "GET <key>",
		Help:  "print the value stored under key",
		Args:  1,
		Handler: func(ctx CommandContext) bool {
			value, ok := ctx.Store.Get(ctx.Args[0])
			if !ok {
				_, _ = fmt.Fprintln(ctx.Out, "(not found)")
				return false
			}
			_, _ = fmt.Fprintln(ctx.Out, value)
			return false
		},
	})

	r.Register("SET", Command{
		Usage: "SET <key> <value>",
		Help:  "store value under key",
		Args:  2,
		Handler: func(ctx CommandContext) bool {
			if err := ctx.Store.Set(ctx.Args[0], ctx.Args[1]); err != nil {
				_, _ = fmt.Fprintf(ctx.Out, "Error: %v\n", err)
				return false
			}
			_, _ = fmt.Fprintln(ctx.Out, "OK")
			return false
		},
	})

	r.Register("LEN", Command{
		Help: "print the number of keys",
		Handler: func(ctx CommandContext) bool {
			_, _ = fmt.Fprintln(ctx.Out, ctx.Store.Len())
			return false
		},
	})

	r.Register("HELP", Command{
		Help: "show this help",
		Args: AnyArgs,
		Handler: func(ctx CommandContext) bool {
			_, _ = fmt.Fprint(ctx.Out, r.HelpText())
			return false
		},
	})

	quit := Command{
		Help: "leave the shell",
		Handler: func(ctx CommandContext) bool {
			_, _ = fmt.Fprintln(ctx.Out, "Goodbye.")
			return true
		},
	}
	r.Register("QUIT", quit)
	r.Register("EXIT", quit)
}
