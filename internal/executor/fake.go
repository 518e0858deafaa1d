package executor

import (
	"context"
	"strings"
	"sync"
)

// Fake is a scripted Runner that records every command it is asked to run.
// Results are matched by the joined argument vector; anything unscripted
// exits with DefaultExit.
type Fake struct {
	DefaultExit int
	Results     map[string]Result
	// Paths lists the program names LookPath reports as installed.
	Paths map[string]bool
	// OnRun, when set, is called after a command is recorded and may
	// replace the result.
	OnRun func(cmd Command) (Result, bool)

	mu       sync.Mutex
	commands []Command
}

func NewFake() *Fake {
	return &Fake{
		Results: make(map[string]Result),
		Paths:   make(map[string]bool),
	}
}

// On scripts the result for an exact command line.
func (f *Fake) On(cmdline string, res Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[cmdline] = res
	return f
}

func (f *Fake) Run(_ context.Context, cmd Command, _ Options) Result {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	res, ok := f.Results[cmd.String()]
	onRun := f.OnRun
	f.mu.Unlock()

	if onRun != nil {
		if r, handled := onRun(cmd); handled {
			return r
		}
	}
	if ok {
		return res
	}
	return Result{ExitCode: f.DefaultExit}
}

func (f *Fake) LookPath(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Paths[name] {
		return "/usr/sbin/" + name, true
	}
	return "", false
}

// Commands returns every recorded command line in order.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	for i, c := range f.commands {
		out[i] = c.String()
	}
	return out
}

// Recorded returns the recorded commands themselves.
func (f *Fake) Recorded() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.commands...)
}

// CommandsWithPrefix filters Commands by prefix.
func (f *Fake) CommandsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.Commands() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}
