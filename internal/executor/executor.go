package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every command that does not set its own timeout.
const DefaultTimeout = 30 * time.Second

var (
	ErrTimeout = bridgeErrors.New(bridgeErrors.KindTransient, "command timed out")
	ErrLaunch  = bridgeErrors.New(bridgeErrors.KindDegraded, "command could not be started")
)

// Command is an argument vector. Values are never passed through a shell.
type Command struct {
	Name    string
	Args    []string
	Stdin   string
	Timeout time.Duration
}

func New(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

func (c Command) WithTimeout(d time.Duration) Command {
	c.Timeout = d
	return c
}

func (c Command) WithStdin(in string) Command {
	c.Stdin = in
	return c
}

// Argv returns the full argument vector including the program name.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String is for logs only.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

type Options struct {
	CaptureOutput bool
}

// Result describes one finished (or never started) command.
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	LaunchErr error
	TimedOut  bool
}

func (r Result) Success() bool {
	return r.LaunchErr == nil && !r.TimedOut && r.ExitCode == 0
}

// Err classifies the result. A non-zero exit is an ordinary error, a launch
// failure wraps ErrLaunch and an expired deadline wraps ErrTimeout.
func (r Result) Err() error {
	switch {
	case r.LaunchErr != nil:
		return bridgeErrors.Wrap(ErrLaunch, bridgeErrors.KindDegraded, r.LaunchErr.Error())
	case r.TimedOut:
		return ErrTimeout
	case r.ExitCode != 0:
		if msg := strings.TrimSpace(r.Stderr); msg != "" {
			return fmt.Errorf("exit status %d: %s", r.ExitCode, msg)
		}
		return fmt.Errorf("exit status %d", r.ExitCode)
	}
	return nil
}

// Runner runs external commands. It never fails on a non-zero exit; callers
// inspect the Result.
type Runner interface {
	Run(ctx context.Context, cmd Command, opts Options) Result
	LookPath(name string) (string, bool)
}

// Exec runs commands with os/exec.
type Exec struct {
	DefaultTimeout time.Duration
}

func NewExec() *Exec {
	return &Exec{DefaultTimeout: DefaultTimeout}
}

func (e *Exec) LookPath(name string) (string, bool) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return p, true
}

func (e *Exec) Run(ctx context.Context, cmd Command, opts Options) Result {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = e.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	// Without WaitDelay a child that keeps our pipes open would stall Wait
	// past the deadline.
	c.WaitDelay = time.Second
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	if opts.CaptureOutput {
		c.Stdout = &stdout
		c.Stderr = &stderr
	} else {
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
	}

	log.Trace().Str("cmd", cmd.String()).Msg("running command")

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res
	}

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		log.Warn().Str("cmd", cmd.String()).Dur("timeout", timeout).Msg("command timed out")
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res
	}

	res.ExitCode = -1
	res.LaunchErr = err
	return res
}
