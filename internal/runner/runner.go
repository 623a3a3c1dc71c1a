// Package runner executes stored shell commands outside the UI loop.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"sync"

	"github.com/atomicstack/shell-script-manager/internal/logging"
	"github.com/atomicstack/shell-script-manager/internal/logging/events"
)

// Mode selects where commands run.
type Mode string

const (
	// ModeShell runs the command in a login shell and logs its output.
	ModeShell Mode = "shell"
	// ModeTmux opens the command in a new tmux window.
	ModeTmux Mode = "tmux"
)

const defaultShell = "/bin/zsh"

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeShell:
		return ModeShell, nil
	case ModeTmux:
		return ModeTmux, nil
	default:
		return "", fmt.Errorf("unknown runner %q (want shell or tmux)", s)
	}
}

// ProcessExecutionError reports a command that could not be started or that
// exited unsuccessfully.
type ProcessExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %q failed (exit %d): %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("command %q failed (exit %d): %v", e.Command, e.ExitCode, e.Err)
}

func (e *ProcessExecutionError) Unwrap() error {
	return e.Err
}

// Config configures a Runner.
type Config struct {
	Mode       Mode
	TmuxSocket string
	// Shell overrides shell detection when set.
	Shell string
	// Getenv defaults to os.LookupEnv.
	Getenv func(string) (string, bool)
	// PasswdPath defaults to /etc/passwd.
	PasswdPath string
	// Stdout and Stderr, when set, also receive the command's output.
	Stdout io.Writer
	Stderr io.Writer
}

// Runner launches commands. Run never blocks the caller.
type Runner struct {
	cfg Config
	wg  sync.WaitGroup
}

func New(cfg Config) *Runner {
	if cfg.Mode == "" {
		cfg.Mode = ModeShell
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.LookupEnv
	}
	if cfg.PasswdPath == "" {
		cfg.PasswdPath = "/etc/passwd"
	}
	return &Runner{cfg: cfg}
}

// Run starts command in the background. Failures are logged, never returned.
func (r *Runner) Run(command string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Exec(context.Background(), command); err != nil {
			logging.Error(err)
		}
	}()
}

// Wait blocks until every command started by Run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Exec runs command and waits for it. Output is traced line by line.
func (r *Runner) Exec(ctx context.Context, command string) error {
	if strings.TrimSpace(command) == "" {
		return &ProcessExecutionError{Command: command, ExitCode: -1, Err: errors.New("empty command")}
	}
	home := r.home()
	shell := r.shell(home)
	events.Runner.Start(string(r.cfg.Mode), shell, command)

	var cmd *exec.Cmd
	switch r.cfg.Mode {
	case ModeTmux:
		cmd = tmuxCmd(ctx, r.cfg.TmuxSocket, "new-window", shell, "-l", "-c", wrapCommand(shell, command))
	default:
		cmd = exec.CommandContext(ctx, shell, "-l", "-c", wrapCommand(shell, command))
	}
	cmd.Env = append(append(os.Environ(), cmd.Env...), "HOME="+home, "USER="+r.username())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = tee(&stdout, r.cfg.Stdout)
	cmd.Stderr = tee(&stderr, r.cfg.Stderr)
	runErr := cmd.Run()

	traceLines("stdout", stdout.String())
	traceLines("stderr", stderr.String())

	if runErr == nil {
		events.Runner.Exit(command, 0)
		return nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		code = exitErr.ExitCode()
	}
	events.Runner.Exit(command, code)
	return &ProcessExecutionError{Command: command, ExitCode: code, Stderr: stderr.String(), Err: runErr}
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// wrapCommand sources the interactive rc files of zsh and bash so aliases and
// PATH tweaks are visible to the command.
func wrapCommand(shell, command string) string {
	switch {
	case strings.Contains(shell, "zsh"):
		return "source ~/.zshrc 2>/dev/null; source ~/.zprofile 2>/dev/null; " + command
	case strings.Contains(shell, "bash"):
		return "source ~/.bash_profile 2>/dev/null; source ~/.bashrc 2>/dev/null; " + command
	default:
		return command
	}
}

func (r *Runner) home() string {
	if v, ok := r.cfg.Getenv("HOME"); ok && v != "" {
		return v
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "/"
}

// shell picks $SHELL, then the passwd entry owning home, then zsh.
func (r *Runner) shell(home string) string {
	if r.cfg.Shell != "" {
		return r.cfg.Shell
	}
	if v, ok := r.cfg.Getenv("SHELL"); ok && v != "" {
		return v
	}
	if sh := shellFromPasswd(r.cfg.PasswdPath, home); sh != "" {
		return sh
	}
	return defaultShell
}

func shellFromPasswd(path, home string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 7 {
			continue
		}
		if fields[5] == home && fields[6] != "" {
			return fields[6]
		}
	}
	return ""
}

func (r *Runner) username() string {
	if v, ok := r.cfg.Getenv("USER"); ok && v != "" {
		return v
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func traceLines(stream, text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		events.Runner.Output(stream, line)
	}
}
