package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequireTmux skips the calling test when tmux is missing.
func RequireTmux(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("tmux")
	if err != nil {
		t.Skip("tmux not installed")
	}
	return path
}

// StartTmuxServer starts a detached tmux server on a private socket for the
// runner's tmux mode. The server holds one placeholder window. Calling the
// returned func kills it early; it is also killed when the test ends.
func StartTmuxServer(t *testing.T) (string, func()) {
	t.Helper()
	RequireTmux(t)
	// tmux socket paths are length limited, so stay out of t.TempDir().
	dir, err := os.MkdirTemp("", "ssm-tmux-")
	if err != nil {
		t.Fatalf("tmux dir: %v", err)
	}
	socket := filepath.Join(dir, "s")
	start := TmuxCommand(socket, "-f", "/dev/null", "new-session", "-d", "-s", "scripts", "sleep", "600")
	if out, err := start.CombinedOutput(); err != nil {
		_ = os.RemoveAll(dir)
		t.Skipf("tmux server did not start: %v: %s", err, out)
	}
	stop := func() { _ = TmuxCommand(socket, "kill-server").Run() }
	t.Cleanup(func() {
		stop()
		_ = os.RemoveAll(dir)
	})
	return socket, stop
}

// WindowNames returns one name per window across all sessions.
func WindowNames(t *testing.T, socket string) []string {
	t.Helper()
	out, err := TmuxCommand(socket, "list-windows", "-a", "-F", "#{window_name}").Output()
	if err != nil {
		t.Fatalf("list windows: %v", err)
	}
	return strings.Fields(string(out))
}

// TmuxCommand runs tmux against socket, detached from any tmux session the
// test process itself lives in.
func TmuxCommand(socket string, extra ...string) *exec.Cmd {
	socket = strings.TrimSpace(socket)
	var args []string
	if socket != "" {
		args = []string{"-S", socket}
	}
	cmd := exec.Command("tmux", append(args, extra...)...)
	cmd.Env = outsideTmux(socket)
	return cmd
}

func outsideTmux(socket string) []string {
	env := []string{"TMUX="}
	if socket != "" {
		env = append(env, "TMUX_TMPDIR="+filepath.Dir(socket))
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "TMUX=") || strings.HasPrefix(kv, "TMUX_TMPDIR=") {
			continue
		}
		env = append(env, kv)
	}
	return env
}
