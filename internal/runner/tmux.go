package runner

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

func tmuxArgs(socket string, extra ...string) []string {
	args := make([]string, 0, len(extra)+2)
	if trimmed := strings.TrimSpace(socket); trimmed != "" {
		args = append(args, "-S", trimmed)
	}
	return append(args, extra...)
}

// tmuxCmd builds a tmux invocation against socket, or the default server when
// socket is empty.
func tmuxCmd(ctx context.Context, socket string, extra ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "tmux", tmuxArgs(socket, extra...)...)
	if dir := socketDir(socket); dir != "" {
		cmd.Env = append(cmd.Env, "TMUX_TMPDIR="+dir)
	}
	return cmd
}

func socketDir(socket string) string {
	trimmed := strings.TrimSpace(socket)
	if trimmed == "" {
		return ""
	}
	return filepath.Dir(trimmed)
}
