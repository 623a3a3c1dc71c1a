package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atomicstack/shell-script-manager/internal/app"
	"github.com/atomicstack/shell-script-manager/internal/config"
	"github.com/atomicstack/shell-script-manager/internal/logging"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/model"
	"github.com/atomicstack/shell-script-manager/internal/repository"
	"github.com/atomicstack/shell-script-manager/internal/runner"
)

func TestCollectTTYDetailsIncludesStandardDescriptors(t *testing.T) {
	info := collectTTYDetails()
	if len(info.Probes) != 3 {
		t.Fatalf("expected 3 probe entries, got %d", len(info.Probes))
	}
	expected := []string{"stdin", "stdout", "stderr"}
	for i, name := range expected {
		if info.Probes[i].Name != name {
			t.Fatalf("expected probe %d name %q, got %q", i, name, info.Probes[i].Name)
		}
	}
}

func TestStartupTracePayloadIncludesFlags(t *testing.T) {
	cfg := config.Config{
		App: app.Config{
			DBPath:        "scripts.db",
			Width:         80,
			Height:        24,
			ShowFooter:    true,
			Verbose:       true,
			Workers:       4,
			FrameInterval: 16 * time.Millisecond,
			Runner:        runner.ModeShell,
		},
		Logging: config.Logging{
			FilePath: "trace.log",
			Trace:    true,
		},
		Flags: map[string]string{
			"db":      "scripts.db",
			"width":   "80",
			"footer":  "true",
			"verbose": "true",
		},
		Args: []string{"--db", "scripts.db"},
		File: "config.yaml",
	}

	payload := startupTracePayload(cfg)

	flagsValue, ok := payload["flags"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected flags map in payload")
	}
	if flagsValue["db"] != "scripts.db" {
		t.Fatalf("expected db flag %q, got %v", "scripts.db", flagsValue["db"])
	}
	if flagsValue["width"] != "80" {
		t.Fatalf("expected width 80, got %v", flagsValue["width"])
	}
	if flagsValue["trace"] != true {
		t.Fatalf("expected trace flag true, got %v", flagsValue["trace"])
	}
	if flagsValue["logFile"] != "trace.log" {
		t.Fatalf("expected log file trace.log, got %v", flagsValue["logFile"])
	}
	if payload["configFile"] != "config.yaml" {
		t.Fatalf("expected config file in payload, got %v", payload["configFile"])
	}
	if _, ok := payload["tty"].(ttyDetails); !ok {
		t.Fatalf("expected tty details in payload")
	}
	if cfgValue, ok := payload["config"].(config.Config); !ok {
		t.Fatalf("expected config in payload")
	} else if cfgValue.App != cfg.App {
		t.Fatalf("expected app config %#v, got %#v", cfg.App, cfgValue.App)
	}
}

type cliEnv struct {
	dir  string
	db   string
	envs []string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	// the CLI points the global log at dir; put it back before dir goes away
	t.Cleanup(logging.Redirect(filepath.Join(dir, "cli.log")))
	return cliEnv{
		dir: dir,
		db:  filepath.Join(dir, "scripts.db"),
		envs: []string{
			"HOME=" + dir,
			"XDG_CONFIG_HOME=" + filepath.Join(dir, "config"),
			"XDG_CACHE_HOME=" + filepath.Join(dir, "cache"),
			"XDG_DATA_HOME=" + filepath.Join(dir, "data"),
		},
	}
}

func (e cliEnv) run(args ...string) (string, error) {
	root := newRootCmdWithEnv(func() []string { return e.envs })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	full := append([]string{"--db", e.db, "--log-file", filepath.Join(e.dir, "cli.log")}, args...)
	root.SetArgs(full)
	err := root.Execute()
	return out.String(), err
}

func (e cliEnv) seedFolders(t *testing.T, n int) {
	t.Helper()
	core, closeCore, err := app.Open(app.Config{DBPath: e.db, Workers: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeCore()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := 0; i < n; i++ {
		if err := core.Do(ctx, message.CreateFolder{}); err != nil {
			t.Fatalf("create folder: %v", err)
		}
	}
}

func TestAddThenList(t *testing.T) {
	env := newCLIEnv(t)
	env.seedFolders(t, 2)

	out, err := env.run("add", "--folder", "Folder 2", "--name", "greet", "--", "echo", "hello")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Added greet to Folder 2") {
		t.Fatalf("unexpected add output %q", out)
	}

	out, err = env.run("list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"Folder 1", "Folder 2", "greet", "echo hello"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in list output:\n%s", want, out)
		}
	}

	out, err = env.run("list", "--folder", "1")
	if err != nil {
		t.Fatalf("list --folder: %v", err)
	}
	if strings.Contains(out, "greet") || !strings.Contains(out, "Folder 1") {
		t.Fatalf("expected only the first folder:\n%s", out)
	}
}

func TestAddToUnknownFolder(t *testing.T) {
	env := newCLIEnv(t)
	env.seedFolders(t, 1)

	_, err := env.run("add", "--folder", "Nope", "--name", "x", "--", "true")
	if err == nil || !strings.Contains(err.Error(), `no folder named "Nope"`) {
		t.Fatalf("expected unknown folder error, got %v", err)
	}
}

func TestRunRejectsBadIDs(t *testing.T) {
	env := newCLIEnv(t)

	if _, err := env.run("run", "abc"); err == nil || !strings.Contains(err.Error(), "invalid script id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
	if _, err := env.run("run", "42"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInvalidConfigIsReportedAsConfigError(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("--workers", "0", "list")
	var cfgErr *configError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFindFolderPrefersNames(t *testing.T) {
	env := newCLIEnv(t)
	env.seedFolders(t, 2)

	core, closeCore, err := app.Open(app.Config{DBPath: env.db, Workers: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeCore()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := core.Do(ctx, message.LoadState{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	folders := core.Store.Folders()
	second := folders[1]
	if err := core.Do(ctx, message.RenameFolder{FolderID: second.ID, NewName: "1"}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	got, err := findFolder(core.Store.Folders(), "1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("expected the folder named 1, got %#v", got)
	}
}

func TestFindFolderPositionsAreOneBased(t *testing.T) {
	folders := []model.Folder{
		{ID: 10, Name: "Work", Ordering: 0},
		{ID: 11, Name: "Home", Ordering: 1},
	}

	got, err := findFolder(folders, "1")
	if err != nil || got.ID != 10 {
		t.Fatalf("expected position 1 to be Work, got %#v (%v)", got, err)
	}
	got, err = findFolder(folders, "2")
	if err != nil || got.ID != 11 {
		t.Fatalf("expected position 2 to be Home, got %#v (%v)", got, err)
	}
	if _, err := findFolder(folders, "0"); err == nil {
		t.Fatalf("expected position 0 to be rejected")
	}
}

func TestListNumbersFoldersFromOne(t *testing.T) {
	env := newCLIEnv(t)
	env.seedFolders(t, 1)

	out, err := env.run("list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "1 │ Folder 1") {
		t.Fatalf("expected Folder 1 numbered 1:\n%s", out)
	}
}
