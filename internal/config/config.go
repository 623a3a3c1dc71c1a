package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/atomicstack/shell-script-manager/internal/app"
	"github.com/atomicstack/shell-script-manager/internal/runner"
)

const (
	appName   = "shell-script-manager"
	envPrefix = "SHELL_SCRIPT_MANAGER_"
	envConfig = envPrefix + "CONFIG"
)

// Config captures runtime configuration for the application.
type Config struct {
	App      app.Config
	Logging  Logging
	Features Features
	Flags    map[string]string
	Args     []string
	// File is the config file that was loaded, if any.
	File string
}

type Logging struct {
	FilePath string
	Trace    bool
}

type Features struct {
	Verbose bool
	Watch   bool
}

// settings mirrors the flat key space shared by defaults, the YAML file,
// environment variables and flags.
type settings struct {
	DBPath        string        `koanf:"db_path"`
	LogFile       string        `koanf:"log_file"`
	Trace         bool          `koanf:"trace"`
	Verbose       bool          `koanf:"verbose"`
	Footer        bool          `koanf:"footer"`
	Width         int           `koanf:"width"`
	Height        int           `koanf:"height"`
	Workers       int           `koanf:"workers"`
	FrameInterval time.Duration `koanf:"frame_interval"`
	Runner        string        `koanf:"runner"`
	TmuxSocket    string        `koanf:"tmux_socket"`
	Watch         bool          `koanf:"watch"`
}

// BindFlags registers every configuration flag on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("db", "", "path to the SQLite database")
	fs.String("log-file", "", "path to the log file")
	fs.Bool("trace", false, "enable verbose JSON trace logging")
	fs.Bool("verbose", false, "show success messages for actions")
	fs.Bool("footer", true, "show the key hint footer")
	fs.Int("width", 0, "desired viewport width in cells (0 uses terminal width)")
	fs.Int("height", 0, "desired viewport height in rows (0 uses terminal height)")
	fs.Int("workers", 4, "maximum concurrent persistence tasks")
	fs.Duration("frame-interval", 16*time.Millisecond, "interval between UI frames")
	fs.String("runner", string(runner.ModeShell), "where scripts run: shell or tmux")
	fs.String("tmux-socket", "", "tmux socket used by the tmux runner")
	fs.Bool("watch", true, "reload when another process changes the database")
}

// flagKeys maps flag names onto configuration keys where they differ from
// the kebab-to-snake rule.
var flagKeys = map[string]string{
	"db": "db_path",
}

// Load parses configuration from CLI arguments and environment variables.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:], os.Environ())
}

// LoadArgs allows tests to supply specific args/environment.
func LoadArgs(args []string, environ []string) (Config, error) {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))
	BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return FromFlags(fs, environ, args)
}

// FromFlags layers defaults, the config file, environment variables and the
// explicitly set flags in fs, in that order of increasing precedence.
func FromFlags(fs *pflag.FlagSet, environ []string, args []string) (Config, error) {
	env := parseEnv(environ)
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(env), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	cfgFile, err := resolveConfigFile(fs, env)
	if err != nil {
		return Config{}, err
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(confmap.Provider(envValues(env), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s settings
	if err := k.Unmarshal("", &s); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	return build(s, cfgFile, args)
}

func build(s settings, cfgFile string, args []string) (Config, error) {
	mode, err := runner.ParseMode(s.Runner)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		App: app.Config{
			DBPath:        s.DBPath,
			Width:         s.Width,
			Height:        s.Height,
			ShowFooter:    s.Footer,
			Verbose:       s.Verbose,
			Workers:       s.Workers,
			FrameInterval: s.FrameInterval,
			Runner:        mode,
			TmuxSocket:    s.TmuxSocket,
			Watch:         s.Watch,
		},
		Logging: Logging{
			FilePath: s.LogFile,
			Trace:    s.Trace,
		},
		Features: Features{
			Verbose: s.Verbose,
			Watch:   s.Watch,
		},
		Flags: map[string]string{
			"db":            s.DBPath,
			"logFile":       s.LogFile,
			"trace":         strconv.FormatBool(s.Trace),
			"verbose":       strconv.FormatBool(s.Verbose),
			"footer":        strconv.FormatBool(s.Footer),
			"width":         strconv.Itoa(s.Width),
			"height":        strconv.Itoa(s.Height),
			"workers":       strconv.Itoa(s.Workers),
			"frameInterval": s.FrameInterval.String(),
			"runner":        string(mode),
			"tmuxSocket":    s.TmuxSocket,
			"watch":         strconv.FormatBool(s.Watch),
		},
		Args: append([]string(nil), args...),
		File: cfgFile,
	}
	return cfg, nil
}

func defaults(env map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"db_path":        filepath.Join(dataDir(env), appName, "scripts.db"),
		"log_file":       filepath.Join(cacheDir(env), appName, appName+".log"),
		"trace":          false,
		"verbose":        false,
		"footer":         true,
		"width":          0,
		"height":         0,
		"workers":        4,
		"frame_interval": "16ms",
		"runner":         string(runner.ModeShell),
		"tmux_socket":    "",
		"watch":          true,
	}
}

// resolveConfigFile picks --config, then $SHELL_SCRIPT_MANAGER_CONFIG, then
// the default location. Only the default may be missing.
func resolveConfigFile(flags *pflag.FlagSet, env map[string]string) (string, error) {
	explicit := ""
	if flags != nil {
		if v, err := flags.GetString("config"); err == nil && v != "" {
			explicit = v
		}
	}
	if explicit == "" {
		explicit = env[envConfig]
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	candidate := filepath.Join(configDir(env), appName, "config.yaml")
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config file %s: %w", candidate, err)
	}
	return candidate, nil
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

// envValues turns SHELL_SCRIPT_MANAGER_DB_PATH into db_path and so on.
func envValues(env map[string]string) map[string]interface{} {
	out := make(map[string]interface{})
	for key, value := range env {
		if !strings.HasPrefix(key, envPrefix) || key == envConfig {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if strings.TrimSpace(value) == "" {
			continue
		}
		out[name] = value
	}
	return out
}

func home(env map[string]string) string {
	if h := env["HOME"]; h != "" {
		return h
	}
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}

func dataDir(env map[string]string) string {
	if d := env["XDG_DATA_HOME"]; d != "" {
		return d
	}
	return filepath.Join(home(env), ".local", "share")
}

func cacheDir(env map[string]string) string {
	if d := env["XDG_CACHE_HOME"]; d != "" {
		return d
	}
	return filepath.Join(home(env), ".cache")
}

func configDir(env map[string]string) string {
	if d := env["XDG_CONFIG_HOME"]; d != "" {
		return d
	}
	return filepath.Join(home(env), ".config")
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Validate ensures required minimum configuration is present.
func Validate(cfg Config) error {
	switch {
	case strings.TrimSpace(cfg.App.DBPath) == "":
		return errors.New("database path must not be empty")
	case cfg.App.Width < 0:
		return fmt.Errorf("width must be >= 0 (got %d)", cfg.App.Width)
	case cfg.App.Height < 0:
		return fmt.Errorf("height must be >= 0 (got %d)", cfg.App.Height)
	case cfg.App.Workers < 1:
		return fmt.Errorf("workers must be >= 1 (got %d)", cfg.App.Workers)
	case cfg.App.FrameInterval <= 0:
		return fmt.Errorf("frame interval must be positive (got %s)", cfg.App.FrameInterval)
	}
	return nil
}
