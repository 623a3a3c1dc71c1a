package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atomicstack/shell-script-manager/internal/app"
	"github.com/atomicstack/shell-script-manager/internal/config"
	"github.com/atomicstack/shell-script-manager/internal/format/table"
	"github.com/atomicstack/shell-script-manager/internal/logging"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/model"
	"github.com/atomicstack/shell-script-manager/internal/runner"
)

// configError marks failures to load or validate configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return "configuration error: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

type cli struct {
	cfg     config.Config
	environ func() []string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithEnv(os.Environ)
}

func newRootCmdWithEnv(environ func() []string) *cobra.Command {
	c := &cli{environ: environ}
	root := &cobra.Command{
		Use:   "shell-script-manager",
		Short: "Organise shell commands into folders and run them",
		Long: `shell-script-manager keeps named shell commands in ordered folders backed by
SQLite. Without a subcommand it opens the interactive browser.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(c.cfg.App)
		},
	}
	config.BindFlags(root.PersistentFlags())
	root.AddCommand(c.listCmd(), c.runCmd(), c.addCmd())
	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
		return nil
	}
	cfg, err := config.FromFlags(cmd.Flags(), c.environ(), os.Args[1:])
	if err != nil {
		return &configError{err: err}
	}
	if err := config.Validate(cfg); err != nil {
		return &configError{err: err}
	}
	logging.Configure(cfg.Logging.FilePath)
	logging.SetTraceEnabled(cfg.Logging.Trace)
	c.cfg = cfg
	traceStartup(cfg)
	return nil
}

// open assembles a core and loads the persisted state into its store.
func (c *cli) open(ctx context.Context) (*app.Core, func(), error) {
	core, closeCore, err := app.Open(c.cfg.App)
	if err != nil {
		return nil, nil, err
	}
	if err := core.Do(ctx, message.LoadState{}); err != nil {
		closeCore()
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	return core, closeCore, nil
}

func (c *cli) listCmd() *cobra.Command {
	var folderName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders and their scripts",
		Example: `  shell-script-manager list
  shell-script-manager list --folder Deploy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			core, closeCore, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer closeCore()

			folders := core.Store.Folders()
			if folderName != "" {
				folder, err := findFolder(folders, folderName)
				if err != nil {
					return err
				}
				folders = []model.Folder{folder}
			}
			selected, _ := core.Store.SelectedFolderID()
			rows := make([][]string, 0, len(folders))
			for _, folder := range folders {
				scripts, err := core.Repo.GetScriptsForFolder(ctx, folder.ID)
				if err != nil {
					return fmt.Errorf("list scripts of %s: %w", folder.Name, err)
				}
				name := folder.Name
				if folder.ID == selected {
					name += " *"
				}
				if len(scripts) == 0 {
					rows = append(rows, []string{strconv.Itoa(position(folder)), name, "", "", ""})
					continue
				}
				for _, script := range scripts {
					rows = append(rows, []string{
						strconv.Itoa(position(folder)),
						name,
						strconv.FormatInt(script.ID, 10),
						script.Name,
						script.Command,
					})
				}
			}
			return table.Write(cmd.OutOrStdout(),
				[]string{"#", "Folder", "ID", "Script", "Command"},
				rows,
				[]table.Alignment{table.AlignRight, table.AlignLeft, table.AlignRight})
		},
	}
	cmd.Flags().StringVar(&folderName, "folder", "", "only list this folder (name or one-based position)")
	return cmd
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script-id>",
		Short: "Run a stored script in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid script id %q", args[0])
			}
			ctx := cmd.Context()
			core, closeCore, err := app.Open(c.cfg.App)
			if err != nil {
				return err
			}
			defer closeCore()

			script, err := core.Repo.GetScript(ctx, id)
			if err != nil {
				return err
			}
			run := runner.New(runner.Config{
				Mode:       c.cfg.App.Runner,
				TmuxSocket: c.cfg.App.TmuxSocket,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			return run.Exec(ctx, script.Command)
		},
	}
}

func (c *cli) addCmd() *cobra.Command {
	var folderName, scriptName string
	cmd := &cobra.Command{
		Use:     "add --folder <folder> --name <name> -- <command...>",
		Short:   "Add a script to a folder",
		Example: `  shell-script-manager add --folder Deploy --name staging -- make deploy ENV=staging`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			core, closeCore, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer closeCore()

			folder, err := findFolder(core.Store.Folders(), folderName)
			if err != nil {
				return err
			}
			command := strings.Join(args, " ")
			if err := core.Do(ctx, message.AddScriptToFolder{
				FolderID: folder.ID,
				Name:     scriptName,
				Command:  command,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", scriptName, folder.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&folderName, "folder", "", "folder name or one-based position")
	cmd.Flags().StringVar(&scriptName, "name", "", "script name")
	_ = cmd.MarkFlagRequired("folder")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// position is the one-based place of f in the list, as shown in the # column.
func position(f model.Folder) int { return f.Ordering + 1 }

// findFolder matches ref against folder names first, then positions.
func findFolder(folders []model.Folder, ref string) (model.Folder, error) {
	for _, f := range folders {
		if f.Name == ref {
			return f, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		for _, f := range folders {
			if position(f) == n {
				return f, nil
			}
		}
	}
	return model.Folder{}, fmt.Errorf("no folder named %q", ref)
}
