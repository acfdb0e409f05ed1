package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/KjellKod/quest/pkg/config"
	"github.com/KjellKod/quest/pkg/dashboard"
	"github.com/KjellKod/quest/pkg/render"
	"github.com/KjellKod/quest/pkg/store"
	"github.com/KjellKod/quest/pkg/tui"
)

func (a *app) buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render the dashboard to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(cfg.Format)
			if err != nil {
				return err
			}
			chart, err := render.LoadChart(a.fs, cfg.ChartLibrary)
			if err != nil {
				return err
			}

			ds, root, err := a.generate(cfg, logger)
			if err != nil {
				return err
			}

			out, shown := cfg.Output, cfg.Output
			if out == "" {
				shown = format.DefaultOutput()
				out = filepath.Join(root, filepath.FromSlash(shown))
			}
			out, err = filepath.Abs(out)
			if err != nil {
				return err
			}

			r, err := render.New(format, render.HTMLOptions{Chart: chart, OutputPath: out, RepoRoot: root})
			if err != nil {
				return err
			}
			if err := a.writeOutput(out, shown, r, ds); err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%s %s (%d quests, %d warnings)\n",
				styled(a.stdout, successStyle, "Dashboard built:"), displayPath(out), ds.Model.Total, len(ds.Warnings))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default docs/dashboard/index.html for html)")
	cmd.Flags().StringP("format", "f", "", "output format: html, json or yaml")
	cmd.Flags().String("chart-library", "", "chart script to inline instead of the built-in SVG chart")
	return cmd
}

func (a *app) dataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Print the reconciled dataset as JSON or YAML",
		Long: `data prints the reconciled dataset to stdout, or to --output when given.
The html format is not available here; it falls back to json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(cfg.Format)
			if err != nil {
				return err
			}
			if format == render.FormatHTML {
				format = render.FormatJSON
			}

			ds, _, err := a.generate(cfg, logger)
			if err != nil {
				return err
			}
			r, err := render.New(format, render.HTMLOptions{})
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("output") || cfg.Output == "-" {
				return r.Render(a.stdout, ds)
			}
			out, err := filepath.Abs(cfg.Output)
			if err != nil {
				return err
			}
			return a.writeOutput(out, cfg.Output, r, ds)
		},
	}
	cmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringP("format", "f", "", "json or yaml (default json)")
	return cmd
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse quests in an interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			// Log lines would tear the alternate screen; warnings are shown
			// inside the UI instead.
			quiet := slog.New(slog.DiscardHandler)
			load := func() (*dashboard.Dataset, error) {
				ds, _, err := a.generate(cfg, quiet)
				return ds, err
			}

			p := tea.NewProgram(tui.NewModel(load), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage quest-dashboard configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the resolved settings to <repo>/.quest/dashboard.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			root, err := filepath.Abs(cfg.RepoRoot)
			if err != nil {
				return err
			}
			path, err := config.WriteProjectFile(a.fs, root, *cfg, force)
			if errors.Is(err, config.ErrExists) {
				return fmt.Errorf("%w (use --force to overwrite)", err)
			}
			if err != nil {
				return &writeError{path: config.ProjectFile, err: err}
			}
			fmt.Fprintf(a.stdout, "%s %s\n", styled(a.stdout, successStyle, "Wrote"), displayPath(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the global config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.stdout, filepath.Join(config.DefaultConfigDir(), config.GlobalFile))
			return nil
		},
	}

	cmd.AddCommand(initCmd, pathCmd)
	return cmd
}

func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.Options{
		ConfigFile: a.configFile,
		Flags:      cmd.Flags(),
		Fs:         a.fs,
	})
	if err != nil {
		return nil, nil, err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, newLogger(a.stderr, cfg.LogLevel), nil
}

// generate runs the pipeline and returns the dataset with the absolute
// repository root it scanned.
func (a *app) generate(cfg *config.Config, logger *slog.Logger) (*dashboard.Dataset, string, error) {
	root, err := filepath.Abs(cfg.RepoRoot)
	if err != nil {
		return nil, "", fmt.Errorf("resolving repo root: %w", err)
	}
	now, err := cfg.Clock()
	if err != nil {
		return nil, "", err
	}
	granularity, err := dashboard.ParseGranularity(cfg.Granularity)
	if err != nil {
		return nil, "", err
	}

	logger.Debug("generating dashboard", "repo_root", root, "granularity", granularity)
	ds, err := dashboard.Generate(dashboard.Options{
		RepoRoot:    root,
		JournalDir:  cfg.JournalDir,
		QuestDir:    cfg.QuestDir,
		GitHubURL:   cfg.GitHubURL,
		Granularity: granularity,
		Now:         now,
		Fs:          a.fs,
	}, logger)
	if errors.Is(err, store.ErrRootNotDir) {
		return nil, "", fmt.Errorf("%w: %s", err, cfg.RepoRoot)
	}
	if err != nil {
		return nil, "", err
	}
	return ds, root, nil
}

// writeOutput renders into memory first so a failed render never leaves
// a truncated file behind, then replaces path through a temp file. Errors
// name the file as shown, the path the user asked for.
func (a *app) writeOutput(path, shown string, r render.Renderer, ds *dashboard.Dataset) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, ds); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := a.fs.MkdirAll(dir, 0755); err != nil {
		return &writeError{path: shown, err: err}
	}
	tmp, err := afero.TempFile(a.fs, dir, ".quest-dashboard-*")
	if err != nil {
		return &writeError{path: shown, err: err}
	}
	_, err = io.Copy(tmp, &buf)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = a.fs.Chmod(tmp.Name(), 0644)
	}
	if err == nil {
		err = a.fs.Rename(tmp.Name(), path)
	}
	if err != nil {
		_ = a.fs.Remove(tmp.Name())
		return &writeError{path: shown, err: err}
	}
	return nil
}

// displayPath shows path relative to the working directory when it lies
// beneath it.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
