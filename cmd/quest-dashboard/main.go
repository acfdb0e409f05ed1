package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/KjellKod/quest/pkg/store"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitDataError = 2
	exitWriteFail = 3
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E05252")).Bold(true)
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, fs: afero.NewOsFs()}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, styled(stderr, errorStyle, "Error: ")+err.Error())
	return exitCode(err)
}

func exitCode(err error) int {
	var dataErr *store.DataError
	var writeErr *writeError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &dataErr):
		return exitDataError
	case errors.As(err, &writeErr):
		return exitWriteFail
	default:
		return exitFailure
	}
}

// writeError marks a failure to write the output file. path is the name
// the user gave, never the resolved absolute one.
type writeError struct {
	path string
	err  error
}

func (e *writeError) Error() string {
	return fmt.Sprintf("writing %s: %s", e.path, reason(e.err))
}

// reason drops the paths filesystem errors carry, which may be absolute
// or name a temp file.
func reason(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	var le *os.LinkError
	if errors.As(err, &le) {
		return le.Err.Error()
	}
	return err.Error()
}

func (e *writeError) Unwrap() error { return e.err }

// app carries what every command shares.
type app struct {
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs

	configFile string
	verbose    bool
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quest-dashboard",
		Short: "Build a status dashboard from quest journals and state files.",
		Long: `quest-dashboard reconciles the quest journal (docs/quest-journal/*.md)
with live and archived quest state (.quest/**/state.json) and renders one
deduplicated dashboard as a static HTML page, JSON or YAML.

Without a subcommand it runs "build".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "config file (default is <config dir>/quest-dashboard/config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.String("repo-root", "", "repository root to scan (default \".\")")
	pf.String("github-url", "", "GitHub repository URL for links (detected from origin when empty)")
	pf.String("granularity", "", "trend bucket size: month or week")
	pf.String("journal-dir", "", "journal directory relative to the repo root")
	pf.String("quest-dir", "", "quest state directory relative to the repo root")
	pf.String("now", "", "fixed generation time (RFC 3339) for reproducible output")

	build := a.buildCmd()
	root.RunE = build.RunE
	root.Flags().AddFlagSet(build.Flags())

	root.AddCommand(build, a.dataCmd(), a.browseCmd(), a.configCmd())
	return root
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// styled renders s with style only when w is a terminal.
func styled(w io.Writer, style lipgloss.Style, s string) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return style.Render(s)
	}
	return s
}
