package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KjellKod/quest/pkg/store"
)

const fixedNow = "2026-03-10T12:00:00Z"

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

var repoFiles = map[string]string{
	"docs/quest-journal/dark-mode_2026-02-01.md": "# Quest Journal: Dark Mode\n\n" +
		"**Quest ID:** `dark-mode_2026-01-20__1000`\n**Status:** Completed\n**PR:** #12\n\n" +
		"## Summary\n\nShip a dark theme.\n",
	".quest/live_2026-03-01__0800/state.json": `{"quest_id": "live_2026-03-01__0800", "status": "in_progress",
		"phase": "building", "updated_at": "2026-03-02T08:00:00Z"}`,
	".quest/live_2026-03-01__0800/quest_brief.md": "# Quest Brief: Live\n\n## Goal\n\nKeep it running.\n",
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestBuildDefaultHTML(t *testing.T) {
	root := writeRepo(t, repoFiles)

	code, stdout, stderr := runCLI(t, "--repo-root", root, "--now", fixedNow)

	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Dashboard built:")
	assert.Contains(t, stdout, "(2 quests,")

	data, err := os.ReadFile(filepath.Join(root, "docs", "dashboard", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Dark Mode")
	assert.Contains(t, string(data), "Live")
}

func TestBuildJSONToExplicitOutput(t *testing.T) {
	root := writeRepo(t, repoFiles)
	out := filepath.Join(t.TempDir(), "nested", "data.json")

	code, _, stderr := runCLI(t, "build", "--repo-root", root, "--now", fixedNow, "--format", "json", "--output", out)
	require.Equal(t, exitOK, code, stderr)

	var doc struct {
		GeneratedAt string `json:"generated_at"`
		Summary     struct {
			Total int `json:"total"`
		} `json:"summary"`
		Quests []struct {
			QuestID string `json:"quest_id"`
		} `json:"quests"`
	}
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2026-03-10T12:00:00Z", doc.GeneratedAt)
	assert.Equal(t, 2, doc.Summary.Total)
	assert.Len(t, doc.Quests, 2)
}

func TestBuildIsReproducible(t *testing.T) {
	root := writeRepo(t, repoFiles)
	out := filepath.Join(root, "out.json")

	for i := 0; i < 2; i++ {
		code, _, stderr := runCLI(t, "--repo-root", root, "--now", fixedNow, "-f", "json", "-o", out)
		require.Equal(t, exitOK, code, stderr)
	}
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	code, _, _ := runCLI(t, "--repo-root", root, "--now", fixedNow, "-f", "json", "-o", out)
	require.Equal(t, exitOK, code)
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestDataToStdout(t *testing.T) {
	root := writeRepo(t, repoFiles)

	code, stdout, stderr := runCLI(t, "data", "--repo-root", root, "--now", fixedNow)

	require.Equal(t, exitOK, code, stderr)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc), "html falls back to json")
	assert.Contains(t, doc, "quests")

	code, stdout, _ = runCLI(t, "data", "--repo-root", root, "--now", fixedNow, "--format", "yaml")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "generated_at:")
}

func TestMalformedStateExitsWithDataError(t *testing.T) {
	files := map[string]string{
		".quest/broken/state.json":     `{"quest_id": "broken", "status": `,
		".quest/broken/quest_brief.md": "# Broken\n",
	}
	root := writeRepo(t, files)

	code, _, stderr := runCLI(t, "--repo-root", root, "--now", fixedNow)

	assert.Equal(t, exitDataError, code)
	assert.Contains(t, stderr, "invalid quest state .quest/broken/state.json")
	assert.NotContains(t, stderr, root, "paths are reported relative to the repository")
	_, err := os.Stat(filepath.Join(root, "docs", "dashboard", "index.html"))
	assert.True(t, os.IsNotExist(err), "no output on fatal errors")
}

func TestWarningsDoNotFail(t *testing.T) {
	files := map[string]string{
		".quest/nobrief/state.json": `{"quest_id": "nobrief", "status": "in_progress"}`,
	}
	root := writeRepo(t, files)

	code, _, stderr := runCLI(t, "--repo-root", root, "--now", fixedNow)

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "missing quest brief")
}

func TestWriteFailureExitCode(t *testing.T) {
	root := writeRepo(t, repoFiles)
	require.NoError(t, os.WriteFile(filepath.Join(root, "blocker"), []byte("x"), 0644))
	t.Chdir(root)

	code, _, stderr := runCLI(t, "--repo-root", ".", "--now", fixedNow, "-o", filepath.Join("blocker", "index.html"))

	assert.Equal(t, exitWriteFail, code)
	assert.Contains(t, stderr, "writing "+filepath.Join("blocker", "index.html")+":")
	assert.NotContains(t, stderr, root)
}

func TestWriteErrorHidesFilesystemPaths(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"path error", &os.PathError{Op: "open", Path: "/tmp/abs/.quest-dashboard-123", Err: errors.New("permission denied")}},
		{"link error", &os.LinkError{Op: "rename", Old: "/tmp/abs/.quest-dashboard-123", New: "/tmp/abs/index.html", Err: errors.New("permission denied")}},
		{"wrapped", fmt.Errorf("close: %w", &os.PathError{Op: "close", Path: "/tmp/abs/x", Err: errors.New("permission denied")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &writeError{path: "docs/dashboard/index.html", err: tt.err}
			assert.Equal(t, "writing docs/dashboard/index.html: permission denied", err.Error())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMissingRepoRootNamesGivenPath(t *testing.T) {
	root := writeRepo(t, repoFiles)
	t.Chdir(root)

	code, _, stderr := runCLI(t, "--repo-root", "nope", "--now", fixedNow)

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "repository root is not a directory: nope")
	assert.NotContains(t, stderr, root)
}

func TestUsageErrors(t *testing.T) {
	root := writeRepo(t, repoFiles)

	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"--repo-root", root, "--format", "pdf"}},
		{"bad granularity", []string{"--repo-root", root, "--granularity", "daily"}},
		{"missing repo root", []string{"--repo-root", filepath.Join(root, "nope")}},
		{"missing chart library", []string{"--repo-root", root, "--chart-library", filepath.Join(root, "chart.js")}},
		{"unknown flag", []string{"--bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)

			assert.Equal(t, exitFailure, code)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestConfigInit(t *testing.T) {
	root := writeRepo(t, repoFiles)

	code, stdout, stderr := runCLI(t, "config", "init", "--repo-root", root, "--granularity", "week")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Wrote")

	data, err := os.ReadFile(filepath.Join(root, ".quest", "dashboard.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "granularity: week")

	code, _, stderr = runCLI(t, "config", "init", "--repo-root", root)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "--force")

	code, _, stderr = runCLI(t, "config", "init", "--repo-root", root, "--force")
	assert.Equal(t, exitOK, code, stderr)
}

func TestProjectConfigIsApplied(t *testing.T) {
	files := map[string]string{".quest/dashboard.yaml": "format: json\noutput: out/data.json\n"}
	for k, v := range repoFiles {
		files[k] = v
	}
	root := writeRepo(t, files)
	t.Chdir(root)

	code, _, stderr := runCLI(t, "--repo-root", root, "--now", fixedNow)
	require.Equal(t, exitOK, code, stderr)

	_, err := os.Stat(filepath.Join(root, "out", "data.json"))
	assert.NoError(t, err)
}

func TestExitCode(t *testing.T) {
	dataErr := &store.DataError{Path: ".quest/x/state.json", Problem: "bad"}

	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitDataError, exitCode(fmt.Errorf("loading: %w", dataErr)))
	assert.Equal(t, exitWriteFail, exitCode(&writeError{path: "x", err: errors.New("disk full")}))
	assert.Equal(t, exitFailure, exitCode(errors.New("usage")))
}
