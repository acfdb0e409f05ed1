package gitinfo

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCall struct {
	Dir  string
	Name string
	Args []string
}

type mockResponse struct {
	Output string
	Error  error
}

// mockCommander records calls and answers with canned responses keyed by
// the full command line. Unknown commands succeed with empty output.
type mockCommander struct {
	Calls     []mockCall
	Responses map[string]mockResponse
}

func newMockCommander() *mockCommander {
	return &mockCommander{Responses: make(map[string]mockResponse)}
}

func (m *mockCommander) Run(name string, args ...string) (string, error) {
	return m.RunInDir("", name, args...)
}

func (m *mockCommander) RunInDir(dir, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, mockCall{Dir: dir, Name: name, Args: args})
	if resp, ok := m.Responses[name+" "+strings.Join(args, " ")]; ok {
		return resp.Output, resp.Error
	}
	return "", nil
}

func (m *mockCommander) set(cmd, output string, err error) {
	m.Responses[cmd] = mockResponse{Output: output, Error: err}
}

func TestIsRepository(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		err      error
		expected bool
	}{
		{"inside work tree", "true", nil, true},
		{"bare repository", "false", nil, false},
		{"not a repository", "", errors.New("fatal: not a git repository"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockCommander()
			m.set("git rev-parse --is-inside-work-tree", tt.output, tt.err)
			c := NewClientWithCommander("/repo", m)
			assert.Equal(t, tt.expected, c.IsRepository())
			require.Len(t, m.Calls, 1)
			assert.Equal(t, "/repo", m.Calls[0].Dir)
		})
	}
}

func TestMergedPRNumber(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		err      error
		expected int
		wantErr  bool
	}{
		{"merge commit", "Merge pull request #42 from org/branch\nMerge pull request #7 from org/old", nil, 42, false},
		{"squash subjects ignored", "Add dashboard (#99)", nil, 0, false},
		{"no history", "", nil, 0, false},
		{"git failure", "", errors.New("exit status 128"), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockCommander()
			m.set("git log --merges --format=%s -- docs/quest-journal/a.md", tt.output, tt.err)
			c := NewClientWithCommander("/repo", m)

			n, err := c.MergedPRNumber("docs/quest-journal/a.md")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestGitHubURL(t *testing.T) {
	m := newMockCommander()
	m.set("git remote get-url origin", "git@github.com:KjellKod/quest.git", nil)
	url, err := NewClientWithCommander("/repo", m).GitHubURL()
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/KjellKod/quest", url)

	m.set("git remote get-url origin", "https://gitlab.com/o/r.git", nil)
	_, err = NewClientWithCommander("/repo", m).GitHubURL()
	assert.ErrorIs(t, err, ErrNoGitHubRemote)

	m.set("git remote get-url origin", "", errors.New("no such remote"))
	_, err = NewClientWithCommander("/repo", m).GitHubURL()
	assert.Error(t, err)
}

func TestNormalizeGitHubURL(t *testing.T) {
	tests := []struct {
		remote string
		want   string
		ok     bool
	}{
		{"git@github.com:owner/repo.git", "https://github.com/owner/repo", true},
		{"git@github.com:owner/repo", "https://github.com/owner/repo", true},
		{"https://github.com/owner/repo.git", "https://github.com/owner/repo", true},
		{"https://token@github.com/owner/repo", "https://github.com/owner/repo", true},
		{"ssh://git@github.com/owner/repo.git", "https://github.com/owner/repo", true},
		{"https://example.com/owner/repo", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			got, ok := NormalizeGitHubURL(tt.remote)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
