// Package gitinfo reads the little the dashboard needs from version control:
// whether the repository is a git work tree, which pull request merged a
// journal file, and the GitHub URL of the origin remote.
package gitinfo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 5 * time.Second

var ErrNoGitHubRemote = errors.New("origin remote is not a GitHub repository")

var (
	mergeSubjectRE = regexp.MustCompile(`Merge pull request #(\d+)`)
	sshRemoteRE    = regexp.MustCompile(`^git@github\.com:(.+?)(?:\.git)?/?$`)
	httpsRemoteRE  = regexp.MustCompile(`^(?:https?|ssh)://(?:[^@/]+@)?github\.com/(.+?)(?:\.git)?/?$`)
)

// Commander executes external commands. Tests substitute a fake.
type Commander interface {
	Run(name string, args ...string) (string, error)
	RunInDir(dir, name string, args ...string) (string, error)
}

// ShellCommander executes real commands, each bounded by Timeout.
type ShellCommander struct {
	Timeout time.Duration
}

func (c *ShellCommander) Run(name string, args ...string) (string, error) {
	return c.RunInDir("", name, args...)
}

func (c *ShellCommander) RunInDir(dir, name string, args ...string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s %s: timed out after %s", name, strings.Join(args, " "), timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Client runs git inside one repository.
type Client struct {
	commander Commander
	root      string
}

// NewClient creates a client for the repository at root.
func NewClient(root string) *Client {
	return NewClientWithCommander(root, &ShellCommander{Timeout: DefaultTimeout})
}

// NewClientWithCommander creates a client with a custom commander.
func NewClientWithCommander(root string, commander Commander) *Client {
	return &Client{commander: commander, root: root}
}

// IsRepository reports whether root is inside a git work tree.
func (c *Client) IsRepository() bool {
	out, err := c.commander.RunInDir(c.root, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// MergedPRNumber returns the pull request number from the most recent
// "Merge pull request #N" commit touching relPath, or 0 when there is none.
func (c *Client) MergedPRNumber(relPath string) (int, error) {
	out, err := c.commander.RunInDir(c.root, "git", "log", "--merges", "--format=%s", "--", relPath)
	if err != nil {
		return 0, fmt.Errorf("git log %s: %w", relPath, err)
	}
	m := mergeSubjectRE.FindStringSubmatch(out)
	if m == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// GitHubURL returns the https URL of the origin remote.
func (c *Client) GitHubURL() (string, error) {
	remote, err := c.commander.RunInDir(c.root, "git", "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("reading origin remote: %w", err)
	}
	url, ok := NormalizeGitHubURL(remote)
	if !ok {
		return "", ErrNoGitHubRemote
	}
	return url, nil
}

// NormalizeGitHubURL converts SSH and https GitHub remotes into
// https://github.com/owner/repo without a .git suffix.
func NormalizeGitHubURL(remote string) (string, bool) {
	remote = strings.TrimSpace(remote)
	for _, re := range []*regexp.Regexp{sshRemoteRE, httpsRemoteRE} {
		if m := re.FindStringSubmatch(remote); m != nil {
			return "https://github.com/" + m[1], true
		}
	}
	return "", false
}
