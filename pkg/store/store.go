package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
)

const (
	DefaultJournalDir = "docs/quest-journal"
	DefaultQuestDir   = ".quest"
	BriefFile         = "quest_brief.md"
	StateFile         = "state.json"
)

// PRLookup finds the pull request that merged a journal file. It returns 0
// when history names no pull request.
type PRLookup interface {
	MergedPRNumber(relPath string) (int, error)
}

// Store reads quest journals and quest state files under a repository root.
// It never writes.
type Store struct {
	Root       string // repository root
	JournalDir string // relative to Root
	QuestDir   string // relative to Root

	fs       afero.Fs
	prs      PRLookup
	now      func() time.Time
	logger   *slog.Logger
	validate *validator.Validate
}

// Option configures a Store.
type Option func(*Store)

// WithFs swaps the filesystem, mostly for tests.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

// WithPRLookup enables pull request discovery from version control history.
func WithPRLookup(l PRLookup) Option {
	return func(s *Store) { s.prs = l }
}

// WithClock sets the clock used when a journal carries no date at all.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithJournalDir(dir string) Option {
	return func(s *Store) { s.JournalDir = dir }
}

func WithQuestDir(dir string) Option {
	return func(s *Store) { s.QuestDir = dir }
}

// NewStore creates a Store rooted at the given repository directory.
func NewStore(root string, opts ...Option) (*Store, error) {
	s := &Store{
		Root:       root,
		JournalDir: DefaultJournalDir,
		QuestDir:   DefaultQuestDir,
		fs:         afero.NewOsFs(),
		now:        time.Now,
		logger:     slog.New(slog.DiscardHandler),
		validate:   newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	ok, err := afero.DirExists(s.fs, root)
	if err != nil {
		return nil, fmt.Errorf("checking repository root: %s", reason(err))
	}
	if !ok {
		return nil, ErrRootNotDir
	}
	return s, nil
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Fs exposes the filesystem the store reads from.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// JournalPath returns the absolute journal directory.
func (s *Store) JournalPath() string {
	return filepath.Join(s.Root, filepath.FromSlash(s.JournalDir))
}

// QuestPath returns the absolute quest state directory.
func (s *Store) QuestPath() string {
	return filepath.Join(s.Root, filepath.FromSlash(s.QuestDir))
}

// Rel converts an absolute path under Root into the slash separated,
// repository-relative form used in records, warnings and errors.
func (s *Store) Rel(path string) string {
	rel, err := filepath.Rel(s.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
