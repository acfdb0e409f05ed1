package dashboard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/KjellKod/quest/pkg/gitinfo"
	"github.com/KjellKod/quest/pkg/reconcile"
	"github.com/KjellKod/quest/pkg/store"
)

// VersionControl is what Generate needs from git. *gitinfo.Client
// satisfies it.
type VersionControl interface {
	IsRepository() bool
	MergedPRNumber(relPath string) (int, error)
	GitHubURL() (string, error)
}

// Dataset is everything a renderer needs: the reconciled quests, their
// aggregate model and display groups, and the warnings gathered on the way.
type Dataset struct {
	GeneratedAt time.Time
	GitHubURL   string
	Quests      []Card
	Model       Model
	Groups      Groups
	Warnings    []string
}

// Options configures a Generate run. Zero values select defaults.
type Options struct {
	RepoRoot    string
	JournalDir  string
	QuestDir    string
	GitHubURL   string // detected from the origin remote when empty
	Granularity Granularity
	Now         func() time.Time

	Fs  afero.Fs
	Git VersionControl
}

// Generate loads, reconciles and aggregates every quest under
// opts.RepoRoot. Malformed state files abort with a *store.DataError;
// everything else degrades to a warning on the returned dataset.
func Generate(opts Options, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Git == nil {
		opts.Git = gitinfo.NewClient(opts.RepoRoot)
	}
	if opts.Granularity == "" {
		opts.Granularity = Monthly
	}

	var warnings []string
	storeOpts := []store.Option{
		store.WithFs(opts.Fs),
		store.WithClock(opts.Now),
		store.WithLogger(logger),
	}
	if opts.JournalDir != "" {
		storeOpts = append(storeOpts, store.WithJournalDir(opts.JournalDir))
	}
	if opts.QuestDir != "" {
		storeOpts = append(storeOpts, store.WithQuestDir(opts.QuestDir))
	}
	isRepo := opts.Git.IsRepository()
	if isRepo {
		storeOpts = append(storeOpts, store.WithPRLookup(opts.Git))
	} else {
		warnings = append(warnings, "not a git work tree; pull request numbers come from journal metadata only")
	}

	s, err := store.NewStore(opts.RepoRoot, storeOpts...)
	if err != nil {
		return nil, err
	}

	journals, journalWarnings := s.LoadJournals()
	warnings = append(warnings, journalWarnings...)

	active, archived, stateWarnings, err := s.LoadStates()
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, stateWarnings...)
	logger.Info("loaded quest sources",
		"journals", len(journals), "active", len(active), "archived", len(archived))

	githubURL := opts.GitHubURL
	if githubURL == "" && isRepo {
		githubURL, err = opts.Git.GitHubURL()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("GitHub URL not detected (%s); journal and PR links disabled", err))
			githubURL = ""
		}
	}
	if githubURL != "" && !ValidGitHubURL(githubURL) {
		warnings = append(warnings, fmt.Sprintf("ignoring GitHub URL %q: want https://github.com/<owner>/<repo>", githubURL))
		githubURL = ""
	}

	quests, mergeWarnings := reconcile.Merge(journals, active, archived)
	warnings = append(warnings, mergeWarnings...)
	cards := BuildCards(quests, githubURL)
	groups := Group(cards)
	ds := &Dataset{
		GeneratedAt: opts.Now().UTC(),
		GitHubURL:   githubURL,
		Quests:      cards,
		Model:       BuildModel(quests, opts.Granularity),
		Groups:      groups,
		Warnings:    warnings,
	}

	for _, w := range warnings {
		logger.Warn(w)
	}
	logger.Info("reconciled quests", "total", ds.Model.Total, "warnings", len(warnings))
	return ds, nil
}
