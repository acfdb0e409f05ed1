package dashboard

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/KjellKod/quest/pkg/reconcile"
	"github.com/KjellKod/quest/pkg/status"
)

var (
	anchorUnsafeRE = regexp.MustCompile(`[^a-z0-9_-]+`)
	githubRepoRE   = regexp.MustCompile(`^https://github\.com/[A-Za-z0-9._-]+/[A-Za-z0-9._-]+$`)
)

// Display buckets.
const (
	GroupFinished  = "finished"
	GroupAbandoned = "abandoned"
	GroupActive    = "active"
)

// Card is a quest decorated for display.
type Card struct {
	reconcile.Quest

	Group      string
	Anchor     string
	JournalURL string
	PRURL      string
	PhaseLabel string
	PhaseClass string
}

// Groups splits cards into the three display buckets. A quest appears in
// exactly one of them.
type Groups struct {
	Finished  []Card
	Abandoned []Card
	Active    []Card
}

// Len returns the number of cards across all buckets.
func (g Groups) Len() int {
	return len(g.Finished) + len(g.Abandoned) + len(g.Active)
}

// ValidGitHubURL reports whether u is an https://github.com/<owner>/<repo>
// URL safe to build links from.
func ValidGitHubURL(u string) bool {
	return githubRepoRE.MatchString(strings.TrimRight(u, "/"))
}

// BuildCards decorates quests in order. Anchors are unique across the list;
// links are only produced for a valid GitHub repository URL.
func BuildCards(quests []reconcile.Quest, githubURL string) []Card {
	githubURL = strings.TrimRight(githubURL, "/")
	if !ValidGitHubURL(githubURL) {
		githubURL = ""
	}
	used := make(map[string]bool)
	cards := make([]Card, 0, len(quests))
	for _, q := range quests {
		c := Card{Quest: q}
		c.Anchor = uniqueAnchor(q, used)
		c.PhaseLabel, c.PhaseClass = status.PhaseLabel(q.PhaseRaw)
		if githubURL != "" {
			if q.JournalPath != "" {
				c.JournalURL = githubURL + "/blob/main/" + q.JournalPath
			}
			if q.PRNumber != nil {
				c.PRURL = fmt.Sprintf("%s/pull/%d", githubURL, *q.PRNumber)
			}
		}
		cards = append(cards, c)
	}
	return cards
}

func uniqueAnchor(q reconcile.Quest, used map[string]bool) string {
	base := anchorUnsafeRE.ReplaceAllString(strings.ToLower(firstNonEmpty(q.QuestID, q.Slug)), "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "untitled"
	}
	base = "quest-" + base
	anchor := base
	for n := 2; used[anchor]; n++ {
		anchor = fmt.Sprintf("%s-%d", base, n)
	}
	used[anchor] = true
	return anchor
}

// Group assigns each card to a display bucket and records the bucket on
// the card. Quests with a journal are never active: they land in Finished
// or Abandoned according to their journal when their resolved status is
// not terminal.
func Group(cards []Card) Groups {
	var g Groups
	for i := range cards {
		c := &cards[i]
		switch {
		case c.Status == status.Finished:
			c.Group = GroupFinished
		case c.Status == status.Abandoned:
			c.Group = GroupAbandoned
		case c.HasJournal() && c.JournalStatus == "Abandoned":
			c.Group = GroupAbandoned
		case c.HasJournal():
			c.Group = GroupFinished
		default:
			c.Group = GroupActive
		}
		switch c.Group {
		case GroupFinished:
			g.Finished = append(g.Finished, *c)
		case GroupAbandoned:
			g.Abandoned = append(g.Abandoned, *c)
		default:
			g.Active = append(g.Active, *c)
		}
	}
	sortByCompletion(g.Finished)
	sortByCompletion(g.Abandoned)
	sortByPhase(g.Active)
	return g
}

// sortByCompletion puts the most recently completed first.
func sortByCompletion(cards []Card) {
	sort.SliceStable(cards, func(a, b int) bool {
		ca, cb := cards[a], cards[b]
		if !ca.CompletedDate.Equal(cb.CompletedDate) {
			return ca.CompletedDate.After(cb.CompletedDate)
		}
		return ca.QuestID > cb.QuestID
	})
}

// sortByPhase puts quests closest to done first, most recently touched
// first within a phase.
func sortByPhase(cards []Card) {
	sort.SliceStable(cards, func(a, b int) bool {
		ca, cb := cards[a], cards[b]
		ra, rb := status.PhaseRank(ca.PhaseRaw), status.PhaseRank(cb.PhaseRaw)
		if ra != rb {
			return ra < rb
		}
		if !ca.UpdatedAt.Equal(cb.UpdatedAt) {
			return ca.UpdatedAt.After(cb.UpdatedAt)
		}
		return ca.QuestID < cb.QuestID
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
