package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KjellKod/quest/pkg/reconcile"
	"github.com/KjellKod/quest/pkg/status"
)

func TestBuildCardsAnchors(t *testing.T) {
	cards := BuildCards([]reconcile.Quest{
		{QuestID: "My Quest!"},
		{QuestID: "my-quest"},
		{QuestID: "my-quest-2"},
		{QuestID: "", Slug: ""},
	}, "")

	require.Len(t, cards, 4)
	assert.Equal(t, "quest-my-quest", cards[0].Anchor)
	assert.Equal(t, "quest-my-quest-2", cards[1].Anchor)
	assert.Equal(t, "quest-my-quest-2-2", cards[2].Anchor)
	assert.Equal(t, "quest-untitled", cards[3].Anchor)
}

func TestBuildCardsLinks(t *testing.T) {
	pr := 42
	q := reconcile.Quest{QuestID: "q", JournalPath: "docs/quest-journal/q.md", PRNumber: &pr, PhaseRaw: "code_review"}

	cards := BuildCards([]reconcile.Quest{q}, "https://github.com/o/r/")
	require.Len(t, cards, 1)
	assert.Equal(t, "https://github.com/o/r/blob/main/docs/quest-journal/q.md", cards[0].JournalURL)
	assert.Equal(t, "https://github.com/o/r/pull/42", cards[0].PRURL)
	assert.Equal(t, "Under Review", cards[0].PhaseLabel)
	assert.Equal(t, "phase-review", cards[0].PhaseClass)

	cards = BuildCards([]reconcile.Quest{q}, "")
	assert.Empty(t, cards[0].JournalURL)
	assert.Empty(t, cards[0].PRURL)
}

func TestGroup(t *testing.T) {
	t0 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	quests := []reconcile.Quest{
		{QuestID: "f-old", Status: status.Finished, CompletedDate: t0},
		{QuestID: "f-new", Status: status.Finished, CompletedDate: t0.AddDate(0, 0, 5)},
		{QuestID: "f-tie", Status: status.Finished, CompletedDate: t0},
		{QuestID: "ab", Status: status.Abandoned, CompletedDate: t0},
		// journal present but state still says blocked: never active
		{QuestID: "j-blocked", Status: status.Blocked, JournalPath: "docs/quest-journal/j.md", JournalStatus: "Completed"},
		{QuestID: "j-aband", Status: status.InProgress, JournalPath: "docs/quest-journal/k.md", JournalStatus: "Abandoned"},
		{QuestID: "build-old", Status: status.InProgress, PhaseRaw: "building", UpdatedAt: t0},
		{QuestID: "build-new", Status: status.InProgress, PhaseRaw: "building", UpdatedAt: t0.Add(time.Hour)},
		{QuestID: "review", Status: status.Unknown, PhaseRaw: "reviewing", UpdatedAt: t0},
		{QuestID: "plan", Status: status.Blocked, PhaseRaw: "plan"},
	}

	g := Group(BuildCards(quests, ""))
	assert.Equal(t, len(quests), g.Len())

	ids := func(cards []Card) []string {
		var out []string
		for _, c := range cards {
			out = append(out, c.QuestID)
		}
		return out
	}
	assert.Equal(t, []string{"f-new", "f-tie", "f-old", "j-blocked"}, ids(g.Finished))
	assert.Equal(t, []string{"ab", "j-aband"}, ids(g.Abandoned))
	assert.Equal(t, []string{"review", "build-new", "build-old", "plan"}, ids(g.Active))
}

func TestGroupRecordsBucketOnCards(t *testing.T) {
	cards := BuildCards([]reconcile.Quest{
		{QuestID: "a", Status: status.Finished},
		{QuestID: "b", Status: status.Blocked},
	}, "")
	Group(cards)
	assert.Equal(t, GroupFinished, cards[0].Group)
	assert.Equal(t, GroupActive, cards[1].Group)
}

func TestValidGitHubURL(t *testing.T) {
	assert.True(t, ValidGitHubURL("https://github.com/KjellKod/quest"))
	assert.True(t, ValidGitHubURL("https://github.com/KjellKod/quest/"))
	assert.False(t, ValidGitHubURL("http://github.com/KjellKod/quest"))
	assert.False(t, ValidGitHubURL("javascript:alert(1)//github.com/a/b"))
	assert.False(t, ValidGitHubURL("https://github.com/KjellKod"))

	cards := BuildCards([]reconcile.Quest{{QuestID: "q", JournalPath: "docs/quest-journal/q.md"}}, "https://evil.example/o/r")
	assert.Empty(t, cards[0].JournalURL)
}
