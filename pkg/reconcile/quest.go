// Package reconcile joins journal and state records into one list of quests
// with exactly one entry per identity.
package reconcile

import (
	"time"

	"github.com/KjellKod/quest/pkg/status"
	"github.com/KjellKod/quest/pkg/store"
)

// Quest is the reconciled view of one quest across all of its sources.
type Quest struct {
	QuestID       string
	Slug          string
	Title         string
	ElevatorPitch string
	Description   string

	Status        status.Status
	StatusRaw     string
	PhaseRaw      string
	JournalStatus string // "Completed" or "Abandoned"; empty without a journal

	CompletedDate time.Time // zero when the quest has not ended
	UpdatedAt     time.Time
	CreatedAt     time.Time

	PlanIterations *int
	FixIterations  *int
	PRNumber       *int
	LastRole       string
	LastVerdict    string

	JournalPath string
	StatePath   string
	BriefPath   string
	Archived    bool

	// MergedPaths lists duplicate sources folded into this quest.
	MergedPaths []string
}

// HasJournal reports whether a journal file contributed to the quest.
func (q Quest) HasJournal() bool {
	return q.JournalPath != ""
}

// HasState reports whether a state.json contributed to the quest.
func (q Quest) HasState() bool {
	return q.StatePath != ""
}

// EventDate is the date a quest is bucketed under in trends: completion,
// else last update, else creation. ok is false when none is usable.
func (q Quest) EventDate() (time.Time, bool) {
	for _, t := range []time.Time{q.CompletedDate, q.UpdatedAt, q.CreatedAt} {
		if store.HasTime(t) {
			return t, true
		}
	}
	return time.Time{}, false
}
