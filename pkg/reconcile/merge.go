package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/KjellKod/quest/pkg/markdown"
	"github.com/KjellKod/quest/pkg/status"
	"github.com/KjellKod/quest/pkg/store"
)

// stateIndex looks state records up by quest id and by slug. Records are
// added active first, then archived, so an archived record replaces an
// active one carrying the same quest id.
type stateIndex struct {
	states     []store.StateRecord
	byID       map[string]int
	bySlug     map[string]int
	superseded map[int]bool
	consumed   map[int]bool
}

func newStateIndex(active, archived []store.StateRecord) *stateIndex {
	idx := &stateIndex{
		byID:       make(map[string]int),
		bySlug:     make(map[string]int),
		superseded: make(map[int]bool),
		consumed:   make(map[int]bool),
	}
	for _, group := range [][]store.StateRecord{active, archived} {
		for _, rec := range group {
			i := len(idx.states)
			idx.states = append(idx.states, rec)
			if rec.QuestID != "" {
				if prev, ok := idx.byID[rec.QuestID]; ok {
					idx.superseded[prev] = true
					if idx.bySlug[idx.states[prev].Slug] == prev {
						delete(idx.bySlug, idx.states[prev].Slug)
					}
				}
				idx.byID[rec.QuestID] = i
			}
			if rec.Slug != "" {
				idx.bySlug[rec.Slug] = i
			}
		}
	}
	return idx
}

// match finds the state for a journal by quest id first, then slug, and
// marks it consumed.
func (idx *stateIndex) match(j store.JournalRecord) (store.StateRecord, bool) {
	i, ok := idx.byID[j.QuestID]
	if !ok || j.QuestID == "" {
		i, ok = idx.bySlug[j.Slug]
		if !ok || j.Slug == "" {
			return store.StateRecord{}, false
		}
	}
	idx.consumed[i] = true
	return idx.states[i], true
}

// orphans returns states no journal consumed, skipping superseded ones.
func (idx *stateIndex) orphans() []store.StateRecord {
	var out []store.StateRecord
	for i, rec := range idx.states {
		if idx.superseded[i] || idx.consumed[i] {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Merge reconciles journal records with active and archived state records.
// Each identity yields one quest: a journal that resolves to an identity
// already emitted is folded into it, and the journal with the smaller
// source path wins. An unmatched active state sharing a quest id or slug
// with a journal-backed quest is folded the same way, so a quest is never
// both active and finished. Every fold is reported as a warning.
//
// The result is sorted by quest id, slug, journal path and state path so
// repeated runs over the same input produce identical output.
func Merge(journals []store.JournalRecord, active, archived []store.StateRecord) ([]Quest, []string) {
	idx := newStateIndex(active, archived)

	ordered := append([]store.JournalRecord(nil), journals...)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].SourcePath < ordered[b].SourcePath
	})

	var warnings []string
	seen := newIdentitySet()
	quests := make([]Quest, 0, len(journals)+len(active)+len(archived))
	for _, j := range ordered {
		var q Quest
		if st, ok := idx.match(j); ok {
			q = mergeMatched(j, st)
		} else {
			q = fromJournal(j)
		}
		if i, ok := seen.find(q, false); ok {
			quests[i].MergedPaths = append(quests[i].MergedPaths, j.SourcePath)
			warnings = append(warnings, fmt.Sprintf("%s: duplicate journal for quest %s; keeping %s",
				j.SourcePath, identity(quests[i]), quests[i].JournalPath))
			continue
		}
		seen.add(q, len(quests))
		quests = append(quests, q)
	}
	for _, st := range idx.orphans() {
		q := fromState(st)
		if i, ok := seen.find(q, st.Partition == store.PartitionActive); ok {
			quests[i].MergedPaths = append(quests[i].MergedPaths, st.SourcePath)
			warnings = append(warnings, fmt.Sprintf("%s: state shares identity %s with journal %s; not listed separately",
				st.SourcePath, identity(q), quests[i].JournalPath))
			continue
		}
		quests = append(quests, q)
	}

	Sort(quests)
	return quests, warnings
}

// identitySet indexes emitted quests by quest id and by slug.
type identitySet struct {
	byID   map[string]int
	bySlug map[string]int
	ids    map[int]string
}

func newIdentitySet() *identitySet {
	return &identitySet{
		byID:   make(map[string]int),
		bySlug: make(map[string]int),
		ids:    make(map[int]string),
	}
}

func (s *identitySet) add(q Quest, i int) {
	s.ids[i] = q.QuestID
	if q.QuestID != "" {
		s.byID[q.QuestID] = i
	}
	if _, ok := s.bySlug[q.Slug]; q.Slug != "" && !ok {
		s.bySlug[q.Slug] = i
	}
}

// find returns the emitted quest q is the same quest as. A shared quest id
// always matches. A shared slug matches when either side lacks a quest id,
// or unconditionally when slugOnly is set.
func (s *identitySet) find(q Quest, slugOnly bool) (int, bool) {
	if i, ok := s.byID[q.QuestID]; ok && q.QuestID != "" {
		return i, true
	}
	i, ok := s.bySlug[q.Slug]
	if !ok || q.Slug == "" {
		return 0, false
	}
	if slugOnly || q.QuestID == "" || s.ids[i] == "" {
		return i, true
	}
	return 0, false
}

func identity(q Quest) string {
	return firstNonEmpty(q.QuestID, q.Slug)
}

// Sort orders quests by the deterministic composite key.
func Sort(quests []Quest) {
	sort.SliceStable(quests, func(a, b int) bool {
		qa, qb := quests[a], quests[b]
		if qa.QuestID != qb.QuestID {
			return qa.QuestID < qb.QuestID
		}
		if qa.Slug != qb.Slug {
			return qa.Slug < qb.Slug
		}
		if qa.JournalPath != qb.JournalPath {
			return qa.JournalPath < qb.JournalPath
		}
		return qa.StatePath < qb.StatePath
	})
}

// journalStatus resolves the status of a quest that has a journal. A journal
// that explicitly says it completed or was abandoned settles the question;
// otherwise the state's status and phase are consulted before the journal.
func journalStatus(j store.JournalRecord, st *store.StateRecord) status.Status {
	if s := status.Normalize(j.StatusRaw); s.IsTerminal() {
		return s
	}
	if st == nil {
		return status.Resolve(true, j.StatusRaw)
	}
	return status.Resolve(true, st.StatusRaw, st.PhaseRaw, j.StatusRaw)
}

func mergeMatched(j store.JournalRecord, st store.StateRecord) Quest {
	q := fromJournal(j)
	q.Status = journalStatus(j, &st)

	q.QuestID = firstNonEmpty(st.QuestID, j.QuestID)
	q.Slug = firstNonEmpty(st.Slug, j.Slug, markdown.SlugFromQuestID(q.QuestID))
	if q.ElevatorPitch == "" {
		q.ElevatorPitch = st.ElevatorPitch
	}
	q.Description = st.Description
	q.StatusRaw = st.StatusRaw
	q.PhaseRaw = st.PhaseRaw
	q.UpdatedAt = st.UpdatedAt
	q.CreatedAt = st.CreatedAt
	if st.PlanIteration != nil {
		q.PlanIterations = st.PlanIteration
	}
	if st.FixIteration != nil {
		q.FixIterations = st.FixIteration
	}
	q.LastRole = st.LastRole
	q.LastVerdict = st.LastVerdict
	q.StatePath = st.SourcePath
	q.BriefPath = st.BriefPath
	q.Archived = st.IsArchived()

	q.CompletedDate = time.Time{}
	switch {
	case j.HasExplicitDate():
		q.CompletedDate = j.CompletedDate
	case q.Status == status.Finished && !stateDate(st).IsZero():
		q.CompletedDate = stateDate(st)
	case q.Status.IsTerminal():
		q.CompletedDate = j.CompletedDate
	}
	return q
}

func fromJournal(j store.JournalRecord) Quest {
	q := Quest{
		QuestID:        j.QuestID,
		Slug:           firstNonEmpty(j.Slug, markdown.SlugFromQuestID(j.QuestID)),
		Title:          j.Title,
		ElevatorPitch:  j.ElevatorPitch,
		Status:         journalStatus(j, nil),
		StatusRaw:      j.StatusRaw,
		JournalStatus:  j.Status,
		PlanIterations: j.PlanIterations,
		FixIterations:  j.FixIterations,
		PRNumber:       j.PRNumber,
		JournalPath:    j.SourcePath,
		UpdatedAt:      store.Epoch,
		CreatedAt:      store.Epoch,
	}
	if q.Status.IsTerminal() {
		q.CompletedDate = j.CompletedDate
	}
	return q
}

func fromState(st store.StateRecord) Quest {
	q := Quest{
		QuestID:        st.QuestID,
		Slug:           firstNonEmpty(st.Slug, markdown.SlugFromQuestID(st.QuestID)),
		Title:          st.Title,
		ElevatorPitch:  st.ElevatorPitch,
		Description:    st.Description,
		Status:         status.Resolve(false, st.StatusRaw, st.PhaseRaw),
		StatusRaw:      st.StatusRaw,
		PhaseRaw:       st.PhaseRaw,
		UpdatedAt:      st.UpdatedAt,
		CreatedAt:      st.CreatedAt,
		PlanIterations: st.PlanIteration,
		FixIterations:  st.FixIteration,
		LastRole:       st.LastRole,
		LastVerdict:    st.LastVerdict,
		StatePath:      st.SourcePath,
		BriefPath:      st.BriefPath,
		Archived:       st.IsArchived(),
	}
	if q.Title == "" {
		q.Title = firstNonEmpty(q.Slug, q.QuestID)
	}
	if q.Status == status.Finished {
		q.CompletedDate = stateDate(st)
	}
	return q
}

// stateDate is the calendar date of a state's last update, else its
// creation, or the zero time when neither is usable.
func stateDate(st store.StateRecord) time.Time {
	for _, t := range []time.Time{st.UpdatedAt, st.CreatedAt} {
		if store.HasTime(t) {
			y, m, d := t.UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
