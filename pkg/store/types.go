package store

import "time"

// DateSource records where a journal's completion date came from.
type DateSource string

const (
	DateFromMetadata DateSource = "metadata"
	DateFromFilename DateSource = "filename"
	DateFromClock    DateSource = "clock"
)

// Partition separates live quests from archived ones. Both share the same
// state.json schema.
type Partition string

const (
	PartitionActive   Partition = "active"
	PartitionArchived Partition = "archived"
)

// JournalRecord is a finished or abandoned quest read from
// docs/quest-journal/*.md.
type JournalRecord struct {
	QuestID       string
	Slug          string
	Title         string
	ElevatorPitch string
	StatusRaw     string
	Status        string // "Completed" or "Abandoned"
	CompletedDate time.Time
	DateSource    DateSource
	SourcePath    string // relative to the repository root, slash separated

	PRNumber       *int
	PlanIterations *int
	FixIterations  *int
}

// HasExplicitDate reports whether the journal itself stated a completion date.
func (j JournalRecord) HasExplicitDate() bool {
	return j.DateSource == DateFromMetadata
}

// StateRecord is a quest snapshot read from a state.json file and its
// sibling quest_brief.md.
type StateRecord struct {
	QuestID       string
	Slug          string
	StatusRaw     string
	PhaseRaw      string
	UpdatedAt     time.Time
	CreatedAt     time.Time
	PlanIteration *int
	FixIteration  *int
	LastRole      string
	LastVerdict   string

	// From quest_brief.md
	Title         string
	ElevatorPitch string
	Description   string

	SourcePath string // state.json, relative to the repository root
	BriefPath  string // empty when the brief is missing
	Partition  Partition
}

// IsArchived reports whether the record lives under an archive directory.
func (s StateRecord) IsArchived() bool {
	return s.Partition == PartitionArchived
}

// Epoch is the timestamp assigned to state records that carry none.
var Epoch = time.Unix(0, 0).UTC()

// HasTime reports whether t is a real timestamp rather than a missing one
// defaulted to the zero time or Epoch.
func HasTime(t time.Time) bool {
	return !t.IsZero() && !t.Equal(Epoch)
}
