package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"

	"github.com/KjellKod/quest/pkg/markdown"
)

// Sections of quest_brief.md searched for the elevator pitch, in order.
var briefPitchSections = []string{
	"User Input (Original Prompt)",
	"User Input",
	"Original Prompt",
	"User Request",
	"Goal",
	"Requirements",
	"Context",
}

// Sections of quest_brief.md searched for the longer description.
var briefDescriptionSections = []string{"Goal", "Objective", "Problem", "Context"}

// stateFile is the on-disk shape of state.json. Unknown keys are ignored.
type stateFile struct {
	QuestID       string `json:"quest_id" validate:"omitempty,max=256"`
	Slug          string `json:"slug" validate:"omitempty,max=256"`
	Status        string `json:"status"`
	Phase         string `json:"phase"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	PlanIteration *int   `json:"plan_iteration" validate:"omitempty,gte=0"`
	FixIteration  *int   `json:"fix_iteration" validate:"omitempty,gte=0"`
	LastRole      string `json:"last_role"`
	LastVerdict   string `json:"last_verdict"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp and converts it to UTC.
// Timestamps without an offset are taken to be UTC already.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 timestamp", s)
}

// LoadStates reads every state.json under the quest directory. Files with an
// "archive" path segment are returned as archived, the rest as active. A
// missing brief is a warning; a malformed state file is a fatal *DataError.
func (s *Store) LoadStates() (active, archived []StateRecord, warnings []string, err error) {
	root := s.QuestPath()
	ok, err := afero.DirExists(s.fs, root)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("checking quest directory: %w", err)
	}
	if !ok {
		warnings = append(warnings, fmt.Sprintf("quest directory %s not found; no active quests loaded", s.QuestDir))
		return nil, nil, warnings, nil
	}

	var paths []string
	err = afero.Walk(s.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == StateFile {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("walking quest directory %s: %s", s.QuestDir, reason(err))
	}

	for _, p := range paths {
		rec, warn, err := s.loadState(root, p)
		if err != nil {
			return nil, nil, nil, err
		}
		if warn != "" {
			warnings = append(warnings, warn)
		}
		s.logger.Debug("loaded state", "path", rec.SourcePath, "quest_id", rec.QuestID, "partition", rec.Partition)
		if rec.IsArchived() {
			archived = append(archived, rec)
		} else {
			active = append(active, rec)
		}
	}
	return active, archived, warnings, nil
}

func (s *Store) loadState(questRoot, full string) (StateRecord, string, error) {
	rel := s.Rel(full)
	data, err := afero.ReadFile(s.fs, full)
	if err != nil {
		return StateRecord{}, "", &DataError{Path: rel, Problem: "unreadable: " + reason(err)}
	}
	var sf stateFile
	if err := s.decodeState(rel, data, &sf); err != nil {
		return StateRecord{}, "", err
	}

	dir := filepath.Dir(full)
	rec := StateRecord{
		QuestID:       strings.TrimSpace(sf.QuestID),
		Slug:          strings.TrimSpace(sf.Slug),
		StatusRaw:     strings.TrimSpace(sf.Status),
		PhaseRaw:      strings.TrimSpace(sf.Phase),
		PlanIteration: sf.PlanIteration,
		FixIteration:  sf.FixIteration,
		LastRole:      strings.TrimSpace(sf.LastRole),
		LastVerdict:   strings.TrimSpace(sf.LastVerdict),
		SourcePath:    rel,
		Partition:     PartitionActive,
	}
	if rec.QuestID == "" {
		rec.QuestID = filepath.Base(dir)
	}
	if rec.Slug == "" {
		rec.Slug = markdown.SlugFromQuestID(rec.QuestID)
	}
	if inArchive(questRoot, dir) {
		rec.Partition = PartitionArchived
	}
	if rec.UpdatedAt, err = stateTime(rel, "updated_at", sf.UpdatedAt); err != nil {
		return StateRecord{}, "", err
	}
	if rec.CreatedAt, err = stateTime(rel, "created_at", sf.CreatedAt); err != nil {
		return StateRecord{}, "", err
	}

	warning := s.readBrief(filepath.Join(dir, BriefFile), &rec)
	return rec, warning, nil
}

func (s *Store) decodeState(rel string, data []byte, sf *stateFile) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			line, col := lineCol(data, syntaxErr.Offset)
			return &DataError{Path: rel, Problem: fmt.Sprintf("malformed JSON at line %d, column %d; fix or regenerate the file", line, col)}
		}
		return &DataError{Path: rel, Problem: "top-level value must be a JSON object"}
	}
	if top == nil {
		return &DataError{Path: rel, Problem: "top-level value must be a JSON object"}
	}
	if err := json.Unmarshal(data, sf); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &DataError{Path: rel, Problem: fmt.Sprintf("field %s has type %s, want %s", typeErr.Field, typeErr.Value, typeErr.Type)}
		}
		return &DataError{Path: rel, Problem: "malformed JSON; fix or regenerate the file"}
	}
	if err := s.validate.Struct(sf); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &DataError{Path: rel, Problem: fmt.Sprintf("field %s fails %s=%s", fe.Field(), fe.Tag(), fe.Param())}
		}
		return &DataError{Path: rel, Problem: err.Error()}
	}
	return nil
}

func stateTime(rel, field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return Epoch, nil
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, &DataError{Path: rel, Problem: fmt.Sprintf("field %s: %s", field, err)}
	}
	return t, nil
}

// inArchive reports whether any directory between the quest root and dir is
// named "archive".
func inArchive(questRoot, dir string) bool {
	rel, err := filepath.Rel(questRoot, dir)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == "archive" {
			return true
		}
	}
	return false
}

// readBrief fills title, pitch and description from quest_brief.md. When the
// brief is missing or unreadable it falls back to the slug and returns a
// warning.
func (s *Store) readBrief(full string, rec *StateRecord) string {
	rel := s.Rel(full)
	data, err := afero.ReadFile(s.fs, full)
	if err != nil {
		rec.Title = fallbackTitle(rec)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Sprintf("missing quest brief %s; using %q as title", rel, rec.Title)
		}
		return fmt.Sprintf("unreadable quest brief %s: %s", rel, reason(err))
	}
	rec.BriefPath = rel

	content := markdown.StripFrontmatter(string(data))
	rec.Title = markdown.Title(content)
	if rec.Title == "" {
		rec.Title = fallbackTitle(rec)
	}
	body := markdown.FirstParagraph(markdown.BodyAfterTitle(content))
	rec.ElevatorPitch = markdown.SectionParagraph(content, briefPitchSections...)
	if rec.ElevatorPitch == "" {
		rec.ElevatorPitch = body
	}
	rec.Description = markdown.SectionParagraph(content, briefDescriptionSections...)
	if rec.Description == "" {
		rec.Description = body
	}
	return ""
}

func fallbackTitle(rec *StateRecord) string {
	if rec.Slug != "" {
		return rec.Slug
	}
	return rec.QuestID
}
