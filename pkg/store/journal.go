package store

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/KjellKod/quest/pkg/markdown"
	"github.com/KjellKod/quest/pkg/status"
)

var (
	prHashRE        = regexp.MustCompile(`#(\d+)`)
	prURLRE         = regexp.MustCompile(`/pull/(\d+)`)
	planIterationRE = regexp.MustCompile(`(?i)(?:\*\*)?plan\s+iterations?:\s*(?:\*\*)?\s*(\d+)`)
	fixIterationRE  = regexp.MustCompile(`(?i)(?:\*\*)?fix\s+iterations?:\s*(?:\*\*)?\s*(\d+)`)
)

// LoadJournals reads every top-level *.md file in the journal directory,
// except README.md, in filename order. Files that cannot be read or parsed
// are skipped with a warning. A missing directory yields a single warning.
func (s *Store) LoadJournals() ([]JournalRecord, []string) {
	dir := s.JournalPath()
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, []string{fmt.Sprintf("journal directory %s not found; no finished quests loaded", s.JournalDir)}
		}
		return nil, []string{fmt.Sprintf("journal directory %s unreadable: %s", s.JournalDir, reason(err))}
	}

	var records []JournalRecord
	var warnings []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".md") || strings.EqualFold(name, "readme.md") {
			continue
		}
		full := filepath.Join(dir, name)
		rel := s.Rel(full)
		rec, err := s.loadJournal(full, rel)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped journal %s: %s", rel, reason(err)))
			continue
		}
		if rec.PRNumber == nil && s.prs != nil {
			n, err := s.prs.MergedPRNumber(rel)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("could not look up pull request for %s: %s", rel, reason(err)))
			} else if n > 0 {
				rec.PRNumber = &n
			}
		}
		s.logger.Debug("loaded journal", "path", rel, "quest_id", rec.QuestID, "status", rec.Status)
		records = append(records, rec)
	}
	return records, warnings
}

func (s *Store) loadJournal(full, rel string) (JournalRecord, error) {
	data, err := afero.ReadFile(s.fs, full)
	if err != nil {
		return JournalRecord{}, fmt.Errorf("unreadable: %s", reason(err))
	}
	if !utf8.Valid(data) {
		return JournalRecord{}, errors.New("not valid UTF-8 text")
	}
	stem := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	rec := ParseJournal(string(data), stem, s.now)
	rec.SourcePath = rel
	return rec, nil
}

// ParseJournal extracts a JournalRecord from markdown content. stem is the
// filename without extension and feeds identity and date fallbacks; now is
// consulted only when neither the content nor the filename holds a date.
func ParseJournal(content, stem string, now func() time.Time) JournalRecord {
	content = markdown.StripFrontmatter(content)

	metaID := markdown.Field(content, "quest id")
	rec := JournalRecord{QuestID: metaID}
	if rec.QuestID == "" {
		rec.QuestID = markdown.Humanize(stem)
	}

	switch {
	case markdown.Field(content, "slug") != "":
		rec.Slug = markdown.Field(content, "slug")
	case metaID != "":
		rec.Slug = markdown.SlugFromQuestID(metaID)
	default:
		rec.Slug = markdown.SlugFromStem(stem)
	}

	rec.Title = markdown.Title(content)
	if rec.Title == "" {
		rec.Title = markdown.Humanize(stem)
	}

	rec.StatusRaw = markdown.Field(content, "status")
	rec.Status = status.JournalLabel(rec.StatusRaw)

	rec.CompletedDate, rec.DateSource = journalDate(content, stem, now)

	rec.ElevatorPitch = markdown.SectionParagraph(content, "Summary")
	if rec.ElevatorPitch == "" {
		rec.ElevatorPitch = markdown.FirstParagraph(markdown.BodyAfterTitle(content))
	}

	if raw, ok := markdown.FieldRaw(content, "pr"); ok {
		rec.PRNumber = firstInt(raw, prHashRE, prURLRE)
	}
	rec.PlanIterations = firstInt(content, planIterationRE)
	rec.FixIterations = firstInt(content, fixIterationRE)
	return rec
}

func journalDate(content, stem string, now func() time.Time) (time.Time, DateSource) {
	for _, key := range []string{"completed", "date"} {
		if d, ok := markdown.ParseDate(markdown.Field(content, key)); ok {
			return d, DateFromMetadata
		}
	}
	if d, ok := markdown.ParseISODate(stem); ok {
		return d, DateFromFilename
	}
	y, m, d := now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), DateFromClock
}

// firstInt returns the first capture of the first pattern that matches.
func firstInt(s string, patterns ...*regexp.Regexp) *int {
	for _, re := range patterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}
