package render

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KjellKod/quest/pkg/dashboard"
	"github.com/KjellKod/quest/pkg/status"
	"github.com/KjellKod/quest/pkg/store"
)

const dateLayout = "2006-01-02"

// Document is the serialized form of a dataset. Field order is fixed so
// repeated runs over the same input produce identical files.
type Document struct {
	GeneratedAt string       `json:"generated_at" yaml:"generated_at"`
	GitHubURL   string       `json:"github_url,omitempty" yaml:"github_url,omitempty"`
	Summary     Summary      `json:"summary" yaml:"summary"`
	Trends      []TrendPoint `json:"trends" yaml:"trends"`
	Quests      []Quest      `json:"quests" yaml:"quests"`
	Warnings    []string     `json:"warnings" yaml:"warnings"`
}

type Summary struct {
	Total       int            `json:"total" yaml:"total"`
	ByStatus    map[string]int `json:"by_status" yaml:"by_status"`
	Granularity string         `json:"granularity" yaml:"granularity"`
	Finished    int            `json:"finished_group" yaml:"finished_group"`
	Abandoned   int            `json:"abandoned_group" yaml:"abandoned_group"`
	Active      int            `json:"active_group" yaml:"active_group"`
}

type TrendPoint struct {
	Period     string `json:"period" yaml:"period"`
	Finished   int    `json:"finished" yaml:"finished"`
	InProgress int    `json:"in_progress" yaml:"in_progress"`
	Blocked    int    `json:"blocked" yaml:"blocked"`
	Abandoned  int    `json:"abandoned" yaml:"abandoned"`
	Unknown    int    `json:"unknown" yaml:"unknown"`
}

type Quest struct {
	QuestID       string   `json:"quest_id" yaml:"quest_id"`
	Slug          string   `json:"slug" yaml:"slug"`
	Title         string   `json:"title" yaml:"title"`
	ElevatorPitch string   `json:"elevator_pitch" yaml:"elevator_pitch"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Status        string   `json:"status" yaml:"status"`
	Group         string   `json:"group" yaml:"group"`
	Phase         string   `json:"phase,omitempty" yaml:"phase,omitempty"`
	PhaseLabel    string   `json:"phase_label,omitempty" yaml:"phase_label,omitempty"`
	CompletedDate *string  `json:"completed_date" yaml:"completed_date"`
	UpdatedAt     *string  `json:"updated_at" yaml:"updated_at"`
	CreatedAt     *string  `json:"created_at" yaml:"created_at"`
	PlanIteration *int     `json:"plan_iteration" yaml:"plan_iteration"`
	FixIteration  *int     `json:"fix_iteration" yaml:"fix_iteration"`
	PRNumber      *int     `json:"pr_number" yaml:"pr_number"`
	LastRole      string   `json:"last_role,omitempty" yaml:"last_role,omitempty"`
	LastVerdict   string   `json:"last_verdict,omitempty" yaml:"last_verdict,omitempty"`
	Archived      bool     `json:"archived" yaml:"archived"`
	Anchor        string   `json:"anchor" yaml:"anchor"`
	JournalPath   *string  `json:"journal_path" yaml:"journal_path"`
	StatePath     *string  `json:"state_path" yaml:"state_path"`
	MergedPaths   []string `json:"merged_paths,omitempty" yaml:"merged_paths,omitempty"`
	JournalURL    string   `json:"journal_url,omitempty" yaml:"journal_url,omitempty"`
	PRURL         string   `json:"pr_url,omitempty" yaml:"pr_url,omitempty"`
}

// NewDocument converts a dataset into its serialized form.
func NewDocument(ds *dashboard.Dataset) Document {
	doc := Document{
		GeneratedAt: ds.GeneratedAt.UTC().Format(time.RFC3339),
		GitHubURL:   ds.GitHubURL,
		Summary: Summary{
			Total:       ds.Model.Total,
			ByStatus:    make(map[string]int, len(status.All)),
			Granularity: string(ds.Model.Granularity),
			Finished:    len(ds.Groups.Finished),
			Abandoned:   len(ds.Groups.Abandoned),
			Active:      len(ds.Groups.Active),
		},
		Trends:   make([]TrendPoint, 0, len(ds.Model.Trends)),
		Quests:   make([]Quest, 0, len(ds.Quests)),
		Warnings: append([]string{}, ds.Warnings...),
	}
	for _, s := range status.All {
		doc.Summary.ByStatus[string(s)] = ds.Model.ByStatus[s]
	}
	for _, p := range ds.Model.Trends {
		doc.Trends = append(doc.Trends, TrendPoint{
			Period:     p.Period,
			Finished:   p.Counts[status.Finished],
			InProgress: p.Counts[status.InProgress],
			Blocked:    p.Counts[status.Blocked],
			Abandoned:  p.Counts[status.Abandoned],
			Unknown:    p.Counts[status.Unknown],
		})
	}
	for _, c := range ds.Quests {
		q := Quest{
			QuestID:       c.QuestID,
			Slug:          c.Slug,
			Title:         c.Title,
			ElevatorPitch: c.ElevatorPitch,
			Description:   c.Description,
			Status:        string(c.Status),
			Group:         c.Group,
			Phase:         c.PhaseRaw,
			PlanIteration: c.PlanIterations,
			FixIteration:  c.FixIterations,
			PRNumber:      c.PRNumber,
			LastRole:      c.LastRole,
			LastVerdict:   c.LastVerdict,
			Archived:      c.Archived,
			Anchor:        c.Anchor,
			JournalPath:   optional(c.JournalPath),
			StatePath:     optional(c.StatePath),
			MergedPaths:   c.MergedPaths,
			JournalURL:    c.JournalURL,
			PRURL:         c.PRURL,
		}
		if c.PhaseRaw != "" {
			q.PhaseLabel = c.PhaseLabel
		}
		if !c.CompletedDate.IsZero() {
			q.CompletedDate = optional(c.CompletedDate.UTC().Format(dateLayout))
		}
		q.UpdatedAt = timestamp(c.UpdatedAt)
		q.CreatedAt = timestamp(c.CreatedAt)
		doc.Quests = append(doc.Quests, q)
	}
	return doc
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timestamp(t time.Time) *string {
	if !store.HasTime(t) {
		return nil
	}
	return optional(t.UTC().Format(time.RFC3339))
}

// JSON writes the dataset as indented JSON.
func JSON(w io.Writer, ds *dashboard.Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(ds)); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// YAML writes the dataset as YAML.
func YAML(w io.Writer, ds *dashboard.Dataset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(ds)); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}
