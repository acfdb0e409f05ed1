package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/KjellKod/quest/pkg/dashboard"
	"github.com/KjellKod/quest/pkg/status"
	"github.com/KjellKod/quest/pkg/store"
)

//go:embed templates/*
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("dashboard.html.tmpl").Funcs(template.FuncMap{
		"plural": plural,
	}).ParseFS(templateFS, "templates/dashboard.html.tmpl"),
)

var styleSheet = template.CSS(mustReadTemplate("templates/style.css"))

func mustReadTemplate(name string) string {
	data, err := templateFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Chart is an optional client-side charting library inlined into the page.
// When Available is false the page draws its trend chart as inline SVG.
type Chart struct {
	Available bool
	Name      string
	Script    template.JS
}

// LoadChart reads a chart library from path. An empty path yields an
// unavailable Chart and no error.
func LoadChart(fs afero.Fs, path string) (Chart, error) {
	if path == "" {
		return Chart{}, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Chart{}, fmt.Errorf("reading chart library: %w", err)
	}
	if bytes.Contains(bytes.ToLower(data), []byte("</script")) {
		return Chart{}, errors.New("chart library contains a closing script tag")
	}
	return Chart{Available: true, Name: filepath.Base(path), Script: template.JS(data)}, nil
}

// HTMLOptions configures the HTML renderer.
type HTMLOptions struct {
	Chart Chart

	// Without a GitHub URL journal links are relative paths from the
	// output file to the repository. Both must be set for that.
	OutputPath string
	RepoRoot   string
}

// HTML renders the dashboard page.
type HTML struct {
	opts HTMLOptions
}

// NewHTML creates an HTML renderer.
func NewHTML(opts HTMLOptions) (*HTML, error) {
	return &HTML{opts: opts}, nil
}

// Render writes a complete, self-contained HTML document.
func (h *HTML) Render(w io.Writer, ds *dashboard.Dataset) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, h.page(ds)); err != nil {
		return fmt.Errorf("rendering HTML: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

type kpi struct {
	Label string
	Value int
	Class string
}

type card struct {
	Anchor      string
	Title       string
	Pitch       string
	Badge       string
	BadgeClass  string
	QuestID     string
	Date        string
	Phase       string
	PhaseClass  string
	Iterations  string
	JournalLink string
	PRLink      string
	PRNumber    int
	Archived    bool
}

type section struct {
	ID       string
	Title    string
	Noun     string
	Cards    []card
	ShowDate bool
}

type chartDataset struct {
	Label           string `json:"label"`
	Data            []int  `json:"data"`
	BackgroundColor string `json:"backgroundColor"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type page struct {
	Style       template.CSS
	GeneratedAt string
	Granularity string
	KPIs        []kpi
	Sections    []section
	Warnings    []string
	HasTrends   bool
	Chart       Chart
	ChartData   chartData
	SVG         *trendSVG
}

func (h *HTML) page(ds *dashboard.Dataset) page {
	p := page{
		Style:       styleSheet,
		GeneratedAt: ds.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		Granularity: string(ds.Model.Granularity),
		Warnings:    ds.Warnings,
		HasTrends:   len(ds.Model.Trends) > 0,
		Chart:       h.opts.Chart,
	}
	p.KPIs = append(p.KPIs, kpi{"Total", ds.Model.Total, "total"})
	for _, s := range []status.Status{status.Finished, status.InProgress, status.Blocked, status.Abandoned, status.Unknown} {
		p.KPIs = append(p.KPIs, kpi{s.Label(), ds.Model.ByStatus[s], cssClass(s)})
	}
	p.Sections = []section{
		{ID: "finished-quests", Title: "Finished", Noun: "completed quest", Cards: h.cards(ds.Groups.Finished, true)},
		{ID: "in-progress-quests", Title: "In Progress", Noun: "active quest", Cards: h.cards(ds.Groups.Active, false)},
		{ID: "abandoned-quests", Title: "Abandoned", Noun: "abandoned quest", Cards: h.cards(ds.Groups.Abandoned, true)},
	}
	if h.opts.Chart.Available {
		p.ChartData = buildChartData(ds.Model.Trends)
	} else {
		p.SVG = buildTrendSVG(ds.Model.Trends)
	}
	return p
}

func (h *HTML) cards(cards []dashboard.Card, completed bool) []card {
	out := make([]card, 0, len(cards))
	for _, c := range cards {
		v := card{
			Anchor:      c.Anchor,
			Title:       c.Title,
			Pitch:       c.ElevatorPitch,
			Badge:       c.Status.Label(),
			BadgeClass:  cssClass(c.Status),
			QuestID:     c.QuestID,
			JournalLink: h.journalLink(c),
			PRLink:      c.PRURL,
			Archived:    c.Archived,
		}
		if c.PhaseRaw != "" && !completed {
			v.Phase, v.PhaseClass = c.PhaseLabel, c.PhaseClass
		}
		if completed && !c.CompletedDate.IsZero() {
			v.Date = c.CompletedDate.Format("Jan 02, 2006")
		} else if store.HasTime(c.UpdatedAt) {
			v.Date = c.UpdatedAt.UTC().Format("Jan 02, 2006")
		}
		if c.PlanIterations != nil || c.FixIterations != nil {
			v.Iterations = fmt.Sprintf("plan %d / fix %d", deref(c.PlanIterations), deref(c.FixIterations))
		}
		if c.PRNumber != nil {
			v.PRNumber = *c.PRNumber
		}
		out = append(out, v)
	}
	return out
}

// journalLink prefers the GitHub blob URL and falls back to a path relative
// to the output file.
func (h *HTML) journalLink(c dashboard.Card) string {
	if c.JournalURL != "" || c.JournalPath == "" {
		return c.JournalURL
	}
	if h.opts.OutputPath == "" || h.opts.RepoRoot == "" {
		return ""
	}
	outDir, err := filepath.Abs(filepath.Dir(h.opts.OutputPath))
	if err != nil {
		return ""
	}
	root, err := filepath.Abs(h.opts.RepoRoot)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(outDir, root)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(filepath.Join(rel, filepath.FromSlash(c.JournalPath)))
}

func cssClass(s status.Status) string {
	return strings.ReplaceAll(string(s), "_", "-")
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func buildChartData(points []dashboard.TrendPoint) chartData {
	data := chartData{Labels: make([]string, 0, len(points))}
	for _, p := range points {
		data.Labels = append(data.Labels, p.Period)
	}
	for _, s := range trendOrder {
		ds := chartDataset{Label: s.Label(), BackgroundColor: statusColors[s], Data: make([]int, 0, len(points))}
		for _, p := range points {
			ds.Data = append(ds.Data, p.Counts[s])
		}
		data.Datasets = append(data.Datasets, ds)
	}
	return data
}
