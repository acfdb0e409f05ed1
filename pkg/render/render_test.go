package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KjellKod/quest/pkg/dashboard"
	"github.com/KjellKod/quest/pkg/reconcile"
	"github.com/KjellKod/quest/pkg/status"
	"github.com/KjellKod/quest/pkg/store"
)

func intPtr(n int) *int { return &n }

func testDataset() *dashboard.Dataset {
	quests := []reconcile.Quest{
		{
			QuestID:        "alpha_2026-01-10__0900",
			Slug:           "alpha",
			Title:          "Alpha <script>",
			ElevatorPitch:  "Ship alpha & friends.",
			Status:         status.Finished,
			JournalStatus:  "Completed",
			CompletedDate:  time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
			UpdatedAt:      time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC),
			CreatedAt:      store.Epoch,
			PlanIterations: intPtr(2),
			PRNumber:       intPtr(31),
			JournalPath:    "docs/quest-journal/alpha_2026-01-20.md",
			StatePath:      ".quest/archive/alpha_2026-01-10__0900/state.json",
			Archived:       true,
		},
		{
			QuestID:   "beta_2026-03-01__0800",
			Slug:      "beta",
			Title:     "Beta",
			Status:    status.InProgress,
			PhaseRaw:  "code_review",
			UpdatedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
			CreatedAt: store.Epoch,
			LastRole:  "reviewer",
			StatePath: ".quest/beta_2026-03-01__0800/state.json",
		},
	}
	cards := dashboard.BuildCards(quests, "https://github.com/KjellKod/quest")
	groups := dashboard.Group(cards)
	return &dashboard.Dataset{
		GeneratedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		GitHubURL:   "https://github.com/KjellKod/quest",
		Quests:      cards,
		Model:       dashboard.BuildModel(quests, dashboard.Monthly),
		Groups:      groups,
		Warnings:    []string{"missing quest brief .quest/beta_2026-03-01__0800/quest_brief.md"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatHTML},
		{"HTML", FormatHTML},
		{"json", FormatJSON},
		{"yml", FormatYAML},
		{"yaml", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "docs/dashboard/index.html", FormatHTML.DefaultOutput())
	assert.Equal(t, "docs/dashboard/dashboard-data.json", FormatJSON.DefaultOutput())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, testDataset()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2026-03-10T12:00:00Z", doc["generated_at"])

	summary := doc["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total"])
	byStatus := summary["by_status"].(map[string]any)
	assert.Len(t, byStatus, 5)
	assert.Equal(t, float64(1), byStatus["finished"])
	assert.Equal(t, float64(0), byStatus["unknown"])

	trends := doc["trends"].([]any)
	require.Len(t, trends, 3)
	feb := trends[1].(map[string]any)
	assert.Equal(t, "2026-02", feb["period"])
	assert.Equal(t, float64(0), feb["finished"])

	quests := doc["quests"].([]any)
	require.Len(t, quests, 2)
	alpha := quests[0].(map[string]any)
	assert.Equal(t, "2026-01-20", alpha["completed_date"])
	assert.Equal(t, "2026-01-19T10:00:00Z", alpha["updated_at"])
	assert.Nil(t, alpha["created_at"])
	assert.Equal(t, float64(31), alpha["pr_number"])
	assert.Equal(t, "finished", alpha["group"])
	assert.Equal(t, "https://github.com/KjellKod/quest/pull/31", alpha["pr_url"])

	beta := quests[1].(map[string]any)
	assert.Nil(t, beta["completed_date"])
	assert.Nil(t, beta["journal_path"])
	assert.Equal(t, "Under Review", beta["phase_label"])
	assert.Equal(t, "reviewer", beta["last_role"])
}

func TestJSONIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, JSON(&a, testDataset()))
	require.NoError(t, JSON(&b, testDataset()))
	assert.Equal(t, a.String(), b.String())
}

func TestJSONEmptyWarningsIsArray(t *testing.T) {
	ds := testDataset()
	ds.Warnings = nil
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, ds))
	assert.Contains(t, buf.String(), `"warnings": []`)
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, YAML(&buf, testDataset()))

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 2, doc.Summary.Total)
	require.Len(t, doc.Quests, 2)
	assert.Equal(t, "alpha", doc.Quests[0].Slug)
	assert.Equal(t, []string{"missing quest brief .quest/beta_2026-03-01__0800/quest_brief.md"}, doc.Warnings)
}

func TestHTMLFallsBackToSVG(t *testing.T) {
	r, err := New(FormatHTML, HTMLOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, testDataset()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!doctype html>"))
	assert.Contains(t, out, `<svg class="trend-svg"`)
	assert.NotContains(t, out, "trend-chart")
	assert.Contains(t, out, `id="quest-alpha_2026-01-10__0900"`)
	assert.Contains(t, out, "Alpha &lt;script&gt;")
	assert.NotContains(t, out, "Alpha <script>")
	assert.Contains(t, out, "Ship alpha &amp; friends.")
	assert.Contains(t, out, `href="https://github.com/KjellKod/quest/pull/31"`)
	assert.Contains(t, out, "Under Review")
	assert.Contains(t, out, "Build Warnings")
	assert.Contains(t, out, "Generated on 2026-03-10 12:00:00 UTC")
	assert.Contains(t, out, "1 completed quest<")
	assert.Contains(t, out, "0 abandoned quests")
}

func TestHTMLWithChartCapability(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/vendor/chart.min.js", []byte("window.Chart = function () {};"), 0o644))
	chart, err := LoadChart(fs, "/vendor/chart.min.js")
	require.NoError(t, err)
	require.True(t, chart.Available)

	r, err := NewHTML(HTMLOptions{Chart: chart})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, testDataset()))
	out := buf.String()

	assert.Contains(t, out, "window.Chart = function () {};")
	assert.Contains(t, out, `id="trend-chart"`)
	assert.Contains(t, out, `"labels":["2026-01","2026-02","2026-03"]`)
	assert.NotContains(t, out, `<svg class="trend-svg"`)
}

func TestLoadChart(t *testing.T) {
	fs := afero.NewMemMapFs()

	chart, err := LoadChart(fs, "")
	require.NoError(t, err)
	assert.False(t, chart.Available)

	_, err = LoadChart(fs, "/missing.js")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.js", []byte("x = '</SCRIPT>'"), 0o644))
	_, err = LoadChart(fs, "/bad.js")
	assert.Error(t, err)
}

func TestHTMLRelativeJournalLink(t *testing.T) {
	ds := testDataset()
	cards := dashboard.BuildCards([]reconcile.Quest{{
		QuestID:     "q",
		Status:      status.Finished,
		JournalPath: "docs/quest-journal/q.md",
	}}, "")
	ds.Quests = cards
	ds.Groups = dashboard.Group(cards)

	r, err := NewHTML(HTMLOptions{OutputPath: "/repo/docs/dashboard/index.html", RepoRoot: "/repo"})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, ds))
	assert.Contains(t, buf.String(), `href="../../docs/quest-journal/q.md"`)
}

func TestBuildTrendSVG(t *testing.T) {
	assert.Nil(t, buildTrendSVG(nil))

	ds := testDataset()
	g := buildTrendSVG(ds.Model.Trends)
	require.NotNil(t, g)
	// one bar for January (finished), none for February, one for March
	assert.Len(t, g.Bars, 2)
	assert.Len(t, g.Labels, 3)
	assert.Len(t, g.Legend, len(trendOrder))
	for _, b := range g.Bars {
		assert.LessOrEqual(t, b.Y+b.H, g.AxisBottom+0.1)
	}
}
