package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KjellKod/quest/pkg/reconcile"
	"github.com/KjellKod/quest/pkg/status"
	"github.com/KjellKod/quest/pkg/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quest(id string, s status.Status, completed time.Time) reconcile.Quest {
	return reconcile.Quest{
		QuestID:       id,
		Slug:          id,
		Status:        s,
		CompletedDate: completed,
		UpdatedAt:     store.Epoch,
		CreatedAt:     store.Epoch,
	}
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, Monthly, g)

	g, err = ParseGranularity("week")
	require.NoError(t, err)
	assert.Equal(t, Weekly, g)

	_, err = ParseGranularity("fortnight")
	assert.Error(t, err)
}

func TestGranularityKey(t *testing.T) {
	assert.Equal(t, "2026-02", Monthly.Key(day(2026, 2, 28)))
	assert.Equal(t, "2026-W01", Weekly.Key(day(2025, 12, 29)))
	assert.Equal(t, "2026-W09", Weekly.Key(day(2026, 2, 28)))
}

func TestBuildModelCountsEveryStatus(t *testing.T) {
	m := BuildModel([]reconcile.Quest{
		quest("a", status.Finished, day(2026, 1, 5)),
		quest("b", status.Finished, day(2026, 1, 9)),
		quest("c", status.Blocked, time.Time{}),
	}, Monthly)

	assert.Equal(t, 3, m.Total)
	assert.Len(t, m.ByStatus, len(status.All))
	assert.Equal(t, 2, m.ByStatus[status.Finished])
	assert.Equal(t, 1, m.ByStatus[status.Blocked])
	assert.Equal(t, 0, m.ByStatus[status.InProgress])
	assert.Equal(t, 0, m.ByStatus[status.Abandoned])
	assert.Equal(t, 0, m.ByStatus[status.Unknown])
	assert.Equal(t, 3, m.ByStatus.Total())

	// c has no usable date, so it is counted but not trended
	require.Len(t, m.Trends, 1)
	assert.Equal(t, 2, m.Trends[0].Counts.Total())
}

func TestBuildTrendPointsFillsGaps(t *testing.T) {
	points := BuildTrendPoints([]reconcile.Quest{
		quest("mar", status.Abandoned, day(2026, 3, 2)),
		quest("jan", status.Finished, day(2026, 1, 15)),
	}, Monthly)

	require.Len(t, points, 3)
	assert.Equal(t, "2026-01", points[0].Period)
	assert.Equal(t, "2026-02", points[1].Period)
	assert.Equal(t, "2026-03", points[2].Period)

	for _, s := range status.All {
		assert.Equal(t, 0, points[1].Counts[s], "february %s", s)
	}
	assert.Equal(t, 1, points[0].Counts[status.Finished])
	assert.Equal(t, 1, points[2].Counts[status.Abandoned])
}

func TestBuildTrendPointsWeekly(t *testing.T) {
	points := BuildTrendPoints([]reconcile.Quest{
		quest("a", status.Finished, day(2026, 1, 1)),  // Thursday of 2026-W01
		quest("b", status.Finished, day(2026, 1, 20)), // Tuesday of 2026-W04
	}, Weekly)

	var periods []string
	for _, p := range points {
		periods = append(periods, p.Period)
	}
	assert.Equal(t, []string{"2026-W01", "2026-W02", "2026-W03", "2026-W04"}, periods)
	assert.Equal(t, day(2025, 12, 29), points[0].Start)
}

func TestBuildTrendPointsFallbackDates(t *testing.T) {
	updated := quest("u", status.InProgress, time.Time{})
	updated.UpdatedAt = time.Date(2026, 4, 3, 22, 0, 0, 0, time.UTC)
	created := quest("c", status.Unknown, time.Time{})
	created.CreatedAt = time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)

	points := BuildTrendPoints([]reconcile.Quest{updated, created}, Monthly)
	require.Len(t, points, 2)
	assert.Equal(t, 1, points[0].Counts[status.InProgress])
	assert.Equal(t, 1, points[1].Counts[status.Unknown])
}

func TestBuildTrendPointsEmpty(t *testing.T) {
	assert.Empty(t, BuildTrendPoints(nil, Monthly))
	assert.Empty(t, BuildTrendPoints([]reconcile.Quest{quest("x", status.Unknown, time.Time{})}, Monthly))
}
