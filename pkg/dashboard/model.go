// Package dashboard aggregates reconciled quests into the dataset renderers
// consume.
package dashboard

import (
	"fmt"
	"time"

	"github.com/KjellKod/quest/pkg/reconcile"
	"github.com/KjellKod/quest/pkg/status"
)

// Granularity is the width of a trend bucket.
type Granularity string

const (
	Monthly Granularity = "month"
	Weekly  Granularity = "week"
)

// ParseGranularity accepts "month" or "week"; empty means Monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", Monthly:
		return Monthly, nil
	case Weekly:
		return Weekly, nil
	}
	return "", fmt.Errorf("unknown granularity %q (want month or week)", s)
}

// start truncates t to the first day of its bucket.
func (g Granularity) start(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	if g == Weekly {
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday is 0
		return day.AddDate(0, 0, -offset)
	}
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func (g Granularity) next(start time.Time) time.Time {
	if g == Weekly {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 1, 0)
}

// Key formats the bucket containing t: YYYY-MM, or YYYY-Www for ISO weeks.
func (g Granularity) Key(t time.Time) string {
	if g == Weekly {
		y, w := t.UTC().ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	}
	return t.UTC().Format("2006-01")
}

// Counts holds one count per canonical status.
type Counts map[status.Status]int

func newCounts() Counts {
	c := make(Counts, len(status.All))
	for _, s := range status.All {
		c[s] = 0
	}
	return c
}

// Total sums the counts.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// TrendPoint is one bucket of the trend series.
type TrendPoint struct {
	Period string
	Start  time.Time
	Counts Counts
}

// Model is the aggregate view of the quest list.
type Model struct {
	Total       int
	ByStatus    Counts
	Trends      []TrendPoint
	Granularity Granularity
}

// BuildModel counts quests by status and buckets them over time.
func BuildModel(quests []reconcile.Quest, g Granularity) Model {
	m := Model{
		Total:       len(quests),
		ByStatus:    newCounts(),
		Trends:      BuildTrendPoints(quests, g),
		Granularity: g,
	}
	for _, q := range quests {
		m.ByStatus[bucketStatus(q.Status)]++
	}
	return m
}

// BuildTrendPoints buckets quests by their event date. Every bucket between
// the earliest and latest one is present, with zero counts if nothing fell
// into it. Quests without a usable date are left out.
func BuildTrendPoints(quests []reconcile.Quest, g Granularity) []TrendPoint {
	buckets := make(map[time.Time]Counts)
	var first, last time.Time
	for _, q := range quests {
		d, ok := q.EventDate()
		if !ok {
			continue
		}
		start := g.start(d)
		if buckets[start] == nil {
			buckets[start] = newCounts()
		}
		buckets[start][bucketStatus(q.Status)]++
		if first.IsZero() || start.Before(first) {
			first = start
		}
		if start.After(last) {
			last = start
		}
	}
	if len(buckets) == 0 {
		return nil
	}

	var points []TrendPoint
	for start := first; !start.After(last); start = g.next(start) {
		counts := buckets[start]
		if counts == nil {
			counts = newCounts()
		}
		points = append(points, TrendPoint{Period: g.Key(start), Start: start, Counts: counts})
	}
	return points
}

func bucketStatus(s status.Status) status.Status {
	if s.Valid() {
		return s
	}
	return status.Unknown
}
