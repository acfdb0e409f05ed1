package render

import (
	"fmt"

	"github.com/KjellKod/quest/pkg/dashboard"
	"github.com/KjellKod/quest/pkg/status"
)

// Stack order of the trend chart, bottom to top.
var trendOrder = []status.Status{status.Finished, status.InProgress, status.Blocked, status.Abandoned, status.Unknown}

var statusColors = map[status.Status]string{
	status.Finished:   "#10b981",
	status.InProgress: "#f59e0b",
	status.Blocked:    "#ef4444",
	status.Abandoned:  "#94a3b8",
	status.Unknown:    "#a78bfa",
}

const (
	svgWidth   = 640
	svgHeight  = 200
	svgPadL    = 40
	svgPadR    = 16
	svgPadT    = 20
	svgPadB    = 48
	svgBarFill = 0.6
)

type svgRect struct {
	X, Y, W, H float64
	Fill       string
	Title      string
}

type svgText struct {
	X, Y float64
	Text string
}

type legendItem struct {
	X     float64
	Y     float64
	Fill  string
	Label string
}

type trendSVG struct {
	Width, Height int
	AxisX, AxisY  float64
	AxisRight     float64
	AxisBottom    float64
	MaxLabel      svgText
	Bars          []svgRect
	Labels        []svgText
	Legend        []legendItem
}

// buildTrendSVG lays out a stacked bar per trend period. It returns nil when
// there is nothing to draw.
func buildTrendSVG(points []dashboard.TrendPoint) *trendSVG {
	if len(points) == 0 {
		return nil
	}
	plotW := float64(svgWidth - svgPadL - svgPadR)
	plotH := float64(svgHeight - svgPadT - svgPadB)
	bottom := float64(svgPadT) + plotH

	peak := 1
	for _, p := range points {
		if t := p.Counts.Total(); t > peak {
			peak = t
		}
	}

	g := &trendSVG{
		Width:      svgWidth,
		Height:     svgHeight,
		AxisX:      svgPadL,
		AxisY:      svgPadT,
		AxisRight:  svgPadL + plotW,
		AxisBottom: bottom,
		MaxLabel:   svgText{X: svgPadL - 6, Y: svgPadT + 4, Text: fmt.Sprint(peak)},
	}

	slot := plotW / float64(len(points))
	barW := slot * svgBarFill
	// Label every period while they fit, otherwise thin them out.
	every := 1
	if n := len(points); n > 12 {
		every = (n + 11) / 12
	}
	for i, p := range points {
		x := float64(svgPadL) + float64(i)*slot + (slot-barW)/2
		y := bottom
		for _, s := range trendOrder {
			n := p.Counts[s]
			if n == 0 {
				continue
			}
			h := float64(n) / float64(peak) * plotH
			y -= h
			g.Bars = append(g.Bars, svgRect{
				X: round1(x), Y: round1(y), W: round1(barW), H: round1(h),
				Fill:  statusColors[s],
				Title: fmt.Sprintf("%s: %d %s", p.Period, n, s.Label()),
			})
		}
		if i%every == 0 {
			g.Labels = append(g.Labels, svgText{X: round1(x + barW/2), Y: bottom + 16, Text: p.Period})
		}
	}

	lx := float64(svgPadL)
	for _, s := range trendOrder {
		g.Legend = append(g.Legend, legendItem{X: lx, Y: bottom + 28, Fill: statusColors[s], Label: s.Label()})
		lx += 110
	}
	return g
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
