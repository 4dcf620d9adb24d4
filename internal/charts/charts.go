// Package charts builds go-echarts views of a replay: position
// evolution per lap, lap-time traces and the derived track geometry.
package charts

import (
	"fmt"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/baenzigerbear/f1-race-replay/internal/replay"
)

func entityName(e replay.Entity) string {
	if e.Label != "" {
		return e.Label
	}
	return fmt.Sprintf("#%d", e.ID)
}

// PositionsByLap renders one line per entity tracking its classified
// position across completed leader laps. The Y axis is inverted so P1
// sits on top, like a timing screen.
func PositionsByLap(entities []replay.Entity, positions map[int]map[int]int) *charts.Line {
	laps := make([]int, 0, len(positions))
	for lap := range positions {
		laps = append(laps, lap)
	}
	sort.Ints(laps)

	labels := make([]string, len(laps))
	for i, lap := range laps {
		labels[i] = fmt.Sprintf("L%d", lap)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Race Positions", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Position by Lap"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Position", Inverse: opts.Bool(true), Min: 1}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels)

	for _, e := range entities {
		data := make([]opts.LineData, len(laps))
		for i, lap := range laps {
			if pos, ok := positions[lap][e.ID]; ok {
				data[i] = opts.LineData{Value: pos}
			} else {
				data[i] = opts.LineData{Value: nil}
			}
		}
		series := line.AddSeries(entityName(e), data)
		if e.Colour != "" {
			series.SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Color: e.Colour}))
		}
	}
	return line
}

// LapTimes renders one line per entity of its lap durations, computed
// from the raw start/finish crossing times.
func LapTimes(entities []replay.Entity, lapHistories map[int][]float64) *charts.Line {
	maxLaps := 0
	for _, times := range lapHistories {
		if n := len(replay.LapDurations(times)); n > maxLaps {
			maxLaps = n
		}
	}

	labels := make([]string, maxLaps)
	for i := range labels {
		labels[i] = fmt.Sprintf("L%d", i+1)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Lap Times", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Lap Times"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Seconds"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels)

	for _, e := range entities {
		durations := replay.LapDurations(lapHistories[e.ID])
		if len(durations) == 0 {
			continue
		}
		data := make([]opts.LineData, maxLaps)
		for i := range data {
			if i < len(durations) {
				data[i] = opts.LineData{Value: durations[i]}
			} else {
				data[i] = opts.LineData{Value: nil}
			}
		}
		series := line.AddSeries(entityName(e), data)
		if e.Colour != "" {
			series.SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Color: e.Colour}))
		}
	}
	return line
}

// TrackMap renders the reference path as a scatter plot with the
// derived gate anchors highlighted.
func TrackMap(path []replay.Sample, gates replay.TrackGates) *charts.Scatter {
	const maxPoints = 4000
	stride := 1
	if len(path) > maxPoints {
		stride = len(path)/maxPoints + 1
	}

	pathData := make([]opts.ScatterData, 0, len(path)/stride+1)
	for i := 0; i < len(path); i += stride {
		pathData = append(pathData, opts.ScatterData{Value: []interface{}{path[i].X, path[i].Y}})
	}

	var gateData []opts.ScatterData
	add := func(g *replay.Gate) {
		if g != nil {
			gateData = append(gateData, opts.ScatterData{
				Value: []interface{}{g.Anchor.X, g.Anchor.Y},
				Name:  g.ID.Kind.String(),
			})
		}
	}
	add(gates.StartFinish)
	for i := range gates.MiniSectors {
		add(&gates.MiniSectors[i])
	}
	add(gates.PitEntry)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track Map", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Track Map", Subtitle: fmt.Sprintf("path points=%d gates=%d", len(pathData), len(gateData))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)"}),
	)
	scatter.AddSeries("path", pathData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	scatter.AddSeries("gates", gateData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	return scatter
}
