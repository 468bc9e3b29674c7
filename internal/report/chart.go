package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/rtgs.sim/internal/simulate"
	"github.com/banshee-data/rtgs.sim/internal/splat"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// tileHeatmap plots one tile statistic over the tile grid.
func tileHeatmap(ts *splat.TileSet, title string, value func(splat.TileStats) int64) *charts.HeatMap {
	s := ts.Summary
	xs := make([]string, s.TilesX)
	for i := range xs {
		xs[i] = strconv.Itoa(i)
	}
	ys := make([]string, s.TilesY)
	for i := range ys {
		ys[i] = strconv.Itoa(i)
	}

	var peak int64
	data := make([]opts.HeatMapData, 0, len(ts.Tiles))
	for _, t := range ts.Tiles {
		v := value(t)
		if v > peak {
			peak = v
		}
		data = append(data, opts.HeatMapData{Value: [3]interface{}{t.Col, t.Row, v}})
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "RTGS tile workload", Width: "1100px", Height: "760px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("tiles=%dx%d max=%d", s.TilesX, s.TilesY, peak)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "tile column"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "tile row"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(peak),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(xs).AddSeries(title, data)
	return hm
}

// WriteTileChart renders an HTML page with heatmaps of the final frame's
// group_max and raw_max per tile, followed by a PE load bar chart.
func WriteTileChart(w io.Writer, res *simulate.Result) error {
	f := res.Last()
	if f == nil {
		return fmt.Errorf("result has no frames")
	}

	group := tileHeatmap(f.Tiles, "group_max", func(t splat.TileStats) int64 { return t.GroupMax })
	raw := tileHeatmap(f.Tiles, "raw_max", func(t splat.TileStats) int64 { return t.RawMax })

	names := make([]string, len(f.Schedule.Loads))
	loads := make([]opts.BarData, len(f.Schedule.Loads))
	for i, l := range f.Schedule.Loads {
		names[i] = fmt.Sprintf("PE %02d", i)
		loads[i] = opts.BarData{Value: l}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1100px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "PE load", Subtitle: fmt.Sprintf("policy=%s makespan=%d", f.Schedule.Policy, f.Makespan)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("cycles", loads,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.PageTitle = "RTGS run " + res.RunID
	page.AddCharts(group, raw, bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
