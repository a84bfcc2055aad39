package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders the coverage summary as a self-contained ECharts page:
// a growth curve of cumulative pair coverage per scenario and a bar chart
// of per-parameter-pair coverage.
func WriteHTML(summary *Summary, w io.Writer) error {
	x := make([]string, len(summary.Rows))
	growth := make([]opts.LineData, len(summary.Rows))
	perRow := make([]opts.LineData, len(summary.Rows))
	for i, rc := range summary.Rows {
		x[i] = fmt.Sprintf("%d", rc.Row)
		growth[i] = opts.LineData{Value: rc.Cumulative}
		perRow[i] = opts.LineData{Value: rc.NewPairs}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Pair coverage growth",
			Subtitle: fmt.Sprintf("technique=%s rows=%d covered=%d/%d", summary.Technique, len(summary.Rows), summary.TotalCovered, summary.PairUniverse),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "scenario"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pairs"}),
	)
	line.SetXAxis(x).
		AddSeries("cumulative", growth).
		AddSeries("new pairs", perRow)

	blockX := make([]string, len(summary.Blocks))
	blockY := make([]opts.BarData, len(summary.Blocks))
	for i, b := range summary.Blocks {
		blockX[i] = b.ParameterA + "/" + b.ParameterB
		blockY[i] = opts.BarData{Value: b.Covered}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Covered pairs per parameter pair"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(blockX).
		AddSeries("covered", blockY,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(line, bar)
	return page.Render(w)
}
