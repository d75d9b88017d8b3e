package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/BioB3/Flight-within-USA-Displayer/src/processor"
)

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// renderResult 以表格输出聚合结果
func renderResult(w io.Writer, res *processor.AggregateResult) error {
	if res == nil || res.IsEmpty() {
		_, err := fmt.Fprintln(w, processor.NoFlightsFound)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch res.Kind {
	case processor.AverageDelay:
		_, _ = fmt.Fprintln(tw, "WEEK\tDEP_DELAY\tARR_DELAY\tFLIGHTS")
		for _, row := range res.Delay {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", row.Week, formatValue(row.DepDelay), formatValue(row.ArrDelay), row.Count)
		}
	default:
		label := "STATUS"
		if res.Kind == processor.TimeBlockPercent {
			label = "TIME_BLOCK"
		}
		_, _ = fmt.Fprintf(tw, "%s\tFLIGHTS\tPERCENT\n", label)
		pct := res.Counts.Percentages()
		for i, c := range res.Counts {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s%%\n", c.Label, c.Count, formatValue(pct[i]))
		}
	}
	return tw.Flush()
}

// renderCrossTab 输出交叉表
func renderCrossTab(w io.Writer, title string, t processor.CrossTab) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", title, strings.Join(t.Columns, "\t"))
	for i, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for j := range t.Columns {
			cells[j] = strconv.Itoa(t.Counts[i][j])
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", row, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// renderDaily 输出每日平均延误
func renderDaily(w io.Writer, days []processor.DayDelay) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DAY\tDEP_DELAY\tARR_DELAY\tFLIGHTS")
	for _, d := range days {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", d.Day, formatValue(d.DepDelay), formatValue(d.ArrDelay), d.Count)
	}
	return tw.Flush()
}

// renderHistogram 输出延误分布，两端的箱包含超出范围的航班
func renderHistogram(w io.Writer, bins []processor.DelayBin) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DELAY\tDEP_FLIGHTS\tARR_FLIGHTS")
	for _, b := range bins {
		_, _ = fmt.Fprintf(tw, "%.0f..%.0f\t%d\t%d\n", b.Lo, b.Hi, b.Dep, b.Arr)
	}
	return tw.Flush()
}
