// stats.go
package processor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
)

// NoFlightsFound 空结果时的统计报告
const NoFlightsFound = "No flights found"

// DelayStats 一组延误时间的描述统计，Count为0时其余字段为NaN
type DelayStats struct {
	Count    int
	Mean     float64
	Min      float64
	Max      float64
	Variance float64
	StdDev   float64
	CV       float64 // 变异系数 std/mean
	IQR      float64
}

// ComputeDelayStats 忽略NaN后计算统计量
func ComputeDelayStats(values []float64) DelayStats {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			xs = append(xs, v)
		}
	}

	nan := math.NaN()
	st := DelayStats{Count: len(xs), Mean: nan, Min: nan, Max: nan, Variance: nan, StdDev: nan, CV: nan, IQR: nan}
	if len(xs) == 0 {
		return st
	}

	st.Mean = stat.Mean(xs, nil)
	st.Min = floats.Min(xs)
	st.Max = floats.Max(xs)

	// 样本方差至少需要两个值
	if len(xs) > 1 {
		st.Variance = stat.Variance(xs, nil)
		st.StdDev = math.Sqrt(st.Variance)
		if st.Mean != 0 {
			st.CV = st.StdDev / st.Mean
		}
	}

	sort.Float64s(xs)
	st.IQR = stat.Quantile(0.75, stat.Empirical, xs, nil) - stat.Quantile(0.25, stat.Empirical, xs, nil)
	return st
}

func formatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeDelayBlock(b *strings.Builder, title string, st DelayStats, extended bool) {
	fmt.Fprintf(b, "%s (minutes)\n", title)
	fmt.Fprintf(b, "  Mean: %s\n", formatStat(st.Mean))
	fmt.Fprintf(b, "  Min: %s\n", formatStat(st.Min))
	fmt.Fprintf(b, "  Max: %s\n", formatStat(st.Max))
	if extended {
		fmt.Fprintf(b, "  Variance: %s\n", formatStat(st.Variance))
		fmt.Fprintf(b, "  Std: %s\n", formatStat(st.StdDev))
		fmt.Fprintf(b, "  CV: %s\n", formatStat(st.CV))
		fmt.Fprintf(b, "  IQR: %s\n", formatStat(st.IQR))
	}
}

func delayColumns(records []model.FlightRecord) (dep, arr []float64) {
	dep = make([]float64, len(records))
	arr = make([]float64, len(records))
	for i, r := range records {
		dep[i], arr[i] = r.DepDelay, r.ArrDelay
	}
	return dep, arr
}

// Summarize 生成子集的统计报告
// 格式:
//
//	<维度描述>
//	Number of flights: N
//	Departure delay / Arrival delay 的 Mean, Min, Max
//	按维度的分组明细
func Summarize(sub *Subset, strategy SearchStrategy, c FilterCriteria) string {
	if sub.IsEmpty() {
		return NoFlightsFound
	}

	records := sub.Records()
	dep, arr := delayColumns(records)

	var b strings.Builder
	if strategy != nil {
		b.WriteString(strategy.Describe(c))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Number of flights: %d\n\n", len(records))
	writeDelayBlock(&b, "Departure delay", ComputeDelayStats(dep), false)
	writeDelayBlock(&b, "Arrival delay", ComputeDelayStats(arr), false)

	if strategy == nil {
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString("\n")
	switch strategy.Dimension() {
	case DimensionFlight:
		writeAirlineDelays(&b, records)
	case DimensionAirport:
		writeGroupCounts(&b, "Flights by destination", records, func(r model.FlightRecord) string { return r.Dest })
	case DimensionAirline:
		writeGroupCounts(&b, "Flights by origin airport", records, func(r model.FlightRecord) string { return r.Origin })
	}
	return strings.TrimRight(b.String(), "\n")
}

// writeAirlineDelays 各航司的平均出发/到达延误，按航司ID排序
func writeAirlineDelays(b *strings.Builder, records []model.FlightRecord) {
	type group struct{ dep, arr []float64 }
	groups := make(map[int64]*group)
	var ids []int64
	for _, r := range records {
		g, ok := groups[r.CarrierID]
		if !ok {
			g = &group{}
			groups[r.CarrierID] = g
			ids = append(ids, r.CarrierID)
		}
		g.dep = append(g.dep, r.DepDelay)
		g.arr = append(g.arr, r.ArrDelay)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	b.WriteString("Average delay by airline\n")
	for _, id := range ids {
		g := groups[id]
		fmt.Fprintf(b, "  %d: departure %s, arrival %s\n", id,
			formatStat(ComputeDelayStats(g.dep).Mean), formatStat(ComputeDelayStats(g.arr).Mean))
	}
}

// writeGroupCounts 按标签计数，按标签排序
func writeGroupCounts(b *strings.Builder, title string, records []model.FlightRecord, label func(model.FlightRecord) string) {
	counts := make(map[string]int)
	for _, r := range records {
		counts[label(r)]++
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	b.WriteString(title + "\n")
	for _, l := range labels {
		fmt.Fprintf(b, "  %s: %d\n", l, counts[l])
	}
}

// SummarizeDataset 整个数据集的统计报告，增加方差、标准差、变异系数和四分位距
func SummarizeDataset(ds *model.Dataset) string {
	if ds == nil || ds.Len() == 0 {
		return NoFlightsFound
	}

	records := ds.Records()
	dep, arr := delayColumns(records)

	var b strings.Builder
	fmt.Fprintf(&b, "Number of flights: %d\n\n", len(records))
	writeDelayBlock(&b, "Departure delay", ComputeDelayStats(dep), true)
	writeDelayBlock(&b, "Arrival delay", ComputeDelayStats(arr), true)
	return strings.TrimRight(b.String(), "\n")
}
