// aggregate.go
package processor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
)

// AggregateKind 聚合视图类型
type AggregateKind int

const (
	AverageDelay     AggregateKind = iota // 每周平均延误
	StatusPercent                         // 执行状态占比
	TimeBlockPercent                      // 起飞时段占比
)

var aggregateKindNames = []string{"average-delay", "status", "time-block"}

func (k AggregateKind) String() string {
	if k >= 0 && int(k) < len(aggregateKindNames) {
		return aggregateKindNames[k]
	}
	return "unknown"
}

// ParseAggregateKind 解析 average-delay / status / time-block
func ParseAggregateKind(name string) (AggregateKind, error) {
	normalized := strings.ToLower(strings.NewReplacer("_", "-", " ", "-").Replace(strings.TrimSpace(name)))
	for i, n := range aggregateKindNames {
		if normalized == n {
			return AggregateKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown aggregate kind %q (expected average-delay, status or time-block)", name)
}

// WeekDelay 某一周的平均延误
type WeekDelay struct {
	Week     int
	DepDelay float64 // 该周没有任何延误数据时为NaN
	ArrDelay float64
	Count    int
}

// WeekDelayTable 按周升序排列
type WeekDelayTable []WeekDelay

// IsEmpty 没有任何一周
func (t WeekDelayTable) IsEmpty() bool { return len(t) == 0 }

// Frame 列 WEEK, DEP_DELAY, ARR_DELAY, FLIGHTS
func (t WeekDelayTable) Frame() dataframe.DataFrame {
	weeks := make([]int, len(t))
	dep := make([]float64, len(t))
	arr := make([]float64, len(t))
	counts := make([]int, len(t))
	for i, row := range t {
		weeks[i], dep[i], arr[i], counts[i] = row.Week, row.DepDelay, row.ArrDelay, row.Count
	}
	return dataframe.New(
		series.New(weeks, series.Int, "WEEK"),
		series.New(dep, series.Float, "DEP_DELAY"),
		series.New(arr, series.Float, "ARR_DELAY"),
		series.New(counts, series.Int, "FLIGHTS"),
	)
}

// Count 某一类别的数量
type Count struct {
	Label string
	Count int
}

// Counts 只包含出现过的类别，按类别固有顺序排列
type Counts []Count

// IsEmpty 没有任何类别
func (c Counts) IsEmpty() bool { return len(c) == 0 }

// Total 数量合计
func (c Counts) Total() int {
	total := 0
	for _, item := range c {
		total += item.Count
	}
	return total
}

// Get 按类别名称取数量，不存在时返回0
func (c Counts) Get(label string) int {
	for _, item := range c {
		if item.Label == label {
			return item.Count
		}
	}
	return 0
}

// Map 类别 -> 数量
func (c Counts) Map() map[string]int {
	out := make(map[string]int, len(c))
	for _, item := range c {
		out[item.Label] = item.Count
	}
	return out
}

// Percentages 各类别百分比，与Counts顺序一致
func (c Counts) Percentages() []float64 {
	total := c.Total()
	out := make([]float64, len(c))
	if total == 0 {
		return out
	}
	for i, item := range c {
		out[i] = float64(item.Count) * 100 / float64(total)
	}
	return out
}

// Frame 列 <labelCol>, FLIGHTS, PERCENT
func (c Counts) Frame(labelCol string) dataframe.DataFrame {
	labels := make([]string, len(c))
	counts := make([]int, len(c))
	for i, item := range c {
		labels[i], counts[i] = item.Label, item.Count
	}
	return dataframe.New(
		series.New(labels, series.String, labelCol),
		series.New(counts, series.Int, "FLIGHTS"),
		series.New(c.Percentages(), series.Float, "PERCENT"),
	)
}

// AverageDelayByWeek 按周分组计算平均出发/到达延误，空值不参与平均
func AverageDelayByWeek(sub *Subset) WeekDelayTable {
	type acc struct {
		depSum, arrSum float64
		depN, arrN     int
		count          int
	}
	var groups [MaxWeek + 1]*acc

	for i := 0; i < sub.Len(); i++ {
		r := sub.Record(i)
		if r.Week < 1 || r.Week > MaxWeek {
			continue
		}
		g := groups[r.Week]
		if g == nil {
			g = &acc{}
			groups[r.Week] = g
		}
		g.count++
		if r.HasDepDelay() {
			g.depSum += r.DepDelay
			g.depN++
		}
		if r.HasArrDelay() {
			g.arrSum += r.ArrDelay
			g.arrN++
		}
	}

	table := WeekDelayTable{}
	for week := 1; week <= MaxWeek; week++ {
		g := groups[week]
		if g == nil {
			continue
		}
		table = append(table, WeekDelay{
			Week:     week,
			DepDelay: mean(g.depSum, g.depN),
			ArrDelay: mean(g.arrSum, g.arrN),
			Count:    g.count,
		})
	}
	return table
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// StatusBreakdown 各执行状态的航班数
func StatusBreakdown(sub *Subset) Counts {
	counts := make(map[model.Status]int)
	for i := 0; i < sub.Len(); i++ {
		counts[sub.Record(i).Status]++
	}

	out := Counts{}
	for _, s := range model.AllStatuses() {
		if n := counts[s]; n > 0 {
			out = append(out, Count{Label: s.String(), Count: n})
		}
	}
	return out
}

// TimeBlockBreakdown 各起飞时段的航班数，时段缺失的记录不计入
func TimeBlockBreakdown(sub *Subset) Counts {
	counts := make(map[model.TimeBlock]int)
	for i := 0; i < sub.Len(); i++ {
		counts[sub.Record(i).TimeBlock]++
	}

	out := Counts{}
	for _, b := range model.AllTimeBlocks() {
		if n := counts[b]; n > 0 {
			out = append(out, Count{Label: b.String(), Count: n})
		}
	}
	return out
}

// SeriesPoint 带标签的一组数值
type SeriesPoint struct {
	Label  string
	Values []float64
}

// LabeledSeries 供展示层绘图的序列，Names对应每个点Values中的各列
type LabeledSeries struct {
	Names  []string
	Points []SeriesPoint
}

// AggregateResult 一次聚合的结果，创建后不再修改
type AggregateResult struct {
	Kind   AggregateKind
	Subset *Subset
	Delay  WeekDelayTable
	Counts Counts
}

// Aggregate 对子集计算指定视图，子集为空时返回空结果
func Aggregate(kind AggregateKind, sub *Subset) (*AggregateResult, error) {
	res := &AggregateResult{Kind: kind, Subset: sub}
	switch kind {
	case AverageDelay:
		res.Delay = AverageDelayByWeek(sub)
	case StatusPercent:
		res.Counts = StatusBreakdown(sub)
	case TimeBlockPercent:
		res.Counts = TimeBlockBreakdown(sub)
	default:
		return nil, fmt.Errorf("unknown aggregate kind %d", int(kind))
	}
	return res, nil
}

// IsEmpty 没有匹配的航班
func (r *AggregateResult) IsEmpty() bool {
	if r.Kind == AverageDelay {
		return r.Delay.IsEmpty()
	}
	return r.Counts.IsEmpty()
}

// PlotLine 平均延误只有一周数据时不适合画折线
func (r *AggregateResult) PlotLine() bool {
	return r.Kind == AverageDelay && len(r.Delay) > 1
}

// Series 转换为带标签的序列
func (r *AggregateResult) Series() LabeledSeries {
	if r.Kind == AverageDelay {
		ls := LabeledSeries{Names: []string{"Departure delay", "Arrival delay"}}
		for _, row := range r.Delay {
			ls.Points = append(ls.Points, SeriesPoint{
				Label:  strconv.Itoa(row.Week),
				Values: []float64{row.DepDelay, row.ArrDelay},
			})
		}
		return ls
	}

	ls := LabeledSeries{Names: []string{"Flights", "Percent"}}
	pct := r.Counts.Percentages()
	for i, item := range r.Counts {
		ls.Points = append(ls.Points, SeriesPoint{
			Label:  item.Label,
			Values: []float64{float64(item.Count), pct[i]},
		})
	}
	return ls
}

// Frame 结果表，用于导出
func (r *AggregateResult) Frame() dataframe.DataFrame {
	switch r.Kind {
	case AverageDelay:
		return r.Delay.Frame()
	case StatusPercent:
		return r.Counts.Frame("STATUS")
	default:
		return r.Counts.Frame("DEP_TIME_BLK")
	}
}
