// story.go
package processor

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
)

// DayDelay 某一天的平均延误
type DayDelay struct {
	Day      int
	DepDelay float64
	ArrDelay float64
	Count    int
}

// CrossTab 行 x 状态列的航班数，缺失组合补0
type CrossTab struct {
	Rows    []string
	Columns []string
	Counts  [][]int
}

// Cell 取某行某列的数量，不存在时返回0
func (t CrossTab) Cell(row, col string) int {
	for i, r := range t.Rows {
		if r != row {
			continue
		}
		for j, c := range t.Columns {
			if c == col {
				return t.Counts[i][j]
			}
		}
	}
	return 0
}

// RowTotal 某行合计
func (t CrossTab) RowTotal(row string) int {
	total := 0
	for _, c := range t.Columns {
		total += t.Cell(row, c)
	}
	return total
}

// Frame 第一列为行标签，其余为各状态列
func (t CrossTab) Frame(rowCol string) dataframe.DataFrame {
	cols := []series.Series{series.New(t.Rows, series.String, rowCol)}
	for j, name := range t.Columns {
		values := make([]int, len(t.Rows))
		for i := range t.Rows {
			values[i] = t.Counts[i][j]
		}
		cols = append(cols, series.New(values, series.Int, name))
	}
	return dataframe.New(cols...)
}

// Story 数据集整体延误概况
type Story struct {
	Summary        string
	DepDelays      []float64 // 非空出发延误
	ArrDelays      []float64
	DelayHistogram []DelayBin
	DailyDelay     []DayDelay
	WeekStatus     CrossTab
	BlockStatus    CrossTab
}

// BuildStory 计算整体概况
func BuildStory(ds *model.Dataset) Story {
	st := Story{Summary: SummarizeDataset(ds), DepDelays: []float64{}, ArrDelays: []float64{}}

	statuses := model.AllStatuses()
	statusCols := make([]string, len(statuses))
	for i, s := range statuses {
		statusCols[i] = s.String()
	}

	weekRows := make([]string, MaxWeek)
	for w := 1; w <= MaxWeek; w++ {
		weekRows[w-1] = strconv.Itoa(w)
	}
	blocks := model.AllTimeBlocks()
	blockRows := make([]string, len(blocks))
	for i, b := range blocks {
		blockRows[i] = b.String()
	}

	st.WeekStatus = newCrossTab(weekRows, statusCols)
	st.BlockStatus = newCrossTab(blockRows, statusCols)

	type dayAcc struct {
		depSum, arrSum float64
		depN, arrN     int
		count          int
	}
	days := make(map[int]*dayAcc)
	maxDay := 0

	if ds == nil {
		st.DelayHistogram = delayHistogram(nil, nil)
		return st
	}

	ds.Each(func(_ int, r model.FlightRecord) bool {
		if r.HasDepDelay() {
			st.DepDelays = append(st.DepDelays, r.DepDelay)
		}
		if r.HasArrDelay() {
			st.ArrDelays = append(st.ArrDelays, r.ArrDelay)
		}

		statusCol := statusIndex(statuses, r.Status)
		if r.Week >= 1 && r.Week <= MaxWeek {
			st.WeekStatus.Counts[r.Week-1][statusCol]++
		}
		if r.TimeBlock.Valid() {
			st.BlockStatus.Counts[r.TimeBlock-model.EarlyMorning][statusCol]++
		}

		if !r.Date.IsZero() {
			d := r.Date.Day()
			acc, ok := days[d]
			if !ok {
				acc = &dayAcc{}
				days[d] = acc
			}
			acc.count++
			if r.HasDepDelay() {
				acc.depSum += r.DepDelay
				acc.depN++
			}
			if r.HasArrDelay() {
				acc.arrSum += r.ArrDelay
				acc.arrN++
			}
			if d > maxDay {
				maxDay = d
			}
		}
		return true
	})

	for d := 1; d <= maxDay; d++ {
		acc, ok := days[d]
		if !ok {
			continue
		}
		st.DailyDelay = append(st.DailyDelay, DayDelay{
			Day:      d,
			DepDelay: mean(acc.depSum, acc.depN),
			ArrDelay: mean(acc.arrSum, acc.arrN),
			Count:    acc.count,
		})
	}
	st.DelayHistogram = delayHistogram(st.DepDelays, st.ArrDelays)
	return st
}

func newCrossTab(rows, cols []string) CrossTab {
	counts := make([][]int, len(rows))
	for i := range counts {
		counts[i] = make([]int, len(cols))
	}
	return CrossTab{Rows: rows, Columns: cols, Counts: counts}
}

func statusIndex(statuses []model.Status, s model.Status) int {
	for i, v := range statuses {
		if v == s {
			return i
		}
	}
	return len(statuses) - 1
}

// DailyFrame 每日平均延误表
func (s Story) DailyFrame() dataframe.DataFrame {
	n := len(s.DailyDelay)
	days := make([]int, n)
	dep := make([]float64, n)
	arr := make([]float64, n)
	counts := make([]int, n)
	for i, d := range s.DailyDelay {
		days[i], dep[i], arr[i], counts[i] = d.Day, d.DepDelay, d.ArrDelay, d.Count
	}
	return dataframe.New(
		series.New(days, series.Int, "DAY_OF_MONTH"),
		series.New(dep, series.Float, "DEP_DELAY"),
		series.New(arr, series.Float, "ARR_DELAY"),
		series.New(counts, series.Int, "FLIGHTS"),
	)
}

// 延误直方图范围(分钟)，每箱10分钟
const (
	DelayHistogramLo   = -75.0
	DelayHistogramHi   = 75.0
	DelayHistogramBins = 15
)

// DelayBin 直方图的一个分箱 [Lo, Hi)
type DelayBin struct {
	Lo, Hi float64
	Dep    int // 出发延误落在该箱的航班数
	Arr    int
}

// delayHistogram 出发和到达延误共用同一组分箱
func delayHistogram(dep, arr []float64) []DelayBin {
	edges := floats.Span(make([]float64, DelayHistogramBins+1), DelayHistogramLo, DelayHistogramHi)
	depCounts := Histogram(dep, DelayHistogramLo, DelayHistogramHi, DelayHistogramBins)
	arrCounts := Histogram(arr, DelayHistogramLo, DelayHistogramHi, DelayHistogramBins)
	bins := make([]DelayBin, DelayHistogramBins)
	for i := range bins {
		bins[i] = DelayBin{Lo: edges[i], Hi: edges[i+1], Dep: depCounts[i], Arr: arrCounts[i]}
	}
	return bins
}

// HistogramFrame 延误直方图的导出表
func (s Story) HistogramFrame() dataframe.DataFrame {
	n := len(s.DelayHistogram)
	lo := make([]float64, n)
	hi := make([]float64, n)
	dep := make([]int, n)
	arr := make([]int, n)
	for i, b := range s.DelayHistogram {
		lo[i], hi[i], dep[i], arr[i] = b.Lo, b.Hi, b.Dep, b.Arr
	}
	return dataframe.New(
		series.New(lo, series.Float, "DELAY_FROM"),
		series.New(hi, series.Float, "DELAY_TO"),
		series.New(dep, series.Int, "DEP_FLIGHTS"),
		series.New(arr, series.Int, "ARR_FLIGHTS"),
	)
}

// Histogram 将延误按固定宽度分箱，区间为 [lo, hi)，超出范围的值计入两端
func Histogram(values []float64, lo, hi float64, bins int) []int {
	if bins <= 0 || hi <= lo {
		return nil
	}
	top := math.Nextafter(hi, lo)
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		x = append(x, math.Min(math.Max(v, lo), top))
	}
	sort.Float64s(x)

	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	counts := stat.Histogram(nil, dividers, x, nil)
	out := make([]int, bins)
	for i, c := range counts {
		out[i] = int(c)
	}
	return out
}
