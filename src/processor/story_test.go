package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
)

func TestBuildStory(t *testing.T) {
	story := BuildStory(fixture())

	assert.Contains(t, story.Summary, "Number of flights: 6")
	assert.Equal(t, []float64{-3, 45, 10, 5}, story.DepDelays)
	assert.Equal(t, []float64{-5, 30, 7}, story.ArrDelays)

	days := make([]int, len(story.DailyDelay))
	for i, d := range story.DailyDelay {
		days[i] = d.Day
	}
	assert.Equal(t, []int{1, 6, 13, 20, 27}, days)
	assert.InDelta(t, 27.5, story.DailyDelay[1].DepDelay, 1e-9)
	assert.Equal(t, 2, story.DailyDelay[1].Count)
}

func TestStoryCrossTabs(t *testing.T) {
	story := BuildStory(fixture())

	week := story.WeekStatus
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, week.Rows)
	assert.Equal(t, []string{"Delayed", "Diverted", "Canceled", "On-time"}, week.Columns)
	assert.Equal(t, 1, week.Cell("2", "Delayed"))
	assert.Equal(t, 1, week.Cell("2", "Diverted"))
	assert.Equal(t, 0, week.Cell("4", "Canceled"))
	assert.Equal(t, 2, week.RowTotal("2"))
	assert.Equal(t, 1, week.RowTotal("5"))

	// 时段缺失的航班不进入时段交叉表
	block := story.BlockStatus
	total := 0
	for _, row := range block.Rows {
		total += block.RowTotal(row)
	}
	assert.Equal(t, 5, total)
	assert.Equal(t, 1, block.Cell("Night", "Canceled"))

	df := week.Frame("WEEK")
	require.NoError(t, df.Err)
	assert.Equal(t, []string{"WEEK", "Delayed", "Diverted", "Canceled", "On-time"}, df.Names())
	assert.Equal(t, 5, df.Nrow())

	assert.Equal(t, []string{"DAY_OF_MONTH", "DEP_DELAY", "ARR_DELAY", "FLIGHTS"}, story.DailyFrame().Names())
}

func TestBuildStoryEmpty(t *testing.T) {
	story := BuildStory(model.NewDataset(nil))
	assert.Equal(t, NoFlightsFound, story.Summary)
	assert.Empty(t, story.DailyDelay)
	assert.Equal(t, 0, story.WeekStatus.RowTotal("1"))
	assert.Len(t, story.BlockStatus.Rows, 5)
}

func TestHistogram(t *testing.T) {
	got := Histogram([]float64{200, -100, 5, math.NaN(), 0, -10, 9.99, 10}, -10, 10, 2)
	assert.Equal(t, []int{2, 5}, got)
	assert.Equal(t, []int{0, 0, 0}, Histogram(nil, 0, 3, 3))
	assert.Nil(t, Histogram(nil, 1, 1, 3))
}

func TestStoryDelayHistogram(t *testing.T) {
	story := BuildStory(fixture())

	bins := story.DelayHistogram
	require.Len(t, bins, DelayHistogramBins)
	assert.Equal(t, DelayBin{Lo: -75, Hi: -65}, bins[0])
	assert.Equal(t, 75.0, bins[len(bins)-1].Hi)

	assert.Equal(t, DelayBin{Lo: -5, Hi: 5, Dep: 1, Arr: 1}, bins[7])
	assert.Equal(t, DelayBin{Lo: 5, Hi: 15, Dep: 2, Arr: 1}, bins[8])
	assert.Equal(t, 1, bins[10].Arr)
	assert.Equal(t, 1, bins[12].Dep)

	dep, arr := 0, 0
	for _, b := range bins {
		dep += b.Dep
		arr += b.Arr
	}
	assert.Equal(t, len(story.DepDelays), dep)
	assert.Equal(t, len(story.ArrDelays), arr)

	df := story.HistogramFrame()
	require.NoError(t, df.Err)
	assert.Equal(t, []string{"DELAY_FROM", "DELAY_TO", "DEP_FLIGHTS", "ARR_FLIGHTS"}, df.Names())
	assert.Equal(t, DelayHistogramBins, df.Nrow())

	assert.Len(t, BuildStory(model.NewDataset(nil)).DelayHistogram, DelayHistogramBins)
}
