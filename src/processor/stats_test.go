package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
)

func TestSummarizeEmpty(t *testing.T) {
	sub, err := ByFlight{}.Filter(fixture(), allCriteria("ORD", "ABE"))
	require.NoError(t, err)
	assert.Equal(t, "No flights found", Summarize(sub, ByFlight{}, allCriteria("ORD", "ABE")))
	assert.Equal(t, NoFlightsFound, SummarizeDataset(model.NewDataset(nil)))
}

func TestSummarizeFlight(t *testing.T) {
	c := allCriteria("ABE", "ATL")
	out := Summarize(filtered(t, ByFlight{}, "ABE", "ATL"), ByFlight{}, c)

	assert.Contains(t, out, "Flight: ABE -> ATL\nNumber of flights: 3\n")
	assert.Contains(t, out, "Departure delay (minutes)\n  Mean: 15.67\n  Min: -3.00\n  Max: 45.00\n")
	assert.Contains(t, out, "Arrival delay (minutes)\n  Mean: 10.67\n  Min: -5.00\n  Max: 30.00\n")
	assert.Contains(t, out, "Average delay by airline\n  19790: departure 5.00, arrival 7.00\n  20366: departure 21.00, arrival 12.50")
}

func TestSummarizeAirport(t *testing.T) {
	out := Summarize(filtered(t, ByAirport{}, "ABE"), ByAirport{}, allCriteria("ABE"))
	assert.Contains(t, out, "Airport: ABE\n")
	assert.Contains(t, out, "Flights by destination\n  ATL: 3\n  ORD: 1")
}

func TestSummarizeAirline(t *testing.T) {
	out := Summarize(filtered(t, ByAirline{}, "19790"), ByAirline{}, allCriteria("19790"))
	assert.Contains(t, out, "Airline ID: 19790\n")
	assert.Contains(t, out, "Flights by origin airport\n  ABE: 2\n  ATL: 1")
}

func TestSummarizeAllDelaysNull(t *testing.T) {
	c := allCriteria("ATL", "ORD")
	out := Summarize(filtered(t, ByFlight{}, "ATL", "ORD"), ByFlight{}, c)
	assert.Contains(t, out, "  Mean: n/a\n")
}

func TestComputeDelayStats(t *testing.T) {
	st := ComputeDelayStats([]float64{4, 1, math.NaN(), 3, 2})
	assert.Equal(t, 4, st.Count)
	assert.InDelta(t, 2.5, st.Mean, 1e-9)
	assert.InDelta(t, 1, st.Min, 1e-9)
	assert.InDelta(t, 4, st.Max, 1e-9)
	assert.InDelta(t, 5.0/3.0, st.Variance, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/3.0), st.StdDev, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/3.0)/2.5, st.CV, 1e-9)
	assert.InDelta(t, 2, st.IQR, 1e-9)

	single := ComputeDelayStats([]float64{7})
	assert.InDelta(t, 7, single.Mean, 1e-9)
	assert.True(t, math.IsNaN(single.Variance))

	none := ComputeDelayStats([]float64{math.NaN()})
	assert.Equal(t, 0, none.Count)
	assert.True(t, math.IsNaN(none.Mean))
}

func TestSummarizeDataset(t *testing.T) {
	out := SummarizeDataset(fixture())
	assert.Contains(t, out, "Number of flights: 6\n")
	for _, label := range []string{"Variance:", "Std:", "CV:", "IQR:"} {
		assert.Contains(t, out, label)
	}
	// 出发延误 -3, 45, 10, 5
	assert.Contains(t, out, "Departure delay (minutes)\n  Mean: 14.25\n  Min: -3.00\n  Max: 45.00\n")
}
