package processor

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	summaries := Describe(cleanFixture(t))

	var names []string
	byName := make(map[string]ColumnSummary)
	for _, s := range summaries {
		names = append(names, s.Column)
		byName[s.Column] = s
	}
	// 字符串列和分类变量不参与
	assert.Equal(t, []string{ColAdults, ColChildren, ColADR, ColLeadTime, ColWeekNights, ColTotalGuests}, names)

	adr := byName[ColADR]
	assert.Equal(t, 4, adr.Count)
	assert.InDelta(t, 101.3125, adr.Mean, 1e-9)
	assert.Equal(t, 60.0, adr.Min)
	assert.Equal(t, 150.25, adr.Max)
	assert.Greater(t, adr.Std, 0.0)
	assert.LessOrEqual(t, adr.Min, adr.Q25)
	assert.LessOrEqual(t, adr.Q25, adr.Q50)
	assert.LessOrEqual(t, adr.Q50, adr.Q75)
	assert.LessOrEqual(t, adr.Q75, adr.Max)

	guests := byName[ColTotalGuests]
	assert.InDelta(t, 2.5, guests.Mean, 1e-9)
	assert.Equal(t, 1.0, guests.Min)
	assert.Equal(t, 4.0, guests.Max)
}

func TestSummarizeSmallInputs(t *testing.T) {
	none := summarize("x", []float64{math.NaN()})
	assert.Equal(t, ColumnSummary{Column: "x"}, none)

	one := summarize("x", []float64{3, math.NaN()})
	assert.Equal(t, 1, one.Count)
	assert.Equal(t, 3.0, one.Mean)
	assert.Equal(t, 0.0, one.Std)
	assert.Equal(t, 3.0, one.Q50)
}

func TestGroupCounts(t *testing.T) {
	table := cleanFixture(t)

	months, err := GroupCounts(table, ColArrivalMonth)
	require.NoError(t, err)
	assert.Equal(t, []GroupCount{
		{Key: "January", Count: 1},
		{Key: "July", Count: 1},
		{Key: "August", Count: 1},
		{Key: "December", Count: 1},
	}, months)

	hotels, err := GroupCounts(table, ColHotel)
	require.NoError(t, err)
	assert.Equal(t, []GroupCount{{Key: "City Hotel", Count: 2}, {Key: "Resort Hotel", Count: 2}}, hotels)

	empty, err := GroupCounts(Head(table, 0), ColHotel)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = GroupCounts(table, "nope")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestGroupCountsSkipsMissing(t *testing.T) {
	table := cleanFixture(t)
	// reservation_status_date 有一个缺失值
	counts, err := GroupCounts(table, ColReservationStatus)
	require.NoError(t, err)

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	assert.Equal(t, 3, total)
}

func TestHistogram(t *testing.T) {
	table := cleanFixture(t)

	h, err := NewHistogram(table, ColLeadTime, 4, false)
	require.NoError(t, err)
	assert.Equal(t, 4, h.Total)
	require.Len(t, h.Edges, 5)
	assert.Equal(t, 1.0, h.Edges[0])
	assert.Greater(t, h.Edges[4], 342.0)
	assert.Equal(t, []float64{3, 0, 0, 1}, h.Counts)

	sum := 0.0
	for _, c := range h.Counts {
		sum += c
	}
	assert.Equal(t, float64(table.Nrow()), sum)

	cum, err := NewHistogram(table, ColLeadTime, 4, true)
	require.NoError(t, err)
	assert.True(t, cum.Cumulative)
	assert.Equal(t, []float64{3, 3, 3, 4}, cum.Counts)
	assert.Equal(t, float64(table.Nrow()), cum.Counts[len(cum.Counts)-1])
}

func TestHistogramEdgeCases(t *testing.T) {
	table := cleanFixture(t)

	_, err := NewHistogram(table, ColHotel, 10, false)
	assert.ErrorIs(t, err, ErrNotNumeric)

	for _, bins := range []int{0, -1, MaxBins + 1, math.MaxInt} {
		_, err = NewHistogram(table, ColLeadTime, bins, false)
		assert.ErrorIs(t, err, ErrBadBins, bins)
		_, err = NewFacetHistogram(table, ColADR, ColHotel, bins)
		assert.ErrorIs(t, err, ErrBadBins, bins)
	}
	top, err := NewHistogram(table, ColLeadTime, MaxBins, false)
	require.NoError(t, err)
	assert.Len(t, top.Edges, MaxBins+1)

	empty, err := NewHistogram(Head(table, 0), ColLeadTime, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Empty(t, empty.Counts)
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"edges":[]`)

	emptyFacets, err := NewFacetHistogram(Head(table, 0), ColADR, ColHotel, 10)
	require.NoError(t, err)
	assert.NotNil(t, emptyFacets.Edges)
	assert.Empty(t, emptyFacets.Facets)

	// 所有值相同
	single, err := NewHistogram(Head(table, 1), ColADR, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, single.Counts)
}

func TestFacetHistogram(t *testing.T) {
	fh, err := NewFacetHistogram(cleanFixture(t), ColADR, ColHotel, 2)
	require.NoError(t, err)

	assert.Equal(t, ColADR, fh.Column)
	assert.Equal(t, ColHotel, fh.FacetBy)
	require.Len(t, fh.Edges, 3)
	assert.Equal(t, 60.0, fh.Edges[0])

	require.Len(t, fh.Facets, 2)
	assert.Equal(t, Facet{Key: "City Hotel", Counts: []float64{0, 2}, Total: 2}, fh.Facets[0])
	assert.Equal(t, Facet{Key: "Resort Hotel", Counts: []float64{2, 0}, Total: 2}, fh.Facets[1])

	byMonth, err := NewFacetHistogram(cleanFixture(t), ColADR, ColArrivalMonth, 5)
	require.NoError(t, err)
	var keys []string
	for _, f := range byMonth.Facets {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"January", "July", "August", "December"}, keys)
}

func TestScatter(t *testing.T) {
	sc, err := NewScatter(cleanFixture(t), ColLeadTime, ColADR)
	require.NoError(t, err)
	assert.Equal(t, []float64{342, 9, 50, 1}, sc.X)
	assert.Equal(t, []float64{75, 120, 150.25, 60}, sc.Y)

	sc, err = NewScatter(Head(cleanFixture(t), 0), ColTotalGuests, ColWeekNights)
	require.NoError(t, err)
	assert.NotNil(t, sc.X)
	assert.Empty(t, sc.X)

	_, err = NewScatter(cleanFixture(t), ColCountry, ColADR)
	assert.ErrorIs(t, err, ErrNotNumeric)
}
