package session

import (
	"BookingInsight/src/processor"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewDefaults(t *testing.T) {
	d, _, _ := newTestDashboard(t)
	snap, err := d.Load(context.Background())
	require.NoError(t, err)

	v, err := d.View(processor.Selection{}, Display{})
	require.NoError(t, err)

	assert.Equal(t, snap.ID, v.SnapshotID)
	assert.Equal(t, snap.Table.Nrow(), v.Table.Nrow())
	assert.Equal(t, 3, v.LeadTime.Total)
	assert.False(t, v.LeadTime.Cumulative)
	assert.Len(t, v.LeadTime.Counts, 10)
	assert.Len(t, v.LeadTimeVsADR.X, 3)
	assert.Nil(t, v.GuestsVsNights)
	assert.Nil(t, v.Summary)

	var months []string
	for _, f := range v.ADRByMonth.Facets {
		months = append(months, f.Key)
	}
	assert.Equal(t, []string{"July", "August", "December"}, months)
}

func TestViewToggles(t *testing.T) {
	d, _, _ := newTestDashboard(t)
	_, err := d.Load(context.Background())
	require.NoError(t, err)

	v, err := d.View(processor.Selection{Months: []string{"August", "December"}}, Display{
		Cumulative:   true,
		CustomColor:  true,
		ExtraScatter: true,
		Describe:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, v.Table.Nrow())
	assert.True(t, v.LeadTime.Cumulative)
	assert.Equal(t, 2.0, v.LeadTime.Counts[len(v.LeadTime.Counts)-1])

	require.NotNil(t, v.GuestsVsNights)
	assert.Equal(t, []float64{3, 4}, v.GuestsVsNights.X)
	assert.Equal(t, []float64{3, 5}, v.GuestsVsNights.Y)
	assert.NotEmpty(t, v.Summary)
	assert.True(t, v.Display.CustomColor)
}

func TestViewEmptyResult(t *testing.T) {
	d, _, _ := newTestDashboard(t)
	_, err := d.Load(context.Background())
	require.NoError(t, err)

	v, err := d.View(processor.Selection{Months: []string{"March"}}, Display{ExtraScatter: true, Describe: true})
	require.NoError(t, err)

	assert.Equal(t, 0, v.Table.Nrow())
	assert.Equal(t, 0, v.LeadTime.Total)
	assert.Empty(t, v.ADRByMonth.Facets)
	assert.Empty(t, v.LeadTimeVsADR.X)
	require.NotNil(t, v.GuestsVsNights)
	assert.Empty(t, v.GuestsVsNights.X)
	for _, s := range v.Summary {
		assert.Zero(t, s.Count)
	}
}
