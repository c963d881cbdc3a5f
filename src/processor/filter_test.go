package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	table := cleanFixture(t)

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{"空选择不过滤", Selection{}, []string{"1", "4", "7", "8"}},
		{"空切片不过滤", Selection{Months: []string{}, Hotels: []string{}}, []string{"1", "4", "7", "8"}},
		{"只选月份", Selection{Months: []string{"July"}}, []string{"1"}},
		{"只选酒店", Selection{Hotels: []string{"City Hotel"}}, []string{"4", "7"}},
		{"月份和酒店同时生效", Selection{Months: []string{"August", "December", "January"}, Hotels: []string{"City Hotel"}}, []string{"4", "7"}},
		{"多个月份", Selection{Months: []string{"January", "July"}}, []string{"1", "8"}},
		{"没有匹配", Selection{Months: []string{"March"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterE(table, tt.sel)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), got.Nrow())
			assert.Equal(t, table.Names(), got.Names())
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, column(t, got, "id"))
			}
			assert.Equal(t, table.Categorical(), got.Categorical())
		})
	}

	// 原表不变
	assert.Equal(t, 4, table.Nrow())
}

func TestFilterEmptySelectionReturnsSameTable(t *testing.T) {
	table := cleanFixture(t)
	assert.True(t, Selection{}.IsEmpty())
	assert.False(t, Selection{Hotels: []string{"Resort Hotel"}}.IsEmpty())
	assert.Equal(t, table.Records(), Filter(table, Selection{}).Records())
}

func TestHead(t *testing.T) {
	table := cleanFixture(t)

	assert.Equal(t, []string{"1", "4"}, column(t, Head(table, 2), "id"))
	assert.Equal(t, 4, Head(table, 100).Nrow())
	assert.Equal(t, 0, Head(table, -1).Nrow())
	assert.Equal(t, table.Names(), Head(table, 0).Names())
}

func TestSelectable(t *testing.T) {
	choices, err := Selectable(cleanFixture(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"January", "July", "August", "December"}, choices.Months)
	assert.Equal(t, []string{"City Hotel", "Resort Hotel"}, choices.Hotels)

	empty, err := Selectable(Head(cleanFixture(t), 0))
	require.NoError(t, err)
	assert.Empty(t, empty.Months)
	assert.NotNil(t, empty.Months)
}

func TestSortMonths(t *testing.T) {
	keys := []string{"December", "Smarch", "March", "Abc", "January"}
	sortMonths(keys)
	assert.Equal(t, []string{"January", "March", "December", "Abc", "Smarch"}, keys)
}

func TestTableAccessors(t *testing.T) {
	table := cleanFixture(t)

	rows := table.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, "Resort Hotel", rows[0][ColHotel])
	assert.Equal(t, 2, rows[0][ColTotalGuests])
	assert.Nil(t, rows[2][ColReservationStatus], "缺失值输出为 null")

	assert.NotNil(t, Head(table, 0).Rows())
	assert.Empty(t, Head(table, 0).Rows())

	hotels, err := table.Strings(ColHotel)
	require.NoError(t, err)
	assert.Equal(t, []string{"Resort Hotel", "City Hotel", "City Hotel", "Resort Hotel"}, hotels)

	_, err = table.Strings("nope")
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = table.Floats(ColHotel)
	assert.ErrorIs(t, err, ErrNotNumeric)
}
