package processor

import (
	"math"
	"sort"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary 单列的描述统计
type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Q50    float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

// Describe 对每个数值列(分类变量除外)计算 count/mean/std/min/四分位数/max
//
// 缺失值不参与计算; 列中没有有效值时只有 Count=0, 只有一个值时 Std=0。
func Describe(t Table) []ColumnSummary {
	summaries := []ColumnSummary{}
	for _, name := range t.Names() {
		if t.IsCategorical(name) {
			continue
		}
		s := t.df.Col(name)
		if s.Type() != series.Int && s.Type() != series.Float {
			continue
		}
		summaries = append(summaries, summarize(name, s.Float()))
	}
	return summaries
}

func summarize(name string, raw []float64) ColumnSummary {
	values := dropNaN(raw)
	sum := ColumnSummary{Column: name, Count: len(values)}
	if len(values) == 0 {
		return sum
	}
	sort.Float64s(values)

	sum.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		sum.Std = stat.StdDev(values, nil)
	}
	sum.Min = floats.Min(values)
	sum.Max = floats.Max(values)
	sum.Q25 = stat.Quantile(0.25, stat.LinInterp, values, nil)
	sum.Q50 = stat.Quantile(0.50, stat.LinInterp, values, nil)
	sum.Q75 = stat.Quantile(0.75, stat.LinInterp, values, nil)
	return sum
}

// dropNaN 返回去掉 NaN 后的新切片
func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
