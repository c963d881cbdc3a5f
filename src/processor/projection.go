package processor

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GroupCount 分组计数
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Histogram 等宽直方图, Edges 比 Counts 多一个元素
type Histogram struct {
	Column     string    `json:"column"`
	Edges      []float64 `json:"edges"`
	Counts     []float64 `json:"counts"`
	Cumulative bool      `json:"cumulative"`
	Total      int       `json:"total"`
}

// Facet 分面直方图中的一个分面
type Facet struct {
	Key    string    `json:"key"`
	Counts []float64 `json:"counts"`
	Total  int       `json:"total"`
}

// FacetHistogram 按分类列分面的直方图, 所有分面共用 Edges
type FacetHistogram struct {
	Column  string    `json:"column"`
	FacetBy string    `json:"facet_by"`
	Edges   []float64 `json:"edges"`
	Facets  []Facet   `json:"facets"`
}

// Scatter 两列数值的散点投影, 任一值缺失的行被跳过
type Scatter struct {
	XColumn string    `json:"x_column"`
	YColumn string    `json:"y_column"`
	X       []float64 `json:"x"`
	Y       []float64 `json:"y"`
}

// GroupCounts 按某一列分组计数; 月份按日历顺序, 其它按字母顺序
func GroupCounts(t Table, dim string) ([]GroupCount, error) {
	s := t.df.Col(dim)
	if s.Err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, dim)
	}

	// GroupBy 不接受缺失值
	present := make([]int, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if !s.Elem(i).IsNA() {
			present = append(present, i)
		}
	}
	out := []GroupCount{}
	if len(present) == 0 {
		return out, nil
	}

	df := t.df.Select([]string{dim}).Subset(present)
	groups := df.GroupBy(dim)
	if groups.Err != nil {
		return nil, fmt.Errorf("分组失败: %w", groups.Err)
	}
	frames := groups.GetGroups()

	keys := make([]string, 0, len(frames))
	for key := range frames {
		keys = append(keys, key)
	}
	if dim == ColArrivalMonth {
		sortMonths(keys)
	} else {
		sort.Strings(keys)
	}
	for _, key := range keys {
		out = append(out, GroupCount{Key: key, Count: frames[key].Nrow()})
	}
	return out, nil
}

// NewHistogram 计算等宽直方图, cumulative 为 true 时输出累计计数
func NewHistogram(t Table, col string, bins int, cumulative bool) (Histogram, error) {
	raw, err := t.Floats(col)
	if err != nil {
		return Histogram{}, err
	}
	if err := checkBins(bins); err != nil {
		return Histogram{}, err
	}

	values := dropNaN(raw)
	h := Histogram{Column: col, Cumulative: cumulative, Total: len(values), Edges: []float64{}, Counts: []float64{}}
	if len(values) == 0 {
		return h, nil
	}
	sort.Float64s(values)

	h.Edges = binEdges(values[0], values[len(values)-1], bins)
	h.Counts = stat.Histogram(nil, h.Edges, values, nil)
	if cumulative {
		floats.CumSum(h.Counts, h.Counts)
	}
	return h, nil
}

// NewFacetHistogram 按 facetCol 分面统计 col 的分布, 分面顺序同 GroupCounts
func NewFacetHistogram(t Table, col, facetCol string, bins int) (FacetHistogram, error) {
	raw, err := t.Floats(col)
	if err != nil {
		return FacetHistogram{}, err
	}
	keys, err := t.Strings(facetCol)
	if err != nil {
		return FacetHistogram{}, err
	}
	if err := checkBins(bins); err != nil {
		return FacetHistogram{}, err
	}

	fh := FacetHistogram{Column: col, FacetBy: facetCol, Edges: []float64{}, Facets: []Facet{}}
	grouped := make(map[string][]float64)
	var all []float64
	for i, v := range raw {
		if math.IsNaN(v) || keys[i] == "" {
			continue
		}
		grouped[keys[i]] = append(grouped[keys[i]], v)
		all = append(all, v)
	}
	if len(all) == 0 {
		return fh, nil
	}

	fh.Edges = binEdges(floats.Min(all), floats.Max(all), bins)

	order := make([]string, 0, len(grouped))
	for k := range grouped {
		order = append(order, k)
	}
	if facetCol == ColArrivalMonth {
		sortMonths(order)
	} else {
		sort.Strings(order)
	}

	for _, k := range order {
		values := grouped[k]
		sort.Float64s(values)
		fh.Facets = append(fh.Facets, Facet{
			Key:    k,
			Counts: stat.Histogram(nil, fh.Edges, values, nil),
			Total:  len(values),
		})
	}
	return fh, nil
}

// NewScatter 取两列数值组成散点
func NewScatter(t Table, xCol, yCol string) (Scatter, error) {
	xs, err := t.Floats(xCol)
	if err != nil {
		return Scatter{}, err
	}
	ys, err := t.Floats(yCol)
	if err != nil {
		return Scatter{}, err
	}

	sc := Scatter{XColumn: xCol, YColumn: yCol, X: []float64{}, Y: []float64{}}
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		sc.X = append(sc.X, xs[i])
		sc.Y = append(sc.Y, ys[i])
	}
	return sc, nil
}

// checkBins 分箱数必须在 [1, MaxBins] 之间
func checkBins(bins int) error {
	if bins <= 0 || bins > MaxBins {
		return fmt.Errorf("%w: %d", ErrBadBins, bins)
	}
	return nil
}

// binEdges 在 [lo, hi] 上生成 bins+1 个等距分界点
// stat.Histogram 要求最大值严格小于最后一个分界点, 所以把它往上挪一位。
func binEdges(lo, hi float64, bins int) []float64 {
	if hi <= lo {
		hi = lo + 1
	}
	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	edges[bins] = math.Nextafter(hi, math.Inf(1))
	return edges
}
