package processor

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Selection 用户选择的筛选条件
//
// 空集合表示不过滤该维度: 两个集合都为空时返回整张表。
type Selection struct {
	Months []string `json:"months"`
	Hotels []string `json:"hotels"`
}

// IsEmpty 两个维度都没有选择
func (s Selection) IsEmpty() bool {
	return len(s.Months) == 0 && len(s.Hotels) == 0
}

// Filter 按月份和酒店类型筛选, 结果是新的视图, 不修改 t
//
// 行保留条件: (Months为空 或 月份在Months中) 且 (Hotels为空 或 酒店在Hotels中)。
func Filter(t Table, sel Selection) Table {
	if sel.IsEmpty() {
		return t
	}

	df := t.df
	if len(sel.Months) > 0 {
		df = df.Filter(dataframe.F{Colname: ColArrivalMonth, Comparator: series.In, Comparando: sel.Months})
	}
	if len(sel.Hotels) > 0 {
		df = df.Filter(dataframe.F{Colname: ColHotel, Comparator: series.In, Comparando: sel.Hotels})
	}
	return t.with(df)
}

// FilterE 同 Filter, 但把 gota 的错误返回给调用方
func FilterE(t Table, sel Selection) (Table, error) {
	out := Filter(t, sel)
	if out.df.Err != nil {
		return Table{}, fmt.Errorf("筛选失败: %w", out.df.Err)
	}
	return out, nil
}

// Head 返回前 n 行
func Head(t Table, n int) Table {
	if n < 0 {
		n = 0
	}
	if n >= t.Nrow() {
		return t
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.with(t.df.Subset(rows))
}

// Choices 可供选择的月份和酒店类型
type Choices struct {
	Months []string `json:"months"`
	Hotels []string `json:"hotels"`
}

// Selectable 表中出现过的月份(按日历顺序)和酒店类型(按字母顺序)
func Selectable(t Table) (Choices, error) {
	months, err := distinct(t, ColArrivalMonth)
	if err != nil {
		return Choices{}, err
	}
	hotels, err := distinct(t, ColHotel)
	if err != nil {
		return Choices{}, err
	}
	sortMonths(months)
	sort.Strings(hotels)
	return Choices{Months: months, Hotels: hotels}, nil
}

func distinct(t Table, col string) ([]string, error) {
	vals, err := t.Strings(col)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// sortMonths 月份按日历顺序, 无法识别的排在后面并按字母顺序
func sortMonths(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := monthIndex(keys[i]), monthIndex(keys[j])
		switch {
		case a >= 0 && b >= 0:
			return a < b
		case a >= 0:
			return true
		case b >= 0:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}
