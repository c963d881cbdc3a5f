package processor

import (
	"BookingInsight/src/utils"
	"fmt"
	"io"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Table 清洗后的数据表
//
// 内部的 DataFrame 构造后不再修改, 所有视图都基于它生成新的 DataFrame。
// categorical 记录分类变量列(只影响分组和展示), temporal 记录时间列。
type Table struct {
	df          dataframe.DataFrame
	categorical []string
	temporal    []string
}

// NewTable 直接包装一个已清洗的 DataFrame
func NewTable(df dataframe.DataFrame, categorical, temporal []string) Table {
	return Table{
		df:          df,
		categorical: append([]string(nil), categorical...),
		temporal:    append([]string(nil), temporal...),
	}
}

// with 用新的 DataFrame 派生视图, 保留列标记
func (t Table) with(df dataframe.DataFrame) Table {
	return Table{df: df, categorical: t.categorical, temporal: t.temporal}
}

// Frame 返回底层 DataFrame, 调用方不能修改其中的元素
func (t Table) Frame() dataframe.DataFrame { return t.df }

func (t Table) Nrow() int       { return t.df.Nrow() }
func (t Table) Ncol() int       { return t.df.Ncol() }
func (t Table) Names() []string { return t.df.Names() }

func (t Table) HasColumn(name string) bool { return utils.HasColumn(t.df, name) }

// Categorical 返回标记为分类变量的列
func (t Table) Categorical() []string { return append([]string(nil), t.categorical...) }

func (t Table) IsCategorical(col string) bool { return utils.Contains(t.categorical, col) }

func (t Table) IsTemporal(col string) bool { return utils.Contains(t.temporal, col) }

// Times 读取时间列, 缺失值返回零值时间
func (t Table) Times(col string) ([]time.Time, error) {
	if !t.IsTemporal(col) {
		return nil, fmt.Errorf("%s 不是时间列", col)
	}
	s := t.df.Col(col)
	if s.Err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	out := make([]time.Time, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		ts, err := time.Parse(TimeLayout, e.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s at row %d: %w", col, i, err)
		}
		out[i] = ts
	}
	return out, nil
}

// Strings 读取一列的字符串值, 缺失值为空串
func (t Table) Strings(col string) ([]string, error) {
	s := t.df.Col(col)
	if s.Err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	out := make([]string, s.Len())
	for i := 0; i < s.Len(); i++ {
		if e := s.Elem(i); !e.IsNA() {
			out[i] = e.String()
		}
	}
	return out, nil
}

// Floats 读取数值列, 缺失值为 NaN
func (t Table) Floats(col string) ([]float64, error) {
	s := t.df.Col(col)
	if s.Err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	if s.Type() != series.Int && s.Type() != series.Float {
		return nil, fmt.Errorf("%w: %s", ErrNotNumeric, col)
	}
	return s.Float(), nil
}

// Rows 按行输出, 供 JSON 使用
func (t Table) Rows() []map[string]interface{} {
	if t.df.Nrow() == 0 {
		return []map[string]interface{}{}
	}
	return t.df.Maps()
}

// Records 输出包含表头的二维字符串表
func (t Table) Records() [][]string { return t.df.Records() }

// WriteCSV 以CSV格式输出整表
func (t Table) WriteCSV(w io.Writer) error {
	if err := t.df.WriteCSV(w); err != nil {
		return fmt.Errorf("写出CSV失败: %w", err)
	}
	return nil
}
