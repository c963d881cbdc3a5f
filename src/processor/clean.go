package processor

import (
	"BookingInsight/src/utils"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Options 清洗参数
type Options struct {
	CategoricalColumns []string // 需要标记为分类变量的列
	DateLayouts        []string // reservation_status_date 可接受的格式
	UnknownCountry     string   // country 缺失时的填充值
}

// DefaultOptions 默认清洗参数
func DefaultOptions() Options {
	return Options{
		CategoricalColumns: DefaultCategorical,
		DateLayouts:        DefaultDateLayouts,
		UnknownCountry:     "Unknown",
	}
}

// StepResult 单个清洗步骤结束后的行数
type StepResult struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// Report 一次清洗的统计
type Report struct {
	InputRows         int          `json:"input_rows"`
	OutputRows        int          `json:"output_rows"`
	DroppedEmptyParty int          `json:"dropped_empty_party"` // adults+children==0
	UnparseableDates  int          `json:"unparseable_dates"`   // 日期无法解析而丢弃的行
	DroppedInvalidADR int          `json:"dropped_invalid_adr"` // adr<=0
	Steps             []StepResult `json:"steps"`
}

// stage 清洗流水线中的一步, 不修改输入, 返回新的 DataFrame
type stage func(dataframe.DataFrame) (dataframe.DataFrame, error)

// Cleaner 按固定顺序执行清洗
type Cleaner struct {
	opts Options
}

func NewCleaner(opts Options) *Cleaner {
	def := DefaultOptions()
	if opts.CategoricalColumns == nil {
		opts.CategoricalColumns = def.CategoricalColumns
	}
	if len(opts.DateLayouts) == 0 {
		opts.DateLayouts = def.DateLayouts
	}
	// 清洗结果本身用 TimeLayout 输出, 再次清洗时必须认得
	if !utils.Contains(opts.DateLayouts, TimeLayout) {
		opts.DateLayouts = append(append([]string(nil), opts.DateLayouts...), TimeLayout)
	}
	if opts.UnknownCountry == "" {
		opts.UnknownCountry = def.UnknownCountry
	}
	return &Cleaner{opts: opts}
}

// Clean 使用默认参数清洗
func Clean(raw dataframe.DataFrame) (Table, Report, error) {
	return NewCleaner(DefaultOptions()).Clean(raw)
}

// Clean 执行清洗流水线, 步骤顺序不能调整:
// total_guests 依赖 babies 被删除前的值, 而 adults+children 的过滤要先于 total_guests。
func (c *Cleaner) Clean(raw dataframe.DataFrame) (Table, Report, error) {
	var report Report
	if raw.Err != nil {
		return Table{}, report, fmt.Errorf("输入数据有误: %w", raw.Err)
	}
	if err := checkColumns(raw); err != nil {
		return Table{}, report, err
	}
	report.InputRows = raw.Nrow()

	var categorical []string
	steps := []struct {
		name string
		run  stage
	}{
		{"fill_children", fillMissingInt(ColChildren, 0)},
		{"fill_country", fillMissingString(ColCountry, c.opts.UnknownCountry)},
		{"drop_low_value_columns", dropColumns(LowValueColumns...)},
		{"drop_empty_party", dropEmptyParty},
		{"derive_total_guests", deriveTotalGuests},
		{"drop_babies", dropColumns(ColBabies)},
		{"mark_categorical", markCategorical(c.opts.CategoricalColumns, &categorical)},
		{"parse_reservation_status_date", parseDates(ColReservationStatus, c.opts.DateLayouts)},
		{"drop_sensitive_columns", dropColumns(SensitiveColumns...)},
		{"drop_invalid_adr", dropNonPositive(ColADR)},
	}

	df := raw
	for _, step := range steps {
		before := df.Nrow()
		next, err := step.run(df)
		if err != nil {
			return Table{}, report, fmt.Errorf("清洗步骤 %s 失败: %w", step.name, err)
		}
		df = next

		dropped := before - df.Nrow()
		switch step.name {
		case "drop_empty_party":
			report.DroppedEmptyParty = dropped
		case "parse_reservation_status_date":
			report.UnparseableDates = dropped
		case "drop_invalid_adr":
			report.DroppedInvalidADR = dropped
		}
		report.Steps = append(report.Steps, StepResult{Name: step.name, Rows: df.Nrow()})
	}
	report.OutputRows = df.Nrow()

	return NewTable(df, categorical, []string{ColReservationStatus}), report, nil
}

// checkColumns 列缺失属于前置条件错误, 整体失败
func checkColumns(df dataframe.DataFrame) error {
	for _, col := range requiredColumns {
		if !utils.HasColumn(df, col) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	// 已清洗过的表没有 babies, 但有 total_guests
	if !utils.HasColumn(df, ColBabies) && !utils.HasColumn(df, ColTotalGuests) {
		return fmt.Errorf("%w: %s", ErrMissingColumn, ColBabies)
	}
	return nil
}

// intValues 取整数列, 第二个返回值标记缺失
// 浮点列(如 2.0)只接受整数值, 带小数的计数视为错误。
func intValues(s series.Series) ([]int, []bool, error) {
	vals := make([]int, s.Len())
	missing := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			missing[i] = true
			continue
		}
		if s.Type() == series.Float {
			f := e.Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, nil, fmt.Errorf("%s 第 %d 行不是整数: %v", s.Name, i, f)
			}
			vals[i] = int(f)
			continue
		}
		v, err := e.Int()
		if err != nil {
			return nil, nil, fmt.Errorf("%s 第 %d 行不是整数: %w", s.Name, i, err)
		}
		vals[i] = v
	}
	return vals, missing, nil
}

func fillMissingInt(col string, fill int) stage {
	return func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		vals, missing, err := intValues(df.Col(col))
		if err != nil {
			return df, err
		}
		for i := range vals {
			if missing[i] {
				vals[i] = fill
			}
		}
		return mutate(df, series.New(vals, series.Int, col))
	}
}

func fillMissingString(col, fill string) stage {
	return func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		s := df.Col(col)
		vals := make([]string, s.Len())
		for i := 0; i < s.Len(); i++ {
			if e := s.Elem(i); e.IsNA() {
				vals[i] = fill
			} else {
				vals[i] = e.String()
			}
		}
		return mutate(df, series.New(vals, series.String, col))
	}
}

// dropColumns 删除列, 不存在的列忽略
func dropColumns(cols ...string) stage {
	return func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		present := utils.PresentColumns(df, cols...)
		if len(present) == 0 {
			return df, nil
		}
		out := df.Drop(present)
		if out.Err != nil {
			return df, fmt.Errorf("删除列 %v 失败: %w", present, out.Err)
		}
		return out, nil
	}
}

// dropEmptyParty 删除 adults+children==0 的行, 即使 babies>0 也删除
func dropEmptyParty(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	adults, adultsNA, err := intValues(df.Col(ColAdults))
	if err != nil {
		return df, err
	}
	children, childrenNA, err := intValues(df.Col(ColChildren))
	if err != nil {
		return df, err
	}

	keep := make([]int, 0, len(adults))
	for i := range adults {
		if adultsNA[i] || childrenNA[i] {
			continue
		}
		if adults[i]+children[i] > 0 {
			keep = append(keep, i)
		}
	}
	return subset(df, keep)
}

// deriveTotalGuests total_guests = adults + children + babies, babies缺失按0计
func deriveTotalGuests(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !utils.HasColumn(df, ColBabies) {
		// 已经派生过
		return df, nil
	}

	adults, _, err := intValues(df.Col(ColAdults))
	if err != nil {
		return df, err
	}
	children, _, err := intValues(df.Col(ColChildren))
	if err != nil {
		return df, err
	}
	babies, _, err := intValues(df.Col(ColBabies))
	if err != nil {
		return df, err
	}

	total := make([]int, len(adults))
	for i := range total {
		total[i] = adults[i] + children[i] + babies[i]
	}
	return mutate(df, series.New(total, series.Int, ColTotalGuests))
}

// markCategorical 记录存在的分类变量列, 不改变数据
func markCategorical(cols []string, out *[]string) stage {
	return func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		*out = utils.PresentColumns(df, cols...)
		return df, nil
	}
}

// parseDates 解析时间列并统一格式, 无法解析的行被删除, 缺失值保留
func parseDates(col string, layouts []string) stage {
	return func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		s := df.Col(col)
		vals := make([]string, s.Len())
		keep := make([]int, 0, s.Len())
		for i := 0; i < s.Len(); i++ {
			e := s.Elem(i)
			if e.IsNA() {
				vals[i] = "NaN"
				keep = append(keep, i)
				continue
			}
			t, err := utils.ParseTime(e.String(), layouts)
			if err != nil {
				continue
			}
			vals[i] = t.Format(TimeLayout)
			keep = append(keep, i)
		}

		out, err := mutate(df, series.New(vals, series.String, col))
		if err != nil {
			return df, err
		}
		if len(keep) == out.Nrow() {
			return out, nil
		}
		return subset(out, keep)
	}
}

// dropNonPositive 删除数值 <=0 或缺失的行
func dropNonPositive(col string) stage {
	return func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		vals := df.Col(col).Float()
		keep := make([]int, 0, len(vals))
		for i, v := range vals {
			if !math.IsNaN(v) && v > 0 {
				keep = append(keep, i)
			}
		}
		return subset(df, keep)
	}
}

func mutate(df dataframe.DataFrame, s series.Series) (dataframe.DataFrame, error) {
	out := df.Mutate(s)
	if out.Err != nil {
		return df, fmt.Errorf("更新列 %s 失败: %w", s.Name, out.Err)
	}
	return out, nil
}

func subset(df dataframe.DataFrame, rows []int) (dataframe.DataFrame, error) {
	if len(rows) == df.Nrow() {
		return df, nil
	}
	out := df.Subset(rows)
	if out.Err != nil {
		return df, fmt.Errorf("筛选行失败: %w", out.Err)
	}
	return out, nil
}
