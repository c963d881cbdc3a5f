// reader.go
package file

import (
	"BookingInsight/src/processor"
	"BookingInsight/src/utils"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

const (
	Number string = "^[0-9]+(\\.[0-9]+)?$"
)

var numberRe = regexp.MustCompile(Number)

// LoadOptions 数据集读取参数
type LoadOptions struct {
	SheetName     string   // xlsx 工作表名, 为空或不存在时取第一个
	MissingValues []string // 视为缺失的取值
	DateColumns   []string // xlsx 中可能以序列号存储的日期列
}

func (o LoadOptions) withDefaults() LoadOptions {
	if len(o.MissingValues) == 0 {
		o.MissingValues = processor.DefaultMissingValues
	}
	if o.DateColumns == nil {
		o.DateColumns = []string{processor.ColReservationStatus}
	}
	return o
}

// Load 按扩展名读取数据集
func Load(path string, opts LoadOptions) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVFile(path, opts)
	case ".xlsx":
		return ReadXLSX(path, opts)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("不支持的数据集格式: %s", path)
	}
}

// ReadCSVFile 读取CSV数据集
func ReadCSVFile(path string, opts LoadOptions) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

// ReadCSV 从 reader 读取CSV, 第一行为表头
func ReadCSV(r io.Reader, opts LoadOptions) (dataframe.DataFrame, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析CSV失败: %w", err)
	}
	return loadRecords(records, opts.withDefaults())
}

// ReadXLSX 使用tealeg/xlsx读取工作表, 第一行为表头
func ReadXLSX(filePath string, opts LoadOptions) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}
	return readWorkbook(xlFile, opts.withDefaults())
}

// ReadXLSXBytes 从内存中的xlsx读取, 用于邮件附件
func ReadXLSXBytes(data []byte, opts LoadOptions) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open binary false: %w", err)
	}
	return readWorkbook(xlFile, opts.withDefaults())
}

func readWorkbook(xlFile *xlsx.File, opts LoadOptions) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表")
	}
	sheet, ok := xlFile.Sheet[opts.SheetName]
	if !ok {
		sheet = xlFile.Sheets[0]
	}
	return loadRecords(sheetRecords(sheet, opts.DateColumns), opts)
}

// sheetRecords 将xlsx.Sheet转换为二维字符串表, 跳过完全为空的行
func sheetRecords(sheet *xlsx.Sheet, dateColumns []string) [][]string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}
	isDate := make([]bool, len(headers))
	for i, h := range headers {
		isDate[i] = utils.Contains(dateColumns, h)
	}

	records := [][]string{headers}
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i >= len(headers) { // 确保不超出列数范围
				break
			}
			v := cell.String()
			if isDate[i] {
				if ts, ok := excelToTime(cell.Value); ok {
					v = ts
				}
			}
			record[i] = v
			if strings.TrimSpace(v) != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, record)
		}
	}
	return records
}

// loadRecords 按固定的列类型构造 DataFrame
// gota 的 LoadRecords 不接受只有表头的输入, 这种情况直接构造空表。
func loadRecords(records [][]string, opts LoadOptions) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("数据集为空, 缺少表头")
	}
	for _, record := range records {
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
	}

	headers := records[0]
	types := columnTypes(headers)
	if err := normalizeNumbers(records, types, opts.MissingValues); err != nil {
		return dataframe.DataFrame{}, err
	}

	if len(records) == 1 {
		columns := make([]series.Series, len(headers))
		for i, h := range headers {
			columns[i] = series.New([]string{}, types[h], h)
		}
		df := dataframe.New(columns...)
		if df.Err != nil {
			return df, fmt.Errorf("构造空表失败: %w", df.Err)
		}
		return df, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		dataframe.NaNValues(opts.MissingValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("转换为dataframe失败: %w", df.Err)
	}
	return df, nil
}

// normalizeNumbers 检查数值列, 把 "2.0" 这类整数值改写成 "2"
// gota 用 strconv.Atoi 解析整数列, 不改写的话这些值会悄悄变成缺失。
func normalizeNumbers(records [][]string, types map[string]series.Type, missing []string) error {
	headers := records[0]
	for col, h := range headers {
		typ := types[h]
		if typ != series.Int && typ != series.Float {
			continue
		}
		for row := 1; row < len(records); row++ {
			if col >= len(records[row]) {
				continue
			}
			v := records[row][col]
			if v == "" || v == "NaN" || utils.Contains(missing, v) {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsInf(f, 0) {
				return fmt.Errorf("%s 第 %d 行不是数值: %q", h, row, v)
			}
			if typ == series.Float {
				continue
			}
			if _, err := strconv.Atoi(v); err == nil {
				continue
			}
			if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
				return fmt.Errorf("%s 第 %d 行不是整数: %q", h, row, v)
			}
			records[row][col] = strconv.FormatInt(int64(f), 10)
		}
	}
	return nil
}

func columnTypes(headers []string) map[string]series.Type {
	types := make(map[string]series.Type, len(headers))
	for _, h := range headers {
		if t, ok := processor.ColumnTypes[h]; ok {
			types[h] = t
		} else {
			types[h] = series.String
		}
	}
	return types
}

// excelToTime excel日期序列号转为统一格式的时间字符串
func excelToTime(v string) (string, bool) {
	if !numberRe.MatchString(v) {
		return "", false
	}
	excelDays, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "", false
	}

	// 1900年闰年错误: 序列号60以后多算了一天, 基准取1899-12-30已经抵消
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := math.Floor(excelDays)
	fraction := excelDays - days

	result := base.AddDate(0, 0, int(days)).
		Add(time.Duration(math.Round(86400*fraction)) * time.Second)
	return result.Format(processor.TimeLayout), true
}
