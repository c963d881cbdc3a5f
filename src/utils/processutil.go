package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// PresentColumns 返回 names 中在 DataFrame 里存在的列, 保持 names 的顺序
func PresentColumns(df dataframe.DataFrame, names ...string) []string {
	var out []string
	for _, n := range names {
		if HasColumn(df, n) {
			out = append(out, n)
		}
	}
	return out
}

// ParseTime 按顺序尝试多种时间格式
func ParseTime(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %q", s)
}

// SaveToExcel 将DataFrame写入xlsx, sheetName为空时使用Sheet1
func SaveToExcel(df dataframe.DataFrame, filePath, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := WriteSheet(f, df, sheetName); err != nil {
		return err
	}
	if err := DropDefaultSheet(f, sheetName); err != nil {
		return err
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// DropDefaultSheet 数据写到其他工作表后删除新建工作簿自带的空 Sheet1
func DropDefaultSheet(f *excelize.File, sheetName string) error {
	if sheetName == "" || sheetName == "Sheet1" {
		return nil
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("删除默认工作表失败: %w", err)
	}
	return nil
}

// WriteSheet 把DataFrame写进已有工作簿的一个工作表
func WriteSheet(f *excelize.File, df dataframe.DataFrame, sheetName string) error {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if idx, _ := f.GetSheetIndex(sheetName); idx == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return fmt.Errorf("创建工作表失败: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("创建写入流失败: %w", err)
	}

	// 写入列名
	colNames := df.Names()
	header := make([]interface{}, len(colNames))
	for i, name := range colNames {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	// df.Col 每次都会复制整列, 先取出来
	columns := make([]series.Series, len(colNames))
	for i, name := range colNames {
		columns[i] = df.Col(name)
	}

	// 写入数据, 缺失值留空
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		row := make([]interface{}, len(columns))
		for colIdx, col := range columns {
			row[colIdx] = col.Val(rowIdx)
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	return sw.Flush()
}
