package utils

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
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

// HasColumn 判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ParseNumericOrDefault 宽松数值转换：解析失败一律返回0，不丢行
// followers_count等次要指标宁可降级为0也不能拖垮整行
func ParseNumericOrDefault(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	// 负的粉丝数/媒体数没有意义，按坏数据处理
	if v < 0 {
		return 0
	}
	return v
}

// SaveToExcel 将DataFrame保存为Excel文件
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, df); err != nil {
		return err
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// ExportExcel 将DataFrame以xlsx格式写入w，供下载接口使用
func ExportExcel(df dataframe.DataFrame, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, df); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出Excel数据失败: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, df dataframe.DataFrame) error {
	sheetName := "Sheet1"

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("写入列名失败: %w", err)
		}
	}

	// 写入数据
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		for colIdx, colName := range colNames {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			val := df.Col(colName).Val(rowIdx)
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return fmt.Errorf("写入数据失败: %w", err)
			}
		}
	}
	return nil
}
