package file

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// NamedFrame 导出到工作簿中的一个工作表
type NamedFrame struct {
	Sheet string
	Frame dataframe.DataFrame
}

// Export 按扩展名导出为xlsx或csv
func Export(df dataframe.DataFrame, filePath string) error {
	if err := ensureDir(filepath.Dir(filePath)); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		return SaveToExcel(filePath, NamedFrame{Sheet: "Sheet1", Frame: df})
	case ".csv":
		return SaveToCSV(df, filePath)
	default:
		return fmt.Errorf("不支持的导出格式: %s", filePath)
	}
}

// SaveToCSV 将DataFrame写入csv文件
func SaveToCSV(df dataframe.DataFrame, filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer f.Close()

	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("写入csv失败: %w", err)
	}
	return nil
}

// SaveToExcel 将多个DataFrame分别写入同一工作簿的不同工作表
func SaveToExcel(filePath string, frames ...NamedFrame) error {
	if len(frames) == 0 {
		return fmt.Errorf("没有需要导出的数据")
	}
	if err := ensureDir(filepath.Dir(filePath)); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, nf := range frames {
		if i == 0 {
			// 新工作簿自带Sheet1
			if nf.Sheet != "Sheet1" {
				if err := f.SetSheetName("Sheet1", nf.Sheet); err != nil {
					return fmt.Errorf("重命名工作表失败: %w", err)
				}
			}
		} else if _, err := f.NewSheet(nf.Sheet); err != nil {
			return fmt.Errorf("创建工作表 %s 失败: %w", nf.Sheet, err)
		}
		if err := writeSheet(f, nf.Sheet, nf.Frame); err != nil {
			return err
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("写入列名失败: %w", err)
		}
	}

	// 写入数据，NaN写为空单元格
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			elem := col.Elem(rowIdx)
			if elem.IsNA() {
				continue
			}
			val := col.Val(rowIdx)
			if fv, ok := val.(float64); ok && math.IsNaN(fv) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return fmt.Errorf("写入单元格 %s 失败: %w", cell, err)
			}
		}
	}
	return nil
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if dirPath == "" || dirPath == "." {
		return nil
	}
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}
