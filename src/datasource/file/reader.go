// reader.go
package file

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ReadOptions 数据源读取选项
type ReadOptions struct {
	SheetName string // xlsx工作表名，为空时取第一个工作表
	HeaderRow int    // xlsx标题行(从0开始)
	Charset   string // csv字符集: utf-8 / gbk / latin1
}

// ReadSource 按扩展名读取csv或xlsx为DataFrame，全部列按字符串读取
func ReadSource(filePath string, opts ReadOptions) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		return ReadXLSX(filePath, opts)
	case ".csv", ".txt", "":
		f, err := os.Open(filePath)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("打开数据源失败: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, opts.Charset)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("不支持的数据源格式: %s", filePath)
	}
}

// ReadCSV 读取带标题行的csv
func ReadCSV(r io.Reader, charset string) (dataframe.DataFrame, error) {
	decoded, err := decodeReader(r, charset)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df := dataframe.ReadCSV(decoded,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析csv失败: %w", df.Err)
	}
	return df, nil
}

// decodeReader 按字符集转换为UTF-8
func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "gbk", "gb2312":
		return transform.NewReader(r, simplifiedchinese.GBK.NewDecoder()), nil
	case "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("不支持的字符集: %s", charset)
	}
}

// ReadXLSX 读取xlsx文件的指定工作表
func ReadXLSX(filePath string, opts ReadOptions) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}
	return sheetFrame(xlFile, opts)
}

// ReadXLSXBinary 从内存中的xlsx数据读取，用于邮件附件
func ReadXLSXBinary(data []byte, opts ReadOptions) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open binary false: %w", err)
	}
	return sheetFrame(xlFile, opts)
}

// ReadBytes 按文件名扩展读取内存中的数据源
func ReadBytes(filename string, data []byte, opts ReadOptions) (dataframe.DataFrame, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ReadXLSXBinary(data, opts)
	}
	return ReadCSV(bytes.NewReader(data), opts.Charset)
}

func sheetFrame(xlFile *xlsx.File, opts ReadOptions) (dataframe.DataFrame, error) {
	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if opts.SheetName != "" {
		s, ok := xlFile.Sheet[opts.SheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 不存在", opts.SheetName)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet, opts.HeaderRow)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet, headerRow int) (dataframe.DataFrame, error) {
	if len(sheet.Rows) <= headerRow {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 没有标题行", sheet.Name)
	}

	// 获取列名
	var headers []string
	for _, cell := range sheet.Rows[headerRow].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}

	// 准备数据列
	dataRows := sheet.Rows[headerRow+1:]
	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(dataRows))
	}

	// 填充数据，短行补空值保证各列等长
	for _, row := range dataRows {
		for i := range headers {
			value := ""
			if row != nil && i < len(row.Cells) {
				value = row.Cells[i].String()
			}
			columns[i] = append(columns[i], value)
		}
	}

	// 创建Series切片
	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("转换为dataframe失败: %w", df.Err)
	}
	return df, nil
}
