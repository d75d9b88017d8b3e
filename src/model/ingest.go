package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/BioB3/Flight-within-USA-Displayer/src/config"
	"github.com/BioB3/Flight-within-USA-Displayer/src/utils"
)

// ErrIngest 数据源不可读或缺少必需列
var ErrIngest = errors.New("ingest failed")

// IngestError 描述哪个数据源的哪一列/行出错
type IngestError struct {
	Source string // primary / secondary
	Column string
	Row    int // 数据行号(从1开始)，0表示与行无关
	Err    error
}

func (e *IngestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ingest %s source", e.Source)
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *IngestError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrIngest) 成立
func (e *IngestError) Is(target error) bool { return target == ErrIngest }

// Period 主数据源所属的年月，主数据源只有日期中的日
type Period struct {
	Year  int
	Month time.Month
}

// DefaultPeriod 2020年1月
var DefaultPeriod = Period{Year: 2020, Month: time.January}

// PeriodFrom 从数据配置读取年月
func PeriodFrom(dcfg *config.DataConfig) Period {
	if dcfg == nil {
		return DefaultPeriod
	}
	return Period{Year: dcfg.DatasetYear, Month: time.Month(dcfg.DatasetMonth)}
}

const (
	sourcePrimary   = "primary"
	sourceSecondary = "secondary"
)

// 副数据源日期格式 MM/DD/YY，兼容四位年份
var flightDateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02", "2006-01-02 15:04:05"}

// joinKey 连接键 (origin, dest, dep time, arr time, date)
type joinKey struct {
	origin  string
	dest    string
	depTime int
	arrTime int
	date    string
}

type delays struct {
	dep float64
	arr float64
}

// BuildDataset 连接两个数据源并计算派生列
// 处理流程:
// 1. 检查必需列
// 2. 去除机场代码中多余的引号
// 3. 解析日期，主数据源由日构造完整日期
// 4. 以副数据源建立哈希索引，左连接
// 5. 计算 time_block / week / status
func BuildDataset(primary, secondary dataframe.DataFrame, cols config.Columns, period Period) (*Dataset, error) {
	if primary.Err != nil {
		return nil, &IngestError{Source: sourcePrimary, Err: primary.Err}
	}
	if secondary.Err != nil {
		return nil, &IngestError{Source: sourceSecondary, Err: secondary.Err}
	}

	// 1. 检查必需列
	if err := requireColumns(primary, sourcePrimary, cols.PrimaryRequired()...); err != nil {
		return nil, err
	}
	if err := requireColumns(secondary, sourceSecondary, cols.SecondaryRequired()...); err != nil {
		return nil, err
	}

	// 2. 标准化机场代码
	primary = normalizeCodes(primary, cols.Origin, cols.Dest)
	secondary = normalizeCodes(secondary, cols.SecondaryOrigin, cols.SecondaryDest)

	// 3-4. 建立副数据源索引
	index, err := indexSecondary(secondary, cols)
	if err != nil {
		return nil, err
	}

	records, err := joinPrimary(primary, cols, period, index)
	if err != nil {
		return nil, err
	}

	// 5. 派生列在NewDataset中计算
	return NewDataset(records), nil
}

func requireColumns(df dataframe.DataFrame, source string, names ...string) error {
	if df.Nrow() == 0 && df.Ncol() == 0 {
		return &IngestError{Source: source, Err: errors.New("source is empty")}
	}
	if missing := utils.MissingColumns(df, names...); len(missing) > 0 {
		return &IngestError{Source: source, Column: missing[0], Err: errors.New("required column missing")}
	}
	return nil
}

// normalizeCodes 去除机场代码两侧的引号和空白
func normalizeCodes(df dataframe.DataFrame, colNames ...string) dataframe.DataFrame {
	for _, col := range colNames {
		df = df.Mutate(
			series.New(df.Col(col).Map(stripQuotes), series.String, col),
		)
	}
	return df
}

func stripQuotes(v series.Element) series.Element {
	e := v.Copy()
	if v.IsNA() {
		return e
	}
	e.Set(strings.TrimSpace(strings.ReplaceAll(v.String(), `"`, "")))
	return e
}

func indexSecondary(df dataframe.DataFrame, cols config.Columns) (map[joinKey]delays, error) {
	origins := df.Col(cols.SecondaryOrigin).Records()
	dests := df.Col(cols.SecondaryDest).Records()
	depTimes := df.Col(cols.SecondaryDepTime).Records()
	arrTimes := df.Col(cols.SecondaryArrTime).Records()
	dates := df.Col(cols.FlightDate).Records()

	depDelays := optionalColumn(df, cols.DepDelay)
	arrDelays := optionalColumn(df, cols.ArrDelay)

	index := make(map[joinKey]delays, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		row := i + 1
		dep, err := parseHHMM(depTimes[i])
		if err != nil {
			return nil, &IngestError{Source: sourceSecondary, Column: cols.SecondaryDepTime, Row: row, Err: err}
		}
		arr, err := parseHHMM(arrTimes[i])
		if err != nil {
			return nil, &IngestError{Source: sourceSecondary, Column: cols.SecondaryArrTime, Row: row, Err: err}
		}
		date, err := parseFlightDate(dates[i])
		if err != nil {
			return nil, &IngestError{Source: sourceSecondary, Column: cols.FlightDate, Row: row, Err: err}
		}

		d := delays{dep: math.NaN(), arr: math.NaN()}
		if depDelays != nil {
			if d.dep, err = parseFloat(depDelays[i]); err != nil {
				return nil, &IngestError{Source: sourceSecondary, Column: cols.DepDelay, Row: row, Err: err}
			}
		}
		if arrDelays != nil {
			if d.arr, err = parseFloat(arrDelays[i]); err != nil {
				return nil, &IngestError{Source: sourceSecondary, Column: cols.ArrDelay, Row: row, Err: err}
			}
		}

		key := joinKey{origin: origins[i], dest: dests[i], depTime: dep, arrTime: arr, date: formatDate(date)}
		// 同一键的重复行只保留第一条，左连接不会增加行数
		if _, seen := index[key]; !seen {
			index[key] = d
		}
	}
	return index, nil
}

func optionalColumn(df dataframe.DataFrame, name string) []string {
	if !utils.HasColumn(df, name) {
		return nil
	}
	return df.Col(name).Records()
}

func joinPrimary(df dataframe.DataFrame, cols config.Columns, period Period, index map[joinKey]delays) ([]FlightRecord, error) {
	origins := df.Col(cols.Origin).Records()
	dests := df.Col(cols.Dest).Records()
	days := df.Col(cols.DayOfMonth).Records()
	depTimes := df.Col(cols.DepTime).Records()
	arrTimes := df.Col(cols.ArrTime).Records()
	delayedFlags := df.Col(cols.Delayed).Records()
	divertedFlags := df.Col(cols.Diverted).Records()
	cancelledFlags := df.Col(cols.Cancelled).Records()
	carriers := df.Col(cols.Carrier).Records()
	distances := df.Col(cols.Distance).Records()

	records := make([]FlightRecord, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		row := i + 1
		fail := func(col string, err error) error {
			return &IngestError{Source: sourcePrimary, Column: col, Row: row, Err: err}
		}

		day, err := parseInt(days[i])
		if err != nil {
			return nil, fail(cols.DayOfMonth, err)
		}
		date := time.Date(period.Year, period.Month, day, 0, 0, 0, 0, time.UTC)
		if date.Day() != day || date.Month() != period.Month {
			return nil, fail(cols.DayOfMonth, fmt.Errorf("day %d out of range", day))
		}

		r := FlightRecord{Origin: origins[i], Dest: dests[i], Date: date}
		if r.DepTime, err = parseHHMM(depTimes[i]); err != nil {
			return nil, fail(cols.DepTime, err)
		}
		if r.ArrTime, err = parseHHMM(arrTimes[i]); err != nil {
			return nil, fail(cols.ArrTime, err)
		}
		if r.Delayed, err = parseFlag(delayedFlags[i]); err != nil {
			return nil, fail(cols.Delayed, err)
		}
		if r.Diverted, err = parseFlag(divertedFlags[i]); err != nil {
			return nil, fail(cols.Diverted, err)
		}
		if r.Cancelled, err = parseFlag(cancelledFlags[i]); err != nil {
			return nil, fail(cols.Cancelled, err)
		}
		carrier, err := parseInt(carriers[i])
		if err != nil {
			return nil, fail(cols.Carrier, err)
		}
		r.CarrierID = int64(carrier)
		if r.Distance, err = parseFloat(distances[i]); err != nil {
			return nil, fail(cols.Distance, err)
		}

		d, ok := index[joinKey{origin: r.Origin, dest: r.Dest, depTime: r.DepTime, arrTime: r.ArrTime, date: formatDate(date)}]
		if !ok {
			d = delays{dep: math.NaN(), arr: math.NaN()}
		}
		r.DepDelay, r.ArrDelay = d.dep, d.arr

		records = append(records, r)
	}
	return records, nil
}

// isNull 判断单元格是否为空值
func isNull(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NaN", "NA", "nan", "<nil>":
		return true
	}
	return false
}

// parseFloat 空值返回NaN
func parseFloat(s string) (float64, error) {
	if isNull(s) {
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// parseInt 接受 "20366" 与 "20366.0"
func parseInt(s string) (int, error) {
	if isNull(s) {
		return 0, errors.New("value is missing")
	}
	v, err := utils.ParseWholeNumber(s)
	if err != nil {
		return 0, err
	}
	if v < math.MinInt || v > math.MaxInt {
		return 0, fmt.Errorf("integer %q out of range", s)
	}
	return int(v), nil
}

// parseHHMM 解析HHMM时间，"1539.0" -> 1539，空值 -> NullTime
func parseHHMM(s string) (int, error) {
	if isNull(s) {
		return NullTime, nil
	}
	v, err := parseInt(s)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 2400 || v%100 > 59 {
		return 0, fmt.Errorf("invalid HHMM time %q", s)
	}
	return v, nil
}

// parseFlag 0/1 标记，空值视为0
func parseFlag(s string) (bool, error) {
	if isNull(s) {
		return false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false, fmt.Errorf("invalid flag %q", s)
	}
	return f != 0, nil
}

// parseFlightDate 解析 MM/DD/YY 日期，也接受Excel日期序列号
func parseFlightDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if isNull(s) {
		return time.Time{}, nil
	}
	for _, layout := range flightDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelSerialToDate(serial), nil
	}
	return time.Time{}, fmt.Errorf("invalid flight date %q", s)
}

// excelSerialToDate Excel日期序列号转日期
func excelSerialToDate(excelDays float64) time.Time {
	// Excel以1899-12-30为基准，已包含1900年闰年错误的修正
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(excelDays))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
