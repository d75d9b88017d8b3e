package model

import (
	"math"
	"strings"
	"time"
)

// NullTime 表示缺失的HHMM时间
const NullTime = -1

// TimeBlock 起飞时段
type TimeBlock int

// 时段常量，零值表示起飞时间缺失
const (
	TimeBlockUnknown TimeBlock = iota
	EarlyMorning
	Morning
	Afternoon
	Evening
	Night
)

var timeBlockNames = map[TimeBlock]string{
	EarlyMorning: "Early Morning",
	Morning:      "Morning",
	Afternoon:    "Afternoon",
	Evening:      "Evening",
	Night:        "Night",
}

// AllTimeBlocks 按一天中的先后顺序返回全部时段
func AllTimeBlocks() []TimeBlock {
	return []TimeBlock{EarlyMorning, Morning, Afternoon, Evening, Night}
}

func (tb TimeBlock) String() string {
	if name, ok := timeBlockNames[tb]; ok {
		return name
	}
	return "Unknown"
}

// Valid 是否为五个时段之一
func (tb TimeBlock) Valid() bool {
	return tb >= EarlyMorning && tb <= Night
}

// ParseTimeBlock 解析时段名称，忽略大小写，允许用-或_代替空格
func ParseTimeBlock(name string) (TimeBlock, bool) {
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(name))
	for tb, label := range timeBlockNames {
		if strings.EqualFold(label, normalized) {
			return tb, true
		}
	}
	return TimeBlockUnknown, false
}

// ClassifyTimeBlock 根据HHMM起飞时间划分时段
//
//	Early Morning 0400-0759, Morning 0800-1159, Afternoon 1200-1559,
//	Evening 1600-1859, Night 1900-0359
func ClassifyTimeBlock(hhmm int) TimeBlock {
	switch {
	case hhmm < 0:
		return TimeBlockUnknown
	case hhmm >= 400 && hhmm < 800:
		return EarlyMorning
	case hhmm >= 800 && hhmm < 1200:
		return Morning
	case hhmm >= 1200 && hhmm < 1600:
		return Afternoon
	case hhmm >= 1600 && hhmm < 1900:
		return Evening
	default:
		return Night
	}
}

// Status 航班执行状态，互斥
type Status int

const (
	OnTime Status = iota
	Delayed
	Diverted
	Canceled
)

var statusNames = map[Status]string{
	OnTime:   "On-time",
	Delayed:  "Delayed",
	Diverted: "Diverted",
	Canceled: "Canceled",
}

// AllStatuses 按判定优先级返回全部状态
func AllStatuses() []Status {
	return []Status{Delayed, Diverted, Canceled, OnTime}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ParseStatus 解析状态名称，忽略大小写
func ParseStatus(name string) (Status, bool) {
	for s, label := range statusNames {
		if strings.EqualFold(label, strings.TrimSpace(name)) {
			return s, true
		}
	}
	return OnTime, false
}

// ClassifyStatus 按 延误 > 备降 > 取消 > 正常 的优先级判定状态
func ClassifyStatus(delayed, diverted, cancelled bool) Status {
	switch {
	case delayed:
		return Delayed
	case diverted:
		return Diverted
	case cancelled:
		return Canceled
	default:
		return OnTime
	}
}

// WeekOfMonth 以周一为一周起点计算月内周次(1-5)
// 不足一周的第六周并入第5周
func WeekOfMonth(date time.Time) int {
	if date.IsZero() {
		return 0
	}
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	offset := (int(first.Weekday()) + 6) % 7 // 周一为0
	week := (date.Day()-1+offset)/7 + 1
	if week > 5 {
		week = 5
	}
	return week
}

// FlightRecord 连接并派生后的一条航班记录
type FlightRecord struct {
	Origin    string
	Dest      string
	Date      time.Time
	DepTime   int // HHMM，NullTime表示缺失
	ArrTime   int // HHMM，NullTime表示缺失
	Delayed   bool
	Diverted  bool
	Cancelled bool
	CarrierID int64
	Distance  float64 // 英里，NaN表示缺失
	DepDelay  float64 // 分钟，NaN表示缺失
	ArrDelay  float64 // 分钟，NaN表示缺失

	// 派生列，由Dataset构建时计算
	TimeBlock TimeBlock
	Week      int
	Status    Status
}

// derive 计算派生列
func (r *FlightRecord) derive() {
	r.TimeBlock = ClassifyTimeBlock(r.DepTime)
	r.Week = WeekOfMonth(r.Date)
	r.Status = ClassifyStatus(r.Delayed, r.Diverted, r.Cancelled)
}

// HasDepDelay 出发延误是否有值
func (r FlightRecord) HasDepDelay() bool { return !math.IsNaN(r.DepDelay) }

// HasArrDelay 到达延误是否有值
func (r FlightRecord) HasArrDelay() bool { return !math.IsNaN(r.ArrDelay) }
