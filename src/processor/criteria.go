// criteria.go
package processor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
)

// ErrFilter 查询条件不合法
var ErrFilter = errors.New("invalid filter")

// FilterError 描述不合法的查询字段
type FilterError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FilterError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is 使 errors.Is(err, ErrFilter) 成立
func (e *FilterError) Is(target error) bool { return target == ErrFilter }

// MaxWeek 月内最大周次
const MaxWeek = 5

// WeekSet 选中的周次(1-5)
type WeekSet [MaxWeek + 1]bool

// NewWeekSet 周次超出1-5时返回FilterError
func NewWeekSet(weeks ...int) (WeekSet, error) {
	var ws WeekSet
	for _, w := range weeks {
		if w < 1 || w > MaxWeek {
			return WeekSet{}, &FilterError{Field: "week", Value: strconv.Itoa(w), Reason: "must be between 1 and 5"}
		}
		ws[w] = true
	}
	return ws, nil
}

// AllWeeks 全部五周
func AllWeeks() WeekSet {
	ws, _ := NewWeekSet(1, 2, 3, 4, 5)
	return ws
}

// Has 周次是否被选中
func (ws WeekSet) Has(week int) bool {
	return week >= 1 && week <= MaxWeek && ws[week]
}

// Values 升序返回选中的周次
func (ws WeekSet) Values() []int {
	var out []int
	for w := 1; w <= MaxWeek; w++ {
		if ws[w] {
			out = append(out, w)
		}
	}
	return out
}

// Len 选中的周数
func (ws WeekSet) Len() int { return len(ws.Values()) }

// TimeBlockSet 选中的起飞时段
type TimeBlockSet [model.Night + 1]bool

// NewTimeBlockSet 时段不合法时返回FilterError
func NewTimeBlockSet(blocks ...model.TimeBlock) (TimeBlockSet, error) {
	var ts TimeBlockSet
	for _, b := range blocks {
		if !b.Valid() {
			return TimeBlockSet{}, &FilterError{Field: "time block", Value: b.String(), Reason: "unknown time block"}
		}
		ts[b] = true
	}
	return ts, nil
}

// ParseTimeBlockSet 由时段名称构造
func ParseTimeBlockSet(names ...string) (TimeBlockSet, error) {
	blocks := make([]model.TimeBlock, 0, len(names))
	for _, n := range names {
		b, ok := model.ParseTimeBlock(n)
		if !ok {
			return TimeBlockSet{}, &FilterError{Field: "time block", Value: n, Reason: "unknown time block"}
		}
		blocks = append(blocks, b)
	}
	return NewTimeBlockSet(blocks...)
}

// AllTimeBlocks 全部五个时段
func AllTimeBlocks() TimeBlockSet {
	ts, _ := NewTimeBlockSet(model.AllTimeBlocks()...)
	return ts
}

// Has 时段是否被选中，缺失时段永远不匹配
func (ts TimeBlockSet) Has(b model.TimeBlock) bool {
	return b.Valid() && ts[b]
}

// Values 按一天中的顺序返回选中的时段
func (ts TimeBlockSet) Values() []model.TimeBlock {
	var out []model.TimeBlock
	for _, b := range model.AllTimeBlocks() {
		if ts[b] {
			out = append(out, b)
		}
	}
	return out
}

// Len 选中的时段数
func (ts TimeBlockSet) Len() int { return len(ts.Values()) }

// FilterCriteria 一次查询的条件
type FilterCriteria struct {
	Keys       []string // 航线为[出发,到达]，机场与航司为单个值
	Weeks      WeekSet
	TimeBlocks TimeBlockSet
}

// NewFilterCriteria 构造时校验周次与时段
func NewFilterCriteria(keys []string, weeks []int, blocks []string) (FilterCriteria, error) {
	ws, err := NewWeekSet(weeks...)
	if err != nil {
		return FilterCriteria{}, err
	}
	ts, err := ParseTimeBlockSet(blocks...)
	if err != nil {
		return FilterCriteria{}, err
	}
	return FilterCriteria{Keys: normalizeKeys(keys), Weeks: ws, TimeBlocks: ts}, nil
}

// CriteriaFromFlags 由界面复选框的布尔列表构造，索引0对应第1周/Early Morning
func CriteriaFromFlags(keys []string, weeks, blocks [5]bool) FilterCriteria {
	c := FilterCriteria{Keys: normalizeKeys(keys)}
	all := model.AllTimeBlocks()
	for i := 0; i < 5; i++ {
		c.Weeks[i+1] = weeks[i]
		c.TimeBlocks[all[i]] = blocks[i]
	}
	return c
}

func normalizeKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strings.TrimSpace(k)
	}
	return out
}

// String 用于日志
func (c FilterCriteria) String() string {
	blocks := make([]string, 0, 5)
	for _, b := range c.TimeBlocks.Values() {
		blocks = append(blocks, b.String())
	}
	return fmt.Sprintf("keys=%v weeks=%v blocks=%v", c.Keys, c.Weeks.Values(), blocks)
}
