// strategy.go
package processor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
	"github.com/BioB3/Flight-within-USA-Displayer/src/utils"
)

// Dimension 查询维度
type Dimension int

const (
	DimensionFlight Dimension = iota
	DimensionAirport
	DimensionAirline
)

var dimensionNames = []string{"flight", "airport", "airline"}

func (d Dimension) String() string {
	if d >= 0 && int(d) < len(dimensionNames) {
		return dimensionNames[d]
	}
	return "unknown"
}

// ParseDimension 解析 flight / airport / airline
func ParseDimension(name string) (Dimension, error) {
	for i, n := range dimensionNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return Dimension(i), nil
		}
	}
	return 0, &FilterError{Field: "dimension", Value: name, Reason: "expected flight, airport or airline"}
}

// SearchStrategy 按某一维度过滤数据集
type SearchStrategy interface {
	Dimension() Dimension
	// Filter 从完整数据集中过滤
	Filter(ds *model.Dataset, c FilterCriteria) (*Subset, error)
	// FilterSubset 在已有子集上再次过滤
	FilterSubset(sub *Subset, c FilterCriteria) (*Subset, error)
	// Describe 查询条件的可读描述，用作统计报告的标题
	Describe(c FilterCriteria) string
}

// StrategyFor 返回维度对应的策略
func StrategyFor(d Dimension) (SearchStrategy, error) {
	switch d {
	case DimensionFlight:
		return ByFlight{}, nil
	case DimensionAirport:
		return ByAirport{}, nil
	case DimensionAirline:
		return ByAirline{}, nil
	default:
		return nil, &FilterError{Field: "dimension", Value: strconv.Itoa(int(d)), Reason: "unknown dimension"}
	}
}

// keyMatcher 维度键的匹配函数
type keyMatcher func(r model.FlightRecord) bool

// filterRecords 维度键、周次、时段三个条件同时满足
// candidates为nil时遍历整个数据集
func filterRecords(ds *model.Dataset, candidates []int, c FilterCriteria, match keyMatcher) *Subset {
	sub := &Subset{ds: ds, indices: []int{}}
	// 周次或时段为空时结果必为空
	if c.Weeks.Len() == 0 || c.TimeBlocks.Len() == 0 {
		return sub
	}

	keep := func(i int, r model.FlightRecord) {
		if match(r) && c.Weeks.Has(r.Week) && c.TimeBlocks.Has(r.TimeBlock) {
			sub.indices = append(sub.indices, i)
		}
	}

	if candidates == nil {
		ds.Each(func(i int, r model.FlightRecord) bool {
			keep(i, r)
			return true
		})
		return sub
	}
	for _, i := range candidates {
		keep(i, ds.Record(i))
	}
	return sub
}

func requireKeys(d Dimension, c FilterCriteria, n int) error {
	if len(c.Keys) != n {
		return &FilterError{
			Field:  d.String() + " key",
			Value:  strings.Join(c.Keys, ","),
			Reason: fmt.Sprintf("expected %d value(s), got %d", n, len(c.Keys)),
		}
	}
	for _, k := range c.Keys {
		if k == "" {
			return &FilterError{Field: d.String() + " key", Reason: "empty value"}
		}
	}
	return nil
}

// ByFlight 按航线(出发机场+到达机场)过滤
type ByFlight struct{}

func (ByFlight) Dimension() Dimension { return DimensionFlight }

func (s ByFlight) matcher(c FilterCriteria) (keyMatcher, error) {
	if err := requireKeys(DimensionFlight, c, 2); err != nil {
		return nil, err
	}
	origin, dest := c.Keys[0], c.Keys[1]
	return func(r model.FlightRecord) bool {
		return r.Origin == origin && r.Dest == dest
	}, nil
}

func (s ByFlight) Filter(ds *model.Dataset, c FilterCriteria) (*Subset, error) {
	match, err := s.matcher(c)
	if err != nil {
		return nil, err
	}
	return filterRecords(ds, nil, c, match), nil
}

func (s ByFlight) FilterSubset(sub *Subset, c FilterCriteria) (*Subset, error) {
	match, err := s.matcher(c)
	if err != nil {
		return nil, err
	}
	return filterRecords(sub.ds, sub.indices, c, match), nil
}

func (ByFlight) Describe(c FilterCriteria) string {
	if len(c.Keys) < 2 {
		return "Flight: " + strings.Join(c.Keys, " -> ")
	}
	return fmt.Sprintf("Flight: %s -> %s", c.Keys[0], c.Keys[1])
}

// ByAirport 按出发机场过滤
type ByAirport struct{}

func (ByAirport) Dimension() Dimension { return DimensionAirport }

func (s ByAirport) matcher(c FilterCriteria) (keyMatcher, error) {
	if err := requireKeys(DimensionAirport, c, 1); err != nil {
		return nil, err
	}
	origin := c.Keys[0]
	return func(r model.FlightRecord) bool { return r.Origin == origin }, nil
}

func (s ByAirport) Filter(ds *model.Dataset, c FilterCriteria) (*Subset, error) {
	match, err := s.matcher(c)
	if err != nil {
		return nil, err
	}
	return filterRecords(ds, nil, c, match), nil
}

func (s ByAirport) FilterSubset(sub *Subset, c FilterCriteria) (*Subset, error) {
	match, err := s.matcher(c)
	if err != nil {
		return nil, err
	}
	return filterRecords(sub.ds, sub.indices, c, match), nil
}

func (ByAirport) Describe(c FilterCriteria) string {
	return "Airport: " + strings.Join(c.Keys, ", ")
}

// ByAirline 按航司ID过滤，文本键需转换为数值
type ByAirline struct{}

func (ByAirline) Dimension() Dimension { return DimensionAirline }

// ParseCarrierID 接受 "20366" 和 "20366.0"
func ParseCarrierID(key string) (int64, error) {
	key = strings.TrimSpace(key)
	id, err := utils.ParseWholeNumber(key)
	if err != nil {
		return 0, &FilterError{Field: "airline key", Value: key, Reason: "not a numeric carrier id"}
	}
	return id, nil
}

func (s ByAirline) matcher(c FilterCriteria) (keyMatcher, error) {
	if err := requireKeys(DimensionAirline, c, 1); err != nil {
		return nil, err
	}
	id, err := ParseCarrierID(c.Keys[0])
	if err != nil {
		return nil, err
	}
	return func(r model.FlightRecord) bool { return r.CarrierID == id }, nil
}

func (s ByAirline) Filter(ds *model.Dataset, c FilterCriteria) (*Subset, error) {
	match, err := s.matcher(c)
	if err != nil {
		return nil, err
	}
	return filterRecords(ds, nil, c, match), nil
}

func (s ByAirline) FilterSubset(sub *Subset, c FilterCriteria) (*Subset, error) {
	match, err := s.matcher(c)
	if err != nil {
		return nil, err
	}
	return filterRecords(sub.ds, sub.indices, c, match), nil
}

func (ByAirline) Describe(c FilterCriteria) string {
	return "Airline ID: " + strings.Join(c.Keys, ", ")
}

// Subset 策略过滤得到的数据子集，保存原数据集中的行号
type Subset struct {
	ds      *model.Dataset
	indices []int
}

// NewSubset 以数据集全部记录构造子集
func NewSubset(ds *model.Dataset) *Subset {
	indices := make([]int, ds.Len())
	for i := range indices {
		indices[i] = i
	}
	return &Subset{ds: ds, indices: indices}
}

// Len 记录数
func (s *Subset) Len() int {
	if s == nil {
		return 0
	}
	return len(s.indices)
}

// IsEmpty 没有匹配的航班，这是正常结果而非错误
func (s *Subset) IsEmpty() bool { return s.Len() == 0 }

// Record 第i条记录
func (s *Subset) Record(i int) model.FlightRecord { return s.ds.Record(s.indices[i]) }

// Records 全部记录的副本
func (s *Subset) Records() []model.FlightRecord {
	out := make([]model.FlightRecord, s.Len())
	for i := range out {
		out[i] = s.Record(i)
	}
	return out
}

// Indices 在原数据集中的行号
func (s *Subset) Indices() []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s.indices))
	copy(out, s.indices)
	return out
}

// Dataset 子集所属的数据集
func (s *Subset) Dataset() *model.Dataset { return s.ds }

// Frame 子集的DataFrame形式，用于导出
func (s *Subset) Frame() dataframe.DataFrame {
	return model.RecordsFrame(s.Records())
}
