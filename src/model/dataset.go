package model

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Dataset 构建后只读的航班数据表
type Dataset struct {
	records  []FlightRecord
	routes   map[string][]string
	origins  []string
	carriers []string
}

// NewDataset 由原始字段构建数据集，派生列在此一次性计算
func NewDataset(records []FlightRecord) *Dataset {
	ds := &Dataset{records: make([]FlightRecord, len(records))}
	copy(ds.records, records)
	for i := range ds.records {
		ds.records[i].derive()
	}
	ds.buildLookups()
	return ds
}

func (ds *Dataset) buildLookups() {
	destSets := make(map[string]map[string]struct{})
	carrierSet := make(map[int64]struct{})

	for _, r := range ds.records {
		if _, ok := destSets[r.Origin]; !ok {
			destSets[r.Origin] = make(map[string]struct{})
		}
		destSets[r.Origin][r.Dest] = struct{}{}
		carrierSet[r.CarrierID] = struct{}{}
	}

	ds.routes = make(map[string][]string, len(destSets))
	for origin, dests := range destSets {
		list := make([]string, 0, len(dests))
		for d := range dests {
			list = append(list, d)
		}
		sort.Strings(list)
		ds.routes[origin] = list
		ds.origins = append(ds.origins, origin)
	}
	sort.Strings(ds.origins)

	ids := make([]int64, 0, len(carrierSet))
	for id := range carrierSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ds.carriers = make([]string, len(ids))
	for i, id := range ids {
		ds.carriers[i] = strconv.FormatInt(id, 10)
	}
}

// Len 记录条数
func (ds *Dataset) Len() int { return len(ds.records) }

// Record 返回第i条记录的副本
func (ds *Dataset) Record(i int) FlightRecord { return ds.records[i] }

// Records 返回全部记录的副本
func (ds *Dataset) Records() []FlightRecord {
	out := make([]FlightRecord, len(ds.records))
	copy(out, ds.records)
	return out
}

// Each 按顺序遍历记录的副本，fn返回false时停止
func (ds *Dataset) Each(fn func(i int, r FlightRecord) bool) {
	for i, r := range ds.records {
		if !fn(i, r) {
			return
		}
	}
}

// Routes 出发机场 -> 已排序的到达机场列表
func (ds *Dataset) Routes() map[string][]string {
	out := make(map[string][]string, len(ds.routes))
	for k, v := range ds.routes {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Destinations 某出发机场的到达机场列表
func (ds *Dataset) Destinations(origin string) []string {
	return append([]string(nil), ds.routes[origin]...)
}

// Origins 已排序的出发机场列表
func (ds *Dataset) Origins() []string {
	return append([]string(nil), ds.origins...)
}

// Carriers 已排序的航司ID列表
func (ds *Dataset) Carriers() []string {
	return append([]string(nil), ds.carriers...)
}

// Frame 以DataFrame形式返回全部记录，用于导出
func (ds *Dataset) Frame() dataframe.DataFrame {
	return RecordsFrame(ds.records)
}

// RecordsFrame 将记录转换为DataFrame
func RecordsFrame(records []FlightRecord) dataframe.DataFrame {
	n := len(records)
	var (
		origin    = make([]string, n)
		dest      = make([]string, n)
		date      = make([]string, n)
		depTime   = make([]float64, n)
		arrTime   = make([]float64, n)
		delayed   = make([]int, n)
		diverted  = make([]int, n)
		cancelled = make([]int, n)
		carrier   = make([]int, n)
		distance  = make([]float64, n)
		depDelay  = make([]float64, n)
		arrDelay  = make([]float64, n)
		timeBlock = make([]string, n)
		week      = make([]int, n)
		status    = make([]string, n)
	)

	for i, r := range records {
		origin[i] = r.Origin
		dest[i] = r.Dest
		if !r.Date.IsZero() {
			date[i] = r.Date.Format("2006-01-02")
		}
		depTime[i] = hhmmFloat(r.DepTime)
		arrTime[i] = hhmmFloat(r.ArrTime)
		delayed[i] = boolInt(r.Delayed)
		diverted[i] = boolInt(r.Diverted)
		cancelled[i] = boolInt(r.Cancelled)
		carrier[i] = int(r.CarrierID)
		distance[i] = r.Distance
		depDelay[i] = r.DepDelay
		arrDelay[i] = r.ArrDelay
		if r.TimeBlock.Valid() {
			timeBlock[i] = r.TimeBlock.String()
		}
		week[i] = r.Week
		status[i] = r.Status.String()
	}

	return dataframe.New(
		series.New(origin, series.String, "ORIGIN"),
		series.New(dest, series.String, "DEST"),
		series.New(date, series.String, "FL_DATE"),
		series.New(depTime, series.Float, "DEP_TIME"),
		series.New(arrTime, series.Float, "ARR_TIME"),
		series.New(delayed, series.Int, "DEP_DEL15"),
		series.New(diverted, series.Int, "DIVERTED"),
		series.New(cancelled, series.Int, "CANCELLED"),
		series.New(carrier, series.Int, "OP_CARRIER_AIRLINE_ID"),
		series.New(distance, series.Float, "DISTANCE"),
		series.New(depDelay, series.Float, "DEP_DELAY"),
		series.New(arrDelay, series.Float, "ARR_DELAY"),
		series.New(timeBlock, series.String, "DEP_TIME_BLK"),
		series.New(week, series.Int, "WEEK"),
		series.New(status, series.String, "STATUS"),
	)
}

func hhmmFloat(v int) float64 {
	if v == NullTime {
		return math.NaN()
	}
	return float64(v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
