package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
	"github.com/BioB3/Flight-within-USA-Displayer/src/processor"
	"github.com/BioB3/Flight-within-USA-Displayer/src/storage"
)

// ErrNoQuery 尚未执行过查询
var ErrNoQuery = errors.New("no query has been run")

// Engine 查询引擎，持有数据集和当前的查询维度、子集、聚合结果
// 非并发安全，只能由单个调用方使用
type Engine struct {
	ds       *model.Dataset
	logger   *storage.Logger
	strategy processor.SearchStrategy
	kind     processor.AggregateKind

	criteria processor.FilterCriteria
	subset   *processor.Subset
	summary  string
	result   *processor.AggregateResult
	story    *processor.Story

	subject Subject
}

// New 默认按航线查询，默认聚合为每周平均延误
func New(ds *model.Dataset, logger *storage.Logger) *Engine {
	if logger == nil {
		logger = storage.NewNopLogger()
	}
	return &Engine{
		ds:       ds,
		logger:   logger,
		strategy: processor.ByFlight{},
		kind:     processor.AverageDelay,
	}
}

// Dataset 引擎使用的数据集
func (e *Engine) Dataset() *model.Dataset { return e.ds }

// SelectDimension 切换查询维度，已有的子集和结果保持不变
func (e *Engine) SelectDimension(d processor.Dimension) error {
	s, err := processor.StrategyFor(d)
	if err != nil {
		return err
	}
	e.strategy = s
	e.logger.Debug("查询维度切换为 " + d.String())
	return nil
}

// Dimension 当前查询维度
func (e *Engine) Dimension() processor.Dimension { return e.strategy.Dimension() }

// Kind 最近一次使用的聚合类型
func (e *Engine) Kind() processor.AggregateKind { return e.kind }

// Query 用当前维度过滤并生成统计报告
// 查询条件不合法时返回错误，之前的子集和报告不受影响
func (e *Engine) Query(c processor.FilterCriteria) (*processor.Subset, string, error) {
	start := time.Now()
	sub, err := e.strategy.Filter(e.ds, c)
	if err != nil {
		e.logger.Warning(fmt.Sprintf("查询失败(%s): %v", e.Dimension(), err))
		return nil, "", fmt.Errorf("query by %s: %w", e.Dimension(), err)
	}

	e.criteria = c
	e.subset = sub
	e.summary = processor.Summarize(sub, e.strategy, c)

	e.logger.WithFields(logrus.Fields{
		"dimension": e.Dimension().String(),
		"criteria":  c.String(),
		"flights":   sub.Len(),
		"elapsed":   time.Since(start).String(),
	}).Info("查询完成")
	return sub, e.summary, nil
}

// GetAggregate 对最近一次查询的子集计算聚合并通知观察者
func (e *Engine) GetAggregate(kind processor.AggregateKind) (*processor.AggregateResult, error) {
	if e.subset == nil {
		return nil, ErrNoQuery
	}
	res, err := processor.Aggregate(kind, e.subset)
	if err != nil {
		return nil, err
	}
	e.kind = kind
	e.result = res

	if err := e.subject.Notify(); err != nil {
		e.logger.Error("通知观察者失败: " + err.Error())
		return res, err
	}
	return res, nil
}

// Run 查询后立即聚合
func (e *Engine) Run(c processor.FilterCriteria, kind processor.AggregateKind) (*processor.AggregateResult, string, error) {
	_, summary, err := e.Query(c)
	if err != nil {
		return nil, "", err
	}
	res, err := e.GetAggregate(kind)
	return res, summary, err
}

// Result 当前聚合结果，尚未聚合时为nil
func (e *Engine) Result() *processor.AggregateResult { return e.result }

// Summary 最近一次查询的统计报告
func (e *Engine) Summary() string { return e.summary }

// Subset 最近一次查询的子集
func (e *Engine) Subset() *processor.Subset { return e.subset }

// Criteria 最近一次查询的条件
func (e *Engine) Criteria() processor.FilterCriteria { return e.criteria }

// Attach 注册观察者
func (e *Engine) Attach(o Observer) { e.subject.Attach(o) }

// Detach 移除观察者
func (e *Engine) Detach(o Observer) error { return e.subject.Detach(o) }

// Routes 出发机场 -> 到达机场列表
func (e *Engine) Routes() map[string][]string { return e.ds.Routes() }

// Origins 出发机场列表
func (e *Engine) Origins() []string { return e.ds.Origins() }

// Destinations 某出发机场可到达的机场
func (e *Engine) Destinations(origin string) []string { return e.ds.Destinations(origin) }

// Carriers 航司ID列表
func (e *Engine) Carriers() []string { return e.ds.Carriers() }

// Story 数据集整体概况，首次调用时计算
func (e *Engine) Story() processor.Story {
	if e.story == nil {
		st := processor.BuildStory(e.ds)
		e.story = &st
	}
	return *e.story
}

// Close 移除全部观察者
func (e *Engine) Close() {
	e.subject.Clear()
}
