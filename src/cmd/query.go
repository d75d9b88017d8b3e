package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/file"
	"github.com/BioB3/Flight-within-USA-Displayer/src/engine"
	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
	"github.com/BioB3/Flight-within-USA-Displayer/src/processor"
)

// querySpec 一次查询的全部参数，命令行和查询文件共用
type querySpec struct {
	Name   string   `yaml:"name"`
	By     string   `yaml:"by"`
	Keys   []string `yaml:"keys"`
	Weeks  []int    `yaml:"weeks"`
	Blocks []string `yaml:"blocks"`
	Kind   string   `yaml:"kind"`
	Export string   `yaml:"export"`
}

// criteria 未给出周次或时段时取全部，显式给出的空列表视为错误
func (q querySpec) criteria() (processor.FilterCriteria, error) {
	weeks := q.Weeks
	switch {
	case weeks == nil:
		weeks = processor.AllWeeks().Values()
	case len(weeks) == 0:
		return processor.FilterCriteria{}, &processor.FilterError{Field: "weeks", Reason: "empty list selects nothing, omit it to include every week"}
	}
	blocks := q.Blocks
	switch {
	case blocks == nil:
		for _, b := range model.AllTimeBlocks() {
			blocks = append(blocks, b.String())
		}
	case len(blocks) == 0:
		return processor.FilterCriteria{}, &processor.FilterError{Field: "blocks", Reason: "empty list selects nothing, omit it to include every time block"}
	}
	return processor.NewFilterCriteria(q.Keys, weeks, blocks)
}

func (q querySpec) dimension() (processor.Dimension, error) {
	if q.By == "" {
		return processor.DimensionFlight, nil
	}
	return processor.ParseDimension(q.By)
}

func (q querySpec) kind() (processor.AggregateKind, error) {
	if q.Kind == "" {
		return processor.AverageDelay, nil
	}
	return processor.ParseAggregateKind(q.Kind)
}

// runQuery 输出统计报告，观察者在聚合完成后输出结果表
func runQuery(w io.Writer, eng *engine.Engine, q querySpec, exportDir string) (*processor.AggregateResult, error) {
	dim, err := q.dimension()
	if err != nil {
		return nil, err
	}
	kind, err := q.kind()
	if err != nil {
		return nil, err
	}
	c, err := q.criteria()
	if err != nil {
		return nil, err
	}
	if err := eng.SelectDimension(dim); err != nil {
		return nil, err
	}

	_, summary, err := eng.Query(c)
	if err != nil {
		return nil, err
	}
	if q.Name != "" {
		_, _ = fmt.Fprintf(w, "== %s ==\n", q.Name)
	}
	_, _ = fmt.Fprintf(w, "%s\n\n", summary)

	table := engine.NewObserverFunc(func() error {
		return renderResult(w, eng.Result())
	})
	eng.Attach(table)
	defer func() { _ = eng.Detach(table) }()

	res, err := eng.GetAggregate(kind)
	if err != nil {
		return res, err
	}

	if q.Export != "" {
		path := exportPath(exportDir, q.Export)
		if err := exportResult(path, res); err != nil {
			return res, err
		}
		_, _ = fmt.Fprintf(w, "exported to %s\n", path)
	}
	return res, nil
}

func exportPath(dir, name string) string {
	if dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// exportResult xlsx同时导出结果表和选中的航班，其他格式只导出结果表
func exportResult(path string, res *processor.AggregateResult) error {
	if res.IsEmpty() {
		return fmt.Errorf("%s, nothing to export", processor.NoFlightsFound)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return file.SaveToExcel(path,
			file.NamedFrame{Sheet: "result", Frame: res.Frame()},
			file.NamedFrame{Sheet: "flights", Frame: res.Subset.Frame()},
		)
	}
	return file.Export(res.Frame(), path)
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	q := querySpec{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter flights and aggregate delays",
		Long: `Filter flights by route (--by flight --key ORIGIN --key DEST), origin
airport (--by airport --key ABE) or airline id (--by airline --key 20366),
restricted to the given weeks and departure time blocks.`,
		Example: `  flightq query --by flight --key ABE --key ATL --kind status
  flightq query --by airport --key ABE --week 1 --week 2 --block Morning --export abe.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.close()

			eng, err := a.loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			_, err = runQuery(cmd.OutOrStdout(), eng, q, a.cfg.ExportDir)
			return err
		},
	}

	cmd.Flags().StringVar(&q.By, "by", "flight", "query dimension: flight, airport or airline")
	cmd.Flags().StringArrayVar(&q.Keys, "key", nil, "query key, repeat for origin and destination")
	cmd.Flags().IntSliceVar(&q.Weeks, "week", nil, "weeks of month to include (1-5), default all")
	cmd.Flags().StringArrayVar(&q.Blocks, "block", nil, "departure time blocks to include, default all")
	cmd.Flags().StringVar(&q.Kind, "kind", "average-delay", "aggregate: average-delay, status or time-block")
	cmd.Flags().StringVar(&q.Export, "export", "", "export the result to a .csv or .xlsx file")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
