package model

import (
	"github.com/BioB3/Flight-within-USA-Displayer/src/config"
	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/file"
)

// LoadDataset 读取两个数据源文件并构建数据集
func LoadDataset(primaryPath, secondaryPath string, opts file.ReadOptions, cols config.Columns, period Period) (*Dataset, error) {
	primary, err := file.ReadSource(primaryPath, opts)
	if err != nil {
		return nil, &IngestError{Source: sourcePrimary, Err: err}
	}
	secondary, err := file.ReadSource(secondaryPath, opts)
	if err != nil {
		return nil, &IngestError{Source: sourceSecondary, Err: err}
	}
	return BuildDataset(primary, secondary, cols, period)
}

// LoadFromConfig 按配置中的路径、字符集和列名加载
func LoadFromConfig(cfg *config.Config, dcfg *config.DataConfig) (*Dataset, error) {
	opts := file.ReadOptions{SheetName: cfg.SheetName, Charset: cfg.Charset}
	return LoadDataset(cfg.PrimaryPath(), cfg.SecondaryPath(), opts, dcfg.Columns, PeriodFrom(dcfg))
}
