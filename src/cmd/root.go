// Package cmd 命令行入口
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BioB3/Flight-within-USA-Displayer/src/config"
	"github.com/BioB3/Flight-within-USA-Displayer/src/engine"
	"github.com/BioB3/Flight-within-USA-Displayer/src/model"
	"github.com/BioB3/Flight-within-USA-Displayer/src/storage"
)

// rootOptions 全局参数
type rootOptions struct {
	configDir      string
	configFile     string
	dataConfigFile string
	logLevel       string
}

// app 一次命令执行所需的配置和日志
type app struct {
	cfg    *config.Config
	dcfg   *config.DataConfig
	logger *storage.Logger
}

// NewRootCmd 构建完整的命令树
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "flightq",
		Short: "Query delays of flights within the USA",
		Long: `flightq joins the on-time performance and airline datasets, then
filters flights by route, origin airport or airline and reports delay
statistics by week, flight status and departure time block.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "./config", "directory holding the config files")
	root.PersistentFlags().StringVar(&opts.configFile, "config", "config.json", "config file name")
	root.PersistentFlags().StringVar(&opts.dataConfigFile, "data-config", "dataconfig.json", "data config file name")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")

	root.AddCommand(
		newQueryCmd(opts),
		newStoryCmd(opts),
		newLookupCmd(opts),
		newFetchCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// Execute 执行根命令
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup 加载配置并初始化日志
func (o *rootOptions) setup() (*app, error) {
	cfg, dcfg, err := config.LoadConfig(o.configDir, o.configFile, o.dataConfigFile)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}

	logger, err := storage.NewLogger(cfg.LogName, level, cfg.LogMaxSize)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return &app{cfg: cfg, dcfg: dcfg, logger: logger}, nil
}

// loadEngine 读取数据源并创建查询引擎
func (a *app) loadEngine() (*engine.Engine, error) {
	ds, err := model.LoadFromConfig(a.cfg, a.dcfg)
	if err != nil {
		a.logger.Error("加载数据集失败: " + err.Error())
		return nil, err
	}
	a.logger.Info(fmt.Sprintf("已加载 %d 条航班记录", ds.Len()))
	return engine.New(ds, a.logger), nil
}

// close 关闭日志
func (a *app) close() {
	_ = a.logger.Close()
}
