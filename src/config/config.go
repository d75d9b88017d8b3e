package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir   string `json:"data_dir" default:"datasets" validate:"required"`                  // 数据源所在目录
	Primary   string `json:"primary" default:"Jan_2020_ontime.csv" validate:"required"`        // 主数据源文件名
	Secondary string `json:"secondary" default:"Airline_dataset.csv" validate:"required"`      // 副数据源文件名
	SheetName string `json:"sheet_name" default:"Sheet1"`                                      // xlsx数据源的工作表名
	Charset   string `json:"charset" default:"utf-8" validate:"oneof=utf-8 utf8 gbk latin1"`   // 数据源字符集
	ExportDir string `json:"export_dir" default:"exports"`                                     // 导出文件目录

	LogName    string `json:"log_name" default:"app.log" validate:"required"`
	LogLevel   string `json:"log_level" default:"info" validate:"oneof=debug info warn warning error"`
	LogMaxSize string `json:"log_max_size" default:"10 * 1024 * 1024"`

	Email struct {
		Server        string   `json:"server"`                                 // 邮件服务器地址
		Username      string   `json:"username"`                               // 邮箱用户名
		Password      string   `json:"password"`                               // 邮箱密码
		TargetSubject string   `json:"target_subject" default:"flight dataset"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"`                          // 只查找该时间范围内的邮件
	} `json:"email"`
}

// DataConfig 数据列映射及数据集时间范围
type DataConfig struct {
	Columns      Columns `json:"columns"`
	DatasetYear  int     `json:"dataset_year" default:"2020" validate:"min=1900,max=2100"`
	DatasetMonth int     `json:"dataset_month" default:"1" validate:"min=1,max=12"`
}

// Columns 两个数据源中各逻辑字段对应的列名
type Columns struct {
	Origin     string `json:"origin" default:"ORIGIN" validate:"required"`
	Dest       string `json:"dest" default:"DEST" validate:"required"`
	DayOfMonth string `json:"day_of_month" default:"DAY_OF_MONTH" validate:"required"`
	DepTime    string `json:"dep_time" default:"DEP_TIME" validate:"required"`
	ArrTime    string `json:"arr_time" default:"ARR_TIME" validate:"required"`
	Delayed    string `json:"delayed" default:"DEP_DEL15" validate:"required"`
	Diverted   string `json:"diverted" default:"DIVERTED" validate:"required"`
	Cancelled  string `json:"cancelled" default:"CANCELLED" validate:"required"`
	Carrier    string `json:"carrier" default:"OP_CARRIER_AIRLINE_ID" validate:"required"`
	Distance   string `json:"distance" default:"DISTANCE" validate:"required"`

	SecondaryOrigin  string `json:"secondary_origin" default:"ORIGIN_AIRPORT" validate:"required"`
	SecondaryDest    string `json:"secondary_dest" default:"DEST_AIRPORT" validate:"required"`
	SecondaryDepTime string `json:"secondary_dep_time" default:"DEP_TIME" validate:"required"`
	SecondaryArrTime string `json:"secondary_arr_time" default:"ARR_TIME" validate:"required"`
	FlightDate       string `json:"flight_date" default:"FL_DATE" validate:"required"`
	DepDelay         string `json:"dep_delay" default:"DEP_DELAY" validate:"required"`
	ArrDelay         string `json:"arr_delay" default:"ARR_DELAY" validate:"required"`
}

// PrimaryRequired 主数据源必需的列
func (c Columns) PrimaryRequired() []string {
	return []string{c.Origin, c.Dest, c.DayOfMonth, c.DepTime, c.ArrTime,
		c.Delayed, c.Diverted, c.Cancelled, c.Carrier, c.Distance}
}

// SecondaryRequired 副数据源必需的列，延误列可选
func (c Columns) SecondaryRequired() []string {
	return []string{c.SecondaryOrigin, c.SecondaryDest, c.SecondaryDepTime, c.SecondaryArrTime, c.FlightDate}
}

// DefaultCheckInterval 邮件查找的默认时间范围
const DefaultCheckInterval = Duration(24 * time.Hour)

var validate = validator.New()

// Default 返回全部使用默认值的配置
func Default() (*Config, *DataConfig) {
	cfg := &Config{}
	dcfg := &DataConfig{}
	// 默认值均为编译期常量，不会失败
	_ = defaults.Set(cfg)
	_ = defaults.Set(dcfg)
	cfg.Email.CheckInterval = DefaultCheckInterval
	return cfg, dcfg
}

// DefaultColumns 返回默认列名映射
func DefaultColumns() Columns {
	_, dcfg := Default()
	return dcfg.Columns
}

// LoadConfig 读取配置文件和数据配置文件
// 数据配置文件不存在时使用默认值
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		dataConfigData = []byte("{}")
	} else if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		errChan <- fmt.Errorf("设置Config默认值失败: %w", err)
		return
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	if cfg.Email.CheckInterval <= 0 {
		cfg.Email.CheckInterval = DefaultCheckInterval
	}
	if err := validate.Struct(&cfg); err != nil {
		errChan <- fmt.Errorf("校验Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := defaults.Set(&dcfg); err != nil {
		errChan <- fmt.Errorf("设置DataConfig默认值失败: %w", err)
		return
	}
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	if err := validate.Struct(&dcfg); err != nil {
		errChan <- fmt.Errorf("校验DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg  *Config
		dcfg *DataConfig
		errs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, nil, combineErrors(errs)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("配置加载遇到多个错误: %w", errors.Join(errs...))
}

// PrimaryPath 主数据源完整路径
func (c *Config) PrimaryPath() string {
	return filepath.Join(c.DataDir, c.Primary)
}

// SecondaryPath 副数据源完整路径
func (c *Config) SecondaryPath() string {
	return filepath.Join(c.DataDir, c.Secondary)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
