package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataFile   string `json:"data_file" validate:"required"` // 酒店预订数据集(csv/xlsx)
	SheetName  string `json:"sheet_name"`                    // xlsx数据集的工作表名
	DataDir    string `json:"data_dir" validate:"required"`  // 应用程序数据存储目录
	LogName    string `json:"log_name" validate:"required"`
	LogMaxSize string `json:"log_max_size"`

	Server struct {
		Addr string `json:"addr" validate:"required"` // HTTP监听地址
	} `json:"server"`

	Watch struct {
		Enabled bool `json:"enabled"` // 数据文件变化时自动重新加载
	} `json:"watch"`

	// 从邮箱拉取新数据集附件
	Email struct {
		Enabled       bool     `json:"enabled"`
		Server        string   `json:"server" validate:"required_if=Enabled true"` // 邮件服务器地址
		Username      string   `json:"username"`                                   // 邮箱用户名
		Password      string   `json:"password"`                                   // 邮箱密码
		TargetSubject string   `json:"target_subject"`                             // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"`                             // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Enabled  bool     `json:"enabled"`
		Server   string   `json:"server" validate:"required_if=Enabled true"`
		Username string   `json:"username"`
		Password string   `json:"password"`
		To       []string `json:"to"`
		Subject  string   `json:"subject"`
	} `json:"send_email"`

	// 定时推送报表
	Report struct {
		Cron       string `json:"cron"`
		WebhookURL string `json:"webhook_url" validate:"omitempty,url"`
		ExportDir  string `json:"export_dir"`
	} `json:"report"`
}

// DataConfig 数据清洗与展示相关的配置
type DataConfig struct {
	CategoricalColumns []string `json:"categorical_columns"`
	MissingValues      []string `json:"missing_values"`
	DateLayouts        []string `json:"date_layouts"`
	UnknownCountry     string   `json:"unknown_country"`
	HistogramBins      int      `json:"histogram_bins" validate:"gte=0,lte=1000"`
	ChartWidth         int      `json:"chart_width" validate:"gte=0"`
	ChartHeight        int      `json:"chart_height" validate:"gte=0"`
}

// Env 环境变量覆盖项, 前缀 BOOKING_
type Env struct {
	DataFile      string `envconfig:"DATA_FILE"`
	Addr          string `envconfig:"ADDR"`
	EmailPassword string `envconfig:"EMAIL_PASSWORD"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
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

	if err := applyEnv(cfg); err != nil {
		return nil, nil, err
	}
	dcfg.applyDefaults()

	if err := validate(cfg, dcfg); err != nil {
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
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
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
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// applyEnv 用 BOOKING_* 环境变量覆盖配置, 密码类字段不必写进json
func applyEnv(cfg *Config) error {
	var env Env
	if err := envconfig.Process("booking", &env); err != nil {
		return fmt.Errorf("解析环境变量失败: %w", err)
	}
	if env.DataFile != "" {
		cfg.DataFile = env.DataFile
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.EmailPassword != "" {
		cfg.Email.Password = env.EmailPassword
	}
	if env.SMTPPassword != "" {
		cfg.SendEmail.Password = env.SMTPPassword
	}
	if env.WebhookURL != "" {
		cfg.Report.WebhookURL = env.WebhookURL
	}
	return nil
}

func validate(cfg *Config, dcfg *DataConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("Config校验失败: %w", err)
	}
	if err := v.Struct(dcfg); err != nil {
		return fmt.Errorf("DataConfig校验失败: %w", err)
	}
	return nil
}

func (dc *DataConfig) applyDefaults() {
	if dc.UnknownCountry == "" {
		dc.UnknownCountry = "Unknown"
	}
	if len(dc.MissingValues) == 0 {
		dc.MissingValues = []string{"", "NA", "NaN", "NULL", "null", "<nil>"}
	}
	if dc.HistogramBins == 0 {
		dc.HistogramBins = 50
	}
	if dc.ChartWidth == 0 {
		dc.ChartWidth = 960
	}
	if dc.ChartHeight == 0 {
		dc.ChartHeight = 540
	}
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

func (dc *DataConfig) GetCategoricalColumns() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.CategoricalColumns...)
}

func (dc *DataConfig) SetCategoricalColumns(cols []string) {
	mu.Lock()
	defer mu.Unlock()
	dc.CategoricalColumns = append([]string(nil), cols...)
}
