// Package config 读取 iocrest 服务配置：YAML 文件、环境变量覆盖、校验。
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/neko233-com/iocrest-go/bootstrap"
)

// 环境变量
const (
	EnvAddr     = "IOCREST_ADDR"
	EnvModules  = "IOCREST_MODULES"
	EnvStage    = "IOCREST_STAGE"
	EnvLogLevel = "IOCREST_LOG_LEVEL"
	EnvRootPath = "IOCREST_ROOT_PATH"
	EnvMetrics  = "IOCREST_METRICS"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Modules []string      `yaml:"modules" validate:"dive,required"`
	Stage   string        `yaml:"stage" validate:"oneof=DEVELOPMENT PRODUCTION TOOL"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	// Params 额外的监听器初始化参数
	Params map[string]string `yaml:"params"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,listen_addr"`
	RootPath        string        `yaml:"root_path" validate:"omitempty,startswith=/"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true,omitempty,startswith=/"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Stage: "DEVELOPMENT",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Error 带操作与路径的配置错误
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("config: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Load 默认值 <- YAML 文件 <- 环境变量，最后校验
// path 为空时跳过文件
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Op: "read", Path: path, Err: err}
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, &Error{Op: "parse", Path: path, Err: err}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvModules); ok {
		c.Modules = splitList(v)
	}
	if v, ok := lookup(EnvStage); ok {
		c.Stage = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvRootPath); ok {
		c.Server.RootPath = v
	}
	if v, ok := lookup(EnvMetrics); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Op: "env", Path: EnvMetrics, Err: err}
		}
		c.Metrics.Enabled = enabled
	}
	return nil
}

func (c *Config) normalize() {
	c.Stage = strings.ToUpper(strings.TrimSpace(c.Stage))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("listen_addr", isListenAddr); err != nil {
		panic(err)
	}
}

// isListenAddr host:port，端口允许 0（由系统分配）
func isListenAddr(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return false
	}
	if host == "" || net.ParseIP(host) != nil {
		return true
	}
	return validate.Var(host, "hostname_rfc1123") == nil
}

// Validate 校验失败返回 *Error，Err 中列出每个字段的失败规则
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Op: "validate", Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
	}
	return &Error{Op: "validate", Err: errors.New(strings.Join(msgs, "; "))}
}

// InitParams 监听器初始化参数，Params 中的同名项优先
func (c *Config) InitParams() map[string]string {
	params := map[string]string{
		bootstrap.ParamModules: strings.Join(c.Modules, ","),
		bootstrap.ParamStage:   c.Stage,
	}
	for k, v := range c.Params {
		params[k] = v
	}
	return params
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
