// Package config 提供了统一的配置加载与管理能力：TOML 文件、CAPVOL_ 前缀环境变量覆盖、
// validator 校验以及基于 fsnotify 的热更新。
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/wyfcoding/capvol/algorithm/finance"
	"github.com/wyfcoding/capvol/algorithm/rootfind"
	"github.com/wyfcoding/capvol/logging"
	"github.com/wyfcoding/capvol/tracing"
	"github.com/wyfcoding/capvol/validator"
	"github.com/wyfcoding/capvol/volcurve"
)

// EnvPrefix 环境变量前缀，例如 CAPVOL_SOLVER_METHOD=bisection。
const EnvPrefix = "CAPVOL"

// Config 全局顶级配置结构.
type Config struct {
	Version  string          `mapstructure:"version"  toml:"version"`
	Log      logging.Config  `mapstructure:"log"      toml:"log"`
	Metrics  MetricsConfig   `mapstructure:"metrics"  toml:"metrics"`
	Tracing  tracing.Config  `mapstructure:"tracing"  toml:"tracing"`
	Cache    CacheConfig     `mapstructure:"cache"    toml:"cache"`
	Pricer   PricerConfig    `mapstructure:"pricer"   toml:"pricer"`
	Solver   rootfind.Config `mapstructure:"solver"   toml:"solver"`
	Stripper StripperConfig  `mapstructure:"stripper" toml:"stripper"`
}

// MetricsConfig 定义指标暴露参数.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Addr    string `mapstructure:"addr"    toml:"addr"`
	Path    string `mapstructure:"path"    toml:"path"`
}

// CacheConfig 定义剥离结果缓存参数.
type CacheConfig struct {
	Enabled            bool          `mapstructure:"enabled"              toml:"enabled"`
	TTL                time.Duration `mapstructure:"ttl"                  toml:"ttl"                  validate:"omitempty,gt=0"`
	Shards             int           `mapstructure:"shards"               toml:"shards"               validate:"omitempty,gt=0"`
	HardMaxCacheSizeMB int           `mapstructure:"hard_max_cache_size_mb" toml:"hard_max_cache_size_mb" validate:"gte=0"`
}

// PricerConfig 定义定价器参数.
type PricerConfig struct {
	// Epsilon 加在波动率分母上的正数下限。
	Epsilon float64 `mapstructure:"epsilon" toml:"epsilon" validate:"gt=0"`
}

// StripperConfig 定义剥离与插值参数.
type StripperConfig struct {
	Tau         float64 `mapstructure:"tau"          toml:"tau"          validate:"gt=0"`
	Notional    float64 `mapstructure:"notional"     toml:"notional"     validate:"gt=0"`
	BlackGuess  float64 `mapstructure:"black_guess"  toml:"black_guess"  validate:"gt=0"`
	NormalGuess float64 `mapstructure:"normal_guess" toml:"normal_guess" validate:"gt=0"`
	GridStep    float64 `mapstructure:"grid_step"    toml:"grid_step"    validate:"gt=0"`
	// Concurrency 批量剥离时的最大并发快照数。
	Concurrency int `mapstructure:"concurrency" toml:"concurrency" validate:"gte=1"`
}

// Default 返回与参考数值一致的默认配置.
func Default() *Config {
	return &Config{
		Version: "dev",
		Log: logging.Config{
			Service: "capvol",
			Module:  "stripping",
			Level:   "info",
		},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090", Path: "/metrics"},
		Tracing: tracing.Config{ServiceName: "capvol", SampleRatio: 1, Insecure: true},
		Cache: CacheConfig{
			Enabled:            true,
			TTL:                10 * time.Minute,
			Shards:             64,
			HardMaxCacheSizeMB: 64,
		},
		Pricer: PricerConfig{Epsilon: finance.DefaultEpsilon},
		Solver: rootfind.DefaultConfig(),
		Stripper: StripperConfig{
			Tau:         volcurve.DefaultTau,
			Notional:    volcurve.DefaultNotional,
			BlackGuess:  finance.DefaultBlackGuess,
			NormalGuess: finance.DefaultNormalGuess,
			GridStep:    volcurve.DefaultGridStep,
			Concurrency: 4,
		},
	}
}

// Validate 校验配置.
func (c *Config) Validate() error {
	if err := validator.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Loader 持有 viper 实例与热更新回调.
type Loader struct {
	v        *viper.Viper
	mu       sync.Mutex
	onReload []func(*Config)
	current  *Config
}

// NewLoader 创建加载器，未在文件与环境变量中出现的键取 Default() 的值.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("log.service", d.Log.Service)
	v.SetDefault("log.module", d.Log.Module)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.stdout", d.Log.Stdout)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_ratio", d.Tracing.SampleRatio)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.shards", d.Cache.Shards)
	v.SetDefault("cache.hard_max_cache_size_mb", d.Cache.HardMaxCacheSizeMB)
	v.SetDefault("pricer.epsilon", d.Pricer.Epsilon)
	v.SetDefault("solver.method", string(d.Solver.Method))
	v.SetDefault("solver.tol", d.Solver.Tol)
	v.SetDefault("solver.rtol", d.Solver.RTol)
	v.SetDefault("solver.max_iter", d.Solver.MaxIter)
	v.SetDefault("solver.bracket_lo", d.Solver.BracketLo)
	v.SetDefault("solver.bracket_hi", d.Solver.BracketHi)
	v.SetDefault("stripper.tau", d.Stripper.Tau)
	v.SetDefault("stripper.notional", d.Stripper.Notional)
	v.SetDefault("stripper.black_guess", d.Stripper.BlackGuess)
	v.SetDefault("stripper.normal_guess", d.Stripper.NormalGuess)
	v.SetDefault("stripper.grid_step", d.Stripper.GridStep)
	v.SetDefault("stripper.concurrency", d.Stripper.Concurrency)
}

// RegisterReloadHook 注册配置热更新回调。
func (l *Loader) RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onReload = append(l.onReload, hook)
}

// Load 读取配置文件；path 为空时只使用默认值与环境变量.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	conf, err := l.decode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = conf
	l.mu.Unlock()
	return conf, nil
}

func (l *Loader) decode() (*Config, error) {
	conf := &Config{}
	if err := l.v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Current 返回最近一次成功加载的配置.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Watch 监听配置文件变化：重新解析并校验，成功后更新全局日志级别并依次调用回调；
// 校验失败时保留旧配置.
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		l.reload()
	})
	l.v.WatchConfig()
}

func (l *Loader) reload() {
	conf, err := l.decode()
	if err != nil {
		slog.Error("reload config failed, keeping previous config", "error", err)
		return
	}

	logging.SetLevel(conf.Log.Level)

	l.mu.Lock()
	l.current = conf
	hooks := append([]func(*Config){}, l.onReload...)
	l.mu.Unlock()

	for _, hook := range hooks {
		hook(conf)
	}
	slog.Info("config hot-reloaded and validated successfully")
}

// Load 使用新的 Loader 读取配置.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}
