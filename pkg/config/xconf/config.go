package xconf

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
	"github.com/omeyang/rotakit/pkg/rotation/xstrategy"
)

// ResourceConfig 是资源池中一个资源的配置。
//
// 凭证二选一：credential 为单值凭证（API Key 等）；
// account_ref + proxy_ref 为账号+代理双引用凭证，必须同时给出。
type ResourceConfig struct {
	ID         string `koanf:"id"`
	Credential string `koanf:"credential"`
	AccountRef string `koanf:"account_ref"`
	ProxyRef   string `koanf:"proxy_ref"`
}

// Resource 把配置转换为池资源，凭证按配置形态封装为
// Secret 或 PairCredential。形态合法性由 Config.Validate 保证。
func (rc ResourceConfig) Resource() xrotate.Resource {
	if rc.Credential != "" {
		return xrotate.NewResource(rc.ID, xrotate.Secret(rc.Credential))
	}
	return xrotate.NewResource(rc.ID, xrotate.PairCredential{
		Account: xrotate.Secret(rc.AccountRef),
		Proxy:   xrotate.Secret(rc.ProxyRef),
	})
}

// LogValue 实现 slog.LogValuer，凭证字段一律脱敏。
func (rc ResourceConfig) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 3)
	attrs = append(attrs, slog.String("id", rc.ID))
	if rc.Credential != "" {
		attrs = append(attrs, slog.String("credential", xrotate.Secret(rc.Credential).String()))
	}
	if rc.AccountRef != "" || rc.ProxyRef != "" {
		attrs = append(attrs, slog.Any("pair", xrotate.PairCredential{
			Account: xrotate.Secret(rc.AccountRef),
			Proxy:   xrotate.Secret(rc.ProxyRef),
		}))
	}
	return slog.GroupValue(attrs...)
}

// Config 是引擎的完整配置。
//
// 零值不可用，请从 Default 出发或经 Load/LoadBytes 加载；
// 字段含义与默认值见包文档的配置表。
type Config struct {
	Resources []ResourceConfig `koanf:"resources"`

	// Strategy 资源选择策略：round_robin、least_used、random、adaptive。
	Strategy string `koanf:"strategy"`

	// FailureThreshold 连续失败熔断阈值。
	FailureThreshold uint32 `koanf:"failure_threshold"`
	// RateThreshold 失败率熔断阈值，取值 (0, 1]。
	RateThreshold float64 `koanf:"rate_threshold"`
	// MinSampleSize 失败率熔断生效的最小样本数。
	MinSampleSize uint32 `koanf:"min_sample_size"`
	// CoolDownSeconds 熔断冷却秒数。
	CoolDownSeconds uint32 `koanf:"cool_down_seconds"`

	// MaxAttempts 单条执行链的最大尝试次数（含首次执行）。
	MaxAttempts uint32 `koanf:"max_attempts"`
	// BaseDelaySeconds 指数退避的基础延迟秒数。
	BaseDelaySeconds float64 `koanf:"base_delay_seconds"`
	// BackoffJitter 退避抖动系数，取值 [0, 1]，0 表示确定性退避。
	BackoffJitter float64 `koanf:"backoff_jitter"`
	// MaxDelaySeconds 退避延迟上限秒数，0 表示不封顶。
	MaxDelaySeconds float64 `koanf:"max_delay_seconds"`

	// Concurrency 批量执行的 worker 数，0 表示与资源数相同。
	Concurrency uint32 `koanf:"concurrency"`
	// MinRequestIntervalMS 单资源两次租借的最小间隔毫秒数，0 表示关闭节流。
	MinRequestIntervalMS uint32 `koanf:"min_request_interval_ms"`
}

// Default 返回各字段的默认配置。Resources 为空，必须由调用方补齐。
func Default() Config {
	return Config{
		Strategy:         xstrategy.RoundRobin.String(),
		FailureThreshold: xrotate.DefaultFailureThreshold,
		RateThreshold:    xrotate.DefaultRateThreshold,
		MinSampleSize:    xrotate.DefaultMinSampleSize,
		CoolDownSeconds:  uint32(xrotate.DefaultCoolDown / time.Second),
		MaxAttempts:      3,
		BaseDelaySeconds: 1,
	}
}

// Validate 校验配置的完整性与取值范围。
// 所有校验错误都包裹 [ErrInvalidConfig] 并指明出错的配置键。
func (c Config) Validate() error {
	if err := c.validateResources(); err != nil {
		return err
	}

	if _, err := xstrategy.Parse(c.Strategy); err != nil {
		return fmt.Errorf("%w: strategy: %w", ErrInvalidConfig, err)
	}
	if c.FailureThreshold == 0 {
		return fmt.Errorf("%w: failure_threshold must be positive", ErrInvalidConfig)
	}
	if c.RateThreshold <= 0 || c.RateThreshold > 1 {
		return fmt.Errorf("%w: rate_threshold must be in (0, 1], got %v", ErrInvalidConfig, c.RateThreshold)
	}
	if c.MinSampleSize == 0 {
		return fmt.Errorf("%w: min_sample_size must be positive", ErrInvalidConfig)
	}
	if c.CoolDownSeconds == 0 {
		return fmt.Errorf("%w: cool_down_seconds must be positive", ErrInvalidConfig)
	}
	if c.MaxAttempts == 0 {
		return fmt.Errorf("%w: max_attempts must be positive", ErrInvalidConfig)
	}
	if c.BaseDelaySeconds <= 0 {
		return fmt.Errorf("%w: base_delay_seconds must be positive, got %v", ErrInvalidConfig, c.BaseDelaySeconds)
	}
	if c.BackoffJitter < 0 || c.BackoffJitter > 1 {
		return fmt.Errorf("%w: backoff_jitter must be in [0, 1], got %v", ErrInvalidConfig, c.BackoffJitter)
	}
	if c.MaxDelaySeconds < 0 {
		return fmt.Errorf("%w: max_delay_seconds must be non-negative, got %v", ErrInvalidConfig, c.MaxDelaySeconds)
	}
	return nil
}

// validateResources 校验资源列表：非空、ID 唯一、凭证形态二选一。
func (c Config) validateResources() error {
	if len(c.Resources) == 0 {
		return fmt.Errorf("%w: resources must not be empty", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Resources))
	for i, rc := range c.Resources {
		if rc.ID == "" {
			return fmt.Errorf("%w: resources[%d]: id must not be empty", ErrInvalidConfig, i)
		}
		if seen[rc.ID] {
			return fmt.Errorf("%w: resources[%d]: duplicate id %q", ErrInvalidConfig, i, rc.ID)
		}
		seen[rc.ID] = true

		hasCred := rc.Credential != ""
		hasPair := rc.AccountRef != "" || rc.ProxyRef != ""
		switch {
		case hasCred && hasPair:
			return fmt.Errorf("%w: resources[%d] (%s): credential and account_ref/proxy_ref are mutually exclusive",
				ErrInvalidConfig, i, rc.ID)
		case !hasCred && !hasPair:
			return fmt.Errorf("%w: resources[%d] (%s): either credential or account_ref+proxy_ref is required",
				ErrInvalidConfig, i, rc.ID)
		case hasPair && (rc.AccountRef == "" || rc.ProxyRef == ""):
			return fmt.Errorf("%w: resources[%d] (%s): account_ref and proxy_ref must both be set",
				ErrInvalidConfig, i, rc.ID)
		}
	}
	return nil
}

// BuildResources 把资源配置批量转换为池资源。
func (c Config) BuildResources() []xrotate.Resource {
	resources := make([]xrotate.Resource, 0, len(c.Resources))
	for _, rc := range c.Resources {
		resources = append(resources, rc.Resource())
	}
	return resources
}

// CoolDown 返回熔断冷却时长。
func (c Config) CoolDown() time.Duration {
	return time.Duration(c.CoolDownSeconds) * time.Second
}

// BaseDelay 返回退避基础延迟。
func (c Config) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelaySeconds * float64(time.Second))
}

// MaxDelay 返回退避延迟上限，0 表示不封顶。
func (c Config) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySeconds * float64(time.Second))
}

// MinRequestInterval 返回单资源租借节流间隔，0 表示关闭。
func (c Config) MinRequestInterval() time.Duration {
	return time.Duration(c.MinRequestIntervalMS) * time.Millisecond
}

// Workers 返回批量执行的 worker 数，未配置时与资源数相同。
func (c Config) Workers() int {
	if c.Concurrency > 0 {
		return int(c.Concurrency)
	}
	return len(c.Resources)
}
