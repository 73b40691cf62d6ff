// Package xconf 提供引擎配置的加载、校验与文件监视，基于 koanf 实现。
//
// # 配置表
//
// 支持 YAML（推荐）与 JSON 两种格式，键与默认值如下：
//
//	resources                资源列表，必填且 id 唯一；每项为
//	                         {id, credential} 或 {id, account_ref, proxy_ref}
//	strategy                 round_robin | least_used | random | adaptive（默认 round_robin）
//	failure_threshold        连续失败熔断阈值（默认 5）
//	rate_threshold           失败率熔断阈值，(0,1]（默认 0.95）
//	min_sample_size          失败率熔断最小样本数（默认 10）
//	cool_down_seconds        熔断冷却秒数（默认 3600）
//	max_attempts             单条执行链最大尝试次数（默认 3）
//	base_delay_seconds       指数退避基础延迟秒数（默认 1）
//	backoff_jitter           退避抖动系数，[0,1]（默认 0，确定性退避）
//	max_delay_seconds        退避延迟上限秒数（默认 0，不封顶）
//	concurrency              批量执行 worker 数（默认 0，与资源数相同）
//	min_request_interval_ms  单资源租借最小间隔毫秒数（默认 0，关闭节流）
//
// 文件缺省的键采用默认值；显式写入的值（包括零值）交由 Validate 把关，
// 非法取值返回包裹 [ErrInvalidConfig] 的错误并指明配置键。
//
// # 快速开始
//
//	cfg, err := xconf.Load("/etc/rotakit/config.yaml")
//	if err != nil {
//	    return err
//	}
//	engine, err := xengine.New(cfg)
//
// 从 K8s ConfigMap 等字节数据加载：
//
//	cfg, err := xconf.LoadBytes(data, xconf.FormatYAML)
//
// # 配置监视
//
// 支持文件变更监视（基于 fsnotify）：监视目录、内置防抖、
// 兼容 vim/emacs 原子写入。资源池构建后不可变，监视器只交付
// 新配置，由调用方决定何时重建引擎。
//
// # 凭证安全
//
// ResourceConfig 实现 slog.LogValuer，凭证字段在日志中一律脱敏。
// 配置文件本身的权限管理由部署方负责。
package xconf
