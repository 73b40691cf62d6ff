// Package xexec 把资源轮换与重试合成一条完整的执行链。
//
// # 执行模型
//
// 每次 Run 都是一条独立的执行链：
//  1. 生成 request ID 并注入上下文（见 xctx）
//  2. 从 xrotate.Manager 租借一个资源
//  3. 以资源凭证调用操作函数
//  4. 释放租约上报结果，按错误分类决定是否重试、重试前是否规避当前资源
//
// 重试预算只在操作真正执行后消耗：资源租借失败（全部资源熔断中、
// 上下文已取消）说明重试换不来新资源，整条执行链立即终止，
// 不计入尝试次数。
//
// 底层使用 [avast/retry-go/v5] 驱动重试循环。
//
// # 退避策略
//
// 内置三种退避策略：
//   - ExponentialBackoff：指数退避（默认，delay = base * 2^(attempt-1)）
//   - FixedBackoff：固定延迟
//   - NoBackoff：无延迟（主要用于测试）
//
// # 使用示例
//
//	exec, err := xexec.NewExecutor(mgr, xexec.WithMaxAttempts(3))
//	if err != nil {
//	    return err
//	}
//	out, err := xexec.Run(ctx, exec, func(ctx context.Context, cred xrotate.Credential) (string, error) {
//	    return fetch(ctx, cred.(xrotate.Secret).Reveal())
//	})
//
// 无论成败，Outcome 都携带本条执行链的完整元数据：request ID、
// 最后使用的资源、尝试次数、耗时、结果类别与错误分类，
// 供批量汇总与指标上报直接消费。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xexec
