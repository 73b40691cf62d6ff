// Package xengine 是资源轮换引擎的顶层门面。
//
// 引擎把配置（xconf）、资源池与熔断（xrotate）、重试执行链（xexec）、
// 批量调度（xbatch）、指标汇聚（xmetrics）与可选的状态持久化
// （xstate）装配成一个对象，调用方只需要面对两个入口：
//
//   - [Execute]: 执行一次操作
//   - [RunBatch]: 并发执行一批操作
//
// # 生命周期
//
// 引擎通过 [New] 显式构造，不提供全局单例。资源池在构造后不可变，
// 配置变更（如 xconf.Watch 回调送达新配置）时应构造新引擎并关闭
// 旧引擎。[Engine.Close] 停止所有后台 goroutine 并在配置了快照
// 存储时落盘最终池状态。
//
// # 使用示例
//
//	cfg, err := xconf.Load("rotakit.yaml")
//	if err != nil {
//	    return err
//	}
//	engine, err := xengine.New(cfg,
//	    xengine.WithLogger(logger),
//	    xengine.WithSummarySchedule("@every 1m"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	out, err := xengine.Execute(ctx, engine, func(ctx context.Context, cred xrotate.Credential) (string, error) {
//	    return fetch(ctx, cred)
//	})
package xengine
