// Package xbatch 以有界并发把一批工作项分发给执行器。
//
// # 执行模型
//
// Run 为一个批次创建固定数量的 worker（队列 channel + WaitGroup），
// 每个工作项独立走一条执行链（租借资源、执行、按分类重试），互不影响：
// 单项失败不会中止兄弟项，panic 也会被逐项捕获并折算为该项的错误。
// 轮换与重试逻辑完全由执行器承担，xbatch 只负责调度与汇总。
//
// 每个批次分配一个可排序的 batch ID（Sonyflake，base36），注入 ctx
// 并附加到批次日志，方便把一个批次的全部执行链关联起来。
//
// # 取消语义
//
// ctx 取消后不再派发新工作项：已开始的项完成当前尝试（执行器不再安排
// 后续重试）并正常上报结果，未开始的项以 ctx 错误标记。Run 总是返回
// 与输入等长、顺序一致的结果切片。
//
// # 使用示例
//
//	runner, err := xbatch.NewRunner(exec, xbatch.WithWorkers(8))
//	if err != nil {
//	    return err
//	}
//	res, err := xbatch.Run(ctx, runner, urls,
//	    func(ctx context.Context, url string, cred xrotate.Credential) (Page, error) {
//	        return fetch(ctx, url, cred)
//	    })
//	if err != nil {
//	    return err
//	}
//	for _, item := range res.Items {
//	    if item.Failed() {
//	        log.Printf("item %v: %v", item.Item, item.Err)
//	    }
//	}
package xbatch
