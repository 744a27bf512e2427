// Package batch 提供批量操作的并发编排
// 核心约束: 单项失败不影响其他项，结果按输入顺序返回，并发度有界
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// 批量结果分类
const (
	// ClassAllSucceeded 全部成功
	ClassAllSucceeded = "all_succeeded"
	// ClassPartial 部分成功
	ClassPartial = "partial"
	// ClassNoneSucceeded 全部失败
	ClassNoneSucceeded = "none_succeeded"
)

// Result 批量操作中单项的结果
type Result[T any] struct {
	// Index 该项在输入中的位置
	Index int `json:"index"`
	// Key 原始输入项的标识（上传为文件名，其余操作为文件ID），由调用方填充
	// 失败条目靠它定位到具体输入，而不是只靠位置
	Key string `json:"key,omitempty"`
	// Value 成功时的结果值
	Value T `json:"value,omitempty"`
	// Err 失败时的错误，成功时为nil
	Err error `json:"-"`
}

// Outcome 批量操作的汇总结果
// Results与输入顺序一一对应，无论各项完成的先后
type Outcome[T any] struct {
	Results        []Result[T]
	Requested      int
	Succeeded      int
	Failed         int
	Classification string
	// Duration 整个批量操作的端到端耗时
	Duration time.Duration
}

// Run 对n个输入项并发执行worker，并发度不超过limit
// 单项的错误和panic都被限制在该项的结果槽内，不会取消其他项；
// 上下文取消后未开始的项以上下文错误记为失败
func Run[T any](ctx context.Context, n, limit int, worker func(ctx context.Context, index int) (T, error)) *Outcome[T] {
	start := time.Now()
	results := make([]Result[T], n)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for i := 0; i < n; i++ {
		index := i
		results[index].Index = index
		group.Go(func() error {
			// worker永远向errgroup返回nil: 错误只写入自己的结果槽，
			// 避免errgroup的首错取消语义波及其他项
			results[index] = runOne(groupCtx, index, worker)
			return nil
		})
	}
	group.Wait() //nolint:errcheck // 所有worker都返回nil

	outcome := &Outcome[T]{
		Results:   results,
		Requested: n,
		Duration:  time.Since(start),
	}
	for _, r := range results {
		if r.Err != nil {
			outcome.Failed++
		} else {
			outcome.Succeeded++
		}
	}
	outcome.Classification = classify(outcome.Succeeded, outcome.Failed)
	return outcome
}

// runOne 执行单项并吸收panic
func runOne[T any](ctx context.Context, index int, worker func(ctx context.Context, index int) (T, error)) (result Result[T]) {
	result.Index = index

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic while processing item %d: %v", index, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	value, err := worker(ctx, index)
	result.Value = value
	result.Err = err
	return result
}

// classify 根据成功和失败数量划分批量结果
func classify(succeeded, failed int) string {
	switch {
	case failed == 0:
		return ClassAllSucceeded
	case succeeded == 0:
		return ClassNoneSucceeded
	default:
		return ClassPartial
	}
}
