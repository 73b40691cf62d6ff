package xexec

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
)

// Category 是一条执行链的结果类别，面向批量汇总与指标标签。
type Category uint8

const (
	// CategoryError 表示执行失败（重试耗尽、不可重试错误或租借失败）。
	// 设计决策: 零值即失败，未初始化的 Outcome 不会被误读为成功。
	CategoryError Category = iota
	// CategorySuccess 表示执行成功。
	CategorySuccess
	// CategoryNotFound 表示目标不存在：操作确实失败了，但原因是
	// 工作项自身的属性而非资源或系统故障，汇总时单独归类。
	CategoryNotFound

	// categoryCount 是哨兵值，仅用于表长与越界校验。
	categoryCount
)

// ErrUnknownCategory 表示类别名不在封闭集合内。
var ErrUnknownCategory = errors.New("xexec: unknown outcome category")

var categoryNames = [categoryCount]string{
	CategoryError:    "error",
	CategorySuccess:  "success",
	CategoryNotFound: "not_found",
}

// String 返回类别的规范名称（小写，指标标签友好）。
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CATEGORY(%d)", uint8(c))
	}
	return categoryNames[c]
}

// Valid 报告 c 是否属于封闭类别集合。
func (c Category) Valid() bool {
	return c < categoryCount
}

// ParseCategory 按名称解析类别，大小写不敏感。
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return CategoryError, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// MarshalText 实现 encoding.TextMarshaler。
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Outcome 是一条执行链的结果与元数据。
type Outcome[T any] struct {
	// Value 是操作返回值，仅在 Category 为 CategorySuccess 时有意义。
	Value T
	// RequestID 是本条执行链的唯一标识，同值经 xctx 注入操作上下文。
	RequestID string
	// ResourceID 是最后一次实际执行操作所用的资源，从未执行过操作
	//（首次租借即失败）时为空。
	ResourceID string
	// Attempts 是操作实际执行的次数，失败的资源租借不计入。
	Attempts int
	// Elapsed 是整条执行链的耗时，含重试退避等待。
	Elapsed time.Duration
	// Category 是结果类别。
	Category Category
	// Kind 是最后一次失败的错误分类，执行成功时为 KindUnknown。
	Kind xclassify.Kind
}

// Meta 是 Outcome 去掉泛型返回值后的元数据视图。
//
// 指标采集、批量钩子等观察方只关心执行链的元数据而非业务返回值，
// 用非泛型视图可以穿过非泛型的函数签名。
type Meta struct {
	RequestID  string
	ResourceID string
	Attempts   int
	Elapsed    time.Duration
	Category   Category
	Kind       xclassify.Kind
}

// Failed 报告执行链是否以失败收场（含目标不存在）。
func (o Outcome[T]) Failed() bool {
	return o.Category != CategorySuccess
}

// Meta 返回不含 Value 的元数据视图。
func (o Outcome[T]) Meta() Meta {
	return Meta{
		RequestID:  o.RequestID,
		ResourceID: o.ResourceID,
		Attempts:   o.Attempts,
		Elapsed:    o.Elapsed,
		Category:   o.Category,
		Kind:       o.Kind,
	}
}

// LogValue 实现 slog.LogValuer，输出不含 Value 的元数据视图。
func (o Outcome[T]) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("request_id", o.RequestID),
		slog.String("resource", o.ResourceID),
		slog.Int("attempts", o.Attempts),
		slog.Duration("elapsed", o.Elapsed),
		slog.String("category", o.Category.String()),
		slog.String("kind", o.Kind.String()),
	)
}

// categorize 把最终错误与其分类折算成结果类别。
func categorize(err error, kind xclassify.Kind) Category {
	switch {
	case err == nil:
		return CategorySuccess
	case kind == xclassify.KindNotFound:
		return CategoryNotFound
	default:
		return CategoryError
	}
}
