package xclassify

import (
	"errors"
)

// Error 是携带分类的错误类型，是操作实现向引擎传递分类的标准途径。
// 通过 errors.As 在错误链任意位置均可提取。
type Error struct {
	kind Kind
	err  error
}

// NewError 以指定分类包装 err。
// err 可以为 nil，表示只有分类没有底层错误；越界分类归入 KindUnknown。
func NewError(kind Kind, err error) *Error {
	if !kind.Valid() {
		kind = KindUnknown
	}
	return &Error{kind: kind, err: err}
}

// Error 实现 error 接口。凭证等敏感信息由上游负责脱敏，本类型不追加内容。
func (e *Error) Error() string {
	if e.err == nil {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.err.Error()
}

// Unwrap 返回底层错误，支持 errors.Is/As 链式判断。
func (e *Error) Unwrap() error { return e.err }

// Kind 返回错误分类。
func (e *Error) Kind() Kind { return e.kind }

// Retryable 报告该错误按策略表是否可重试。
func (e *Error) Retryable() bool { return e.kind.Retryable() }

// ===== 便捷构造 =====

// NewRateLimited 构造 RATE_LIMITED 分类错误。
func NewRateLimited(err error) *Error { return NewError(KindRateLimited, err) }

// NewDetectedBlocked 构造 DETECTED_BLOCKED 分类错误。
func NewDetectedBlocked(err error) *Error { return NewError(KindDetectedBlocked, err) }

// NewTimeout 构造 TIMEOUT 分类错误。
func NewTimeout(err error) *Error { return NewError(KindTimeout, err) }

// NewConnection 构造 CONNECTION 分类错误。
func NewConnection(err error) *Error { return NewError(KindConnection, err) }

// NewInvalidCredential 构造 INVALID_CREDENTIAL 分类错误。
func NewInvalidCredential(err error) *Error { return NewError(KindInvalidCredential, err) }

// NewParse 构造 PARSE 分类错误。
func NewParse(err error) *Error { return NewError(KindParse, err) }

// NewNotFound 构造 NOT_FOUND 分类错误。
func NewNotFound(err error) *Error { return NewError(KindNotFound, err) }

// NewUnknown 构造 UNKNOWN 分类错误。
func NewUnknown(err error) *Error { return NewError(KindUnknown, err) }

// KindOf 提取 err 链上的错误分类。
// 未携带分类的错误返回 (KindUnknown, false)。
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind(), true
	}
	return KindUnknown, false
}
