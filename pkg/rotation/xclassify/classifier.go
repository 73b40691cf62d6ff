package xclassify

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

// Classifier 把操作返回的错误归入封闭分类集合。
//
// 分类在每次尝试结束时执行一次，结果驱动全部后续策略；
// 实现必须对任意错误返回一个有效分类，无法识别时归入 KindUnknown。
type Classifier interface {
	Classify(err error) Kind
}

// ClassifierFunc 是 Classifier 的函数适配器。
type ClassifierFunc func(err error) Kind

// Classify 实现 Classifier 接口。
func (f ClassifierFunc) Classify(err error) Kind { return f(err) }

// NewDefault 返回默认分类器。
//
// 识别顺序：错误链上的显式 *Error 分类优先，其次按标准库错误特征推断
// （context 超时、net.Error 超时、连接类系统错误），无法识别的归入 KindUnknown。
func NewDefault() Classifier {
	return ClassifierFunc(defaultClassify)
}

func defaultClassify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if kind, ok := KindOf(err); ok {
		return kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return KindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}
	return KindUnknown
}

// FromHTTPStatus 按 HTTP 状态码推断错误分类。
//
// 只对失败状态码有意义：非 4xx/5xx 状态返回 KindUnknown，
// 调用方应只在请求确实失败时使用本函数。
func FromHTTPStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindInvalidCredential
	case http.StatusForbidden:
		return KindDetectedBlocked
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	if status >= http.StatusInternalServerError && status <= 599 {
		return KindConnection
	}
	return KindUnknown
}

// NewFromHTTPStatus 按状态码分类并包装 err。
func NewFromHTTPStatus(status int, err error) *Error {
	return NewError(FromHTTPStatus(status), err)
}
