package xrotate

import (
	"fmt"
	"log/slog"
)

// redactKeep 是脱敏时保留的前缀长度，保留部分足够运维辨认凭证归属。
const redactKeep = 10

// redactValue 返回凭证的脱敏表示。
// 长度不足以安全截断时完全遮蔽。
func redactValue(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= redactKeep+3 {
		return "***"
	}
	return s[:redactKeep] + "..."
}

// Credential 是资源的不透明凭证载荷。
//
// 引擎从不读取凭证内容，只在执行操作时原样传递给调用方的操作函数，
// 由操作自行断言为具体类型。实现必须保证 String() 输出脱敏表示，
// 凭证明文绝不允许经日志或错误消息泄露。
type Credential interface {
	fmt.Stringer
}

// Secret 是单值凭证（API Key、访问令牌等）。
// String/LogValue/MarshalText 一律输出脱敏形式，明文只能通过 Reveal 取得。
type Secret string

// Reveal 返回凭证明文，只应在构造下游请求时调用。
func (s Secret) Reveal() string {
	return string(s)
}

// String 返回脱敏表示。
func (s Secret) String() string {
	return redactValue(string(s))
}

// LogValue 实现 slog.LogValuer，日志中永远是脱敏形式。
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// MarshalText 实现 encoding.TextMarshaler，序列化输出脱敏形式。
// 凭证不应出现在任何导出数据里，此实现是最后一道保险。
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PairCredential 是账号+代理双引用凭证：两份独立轮换的身份
// 合成一个出口单元，各自独立脱敏。
type PairCredential struct {
	Account Secret
	Proxy   Secret
}

// String 返回两个引用的脱敏表示。
func (p PairCredential) String() string {
	return "account=" + p.Account.String() + " proxy=" + p.Proxy.String()
}

// LogValue 实现 slog.LogValuer。
func (p PairCredential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("account", p.Account.String()),
		slog.String("proxy", p.Proxy.String()),
	)
}

// Resource 是资源池中的一个单元：唯一 ID 加不透明凭证。
// 池构建后资源身份不可变，运行期只会被标记为不健康，不会被删除。
type Resource struct {
	id   string
	cred Credential
}

// NewResource 创建资源。ID 与凭证的有效性在池构建时统一校验。
func NewResource(id string, cred Credential) Resource {
	return Resource{id: id, cred: cred}
}

// ID 返回资源标识。
func (r Resource) ID() string {
	return r.id
}

// Credential 返回不透明凭证载荷。
func (r Resource) Credential() Credential {
	return r.cred
}

// String 返回可安全记录的表示，不包含凭证内容。
func (r Resource) String() string {
	return "resource(" + r.id + ")"
}
