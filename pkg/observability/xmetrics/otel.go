package xmetrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/rotakit/pkg/rotation/xexec"
)

const (
	defaultInstrumentationName = "github.com/omeyang/rotakit/pkg/observability/xmetrics"

	metricOperationTotal    = "rotakit.operation.total"
	metricOperationDuration = "rotakit.operation.duration"
)

type bridgeConfig struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
}

// BridgeOption OTel 桥接器配置选项。
type BridgeOption func(*bridgeConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) BridgeOption {
	return func(c *bridgeConfig) {
		if name != "" {
			c.instrumentationName = name
		}
	}
}

// WithMeterProvider 设置 MeterProvider。
//
// 默认使用全局 otel.GetMeterProvider()。
func WithMeterProvider(provider metric.MeterProvider) BridgeOption {
	return func(c *bridgeConfig) {
		if provider != nil {
			c.meterProvider = provider
		}
	}
}

// OTelBridge 把执行链记录导出为 OpenTelemetry 指标：
// 计数器 rotakit.operation.total{resource, category, kind} 与
// 直方图 rotakit.operation.duration（秒）。
type OTelBridge struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

// 编译期检查：OTelBridge 实现 Exporter。
var _ Exporter = (*OTelBridge)(nil)

// NewOTelBridge 创建 OTel 桥接器。
func NewOTelBridge(opts ...BridgeOption) (*OTelBridge, error) {
	cfg := bridgeConfig{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	total, err := meter.Int64Counter(
		metricOperationTotal,
		metric.WithDescription("total operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateInstrument, err)
	}

	duration, err := meter.Float64Histogram(
		metricOperationDuration,
		metric.WithDescription("operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateInstrument, err)
	}

	return &OTelBridge{total: total, duration: duration}, nil
}

// Export 记录一条执行链。
// 使用不可取消的 context：指标记录不应随业务请求一起被取消。
func (b *OTelBridge) Export(meta xexec.Meta) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("resource", meta.ResourceID),
		attribute.String("category", meta.Category.String()),
		attribute.String("kind", meta.Kind.String()),
	)
	b.total.Add(ctx, 1, attrs)
	b.duration.Record(ctx, meta.Elapsed.Seconds(), attrs)
}
