//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/rotakit/pkg/config/xconf"
	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
	"github.com/omeyang/rotakit/pkg/rotation/xengine"
	"github.com/omeyang/rotakit/pkg/rotation/xexec"
	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
	"github.com/omeyang/rotakit/pkg/storage/xstate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig(creds ...string) xconf.Config {
	cfg := xconf.Default()
	cfg.BaseDelaySeconds = 0.001
	for i, cred := range creds {
		cfg.Resources = append(cfg.Resources, xconf.ResourceConfig{
			ID:         fmt.Sprintf("r-%d", i+1),
			Credential: cred,
		})
	}
	return cfg
}

// TestEngineRotatesAroundRateLimitedResource_E2E 走真实 HTTP 链路：
// 一个被限流的凭证持续返回 429，引擎应重试换资源完成全部工作项，
// 并在失败累计到阈值后把该资源熔断。
func TestEngineRotatesAroundRateLimitedResource_E2E(t *testing.T) {
	const badCred = "sk-limited-0000000000"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+badCred {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "ok:"+r.URL.Query().Get("item"))
	}))
	defer srv.Close()

	cfg := baseConfig(badCred, "sk-good-11111111111", "sk-good-22222222222")
	cfg.FailureThreshold = 2

	engine, err := xengine.New(cfg, xengine.WithLogger(discardLogger()))
	require.NoError(t, err)
	defer engine.Close()

	items := make([]string, 10)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}

	result, err := xengine.RunBatch(context.Background(), engine, items, func(ctx context.Context, item string, cred xrotate.Credential) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?item="+item, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+cred.(xrotate.Secret).Reveal())

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", xclassify.NewConnection(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", xclassify.NewConnection(err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", xclassify.NewFromHTTPStatus(resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
		}
		return string(body), nil
	})
	require.NoError(t, err)

	summary := result.Summary()
	assert.Equal(t, len(items), summary.Success, "every item should complete via healthy resources")

	// 被限流的资源失败达到阈值后应处于熔断
	snap := engine.Manager().Snapshot()
	assert.Equal(t, xrotate.CircuitOpen, snap["r-1"].Circuit)
	assert.GreaterOrEqual(t, snap["r-1"].Errors, uint64(2))

	// 指标侧能看到限流分类
	require.NoError(t, engine.Metrics().Close())
	msnap := engine.Metrics().Snapshot()
	assert.Equal(t, uint64(len(items)), msnap.Totals.Success)
	assert.GreaterOrEqual(t, msnap.Totals.ByErrorKind[xclassify.KindRateLimited], uint64(2))
}

// TestEngineExhaustsAttemptsOnTimeout_E2E 单资源持续超时：
// 执行链应恰好用满尝试预算后以超时分类收场。
func TestEngineExhaustsAttemptsOnTimeout_E2E(t *testing.T) {
	cfg := baseConfig("sk-only-00000000000")
	cfg.MaxAttempts = 3

	engine, err := xengine.New(cfg, xengine.WithLogger(discardLogger()))
	require.NoError(t, err)
	defer engine.Close()

	out, err := xengine.Execute(context.Background(), engine, func(context.Context, xrotate.Credential) (string, error) {
		return "", xclassify.NewTimeout(errors.New("deadline exceeded"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, xexec.CategoryError, out.Category)
	assert.Equal(t, xclassify.KindTimeout, out.Kind)
	assert.Equal(t, "r-1", out.ResourceID)
}

// TestEngineStateRoundTripRedis_E2E 验证跨进程重启语义：
// 引擎关闭时把池状态落盘 Redis，新引擎启动后延续健康统计与熔断。
func TestEngineStateRoundTripRedis_E2E(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig("sk-flaky-0000000000", "sk-solid-0000000000")
	cfg.FailureThreshold = 2

	// 所有错误判为凭证失效：不重试不换资源，失败精确落在被选中的资源上
	classifier := xclassify.ClassifierFunc(func(error) xclassify.Kind {
		return xclassify.KindInvalidCredential
	})

	store1, err := xstate.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)

	engine1, err := xengine.New(cfg,
		xengine.WithLogger(discardLogger()),
		xengine.WithClassifier(classifier),
		xengine.WithSnapshotStore(store1, "pool"),
	)
	require.NoError(t, err)

	// 轮转下 r-1 与 r-2 交替被选中，r-1 连续失败两次后熔断
	flaky := cfg.Resources[0].Credential
	for range 4 {
		_, _ = xengine.Execute(context.Background(), engine1, func(_ context.Context, cred xrotate.Credential) (string, error) {
			if cred.(xrotate.Secret).Reveal() == flaky {
				return "", errors.New("401 unauthorized")
			}
			return "ok", nil
		})
	}
	assert.Equal(t, xrotate.CircuitOpen, engine1.Manager().Snapshot()["r-1"].Circuit)
	require.NoError(t, engine1.Close())

	// 新引擎从同一 Redis 恢复
	store2, err := xstate.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)

	engine2, err := xengine.New(cfg,
		xengine.WithLogger(discardLogger()),
		xengine.WithSnapshotStore(store2, "pool"),
	)
	require.NoError(t, err)
	defer engine2.Close()

	snap := engine2.Manager().Snapshot()
	assert.Equal(t, xrotate.CircuitOpen, snap["r-1"].Circuit)
	assert.Equal(t, uint64(2), snap["r-2"].Requests)

	// 熔断中的资源不参与选择，流量全部落到健康资源
	out, err := xengine.Execute(context.Background(), engine2, func(context.Context, xrotate.Credential) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "r-2", out.ResourceID)
}
