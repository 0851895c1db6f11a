package wordproc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Anniext/schemagraph/cache"
	"github.com/Anniext/schemagraph/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 按文本返回固定向量，并统计调用次数。
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	result := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, ok := f.vectors[text]
		if !ok {
			vector = []float32{0, 0, 1}
		}
		result = append(result, vector)
	}
	return result, nil
}

func TestMatcher_IsSimilar(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"车辆信息": {1, 0, 0},
		"车辆":   {0.9, 0.1, 0},
		"订单":   {0, 1, 0},
	}}
	matcher := NewMatcher(embedder, nil, &nopLogger{}, nil)

	similar, err := matcher.IsSimilar(context.Background(), "车辆信息", "车辆")
	require.NoError(t, err)
	assert.True(t, similar)

	similar, err = matcher.IsSimilar(context.Background(), "车辆信息", "订单")
	require.NoError(t, err)
	assert.False(t, similar)
}

func TestMatcher_IdenticalText(t *testing.T) {
	embedder := &fakeEmbedder{}
	matcher := NewMatcher(embedder, nil, &nopLogger{}, nil)

	similar, err := matcher.IsSimilar(context.Background(), "车辆信息", " 车辆信息 ")
	require.NoError(t, err)
	assert.True(t, similar)
	assert.Zero(t, embedder.calls, "相同文本不应调用向量后端")
}

func TestMatcher_EmptyText(t *testing.T) {
	matcher := NewMatcher(&fakeEmbedder{}, nil, &nopLogger{}, nil)

	similar, err := matcher.IsSimilar(context.Background(), "", "车辆信息")
	require.NoError(t, err)
	assert.False(t, similar)
}

func TestMatcher_CacheSuppressesRepeatCalls(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"车辆信息": {1, 0, 0},
		"车辆":   {1, 0, 0},
	}}
	simCache := cache.NewMemoryCache(100, &nopLogger{})
	defer simCache.Close()

	matcher := NewMatcher(embedder, simCache, &nopLogger{}, nil)

	for i := 0; i < 3; i++ {
		similar, err := matcher.IsSimilar(context.Background(), "车辆信息", "车辆")
		require.NoError(t, err)
		assert.True(t, similar)
	}

	assert.Equal(t, 1, embedder.calls, "命中缓存后不应重复调用向量后端")
}

func TestMatcher_BreakerOpensAfterFailures(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("连接被拒绝")}
	matcher := NewMatcher(embedder, nil, &nopLogger{}, &MatcherOptions{
		FailureThreshold: 3,
		BreakerCooldown:  time.Hour,
	})

	for i := 0; i < 3; i++ {
		_, err := matcher.IsSimilar(context.Background(), "车辆信息", "订单")
		require.Error(t, err)
		assert.True(t, core.IsRetrievalError(err))
	}

	assert.False(t, matcher.Available())
	assert.Equal(t, 3, embedder.calls)

	// 熔断打开后直接拒绝，不再触达后端
	_, err := matcher.IsSimilar(context.Background(), "车辆信息", "订单")
	require.Error(t, err)
	assert.True(t, IsUnavailableError(err))
	assert.Equal(t, 3, embedder.calls)
}

func TestMatcher_BreakerHalfOpenAfterCooldown(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("连接被拒绝")}
	matcher := NewMatcher(embedder, nil, &nopLogger{}, &MatcherOptions{
		FailureThreshold: 1,
		BreakerCooldown:  10 * time.Millisecond,
	})

	_, err := matcher.IsSimilar(context.Background(), "车辆信息", "订单")
	require.Error(t, err)
	assert.False(t, matcher.Available())

	time.Sleep(20 * time.Millisecond)

	// 冷却结束后半开，允许再次尝试
	assert.True(t, matcher.Available())

	embedder.err = nil
	embedder.vectors = map[string][]float32{
		"车辆信息": {1, 0, 0},
		"车辆":   {1, 0, 0},
	}
	similar, err := matcher.IsSimilar(context.Background(), "车辆信息", "车辆")
	require.NoError(t, err)
	assert.True(t, similar)
	assert.True(t, matcher.Available())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
