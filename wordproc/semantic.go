// 本文件实现了语义相似度匹配器，基于句向量余弦相似度判断两段文本是否语义接近。
// 主要功能：
// 1. 通过 langchaingo 调用 openai 兼容的向量接口，一次请求编码两段文本。
// 2. 相似度判定结果按 (a, b) 文本对缓存，多次检索之间不重复调用模型。
// 3. 连续失败达到阈值后熔断，冷却期内 Available 返回 false，
//    检索流程据此退化为词法加同义词匹配而不是整体失败。

package wordproc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/Anniext/schemagraph/core"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder 向量编码接口，与 langchaingo 的 embeddings.Embedder 兼容。
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// MatcherOptions 语义匹配器选项。
type MatcherOptions struct {
	Threshold        float64       // 相似度阈值，默认 0.7
	FailureThreshold int           // 熔断的连续失败次数阈值，默认 3
	BreakerCooldown  time.Duration // 熔断冷却时间，默认 1 分钟
	CacheTTL         time.Duration // 相似度结果缓存时间，默认 1 小时
}

// Matcher 语义相似度匹配器。
type Matcher struct {
	embedder  Embedder
	cache     core.CacheManager
	logger    core.Logger
	threshold float64
	cacheTTL  time.Duration

	// 熔断状态
	mu               sync.Mutex
	failureThreshold int
	cooldown         time.Duration
	failures         int
	openUntil        time.Time
}

// NewMatcher 创建语义匹配器。cache 可为 nil，此时不做缓存。
func NewMatcher(embedder Embedder, cache core.CacheManager, logger core.Logger, opts *MatcherOptions) *Matcher {
	m := &Matcher{
		embedder:         embedder,
		cache:            cache,
		logger:           logger,
		threshold:        0.7,
		failureThreshold: 3,
		cooldown:         time.Minute,
		cacheTTL:         time.Hour,
	}

	if opts != nil {
		if opts.Threshold > 0 {
			m.threshold = opts.Threshold
		}
		if opts.FailureThreshold > 0 {
			m.failureThreshold = opts.FailureThreshold
		}
		if opts.BreakerCooldown > 0 {
			m.cooldown = opts.BreakerCooldown
		}
		if opts.CacheTTL > 0 {
			m.cacheTTL = opts.CacheTTL
		}
	}

	return m
}

// NewOpenAIEmbedder 创建 openai 兼容接口的向量编码器。
func NewOpenAIEmbedder(cfg *core.EmbeddingConfig) (Embedder, error) {
	opts := []openai.Option{
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeEmbedding, "EMBEDDING_BACKEND_FAILED", "创建向量客户端失败")
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeEmbedding, "EMBEDDING_BACKEND_FAILED", "创建向量编码器失败")
	}

	return embedder, nil
}

// IsSimilar 判断两段文本的余弦相似度是否达到默认阈值。
func (m *Matcher) IsSimilar(ctx context.Context, a, b string) (bool, error) {
	return m.IsSimilarWithThreshold(ctx, a, b, m.threshold)
}

// IsSimilarWithThreshold 按指定阈值判断相似度。
func (m *Matcher) IsSimilarWithThreshold(ctx context.Context, a, b string, threshold float64) (bool, error) {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false, nil
	}
	if a == b {
		return true, nil
	}

	cacheKey := fmt.Sprintf("sim:%.2f:%s|%s", threshold, a, b)
	if m.cache != nil {
		if cached, err := m.cache.Get(ctx, cacheKey); err == nil {
			if result, ok := cached.(bool); ok {
				return result, nil
			}
		}
	}

	if !m.Available() {
		return false, core.ErrEmbeddingUnavailable
	}

	vectors, err := m.embedder.EmbedDocuments(ctx, []string{a, b})
	if err != nil {
		m.recordFailure(err)
		return false, core.WrapError(err, core.ErrorTypeEmbedding, "EMBEDDING_BACKEND_FAILED", "向量后端调用失败")
	}
	if len(vectors) != 2 {
		err := fmt.Errorf("向量后端返回了 %d 个向量", len(vectors))
		m.recordFailure(err)
		return false, core.WrapError(err, core.ErrorTypeEmbedding, "EMBEDDING_BACKEND_FAILED", "向量后端响应无效")
	}

	m.recordSuccess()

	similarity := cosineSimilarity(vectors[0], vectors[1])
	result := similarity >= threshold

	if m.cache != nil {
		if err := m.cache.Set(ctx, cacheKey, result, m.cacheTTL); err != nil {
			m.logger.Warn("写入相似度缓存失败", "error", err)
		}
	}

	return result, nil
}

// Available 报告向量后端当前是否可用（熔断未打开）。
func (m *Matcher) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openUntil.IsZero() {
		return true
	}
	if time.Now().After(m.openUntil) {
		// 冷却结束，半开重试
		m.openUntil = time.Time{}
		m.failures = 0
		return true
	}
	return false
}

// recordFailure 记录一次后端失败，达到阈值后打开熔断。
func (m *Matcher) recordFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	if m.failures >= m.failureThreshold {
		m.openUntil = time.Now().Add(m.cooldown)
		m.logger.Warn("向量后端连续失败，熔断打开",
			"failures", m.failures,
			"cooldown", m.cooldown.String(),
			"error", err,
		)
	}
}

// recordSuccess 重置失败计数。
func (m *Matcher) recordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = 0
}

// IsUnavailableError 判断错误是否为熔断中的不可用错误。
func IsUnavailableError(err error) bool {
	return errors.Is(err, core.ErrEmbeddingUnavailable)
}

// cosineSimilarity 计算两个向量的余弦相似度。
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
