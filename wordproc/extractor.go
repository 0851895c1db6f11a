// 本文件实现了关键词提取器，合并两路独立的提取结果：
// 1. 词法路径：分词器切分问题，丢弃单字词。
// 2. 统计路径：TF-IDF 加权，取权重最高的前 N 个词。
// 两路结果按首次出现顺序做并集去重，空白问题返回空集而不是报错。

package wordproc

import (
	"strings"

	"github.com/Anniext/schemagraph/core"

	"github.com/go-ego/gse/hmm/extracker"
)

// Extractor 关键词提取器。
type Extractor struct {
	segmenter *Segmenter
	tagger    extracker.TagExtracter
	topN      int
	logger    core.Logger
}

// NewExtractor 创建关键词提取器，TF-IDF 提取器与分词器共享同一份词典。
func NewExtractor(segmenter *Segmenter, topN int, logger core.Logger) (*Extractor, error) {
	if topN <= 0 {
		topN = 5
	}

	e := &Extractor{
		segmenter: segmenter,
		topN:      topN,
		logger:    logger,
	}

	e.tagger.WithGse(segmenter.gseSegmenter())
	if err := e.tagger.LoadIdf(); err != nil {
		return nil, err
	}

	return e, nil
}

// Extract 提取问题中的关键词集合。
func (e *Extractor) Extract(question string) []string {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var keywords []string

	// 词法路径：过滤单字词
	for _, token := range e.segmenter.Cut(question) {
		token = strings.TrimSpace(token)
		if !isMeaningfulToken(token) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}

	// 统计路径：TF-IDF 前 N 个关键词。
	// 提取器与分词器共享词典，和 AddWord 的词典写入走同一把读写锁。
	e.segmenter.mu.RLock()
	tags := e.tagger.ExtractTags(question, e.topN)
	e.segmenter.mu.RUnlock()

	for _, tag := range tags {
		text := strings.TrimSpace(tag.Text)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		keywords = append(keywords, text)
	}

	e.logger.Debug("拆分关键字", "question", question, "keywords", keywords)
	return keywords
}
