// 本文件实现了中文分词器，封装 gse 分词库并支持运行时扩充词典。
// 词典是实例级状态而不是进程级全局状态：每个 Segmenter 持有独立词典，
// 构建器把 schema 注释注册进来后，这些多字领域词会被当作整体切分。

package wordproc

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-ego/gse"
)

// 领域词注册时使用的词频，取较大值保证优先于词典内置的短词组合。
const domainWordFrequency = 1000

// Segmenter 中文分词器，线程安全：词典写入仅发生在构建阶段，检索阶段只读。
type Segmenter struct {
	seg gse.Segmenter
	mu  sync.RWMutex
}

// NewSegmenter 创建分词器。dictPath 为空时加载内置词典。
func NewSegmenter(dictPath string) (*Segmenter, error) {
	s := &Segmenter{}

	var err error
	if dictPath != "" {
		err = s.seg.LoadDict(dictPath)
	} else {
		err = s.seg.LoadDict()
	}
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Cut 切分文本为候选词，使用 HMM 处理未登录词。
func (s *Segmenter) Cut(text string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seg.Cut(text, true)
}

// AddWord 注册词典词条，之后的切分会把它作为整体保留。
func (s *Segmenter) AddWord(word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seg.AddToken(word, domainWordFrequency, "n")
}

// gseSegmenter 返回底层 gse 实例，供 TF-IDF 提取器复用同一份词典。
func (s *Segmenter) gseSegmenter() gse.Segmenter {
	return s.seg
}

// isMeaningfulToken 过滤单字词和空白词，单字信号不足。
func isMeaningfulToken(token string) bool {
	token = strings.TrimSpace(token)
	return token != "" && utf8.RuneCountInString(token) > 1
}
