// 本文件实现了同义词扩展器，基于本地词典文件做词汇关系查询。
// 词典格式：每行一个同义词组，词之间用逗号或空白分隔，# 开头为注释行。
// 查询键为词的小写形式；未知词返回空集。词典加载失败视为致命错误，
// 引擎不带词典无法提供同义匹配。
//
// 扩展仅做一跳：返回的是词所在组的其余成员，不会再对成员递归展开。

package wordproc

import (
	"bufio"
	"os"
	"strings"

	"github.com/Anniext/schemagraph/core"
)

// DictExpander 词典同义词扩展器。
type DictExpander struct {
	groups map[string][]string // 小写词 -> 同组的其他词
}

// NewDictExpander 加载同义词词典文件。
func NewDictExpander(dictPath string) (*DictExpander, error) {
	file, err := os.Open(dictPath)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeSynonym, "SYNONYM_DICT_UNREADABLE", "同义词词典加载失败")
	}
	defer file.Close()

	expander := &DictExpander{groups: make(map[string][]string)}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		expander.addGroup(splitGroupLine(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, core.WrapError(err, core.ErrorTypeSynonym, "SYNONYM_DICT_UNREADABLE", "同义词词典读取失败")
	}

	return expander, nil
}

// addGroup 注册一个同义词组，每个词映射到组内其余词。
func (e *DictExpander) addGroup(words []string) {
	if len(words) < 2 {
		return
	}

	for i, word := range words {
		key := strings.ToLower(word)
		for j, other := range words {
			if i == j {
				continue
			}
			e.groups[key] = appendUnique(e.groups[key], other)
		}
	}
}

// Synonyms 按小写形式查询同义词集合，未知词返回空集。
func (e *DictExpander) Synonyms(word string) []string {
	synonyms := e.groups[strings.ToLower(strings.TrimSpace(word))]
	if len(synonyms) == 0 {
		return nil
	}

	result := make([]string, len(synonyms))
	copy(result, synonyms)
	return result
}

// splitGroupLine 按逗号和空白切分一行同义词组。
func splitGroupLine(line string) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == '，' || r == ' ' || r == '\t'
	})

	var words []string
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			words = append(words, field)
		}
	}
	return words
}

// appendUnique 去重追加。
func appendUnique(list []string, word string) []string {
	for _, existing := range list {
		if existing == word {
			return list
		}
	}
	return append(list, word)
}
