// 本文件实现了 schema 检索引擎的编排逻辑，把一个自然语言问题映射为
// 与之相关的最小 schema 子集。主要流程：
// 1. 关键词提取：词法切分与 TF-IDF 两路结果取并集。
// 2. 术语展开：从图库读取全部 (表, 字段) 记录，展开为待匹配术语列表。
// 3. 逐对匹配：名称包含、注释标签相等、同义词命中、语义相似四级判定，
//    前一级命中即短路，语义比较只在更廉价的判定都未命中时才发生。
// 4. 去重排序：按名称去重并保留更高权重的类型，表名权重高于字段名。
// 5. 摘要生成：以命中术语为过滤词重新查询图库，格式化为文本摘要。
//
// 向量后端熔断或出错时检索退化为词法加同义词匹配，整体调用不失败。

package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Anniext/schemagraph/core"

	"github.com/google/uuid"
)

// 无命中时返回的显式摘要，避免空过滤词退化为全量 schema 输出。
const noMatchExcerpt = "No matching schema found."

// Engine schema 检索引擎。
type Engine struct {
	store     core.GraphStore
	extractor core.KeywordExtractor
	synonyms  core.SynonymExpander
	matcher   core.SemanticMatcher
	logger    core.Logger
	handler   *core.ErrorHandler
	timeout   time.Duration
}

// NewEngine 创建检索引擎。matcher 可为 nil，此时只做词法加同义词匹配。
func NewEngine(
	store core.GraphStore,
	extractor core.KeywordExtractor,
	synonyms core.SynonymExpander,
	matcher core.SemanticMatcher,
	logger core.Logger,
	cfg *core.RetrievalConfig,
) *Engine {
	e := &Engine{
		store:     store,
		extractor: extractor,
		synonyms:  synonyms,
		matcher:   matcher,
		logger:    logger,
		handler:   core.NewErrorHandler(logger),
	}
	if cfg != nil {
		e.timeout = cfg.Timeout
	}
	return e
}

// RetrieveText 检索并返回文本结果，错误在边界渲染为描述文本而不是向上抛出。
func (e *Engine) RetrieveText(ctx context.Context, question string) string {
	requestID := uuid.NewString()

	excerpt, err := e.retrieve(ctx, question, requestID)
	if err != nil {
		return e.handler.HandleError(err, requestID)
	}
	return excerpt
}

// Retrieve 检索与问题相关的 schema 摘要。
func (e *Engine) Retrieve(ctx context.Context, question string) (string, error) {
	return e.retrieve(ctx, question, uuid.NewString())
}

func (e *Engine) retrieve(ctx context.Context, question, requestID string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	question = strings.TrimSpace(question)
	if question == "" {
		e.logger.Debug("问题为空，返回空摘要", "request_id", requestID)
		return noMatchExcerpt, nil
	}

	// Step 1: 关键词提取
	keywords := e.extractor.Extract(question)
	if len(keywords) == 0 {
		e.logger.Debug("未提取到关键词", "request_id", requestID, "question", question)
		return noMatchExcerpt, nil
	}
	e.logger.Debug("提取关键词完成", "request_id", requestID, "keywords", keywords)

	// Step 2: 展开全部 schema 术语
	rows, err := e.store.QueryTableFieldPairs(ctx, nil)
	if err != nil {
		return "", e.asRetrievalError(ctx, err, requestID)
	}
	terms := expandTerms(rows)

	// Step 3-6: 匹配、去重、排序
	matched := e.matchTerms(ctx, keywords, terms, requestID)
	if len(matched) == 0 {
		e.logger.Info("未命中任何 schema 术语", "request_id", requestID, "question", question)
		return noMatchExcerpt, nil
	}

	filters := make([]string, 0, len(matched))
	for _, term := range matched {
		filters = append(filters, term.Name)
	}
	e.logger.Info("schema 术语匹配完成",
		"request_id", requestID,
		"question", question,
		"matched", filters,
	)

	// Step 7: 按命中术语重新查询并格式化摘要
	filteredRows, err := e.store.QueryTableFieldPairs(ctx, filters)
	if err != nil {
		return "", e.asRetrievalError(ctx, err, requestID)
	}
	foreignKeys, err := e.store.QueryForeignKeys(ctx, filters)
	if err != nil {
		return "", e.asRetrievalError(ctx, err, requestID)
	}

	return formatExcerpt(filteredRows, foreignKeys), nil
}

// expandTerms 把 (表, 字段) 记录展开为术语列表：每个表一条表术语（去重），
// 每个字段一条字段术语。顺序保持图库返回顺序，保证排序稳定。
func expandTerms(rows []*core.TableFieldRow) []*core.SchemaTerm {
	var terms []*core.SchemaTerm
	seenTables := make(map[string]struct{})

	for _, row := range rows {
		if _, ok := seenTables[row.TableName]; !ok {
			seenTables[row.TableName] = struct{}{}
			terms = append(terms, &core.SchemaTerm{
				Name:    row.TableName,
				Type:    core.TermTypeTable,
				Comment: row.TableComment,
			})
		}
		if row.FieldName != "" {
			terms = append(terms, &core.SchemaTerm{
				Name:    row.FieldName,
				Type:    core.TermTypeField,
				Comment: row.FieldComment,
			})
		}
	}
	return terms
}

// matchTerms 对每个 (关键词, 术语) 对做四级匹配，按名称去重后按权重降序排序。
func (e *Engine) matchTerms(ctx context.Context, keywords []string, terms []*core.SchemaTerm, requestID string) []*core.MatchedTerm {
	var matched []*core.MatchedTerm
	byName := make(map[string]*core.MatchedTerm)
	semanticDown := false

	for _, term := range terms {
		for _, keyword := range keywords {
			if !e.matchOne(ctx, keyword, term, &semanticDown, requestID) {
				continue
			}

			weight := term.Type.Weight()
			if existing, ok := byName[term.Name]; ok {
				// 同名术语保留更高权重的类型，首见顺序不变
				if weight > existing.Weight {
					existing.Weight = weight
					existing.Type = term.Type
					existing.Comment = term.Comment
				}
			} else {
				entry := &core.MatchedTerm{
					Name:    term.Name,
					Type:    term.Type,
					Weight:  weight,
					Comment: term.Comment,
				}
				byName[term.Name] = entry
				matched = append(matched, entry)
			}
			break
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Weight > matched[j].Weight
	})
	return matched
}

// matchOne 判定单个 (关键词, 术语) 对是否匹配，廉价判定在前，命中即短路。
func (e *Engine) matchOne(ctx context.Context, keyword string, term *core.SchemaTerm, semanticDown *bool, requestID string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}

	// 一级：关键词是术语名称的子串
	if strings.Contains(strings.ToLower(term.Name), keyword) {
		return true
	}

	tags := splitCommentTags(term.Comment)
	if len(tags) == 0 {
		return false
	}

	// 二级：关键词与某个注释标签相等
	for _, tag := range tags {
		if strings.EqualFold(keyword, tag) {
			return true
		}
	}

	// 三级：关键词的同义词与某个注释标签相等（仅一跳，不递归展开）
	for _, synonym := range e.synonyms.Synonyms(keyword) {
		for _, tag := range tags {
			if strings.EqualFold(synonym, tag) {
				return true
			}
		}
	}

	// 四级：语义相似，熔断或出错时跳过并退化为前三级匹配
	if e.matcher == nil || *semanticDown {
		return false
	}
	if !e.matcher.Available() {
		*semanticDown = true
		e.logger.Warn("向量后端熔断中，本次检索退化为词法加同义词匹配", "request_id", requestID)
		return false
	}
	for _, tag := range tags {
		similar, err := e.matcher.IsSimilar(ctx, keyword, tag)
		if err != nil {
			*semanticDown = true
			e.logger.Warn("语义比较失败，本次检索退化为词法加同义词匹配",
				"request_id", requestID,
				"error", err,
			)
			return false
		}
		if similar {
			return true
		}
	}
	return false
}

// splitCommentTags 把注释按逗号切分为标签列表，而不是当作整段文本。
func splitCommentTags(comment string) []string {
	fields := strings.FieldsFunc(comment, func(r rune) bool {
		return r == ',' || r == '，'
	})

	var tags []string
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			tags = append(tags, field)
		}
	}
	return tags
}

// formatExcerpt 把过滤后的 (表, 字段) 记录与外键边格式化为文本摘要。
func formatExcerpt(rows []*core.TableFieldRow, foreignKeys []*core.ForeignKeyRow) string {
	if len(rows) == 0 {
		return noMatchExcerpt
	}

	var sb strings.Builder
	sb.WriteString("Available Tables and Columns:\n")

	currentTable := ""
	for _, row := range rows {
		if row.TableName != currentTable {
			currentTable = row.TableName
			sb.WriteString("\n")
			if comment := strings.TrimSpace(row.TableComment); comment != "" {
				fmt.Fprintf(&sb, "Table: %s (%s)\n", row.TableName, comment)
			} else {
				fmt.Fprintf(&sb, "Table: %s\n", row.TableName)
			}
		}
		if row.FieldName == "" {
			continue
		}
		if comment := strings.TrimSpace(row.FieldComment); comment != "" {
			fmt.Fprintf(&sb, "  - %s (%s, %s)\n", row.FieldName, row.DataType, comment)
		} else {
			fmt.Fprintf(&sb, "  - %s (%s)\n", row.FieldName, row.DataType)
		}
	}

	if len(foreignKeys) > 0 {
		sb.WriteString("\nForeign Key Relationships:\n")
		for _, fk := range foreignKeys {
			fmt.Fprintf(&sb, "  - Table %s.%s references %s.%s\n", fk.FromTable, fk.Column, fk.ToTable, fk.RefColumn)
		}
	}

	return sb.String()
}

// asRetrievalError 把底层错误转换为检索错误，超时单独归类。
func (e *Engine) asRetrievalError(ctx context.Context, err error, requestID string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.WrapError(err, core.ErrorTypeTimeout, "RETRIEVAL_TIMEOUT", "schema 检索超时").WithRequestID(requestID)
	}
	if core.IsRetrievalError(err) {
		if retrievalErr := core.GetRetrievalError(err); retrievalErr.RequestID == "" {
			retrievalErr.RequestID = requestID
		}
		return err
	}
	return core.WrapError(err, core.ErrorTypeGraph, "GRAPH_QUERY_FAILED", "图模式查询失败").WithRequestID(requestID)
}
