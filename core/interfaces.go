package core

import (
	"context"
	"time"
)

// CatalogReader 关系型目录读取接口，从源数据库的系统目录提取元数据。
type CatalogReader interface {
	ListTables(ctx context.Context, schema string) ([]*TableMeta, error)           // 列出表及注释
	ListColumns(ctx context.Context, schema string) ([]*ColumnMeta, error)         // 列出列及注释、类型（排除审计列）
	ListForeignKeys(ctx context.Context, schema string) ([]*ForeignKeyMeta, error) // 列出外键引用
	ValidateConnection(ctx context.Context) error                                  // 验证数据库连接
	Close() error                                                                  // 关闭连接
}

// GraphStore 属性图存储接口，持久化表、字段节点及其关系。
type GraphStore interface {
	UpsertTable(ctx context.Context, name, comment string) error                          // 写入表节点
	UpsertField(ctx context.Context, table, name, comment, dataType string) error         // 写入字段节点并关联 HAS_FIELD 边
	UpsertForeignKey(ctx context.Context, fromTable, column, toTable, refColumn string) error // 写入外键边
	QueryTableFieldPairs(ctx context.Context, keywords []string) ([]*TableFieldRow, error) // 查询 (表, 字段) 记录，keywords 为空时返回全部
	QueryForeignKeys(ctx context.Context, keywords []string) ([]*ForeignKeyRow, error)     // 查询端点命中关键词的外键边
	Close(ctx context.Context) error                                                      // 关闭驱动
}

// Segmenter 分词器接口，支持从 schema 注释扩充词典。
type Segmenter interface {
	Cut(text string) []string   // 切分文本为候选词
	AddWord(word string) error  // 注册词典词条，使其作为整体切分
}

// KeywordExtractor 关键词提取接口。
type KeywordExtractor interface {
	Extract(question string) []string // 提取问题中的关键词集合，空白输入返回空集
}

// SynonymExpander 同义词扩展接口。
type SynonymExpander interface {
	Synonyms(word string) []string // 按小写形式查询同义词集合，未知词返回空集
}

// SemanticMatcher 语义相似度匹配接口。
type SemanticMatcher interface {
	IsSimilar(ctx context.Context, a, b string) (bool, error) // 判断两段文本的余弦相似度是否达到阈值
	Available() bool                                          // 向量后端当前是否可用（熔断未打开）
}

// CacheManager 缓存管理器接口。
type CacheManager interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Logger 日志记录器接口。
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Fatal(msg string, fields ...any)
}
