// 本文件定义了 Schema 检索引擎的核心数据结构，包括配置结构体和检索过程中的中间实体。
// 主要内容：
// 1. Config 及各模块子配置（数据库、图库、分词、同义词、向量、检索、日志、缓存）。
// 2. 目录元数据实体（表、列、外键），由 catalog 包从 information_schema 读取。
// 3. 检索过程的临时实体（SchemaTerm、MatchedTerm 等），每次检索创建并丢弃。

package core

import "time"

// TermType 表示 schema 术语的类型。
type TermType string

const (
	TermTypeTable TermType = "table" // 表名术语
	TermTypeField TermType = "field" // 字段名术语
)

// Weight 返回术语类型对应的排序权重，表名 > 字段名 > 其他。
func (t TermType) Weight() int {
	switch t {
	case TermTypeTable:
		return 3
	case TermTypeField:
		return 2
	default:
		// 兜底权重，正常流程中术语总是表或字段类型
		return 1
	}
}

// Config 应用配置结构体，由 config 包从 yaml 和环境变量解析。
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`   // MySQL 目录库配置
	Graph     GraphConfig     `mapstructure:"graph" yaml:"graph"`         // Neo4j 图库配置
	Segmenter SegmenterConfig `mapstructure:"segmenter" yaml:"segmenter"` // 分词器配置
	Synonym   SynonymConfig   `mapstructure:"synonym" yaml:"synonym"`     // 同义词词典配置
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"` // 向量模型配置
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"` // 检索流程配置
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`         // 相似度缓存配置
	Log       LogConfig       `mapstructure:"log" yaml:"log"`             // 日志配置
}

// DatabaseConfig MySQL 数据库配置。
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`                           // 主机地址
	Port            int           `mapstructure:"port" yaml:"port"`                           // 端口
	Username        string        `mapstructure:"username" yaml:"username"`                   // 用户名
	Password        string        `mapstructure:"password" yaml:"password"`                   // 密码
	Database        string        `mapstructure:"database" yaml:"database"`                   // 数据库名
	Charset         string        `mapstructure:"charset" yaml:"charset"`                     // 字符集
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`       // 最大连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`       // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"` // 连接最大生命周期
}

// GraphConfig Neo4j 图数据库配置。
type GraphConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`           // bolt/neo4j 连接地址
	Username string `mapstructure:"username" yaml:"username"` // 用户名
	Password string `mapstructure:"password" yaml:"password"` // 密码
}

// SegmenterConfig 分词器配置。
type SegmenterConfig struct {
	DictPath string `mapstructure:"dict_path" yaml:"dict_path"` // 自定义主词典路径，为空时使用内置词典
}

// SynonymConfig 同义词词典配置。
type SynonymConfig struct {
	DictPath string `mapstructure:"dict_path" yaml:"dict_path"` // 同义词词典文件路径
}

// EmbeddingConfig 向量模型配置。
type EmbeddingConfig struct {
	Provider         string        `mapstructure:"provider" yaml:"provider"`                   // 服务商，目前支持 openai 兼容接口
	Model            string        `mapstructure:"model" yaml:"model"`                         // 向量模型名称
	APIKey           string        `mapstructure:"api_key" yaml:"api_key"`                     // API 密钥
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`                   // 自定义 API 地址
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`                     // 单次推理超时时间
	FailureThreshold int           `mapstructure:"failure_threshold" yaml:"failure_threshold"` // 熔断失败次数阈值
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown" yaml:"breaker_cooldown"`   // 熔断冷却时间
}

// RetrievalConfig 检索流程配置。
type RetrievalConfig struct {
	TopKeywords         int           `mapstructure:"top_keywords" yaml:"top_keywords"`                 // TF-IDF 提取的关键词数量
	SimilarityThreshold float64       `mapstructure:"similarity_threshold" yaml:"similarity_threshold"` // 语义相似度阈值
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`                           // 单次检索超时时间
}

// CacheConfig 相似度缓存配置。
type CacheConfig struct {
	SimilarityTTL time.Duration `mapstructure:"similarity_ttl" yaml:"similarity_ttl"` // 相似度结果缓存时间
	MaxEntries    int           `mapstructure:"max_entries" yaml:"max_entries"`       // 最大缓存条目数
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // 日志级别
	Format     string `mapstructure:"format" yaml:"format"`           // 日志格式：json、console
	Output     string `mapstructure:"output" yaml:"output"`           // 输出位置：stdout、stderr、file、both
	FilePath   string `mapstructure:"file_path" yaml:"file_path"`     // 日志文件路径
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`       // 单文件最大大小（MB）
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // 最大备份数
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`         // 最大保存天数
}

// TableMeta 表元数据，来源于 information_schema.TABLES。
type TableMeta struct {
	Name    string `json:"name"`    // 表名
	Comment string `json:"comment"` // 表注释，可能为空
}

// ColumnMeta 列元数据，来源于 information_schema.COLUMNS。
type ColumnMeta struct {
	Table    string `json:"table"`     // 所属表名
	Name     string `json:"name"`      // 列名
	Comment  string `json:"comment"`   // 列注释，可能为空
	DataType string `json:"data_type"` // 声明的数据类型
}

// ForeignKeyMeta 外键元数据，来源于 information_schema.KEY_COLUMN_USAGE。
type ForeignKeyMeta struct {
	Table     string `json:"table"`      // 来源表名
	Column    string `json:"column"`     // 来源列名
	RefTable  string `json:"ref_table"`  // 目标表名
	RefColumn string `json:"ref_column"` // 目标列名
}

// SchemaTerm 待匹配的 schema 术语，每次检索时由图库查询结果展开。
type SchemaTerm struct {
	Name    string   // 表名或字段名
	Type    TermType // 术语类型
	Comment string   // 注释，按逗号分隔的标签列表处理
}

// MatchedTerm 匹配命中的术语，按名称去重后参与权重排序。
type MatchedTerm struct {
	Name    string   // 术语名称
	Type    TermType // 命中时的术语类型
	Weight  int      // 排序权重
	Comment string   // 注释
}

// TableFieldRow 图库中一条 (表, 字段) 记录。
type TableFieldRow struct {
	TableName    string // 表名
	TableComment string // 表注释
	FieldName    string // 字段名
	FieldComment string // 字段注释
	DataType     string // 字段数据类型
}

// ForeignKeyRow 图库中一条外键边记录。
type ForeignKeyRow struct {
	FromTable string // 来源表
	Column    string // 来源列
	ToTable   string // 目标表
	RefColumn string // 目标列
}
