// 本文件实现了基于 Neo4j 的 schema 属性图存储，持久化表、字段节点及其关系。
// 主要功能：
// 1. 以 MERGE 语义写入 Table、Field 节点和 HAS_FIELD、FOREIGN_KEY 边，重复写入幂等。
// 2. 字段节点以 (table, name) 复合键标识，避免不同表的同名列被合并为一个节点。
// 3. 属性默认仅在节点首次创建时写入，重建图不会刷新已有注释；可选开启刷新。
// 4. 支持按关键词过滤的 (表, 字段) 查询和外键边查询，供检索流程使用。

package graph

import (
	"context"
	"strings"

	"github.com/Anniext/schemagraph/core"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// StoreOptions 图存储选项。
type StoreOptions struct {
	// RefreshOnUpsert 为 true 时，重复写入会覆盖已有节点的注释和类型属性。
	// 默认 false，保持首次创建时的属性不变。
	RefreshOnUpsert bool
}

// Neo4jStore Neo4j 图存储实现。
type Neo4jStore struct {
	driver  neo4j.DriverWithContext
	logger  core.Logger
	refresh bool
}

// NewNeo4jStore 创建 Neo4j 图存储并验证连通性。
func NewNeo4jStore(ctx context.Context, cfg *core.GraphConfig, logger core.Logger, opts *StoreOptions) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeGraph, "GRAPH_CONNECTION_FAILED", "创建图数据库驱动失败")
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, core.WrapError(err, core.ErrorTypeGraph, "GRAPH_CONNECTION_FAILED", "图数据库连接失败")
	}

	store := &Neo4jStore{driver: driver, logger: logger}
	if opts != nil {
		store.refresh = opts.RefreshOnUpsert
	}

	logger.Info("图数据库连接成功", "uri", cfg.URI, "refresh_on_upsert", store.refresh)
	return store, nil
}

// UpsertTable 写入表节点。
func (s *Neo4jStore) UpsertTable(ctx context.Context, name, comment string) error {
	cypher := `
		MERGE (t:Table {name: $name})
		ON CREATE SET t.comment = $comment
	`
	if s.refresh {
		cypher += ` SET t.comment = $comment`
	}

	return s.write(ctx, cypher, map[string]any{
		"name":    name,
		"comment": comment,
	}, "写入表节点失败")
}

// UpsertField 写入字段节点并关联 HAS_FIELD 边。字段以 (table, name) 复合键标识。
func (s *Neo4jStore) UpsertField(ctx context.Context, table, name, comment, dataType string) error {
	cypher := `
		MERGE (f:Field {table: $table, name: $name})
		ON CREATE SET f.comment = $comment, f.data_type = $data_type
	`
	if s.refresh {
		cypher += ` SET f.comment = $comment, f.data_type = $data_type`
	}
	cypher += `
		WITH f
		MATCH (t:Table {name: $table})
		MERGE (t)-[:HAS_FIELD]->(f)
	`

	return s.write(ctx, cypher, map[string]any{
		"table":     table,
		"name":      name,
		"comment":   comment,
		"data_type": dataType,
	}, "写入字段节点失败")
}

// UpsertForeignKey 写入外键边。同一对表之间允许多条不同列的外键边。
func (s *Neo4jStore) UpsertForeignKey(ctx context.Context, fromTable, column, toTable, refColumn string) error {
	cypher := `
		MATCH (t1:Table {name: $from_table}), (t2:Table {name: $to_table})
		MERGE (t1)-[r:FOREIGN_KEY {column: $column, references: $ref_column}]->(t2)
	`

	return s.write(ctx, cypher, map[string]any{
		"from_table": fromTable,
		"to_table":   toTable,
		"column":     column,
		"ref_column": refColumn,
	}, "写入外键边失败")
}

// QueryTableFieldPairs 查询 (表, 字段) 记录。
// keywords 为空时返回全量记录（供匹配阶段展开 schema 术语）；
// 非空时仅返回名称或注释包含任一关键词（大小写不敏感）的记录。
func (s *Neo4jStore) QueryTableFieldPairs(ctx context.Context, keywords []string) ([]*core.TableFieldRow, error) {
	cypher := `
		MATCH (t:Table)-[:HAS_FIELD]->(f:Field)
	`
	params := map[string]any{}
	if len(keywords) > 0 {
		cypher += `
		WHERE ANY(keyword IN $keywords WHERE
			toLower(t.name) CONTAINS toLower(keyword) OR
			toLower(f.name) CONTAINS toLower(keyword) OR
			toLower(coalesce(t.comment, '')) CONTAINS toLower(keyword) OR
			toLower(coalesce(f.comment, '')) CONTAINS toLower(keyword))
		`
		params["keywords"] = keywords
	}
	cypher += `
		RETURN DISTINCT t.name AS table_name, coalesce(t.comment, '') AS table_comment,
			f.name AS field_name, coalesce(f.comment, '') AS field_comment,
			coalesce(f.data_type, '') AS data_type
		ORDER BY table_name, field_name
	`

	records, err := s.read(ctx, cypher, params, "查询表字段记录失败")
	if err != nil {
		return nil, err
	}

	rows := make([]*core.TableFieldRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, recordToTableFieldRow(record))
	}
	return rows, nil
}

// QueryForeignKeys 查询端点表名命中关键词的外键边。keywords 为空时返回空集。
func (s *Neo4jStore) QueryForeignKeys(ctx context.Context, keywords []string) ([]*core.ForeignKeyRow, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	cypher := `
		MATCH (t1:Table)-[r:FOREIGN_KEY]->(t2:Table)
		WHERE ANY(keyword IN $keywords WHERE
			toLower(t1.name) CONTAINS toLower(keyword) OR
			toLower(t2.name) CONTAINS toLower(keyword))
		RETURN DISTINCT t1.name AS from_table, r.column AS from_column,
			t2.name AS to_table, r.references AS to_column
		ORDER BY from_table, from_column
	`

	records, err := s.read(ctx, cypher, map[string]any{"keywords": keywords}, "查询外键边失败")
	if err != nil {
		return nil, err
	}

	rows := make([]*core.ForeignKeyRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, recordToForeignKeyRow(record))
	}
	return rows, nil
}

// Close 关闭图数据库驱动。
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// write 执行写事务。
func (s *Neo4jStore) write(ctx context.Context, cypher string, params map[string]any, failMsg string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return nil, result.Err()
	})
	if err != nil {
		return core.WrapError(err, core.ErrorTypeGraph, "GRAPH_WRITE_FAILED", failMsg)
	}
	return nil
}

// read 执行读事务并收集全部记录。
func (s *Neo4jStore) read(ctx context.Context, cypher string, params map[string]any, failMsg string) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeGraph, "GRAPH_QUERY_FAILED", failMsg)
	}

	collected, _ := records.([]*neo4j.Record)
	return collected, nil
}

// recordToTableFieldRow 把查询记录转换为表字段记录。
func recordToTableFieldRow(record *neo4j.Record) *core.TableFieldRow {
	return &core.TableFieldRow{
		TableName:    stringValue(record, "table_name"),
		TableComment: stringValue(record, "table_comment"),
		FieldName:    stringValue(record, "field_name"),
		FieldComment: stringValue(record, "field_comment"),
		DataType:     stringValue(record, "data_type"),
	}
}

// recordToForeignKeyRow 把查询记录转换为外键边记录。
func recordToForeignKeyRow(record *neo4j.Record) *core.ForeignKeyRow {
	return &core.ForeignKeyRow{
		FromTable: stringValue(record, "from_table"),
		Column:    stringValue(record, "from_column"),
		ToTable:   stringValue(record, "to_table"),
		RefColumn: stringValue(record, "to_column"),
	}
}

// stringValue 取出记录中的字符串字段，空值和缺失键返回空串。
func stringValue(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	str, _ := value.(string)
	return strings.TrimSpace(str)
}
