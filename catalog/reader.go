// 本文件实现了 MySQL 目录读取器，从 information_schema 提取表、列、注释和外键元数据。
// 主要功能：
// 1. 连接 MySQL 数据库并管理连接池。
// 2. 按 schema 名列出表及注释、列及注释和数据类型、外键列级引用。
// 3. 列查询排除固定的审计列（创建人、创建时间、更新人、更新时间）。
// 4. 提供连接验证与关闭方法。

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Anniext/schemagraph/core"

	_ "github.com/go-sql-driver/mysql" // MySQL 驱动
)

// auditColumns 固定排除的审计列，不参与 schema 检索。
var auditColumns = []string{"CREATE_USER", "CREATE_TIME", "UPDATE_USER", "UPDATE_TIME"}

// MySQLCatalogReader MySQL 目录读取器。
type MySQLCatalogReader struct {
	db     *sql.DB
	logger core.Logger
}

// NewMySQLCatalogReader 创建 MySQL 目录读取器。
// 参数：dsn 数据库连接串，cfg 连接池配置，logger 日志记录器。
func NewMySQLCatalogReader(dsn string, cfg *core.DatabaseConfig, logger core.Logger) (*MySQLCatalogReader, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_CONNECTION_FAILED", "目录数据库连接失败")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_CONNECTION_FAILED", "目录数据库连接测试失败")
	}

	maxOpen, maxIdle, maxLifetime := 10, 5, time.Hour
	if cfg != nil {
		if cfg.MaxOpenConns > 0 {
			maxOpen = cfg.MaxOpenConns
		}
		if cfg.MaxIdleConns > 0 {
			maxIdle = cfg.MaxIdleConns
		}
		if cfg.ConnMaxLifetime > 0 {
			maxLifetime = cfg.ConnMaxLifetime
		}
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &MySQLCatalogReader{db: db, logger: logger}, nil
}

// ListTables 列出指定 schema 下的所有表及注释。
func (r *MySQLCatalogReader) ListTables(ctx context.Context, schema string) ([]*core.TableMeta, error) {
	query := `
		SELECT TABLE_NAME, TABLE_COMMENT
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	rows, err := r.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "查询表信息失败")
	}
	defer rows.Close()

	var tables []*core.TableMeta
	for rows.Next() {
		table := &core.TableMeta{}
		if err := rows.Scan(&table.Name, &table.Comment); err != nil {
			return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "扫描表信息失败")
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "遍历表信息失败")
	}

	return tables, nil
}

// ListColumns 列出指定 schema 下的所有列及注释、数据类型，排除审计列。
func (r *MySQLCatalogReader) ListColumns(ctx context.Context, schema string) ([]*core.ColumnMeta, error) {
	query := `
		SELECT TABLE_NAME, COLUMN_NAME, COLUMN_COMMENT, DATA_TYPE
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND COLUMN_NAME NOT IN (?, ?, ?, ?)
		ORDER BY TABLE_NAME, ORDINAL_POSITION
	`

	args := []any{schema}
	for _, col := range auditColumns {
		args = append(args, col)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "查询列信息失败")
	}
	defer rows.Close()

	var columns []*core.ColumnMeta
	for rows.Next() {
		column := &core.ColumnMeta{}
		if err := rows.Scan(&column.Table, &column.Name, &column.Comment, &column.DataType); err != nil {
			return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "扫描列信息失败")
		}
		columns = append(columns, column)
	}

	if err := rows.Err(); err != nil {
		return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "遍历列信息失败")
	}

	return columns, nil
}

// ListForeignKeys 列出指定 schema 下的所有外键列级引用。
func (r *MySQLCatalogReader) ListForeignKeys(ctx context.Context, schema string) ([]*core.ForeignKeyMeta, error) {
	query := `
		SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY TABLE_NAME, COLUMN_NAME
	`

	rows, err := r.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "查询外键信息失败")
	}
	defer rows.Close()

	var foreignKeys []*core.ForeignKeyMeta
	for rows.Next() {
		fk := &core.ForeignKeyMeta{}
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "扫描外键信息失败")
		}
		foreignKeys = append(foreignKeys, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "遍历外键信息失败")
	}

	return foreignKeys, nil
}

// ValidateConnection 验证数据库连接。
func (r *MySQLCatalogReader) ValidateConnection(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.WrapError(err, core.ErrorTypeCatalog, "CATALOG_CONNECTION_FAILED", "目录数据库连接失败")
	}
	return nil
}

// Close 关闭数据库连接。
func (r *MySQLCatalogReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// String 便于日志输出。
func (r *MySQLCatalogReader) String() string {
	return fmt.Sprintf("MySQLCatalogReader(audit_columns=%d)", len(auditColumns))
}
