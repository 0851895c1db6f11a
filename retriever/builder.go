// 本文件实现了 schema 图构建器，把关系型目录元数据物化为属性图。
// 主要功能：
// 1. 从源数据库的系统目录读取表、列、外键三类元数据。
// 2. 把非空的表注释和列注释注册进分词器词典，表注释同时注册去掉
//    "表"、"信息" 等通用后缀的变体，让领域词在后续分词时保持完整。
// 3. 按 upsert 语义写入图库：默认只在节点首次创建时设置属性，
//    重复构建不会覆盖已有注释。
//
// 构建是至少一次语义：任何一步出错立即中止，已提交的写入不回滚。

package retriever

import (
	"context"
	"strings"

	"github.com/Anniext/schemagraph/core"
)

// 注册词典时剥离的通用注释后缀。
var genericCommentSuffixes = []string{"表", "信息"}

// Builder schema 图构建器。
type Builder struct {
	catalog   core.CatalogReader
	store     core.GraphStore
	segmenter core.Segmenter
	logger    core.Logger
}

// NewBuilder 创建构建器。
func NewBuilder(catalog core.CatalogReader, store core.GraphStore, segmenter core.Segmenter, logger core.Logger) *Builder {
	return &Builder{
		catalog:   catalog,
		store:     store,
		segmenter: segmenter,
		logger:    logger,
	}
}

// Build 读取指定 schema 的目录元数据并写入图库。
func (b *Builder) Build(ctx context.Context, schema string) error {
	b.logger.Info("开始构建 schema 图", "schema", schema)

	tables, err := b.catalog.ListTables(ctx, schema)
	if err != nil {
		return err
	}
	for _, table := range tables {
		b.registerVocabulary(table.Comment, true)
		if err := b.store.UpsertTable(ctx, table.Name, table.Comment); err != nil {
			return err
		}
	}

	columns, err := b.catalog.ListColumns(ctx, schema)
	if err != nil {
		return err
	}
	for _, column := range columns {
		b.registerVocabulary(column.Comment, false)
		if err := b.store.UpsertField(ctx, column.Table, column.Name, column.Comment, column.DataType); err != nil {
			return err
		}
	}

	foreignKeys, err := b.catalog.ListForeignKeys(ctx, schema)
	if err != nil {
		return err
	}
	for _, fk := range foreignKeys {
		if err := b.store.UpsertForeignKey(ctx, fk.Table, fk.Column, fk.RefTable, fk.RefColumn); err != nil {
			return err
		}
	}

	b.logger.Info("schema 图构建完成",
		"schema", schema,
		"tables", len(tables),
		"columns", len(columns),
		"foreign_keys", len(foreignKeys),
	)
	return nil
}

// registerVocabulary 把注释注册进分词器词典。
// 表注释额外注册剥离通用后缀的变体，如 "车辆信息" 同时注册 "车辆"。
func (b *Builder) registerVocabulary(comment string, stripSuffix bool) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return
	}

	if err := b.segmenter.AddWord(comment); err != nil {
		b.logger.Warn("注册词典词条失败", "word", comment, "error", err)
	}

	if !stripSuffix {
		return
	}
	for _, suffix := range genericCommentSuffixes {
		stripped := strings.TrimSuffix(comment, suffix)
		if stripped == comment || strings.TrimSpace(stripped) == "" {
			continue
		}
		if err := b.segmenter.AddWord(stripped); err != nil {
			b.logger.Warn("注册词典词条失败", "word", stripped, "error", err)
		}
	}
}
