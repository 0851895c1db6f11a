package retriever

import (
	"context"
	"strings"
	"testing"

	"github.com/Anniext/schemagraph/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtractor 对非空问题返回固定的关键词集合。
type stubExtractor struct {
	keywords []string
}

func (s *stubExtractor) Extract(question string) []string {
	if strings.TrimSpace(question) == "" {
		return nil
	}
	return s.keywords
}

type stubSynonyms struct {
	groups map[string][]string
}

func (s *stubSynonyms) Synonyms(word string) []string {
	return s.groups[strings.ToLower(word)]
}

type stubMatcher struct {
	available bool
	similar   map[string]bool
	err       error
	calls     int
}

func (s *stubMatcher) IsSimilar(ctx context.Context, a, b string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.similar[a+"|"+b], nil
}

func (s *stubMatcher) Available() bool { return s.available }

func fleetStore() *mockStore {
	store := newMockStore()
	store.rows = []*core.TableFieldRow{
		{TableName: "vehicle_info", TableComment: "车辆信息", FieldName: "plate_no", FieldComment: "车牌号", DataType: "varchar"},
		{TableName: "orders", TableComment: "订单表", FieldName: "customer_id", FieldComment: "客户编号", DataType: "bigint"},
		{TableName: "customers", TableComment: "客户表", FieldName: "id", FieldComment: "主键", DataType: "bigint"},
	}
	store.foreignKeys = []*core.ForeignKeyRow{
		{FromTable: "orders", Column: "customer_id", ToTable: "customers", RefColumn: "id"},
	}
	return store
}

func newTestEngine(store *mockStore, extractor core.KeywordExtractor, synonyms core.SynonymExpander, matcher core.SemanticMatcher) *Engine {
	if synonyms == nil {
		synonyms = &stubSynonyms{}
	}
	return NewEngine(store, extractor, synonyms, matcher, &nopLogger{}, nil)
}

func TestEngine_EmptyQuestion(t *testing.T) {
	store := fleetStore()
	engine := newTestEngine(store, &stubExtractor{}, nil, nil)

	excerpt, err := engine.Retrieve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, noMatchExcerpt, excerpt)
	assert.Empty(t, store.queryCalls, "空问题不应触发图库查询")
}

func TestEngine_VehicleInfoEndToEnd(t *testing.T) {
	store := fleetStore()
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"车辆信息"}}, nil, nil)

	excerpt, err := engine.Retrieve(context.Background(), "查询车辆信息")
	require.NoError(t, err)
	assert.Contains(t, excerpt, "Available Tables and Columns:")
	assert.Contains(t, excerpt, "Table: vehicle_info (车辆信息)")
	assert.Contains(t, excerpt, "  - plate_no (varchar, 车牌号)")
}

func TestEngine_TableWeightPrecedence(t *testing.T) {
	store := newMockStore()
	store.rows = []*core.TableFieldRow{
		{TableName: "shipments", TableComment: "发货表", FieldName: "order_no", FieldComment: "订单号", DataType: "varchar"},
		{TableName: "orders", TableComment: "订单表", FieldName: "customer_id", FieldComment: "客户编号", DataType: "bigint"},
	}
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"order"}}, nil, nil)

	_, err := engine.Retrieve(context.Background(), "order info")
	require.NoError(t, err)

	// 表名命中权重高于字段名命中，即使字段术语先被扫描到
	require.Len(t, store.queryCalls, 2)
	assert.Equal(t, []string{"orders", "order_no"}, store.queryCalls[1])
}

func TestEngine_StableOrderingForEqualWeight(t *testing.T) {
	store := newMockStore()
	store.rows = []*core.TableFieldRow{
		{TableName: "vehicle_info", TableComment: "车辆信息", FieldName: "plate_no", FieldComment: "车牌号", DataType: "varchar"},
		{TableName: "shipments", TableComment: "发货表", FieldName: "order_no", FieldComment: "订单号", DataType: "varchar"},
	}
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"_no"}}, nil, nil)

	_, err := engine.Retrieve(context.Background(), "单号")
	require.NoError(t, err)

	// 同权重术语按首见顺序输出
	require.Len(t, store.queryCalls, 2)
	assert.Equal(t, []string{"plate_no", "order_no"}, store.queryCalls[1])
}

func TestEngine_SynonymOneHopOnly(t *testing.T) {
	store := newMockStore()
	store.rows = []*core.TableFieldRow{
		{TableName: "revenue", TableComment: "收入", FieldName: "amount", FieldComment: "金额", DataType: "decimal"},
		{TableName: "ledger", TableComment: "进账", FieldName: "entry_no", FieldComment: "流水号", DataType: "varchar"},
	}
	synonyms := &stubSynonyms{groups: map[string][]string{
		"营收": {"收入"},
		"收入": {"进账"},
	}}
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"营收"}}, synonyms, nil)

	_, err := engine.Retrieve(context.Background(), "查询营收")
	require.NoError(t, err)

	// 只做一跳同义词扩展：营收 -> 收入 命中 revenue，不沿 收入 -> 进账 传递到 ledger
	require.Len(t, store.queryCalls, 2)
	assert.Equal(t, []string{"revenue"}, store.queryCalls[1])
}

func TestEngine_SemanticMatch(t *testing.T) {
	store := fleetStore()
	matcher := &stubMatcher{
		available: true,
		similar:   map[string]bool{"汽车|车辆信息": true},
	}
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"汽车"}}, nil, matcher)

	excerpt, err := engine.Retrieve(context.Background(), "查询汽车")
	require.NoError(t, err)
	assert.Contains(t, excerpt, "Table: vehicle_info (车辆信息)")
	assert.Positive(t, matcher.calls)
}

func TestEngine_SemanticSkippedWhenBreakerOpen(t *testing.T) {
	store := fleetStore()
	matcher := &stubMatcher{available: false}
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"汽车"}}, nil, matcher)

	excerpt, err := engine.Retrieve(context.Background(), "查询汽车")
	require.NoError(t, err, "熔断打开时检索退化而不是失败")
	assert.Equal(t, noMatchExcerpt, excerpt)
	assert.Zero(t, matcher.calls)
}

func TestEngine_SemanticErrorDegrades(t *testing.T) {
	store := fleetStore()
	matcher := &stubMatcher{
		available: true,
		err:       core.ErrEmbeddingBackend,
	}
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"汽车", "plate"}}, nil, matcher)

	excerpt, err := engine.Retrieve(context.Background(), "查询汽车车牌")
	require.NoError(t, err, "语义比较出错时检索退化而不是失败")
	assert.Contains(t, excerpt, "plate_no")
	assert.Equal(t, 1, matcher.calls, "首次失败后本次检索不再触达向量后端")
}

func TestEngine_NoMatch(t *testing.T) {
	store := fleetStore()
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"不存在的概念"}}, nil, nil)

	excerpt, err := engine.Retrieve(context.Background(), "完全无关的问题")
	require.NoError(t, err)
	assert.Equal(t, noMatchExcerpt, excerpt)
	assert.Len(t, store.queryCalls, 1, "无命中时不应发起空过滤词的二次查询")
}

func TestEngine_ForeignKeyBlock(t *testing.T) {
	store := fleetStore()
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"order"}}, nil, nil)

	excerpt, err := engine.Retrieve(context.Background(), "order info")
	require.NoError(t, err)
	assert.Contains(t, excerpt, "Foreign Key Relationships:")
	assert.Contains(t, excerpt, "  - Table orders.customer_id references customers.id\n")
}

func TestEngine_ForeignKeyBlockOmitted(t *testing.T) {
	store := fleetStore()
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"车辆信息"}}, nil, nil)

	excerpt, err := engine.Retrieve(context.Background(), "查询车辆信息")
	require.NoError(t, err)
	assert.NotContains(t, excerpt, "Foreign Key Relationships:", "端点未命中时不输出外键块")
}

func TestEngine_GraphErrorSurfacesAsRetrievalError(t *testing.T) {
	store := fleetStore()
	store.queryErr = core.WrapError(assertAnError, core.ErrorTypeGraph, "GRAPH_QUERY_FAILED", "图模式查询失败")
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"order"}}, nil, nil)

	_, err := engine.Retrieve(context.Background(), "order info")
	require.Error(t, err)
	require.True(t, core.IsRetrievalError(err))
	assert.Equal(t, core.ErrorTypeGraph, core.GetRetrievalError(err).Type)
	assert.NotEmpty(t, core.GetRetrievalError(err).RequestID)
}

func TestEngine_RetrieveTextBoundary(t *testing.T) {
	store := fleetStore()
	store.queryErr = core.WrapError(assertAnError, core.ErrorTypeGraph, "GRAPH_QUERY_FAILED", "图模式查询失败")
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"order"}}, nil, nil)

	result := engine.RetrieveText(context.Background(), "order info")
	assert.Equal(t, "检索 schema 失败: 图模式查询失败", result)
}

func TestEngine_TimeoutClassification(t *testing.T) {
	store := fleetStore()
	store.queryErr = context.DeadlineExceeded
	engine := newTestEngine(store, &stubExtractor{keywords: []string{"order"}}, nil, nil)

	_, err := engine.Retrieve(context.Background(), "order info")
	require.Error(t, err)
	require.True(t, core.IsRetrievalError(err))
	assert.Equal(t, core.ErrorTypeTimeout, core.GetRetrievalError(err).Type)
}

func TestSplitCommentTags(t *testing.T) {
	assert.Equal(t, []string{"车辆信息", "vehicle"}, splitCommentTags("车辆信息,vehicle"))
	assert.Equal(t, []string{"车辆信息", "档案"}, splitCommentTags("车辆信息，档案"))
	assert.Empty(t, splitCommentTags("  "))
	assert.Empty(t, splitCommentTags(""))
}

// assertAnError 供错误包装测试使用的底层错误。
var assertAnError = errTest("底层驱动错误")

type errTest string

func (e errTest) Error() string { return string(e) }
