package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger 记录最后一条错误日志，便于断言。
type testLogger struct {
	lastMsg    string
	lastFields []any
}

func (l *testLogger) Debug(msg string, fields ...any) {}
func (l *testLogger) Info(msg string, fields ...any)  {}
func (l *testLogger) Warn(msg string, fields ...any)  {}
func (l *testLogger) Error(msg string, fields ...any) {
	l.lastMsg = msg
	l.lastFields = fields
}
func (l *testLogger) Fatal(msg string, fields ...any) {}

func TestRetrievalError_Error(t *testing.T) {
	err := NewRetrievalError(ErrorTypeGraph, "GRAPH_QUERY_FAILED", "图模式查询失败")
	assert.Equal(t, "[graph:GRAPH_QUERY_FAILED] 图模式查询失败", err.Error())
	assert.False(t, err.Timestamp.IsZero())
}

func TestRetrievalError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRetrievalError(ErrorTypeCatalog, "CATALOG_CONNECTION_FAILED", "目录数据库连接失败").WithCause(cause)

	assert.ErrorIs(t, err, cause)
}

func TestRetrievalError_WithDetails(t *testing.T) {
	err := NewRetrievalError(ErrorTypeValidation, "EMPTY_QUESTION", "用户问题为空").
		WithDetails(map[string]any{"question": ""}).
		WithRequestID("req-1")

	assert.Equal(t, "", err.Details["question"])
	assert.Equal(t, "req-1", err.RequestID)
}

func TestIsRetrievalError(t *testing.T) {
	assert.True(t, IsRetrievalError(ErrEmptyQuestion))
	assert.True(t, IsRetrievalError(fmt.Errorf("包装一层: %w", ErrGraphQuery)))
	assert.False(t, IsRetrievalError(errors.New("普通错误")))
}

func TestGetRetrievalError(t *testing.T) {
	wrapped := fmt.Errorf("外层: %w", ErrCatalogQuery)

	got := GetRetrievalError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "CATALOG_QUERY_FAILED", got.Code)

	assert.Nil(t, GetRetrievalError(errors.New("普通错误")))
}

func TestWrapError(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := WrapError(cause, ErrorTypeGraph, "GRAPH_CONNECTION_FAILED", "图数据库连接失败")

	assert.Equal(t, ErrorTypeGraph, err.Type)
	assert.ErrorIs(t, err, cause)
}

func TestErrorHandler_HandleError(t *testing.T) {
	logger := &testLogger{}
	handler := NewErrorHandler(logger)

	text := handler.HandleError(ErrGraphQuery, "req-42")

	assert.Equal(t, "检索 schema 失败: 图模式查询失败", text)
	assert.Equal(t, "schema 检索出错", logger.lastMsg)
}

func TestErrorHandler_HandleError_PlainError(t *testing.T) {
	handler := NewErrorHandler(&testLogger{})

	// 非检索错误统一归入内部错误
	text := handler.HandleError(errors.New("boom"), "req-43")
	assert.Equal(t, "检索 schema 失败: 内部错误", text)
}

func TestTermTypeWeight(t *testing.T) {
	assert.Equal(t, 3, TermTypeTable.Weight())
	assert.Equal(t, 2, TermTypeField.Weight())
	assert.Equal(t, 1, TermType("comment").Weight())
}
