package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType 错误类型枚举，用于区分不同的错误来源和类别。
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"    // 校验错误，如空问题、参数不合法
	ErrorTypeConfiguration ErrorType = "configuration" // 配置错误，缺少必需的连接参数
	ErrorTypeCatalog       ErrorType = "catalog"       // 目录读取错误，源数据库不可达或查询失败
	ErrorTypeGraph         ErrorType = "graph"         // 图库错误，构建或检索期间存储不可达
	ErrorTypeEmbedding     ErrorType = "embedding"     // 向量后端错误，相似度推理不可用
	ErrorTypeSynonym       ErrorType = "synonym"       // 同义词词典错误，词典不可读
	ErrorTypeTimeout       ErrorType = "timeout"       // 超时错误，检索超出截止时间
	ErrorTypeInternal      ErrorType = "internal"      // 内部错误
)

// RetrievalError 检索引擎错误结构体，包含错误的详细信息。
type RetrievalError struct {
	Type      ErrorType      `json:"type"`                 // 错误类型
	Code      string         `json:"code"`                 // 错误码，唯一标识具体错误
	Message   string         `json:"message"`              // 错误信息
	Details   map[string]any `json:"details,omitempty"`    // 额外上下文（可选）
	Cause     error          `json:"-"`                    // 原始错误，用于错误链追踪（不序列化）
	Timestamp time.Time      `json:"timestamp"`            // 错误发生时间
	RequestID string         `json:"request_id,omitempty"` // 检索请求 ID（可选）
}

// Error 实现 error 接口。
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap 支持错误链。
func (e *RetrievalError) Unwrap() error {
	return e.Cause
}

// NewRetrievalError 创建新的检索错误。
func NewRetrievalError(errorType ErrorType, code, message string) *RetrievalError {
	return &RetrievalError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithDetails 添加错误详情。
func (e *RetrievalError) WithDetails(details map[string]any) *RetrievalError {
	e.Details = details
	return e
}

// WithCause 添加原因错误。
func (e *RetrievalError) WithCause(cause error) *RetrievalError {
	e.Cause = cause
	return e
}

// WithRequestID 添加请求 ID。
func (e *RetrievalError) WithRequestID(requestID string) *RetrievalError {
	e.RequestID = requestID
	return e
}

// 预定义的错误变量
var (
	// 配置错误
	ErrMissingDatabaseConfig = NewRetrievalError(ErrorTypeConfiguration, "MISSING_DATABASE_CONFIG", "缺少必需的数据库配置")
	ErrMissingGraphConfig    = NewRetrievalError(ErrorTypeConfiguration, "MISSING_GRAPH_CONFIG", "缺少必需的图数据库配置")

	// 目录错误
	ErrCatalogConnection = NewRetrievalError(ErrorTypeCatalog, "CATALOG_CONNECTION_FAILED", "目录数据库连接失败")
	ErrCatalogQuery      = NewRetrievalError(ErrorTypeCatalog, "CATALOG_QUERY_FAILED", "目录元数据查询失败")

	// 图库错误
	ErrGraphConnection = NewRetrievalError(ErrorTypeGraph, "GRAPH_CONNECTION_FAILED", "图数据库连接失败")
	ErrGraphWrite      = NewRetrievalError(ErrorTypeGraph, "GRAPH_WRITE_FAILED", "图节点写入失败")
	ErrGraphQuery      = NewRetrievalError(ErrorTypeGraph, "GRAPH_QUERY_FAILED", "图模式查询失败")

	// 向量后端错误
	ErrEmbeddingBackend     = NewRetrievalError(ErrorTypeEmbedding, "EMBEDDING_BACKEND_FAILED", "向量后端调用失败")
	ErrEmbeddingUnavailable = NewRetrievalError(ErrorTypeEmbedding, "EMBEDDING_UNAVAILABLE", "向量后端熔断中，暂不可用")

	// 同义词词典错误
	ErrSynonymDictUnreadable = NewRetrievalError(ErrorTypeSynonym, "SYNONYM_DICT_UNREADABLE", "同义词词典加载失败")

	// 校验错误
	ErrEmptyQuestion = NewRetrievalError(ErrorTypeValidation, "EMPTY_QUESTION", "用户问题为空")

	// 超时错误
	ErrRetrievalTimeout = NewRetrievalError(ErrorTypeTimeout, "RETRIEVAL_TIMEOUT", "schema 检索超时")

	// 缓存错误
	ErrCacheKeyNotFound = NewRetrievalError(ErrorTypeInternal, "CACHE_KEY_NOT_FOUND", "缓存键不存在")
)

// IsRetrievalError 检查是否为检索错误。
func IsRetrievalError(err error) bool {
	var retrievalError *RetrievalError
	return errors.As(err, &retrievalError)
}

// GetRetrievalError 获取错误链中的检索错误，不存在时返回 nil。
func GetRetrievalError(err error) *RetrievalError {
	var retrievalError *RetrievalError
	if errors.As(err, &retrievalError) {
		return retrievalError
	}
	return nil
}

// WrapError 包装普通错误为检索错误。
func WrapError(err error, errorType ErrorType, code, message string) *RetrievalError {
	return &RetrievalError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now(),
	}
}

// ErrorHandler 边界错误处理器，把检索错误渲染为文本结果而不是向上抛出。
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler 创建错误处理器。
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError 记录错误并返回面向调用方的描述文本。
func (h *ErrorHandler) HandleError(err error, requestID string) string {
	retrievalErr := GetRetrievalError(err)
	if retrievalErr == nil {
		retrievalErr = &RetrievalError{
			Type:      ErrorTypeInternal,
			Code:      "INTERNAL_ERROR",
			Message:   "内部错误",
			Cause:     err,
			Timestamp: time.Now(),
			RequestID: requestID,
		}
	}

	h.logger.Error("schema 检索出错",
		"type", retrievalErr.Type,
		"code", retrievalErr.Code,
		"message", retrievalErr.Message,
		"request_id", requestID,
		"cause", retrievalErr.Cause,
	)

	return fmt.Sprintf("检索 schema 失败: %s", retrievalErr.Message)
}
