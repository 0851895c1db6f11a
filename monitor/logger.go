// 本文件实现了结构化日志记录系统，基于 zap 提供统一的日志接口。
// 主要功能：
// 1. 支持控制台和文件输出，文件输出使用 lumberjack 轮转归档。
// 2. 支持 json/console 两种编码格式和多级别过滤。
// 3. 对外暴露 core.Logger 接口，键值对形式记录结构化字段。

package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Anniext/schemagraph/core"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerManager 日志管理器，负责创建和管理日志记录器。
type LoggerManager struct {
	config    *core.LogConfig
	zapLogger *zap.Logger
	mutex     sync.RWMutex
	closed    bool
}

// NewLoggerManager 创建日志管理器实例。
func NewLoggerManager(config *core.LogConfig) (*LoggerManager, error) {
	if config == nil {
		return nil, fmt.Errorf("日志配置不能为空")
	}

	manager := &LoggerManager{config: config}
	if err := manager.initialize(); err != nil {
		return nil, fmt.Errorf("初始化日志管理器失败: %w", err)
	}

	return manager, nil
}

// initialize 初始化日志系统。
func (lm *LoggerManager) initialize() error {
	encoderConfig := lm.createEncoderConfig()

	var encoder zapcore.Encoder
	switch lm.config.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	syncers, err := lm.createWriteSyncers()
	if err != nil {
		return fmt.Errorf("创建写入器失败: %w", err)
	}

	level, err := lm.parseLogLevel(lm.config.Level)
	if err != nil {
		return fmt.Errorf("解析日志级别失败: %w", err)
	}

	cores := make([]zapcore.Core, 0, len(syncers))
	for _, syncer := range syncers {
		cores = append(cores, zapcore.NewCore(encoder, syncer, level))
	}

	lm.zapLogger = zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel))

	return nil
}

// createEncoderConfig 创建编码器配置。
func (lm *LoggerManager) createEncoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()

	config.TimeKey = "timestamp"
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.LevelKey = "level"
	config.EncodeLevel = zapcore.LowercaseLevelEncoder
	config.CallerKey = "caller"
	config.EncodeCaller = zapcore.ShortCallerEncoder
	config.MessageKey = "message"
	config.StacktraceKey = "stacktrace"

	return config
}

// createWriteSyncers 创建写入器。
func (lm *LoggerManager) createWriteSyncers() ([]zapcore.WriteSyncer, error) {
	var syncers []zapcore.WriteSyncer

	switch lm.config.Output {
	case "stderr":
		syncers = append(syncers, zapcore.AddSync(os.Stderr))
	case "file":
		fileSyncer, err := lm.createFileSyncer()
		if err != nil {
			return nil, err
		}
		syncers = append(syncers, fileSyncer)
	case "both":
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
		fileSyncer, err := lm.createFileSyncer()
		if err != nil {
			return nil, err
		}
		syncers = append(syncers, fileSyncer)
	default:
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}

	return syncers, nil
}

// createFileSyncer 创建文件写入器，支持日志轮转。
func (lm *LoggerManager) createFileSyncer() (zapcore.WriteSyncer, error) {
	logDir := filepath.Dir(lm.config.FilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	lumberjackLogger := &lumberjack.Logger{
		Filename:   lm.config.FilePath,
		MaxSize:    lm.config.MaxSize,
		MaxBackups: lm.config.MaxBackups,
		MaxAge:     lm.config.MaxAge,
		Compress:   true,
		LocalTime:  true,
	}

	return zapcore.AddSync(lumberjackLogger), nil
}

// parseLogLevel 解析日志级别。
func (lm *LoggerManager) parseLogLevel(levelStr string) (zapcore.Level, error) {
	switch levelStr {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("不支持的日志级别: %s", levelStr)
	}
}

// GetLogger 获取日志记录器。
func (lm *LoggerManager) GetLogger() core.Logger {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	if lm.closed {
		return &noopLogger{}
	}

	return &sugaredLogger{sugar: lm.zapLogger.Sugar()}
}

// GetNamedLogger 获取命名的日志记录器。
func (lm *LoggerManager) GetNamedLogger(name string) core.Logger {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	if lm.closed {
		return &noopLogger{}
	}

	return &sugaredLogger{sugar: lm.zapLogger.Named(name).Sugar()}
}

// Sync 刷新缓冲的日志。
func (lm *LoggerManager) Sync() error {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	if lm.zapLogger == nil {
		return nil
	}
	return lm.zapLogger.Sync()
}

// Close 关闭日志管理器。
func (lm *LoggerManager) Close() error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.closed {
		return nil
	}
	lm.closed = true

	if lm.zapLogger != nil {
		// stdout 的 Sync 在部分平台会报错，忽略
		_ = lm.zapLogger.Sync()
	}
	return nil
}

// sugaredLogger 基于 zap.SugaredLogger 的 core.Logger 实现。
type sugaredLogger struct {
	sugar *zap.SugaredLogger
}

func (l *sugaredLogger) Debug(msg string, fields ...any) { l.sugar.Debugw(msg, fields...) }
func (l *sugaredLogger) Info(msg string, fields ...any)  { l.sugar.Infow(msg, fields...) }
func (l *sugaredLogger) Warn(msg string, fields ...any)  { l.sugar.Warnw(msg, fields...) }
func (l *sugaredLogger) Error(msg string, fields ...any) { l.sugar.Errorw(msg, fields...) }
func (l *sugaredLogger) Fatal(msg string, fields ...any) { l.sugar.Fatalw(msg, fields...) }

// noopLogger 管理器关闭后返回的空实现。
type noopLogger struct{}

func (l *noopLogger) Debug(msg string, fields ...any) {}
func (l *noopLogger) Info(msg string, fields ...any)  {}
func (l *noopLogger) Warn(msg string, fields ...any)  {}
func (l *noopLogger) Error(msg string, fields ...any) {}
func (l *noopLogger) Fatal(msg string, fields ...any) {}
