// 本文件实现了配置管理器，负责加载、解析、验证和管理应用配置。
// 主要功能：
// 1. 配置文件和环境变量的加载与优先级处理（环境变量优先）。
// 2. 各模块默认配置值的设置，保证系统可用性。
// 3. 配置解析到结构体，便于类型安全访问。
// 4. 配置验证，防止错误配置导致系统异常。
// 5. 基于 fsnotify 的配置文件热更新和变更通知。

package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Anniext/schemagraph/core"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeEvent 配置变更事件。
type ChangeEvent struct {
	Path string    `json:"path"` // 变更的配置文件路径
	Time time.Time `json:"time"` // 变更时间
}

// ChangeHandler 配置变更处理函数。
type ChangeHandler func(event ChangeEvent) error

// Manager 配置管理器，封装 viper 并持有解析后的配置结构体。
type Manager struct {
	config      *core.Config  // 解析后的配置结构体，供业务使用
	viper       *viper.Viper  // viper 实例，负责底层配置读取
	configPath  string        // 配置文件路径
	handlers    []ChangeHandler
	mu          sync.RWMutex
	watchCancel context.CancelFunc
}

// NewManager 创建配置管理器实例，初始化 viper。
func NewManager() *Manager {
	return &Manager{
		viper: viper.New(),
	}
}

// Load 加载配置文件和环境变量，并解析到结构体。
// configPath 指定配置文件路径，若为空则按默认路径查找。
func (m *Manager) Load(configPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if configPath != "" {
		m.configPath = configPath
		m.viper.SetConfigFile(configPath)
	} else {
		m.viper.SetConfigName("schemagraph")
		m.viper.SetConfigType("yaml")
		m.viper.AddConfigPath("./config")
		m.viper.AddConfigPath(".")
		m.configPath = "config/schemagraph.yaml"
	}

	// 环境变量前缀，自动映射，如 SCHEMAGRAPH_DATABASE_HOST
	m.viper.SetEnvPrefix("SCHEMAGRAPH")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时使用默认值和环境变量
	}

	config := &core.Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}

	if err := m.validateConfig(config); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults 设置各模块的默认配置值。
func (m *Manager) setDefaults() {
	// 目录数据库配置
	m.viper.SetDefault("database.host", "localhost")
	m.viper.SetDefault("database.port", 3306)
	m.viper.SetDefault("database.username", "root")
	m.viper.SetDefault("database.password", "")
	m.viper.SetDefault("database.charset", "utf8mb4")
	m.viper.SetDefault("database.max_open_conns", 10)
	m.viper.SetDefault("database.max_idle_conns", 5)
	m.viper.SetDefault("database.conn_max_lifetime", "1h")

	// 图数据库配置
	m.viper.SetDefault("graph.uri", "bolt://localhost:7687")
	m.viper.SetDefault("graph.username", "neo4j")
	m.viper.SetDefault("graph.password", "password")

	// 同义词词典配置
	m.viper.SetDefault("synonym.dict_path", "config/synonyms.txt")

	// 向量模型配置
	m.viper.SetDefault("embedding.provider", "openai")
	m.viper.SetDefault("embedding.model", "text-embedding-3-small")
	m.viper.SetDefault("embedding.timeout", "10s")
	m.viper.SetDefault("embedding.failure_threshold", 3)
	m.viper.SetDefault("embedding.breaker_cooldown", "1m")

	// 检索流程配置
	m.viper.SetDefault("retrieval.top_keywords", 5)
	m.viper.SetDefault("retrieval.similarity_threshold", 0.7)
	m.viper.SetDefault("retrieval.timeout", "30s")

	// 相似度缓存配置
	m.viper.SetDefault("cache.similarity_ttl", "1h")
	m.viper.SetDefault("cache.max_entries", 10000)

	// 日志配置
	m.viper.SetDefault("log.level", "info")
	m.viper.SetDefault("log.format", "json")
	m.viper.SetDefault("log.output", "stdout")
	m.viper.SetDefault("log.file_path", "logs/schemagraph.log")
	m.viper.SetDefault("log.max_size", 100)
	m.viper.SetDefault("log.max_backups", 3)
	m.viper.SetDefault("log.max_age", 7)
}

// validateConfig 验证配置，确保必需项存在且合法。
func (m *Manager) validateConfig(config *core.Config) error {
	if config.Database.Host == "" {
		return core.ErrMissingDatabaseConfig.WithDetails(map[string]any{"field": "database.host"})
	}
	if config.Database.Username == "" {
		return core.ErrMissingDatabaseConfig.WithDetails(map[string]any{"field": "database.username"})
	}
	if config.Database.Database == "" {
		return core.ErrMissingDatabaseConfig.WithDetails(map[string]any{"field": "database.database"})
	}
	if config.Database.Port <= 0 || config.Database.Port > 65535 {
		return fmt.Errorf("无效的数据库端口: %d", config.Database.Port)
	}

	if config.Graph.URI == "" {
		return core.ErrMissingGraphConfig.WithDetails(map[string]any{"field": "graph.uri"})
	}
	if config.Graph.Username == "" || config.Graph.Password == "" {
		return core.ErrMissingGraphConfig.WithDetails(map[string]any{"field": "graph.username/password"})
	}

	if config.Retrieval.TopKeywords <= 0 {
		return fmt.Errorf("无效的关键词数量: %d", config.Retrieval.TopKeywords)
	}
	if config.Retrieval.SimilarityThreshold <= 0 || config.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("无效的相似度阈值: %f", config.Retrieval.SimilarityThreshold)
	}

	return nil
}

// GetConfig 获取解析后的配置。
func (m *Manager) GetConfig() *core.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// DSN 生成 MySQL 连接串。
func (m *Manager) DSN() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	db := m.config.Database
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.Charset)
}

// OnChange 注册配置变更处理器。
func (m *Manager) OnChange(handler ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Watch 监听配置文件变更并重新加载。
func (m *Manager) Watch(logger core.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}

	if err := watcher.Add(m.configPath); err != nil {
		watcher.Close()
		return fmt.Errorf("监听配置文件失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.watchCancel = cancel
	m.mu.Unlock()

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				if err := m.Load(m.configPath); err != nil {
					logger.Warn("配置热更新失败，保留旧配置", "path", m.configPath, "error", err)
					continue
				}

				logger.Info("配置已热更新", "path", m.configPath)
				m.notifyHandlers(ChangeEvent{Path: m.configPath, Time: time.Now()}, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("配置监听出错", "error", err)
			}
		}
	}()

	return nil
}

// notifyHandlers 通知所有变更处理器。
func (m *Manager) notifyHandlers(event ChangeEvent, logger core.Logger) {
	m.mu.RLock()
	handlers := make([]ChangeHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			logger.Warn("配置变更处理器执行失败", "error", err)
		}
	}
}

// StopWatch 停止配置监听。
func (m *Manager) StopWatch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
}
