package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Anniext/schemagraph/cache"
	"github.com/Anniext/schemagraph/catalog"
	"github.com/Anniext/schemagraph/config"
	"github.com/Anniext/schemagraph/core"
	"github.com/Anniext/schemagraph/graph"
	"github.com/Anniext/schemagraph/monitor"
	"github.com/Anniext/schemagraph/retriever"
	"github.com/Anniext/schemagraph/wordproc"
)

func main() {
	// 加载配置
	configManager := config.NewManager()
	if err := configManager.Load(getConfigPath()); err != nil {
		log.Fatal("加载配置失败:", err)
	}
	cfg := configManager.GetConfig()

	// 初始化日志
	loggerManager, err := monitor.NewLoggerManager(&cfg.Log)
	if err != nil {
		log.Fatal("初始化日志失败:", err)
	}
	defer loggerManager.Close()
	logger := loggerManager.GetLogger()

	logger.Info("schema 检索引擎启动", "database", cfg.Database.Database, "graph_uri", cfg.Graph.URI)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 目录读取器
	catalogReader, err := catalog.NewMySQLCatalogReader(configManager.DSN(), &cfg.Database, loggerManager.GetNamedLogger("catalog"))
	if err != nil {
		logger.Fatal("初始化目录读取器失败", "error", err)
	}
	defer catalogReader.Close()

	// 图库存储
	graphStore, err := graph.NewNeo4jStore(ctx, &cfg.Graph, loggerManager.GetNamedLogger("graph"), nil)
	if err != nil {
		logger.Fatal("初始化图库失败", "error", err)
	}
	defer graphStore.Close(ctx)

	// 分词器与关键词提取器
	segmenter, err := wordproc.NewSegmenter(cfg.Segmenter.DictPath)
	if err != nil {
		logger.Fatal("初始化分词器失败", "error", err)
	}
	extractor, err := wordproc.NewExtractor(segmenter, cfg.Retrieval.TopKeywords, loggerManager.GetNamedLogger("wordproc"))
	if err != nil {
		logger.Fatal("初始化关键词提取器失败", "error", err)
	}

	// 同义词词典
	synonyms, err := wordproc.NewDictExpander(cfg.Synonym.DictPath)
	if err != nil {
		logger.Fatal("加载同义词词典失败", "error", err)
	}

	// 语义匹配器（可选，未配置 API 密钥时检索退化为词法加同义词匹配）
	var matcher core.SemanticMatcher
	if cfg.Embedding.APIKey != "" {
		embedder, err := wordproc.NewOpenAIEmbedder(&cfg.Embedding)
		if err != nil {
			logger.Fatal("初始化向量编码器失败", "error", err)
		}
		similarityCache := cache.NewMemoryCache(cfg.Cache.MaxEntries, loggerManager.GetNamedLogger("cache"))
		defer similarityCache.Close()

		matcher = wordproc.NewMatcher(embedder, similarityCache, loggerManager.GetNamedLogger("semantic"), &wordproc.MatcherOptions{
			Threshold:        cfg.Retrieval.SimilarityThreshold,
			FailureThreshold: cfg.Embedding.FailureThreshold,
			BreakerCooldown:  cfg.Embedding.BreakerCooldown,
			CacheTTL:         cfg.Cache.SimilarityTTL,
		})
	} else {
		logger.Warn("未配置向量模型密钥，语义匹配已禁用")
	}

	// 构建 schema 图
	builder := retriever.NewBuilder(catalogReader, graphStore, segmenter, loggerManager.GetNamedLogger("builder"))
	if err := builder.Build(ctx, cfg.Database.Database); err != nil {
		logger.Fatal("构建 schema 图失败", "error", err)
	}

	engine := retriever.NewEngine(graphStore, extractor, synonyms, matcher, loggerManager.GetNamedLogger("retriever"), &cfg.Retrieval)

	// 从标准输入逐行读取问题，输出 schema 摘要
	go serveQuestions(ctx, engine, cancel)

	waitForSignal(ctx, cancel, logger)
	logger.Info("schema 检索引擎已关闭")
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	if path := os.Getenv("SCHEMAGRAPH_CONFIG_PATH"); path != "" {
		return path
	}

	defaultPaths := []string{
		"config/schemagraph.yaml",
		"./schemagraph.yaml",
	}
	for _, path := range defaultPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// serveQuestions 逐行读取问题并打印检索结果，输入关闭后退出。
func serveQuestions(ctx context.Context, engine *retriever.Engine, cancel context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		fmt.Println(engine.RetrieveText(ctx, question))
	}
	cancel()
}

// waitForSignal 等待退出信号或输入结束。
func waitForSignal(ctx context.Context, cancel context.CancelFunc, logger core.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("收到退出信号", "signal", sig.String())
		cancel()
	case <-ctx.Done():
	}
}
