// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Corphon/SweetAffection/internal/api"
	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/di"
	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/services"
	"github.com/Corphon/SweetAffection/internal/storage"
	"github.com/Corphon/SweetAffection/internal/utils"
)

const shutdownTimeout = 30 * time.Second

// httpServer 便于测试替换
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 应用实例：配置、容器、服务与HTTP服务器
type App struct {
	config    *config.Config
	container *di.Container
	logger    *utils.Logger

	game   *services.GameService
	llm    *services.LLMService
	store  storage.SaveStore
	router *api.Router
	server httpServer

	stopChan  chan os.Signal
	closeOnce sync.Once
}

// Option 应用选项
type Option func(*App)

// WithLogger 使用指定日志器，不再写入日志文件
func WithLogger(logger *utils.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithContainer 使用指定容器，默认为全局容器
func WithContainer(c *di.Container) Option {
	return func(a *App) { a.container = c }
}

// New 按依赖顺序初始化所有服务
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	a := &App{
		config:   cfg,
		stopChan: make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.container == nil {
		a.container = di.GetContainer()
	}
	if a.logger == nil {
		if err := initLogger(cfg); err != nil {
			return nil, fmt.Errorf("初始化日志系统失败: %w", err)
		}
		a.logger = utils.GetLogger()
	}

	if err := a.initServices(); err != nil {
		a.Close()
		return nil, err
	}

	a.router = api.SetupRouter(api.RouterDeps{
		Game:      a.game,
		LLM:       a.llm,
		Logger:    a.logger,
		DebugMode: cfg.DebugMode,
	})
	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// initLogger 日志写入 LogDir 下按日期命名的文件
func initLogger(cfg *config.Config) error {
	logger := utils.GetLogger()
	logger.SetLogLevel(utils.ParseLevel(cfg.LogLevel))
	if cfg.LogDir == "" {
		return nil
	}
	logFile := filepath.Join(cfg.LogDir, fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

func (a *App) initServices() error {
	cfg := a.config
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	affectionCfg := config.LoadAffectionConfig(cfg.AffectionConfigPath)
	lex := lexicon.Load(cfg.LexiconPath)
	a.container.Register(di.ServiceConfig, cfg)
	a.container.Register(di.ServiceAffection, affectionCfg)
	a.container.Register(di.ServiceLexicon, lex)

	store, err := storage.NewSaveStore(cfg)
	if err != nil {
		return fmt.Errorf("初始化存档后端失败: %w", err)
	}
	a.store = store
	a.container.Register(di.ServiceStore, store)
	a.logger.Info("✅ 存档后端就绪", map[string]interface{}{"backend": cfg.SaveBackend})

	a.llm = services.NewLLMService(cfg, a.logger)
	a.container.Register(di.ServiceLLM, a.llm)

	a.game = services.NewGameService(services.GameDeps{
		Config:    affectionCfg,
		Lexicon:   lex,
		Generator: a.llm,
		Store:     store,
		Logger:    a.logger,
		Seed:      cfg.RandomSeed,
	})
	a.container.Register(di.ServiceGame, a.game)
	a.container.Register(di.ServiceMetrics, a.game.Metrics())

	a.logger.Info("✅ 所有服务初始化完成", map[string]interface{}{
		"services":  a.container.GetNames(),
		"llm_state": a.llm.GetReadyState(),
	})
	return nil
}

// Handler HTTP处理器
func (a *App) Handler() http.Handler {
	return a.router
}

// Game 游戏服务
func (a *App) Game() *services.GameService {
	return a.game
}

// GetConfig 获取应用配置
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetDIContainer 获取依赖注入容器
func (a *App) GetDIContainer() *di.Container {
	return a.container
}

// IsDebugMode 是否调试模式
func (a *App) IsDebugMode() bool {
	return a != nil && a.config != nil && a.config.DebugMode
}

// Run 启动服务器，收到 SIGINT/SIGTERM 后优雅关闭
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("🌐 服务器启动", map[string]interface{}{"port": a.config.Port})
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)

	select {
	case err := <-errChan:
		a.Close()
		return fmt.Errorf("启动服务器失败: %w", err)
	case <-a.stopChan:
	}

	a.logger.Info("🛑 正在关闭服务器...", nil)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.Close()
	if err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}
	a.logger.Info("✅ 服务器优雅关闭完成", nil)
	return nil
}

// Close 释放路由、会话与存档后端
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	if a.router != nil {
		a.router.Close()
	}
	if a.game != nil {
		a.game.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("关闭存档后端失败", map[string]interface{}{"error": err.Error()})
		}
	}
}
