package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TIANLI0/CutoutStudio/config"
	"github.com/TIANLI0/CutoutStudio/handler"
	"github.com/TIANLI0/CutoutStudio/middleware"
	"github.com/TIANLI0/CutoutStudio/service"
	"github.com/TIANLI0/CutoutStudio/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting CutoutStudio server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	ctx := context.Background()

	store, closeStore := newStore(ctx, cfg)
	defer closeStore()

	extractor, err := newExtractor(ctx, cfg)
	if err != nil {
		utils.Logger.Fatal("failed to initialize extractor", zap.Error(err))
	}

	editor := service.NewEditor(store, extractor)
	defer editor.Close()

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.MaxMultipartMemory = cfg.Upload.MaxSize

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	// API路由
	handler.RegisterRoutes(r.Group("/api/v1"), cfg, editor)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Error("server shutdown failed", zap.Error(err))
	}
}

// newStore redis 不可用时退回内存存储
func newStore(ctx context.Context, cfg *config.Config) (service.ProjectStore, func()) {
	if cfg.Store.Backend != "redis" {
		utils.Logger.Info("using in-memory project history")
		return service.NewMemoryStore(cfg.Store.HistoryLimit), func() {}
	}

	redisStore := service.NewRedisStore(&cfg.Redis, cfg.Store.HistoryLimit)
	if err := redisStore.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, using in-memory history", zap.Error(err))
		_ = redisStore.Close()
		return service.NewMemoryStore(cfg.Store.HistoryLimit), func() {}
	}
	utils.Logger.Info("redis connected successfully")
	return redisStore, func() { _ = redisStore.Close() }
}

func newExtractor(ctx context.Context, cfg *config.Config) (service.Extractor, error) {
	switch cfg.Extraction.Provider {
	case "grabcut":
		utils.Logger.Info("using local grabcut extraction")
		return service.NewGrabCutExtractor(&cfg.GrabCut), nil
	case "gemini", "":
		utils.Logger.Info("using gemini extraction", zap.String("model", cfg.Extraction.Model))
		return service.NewGeminiExtractor(ctx, &cfg.Extraction)
	default:
		return nil, fmt.Errorf("unknown extraction provider %q", cfg.Extraction.Provider)
	}
}
