package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/wander-backend-go/internal/api"
	"github.com/jengzang/wander-backend-go/internal/app"
	"github.com/jengzang/wander-backend-go/internal/config"
	"github.com/jengzang/wander-backend-go/internal/handler"
	"github.com/jengzang/wander-backend-go/internal/logger"
	"github.com/jengzang/wander-backend-go/internal/middleware"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("config_load_failed", "err", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfg.JWTSecret == "your-secret-key-change-in-production" && cfg.AuthMode == middleware.AuthModeJWT {
		log.Warn("jwt_secret_default", "hint", "set JWT_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化存储与服务
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error("app_init_failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	go limiter.Run(ctx.Done())

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(cfg, api.Handlers{
		Fix:   handler.NewFixHandler(a.Ingest),
		Cell:  handler.NewCellHandler(a.CellSvc),
		Stats: handler.NewStatsHandler(a.StatsSvc, a.Catalog),
	}, limiter)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// 启动服务器
	go func() {
		log.Info("server_starting", "addr", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", "err", err)
	}
}
