// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"geocoin/internal/api"
	"geocoin/internal/config"
	"geocoin/internal/game"
	"geocoin/internal/geoip"
	"geocoin/internal/logger"
	"geocoin/internal/metrics"
	"geocoin/internal/middleware"
	"geocoin/internal/store"
	"geocoin/internal/utils"
	"geocoin/internal/world"
)

func main() {
	config.LoadDotEnv()
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg, err := config.Parse()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_ok", "api_base", cfg.APIBase, "backend", cfg.StoreBackend, "radius", cfg.Radius, "tile_width", cfg.TileWidth)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, closeStore, err := store.OpenOrMemory(ctx, cfg.Store())
	if err != nil {
		l.Error("store_open_error", "err", err)
		os.Exit(1)
	}
	defer closeStore()
	l.Info("store_open_ok", "backend", mgr.Backend())

	// 定位源为可选项：未配置或打开失败时 /locate 返回 501
	var locator game.Locator
	if loc, err := geoip.Open(cfg.GeoIPPath); err != nil {
		l.Warn("geoip_open_error", "err", err)
	} else if loc != nil {
		defer loc.Close()
		locator = loc
	}

	svc := game.New(world.NewBoard(cfg.World()), mgr, cfg.Start(), locator)
	if err := svc.Start(ctx); err != nil {
		l.Error("game_start_error", "err", err)
		os.Exit(1)
	}

	apiBase := "/" + strings.Trim(cfg.APIBase, "/")
	r := chi.NewRouter()
	r.Use(logger.AccessMiddleware(l))
	if cfg.RateLimitEnabled {
		r.Use(middleware.RateLimit(cfg.RateLimitQPS))
	}
	r.Handle(apiBase+"/metrics", metrics.Handler())
	r.Mount(apiBase, api.BuildRoutes(svc))

	s := &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Persist(shutdownCtx); err != nil {
			l.Warn("final_persist_error", "err", err)
		}
		_ = s.Shutdown(shutdownCtx)
	}()

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "geocoin.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}
