package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bombarena/assets"
	"bombarena/config"
	"bombarena/game"
	"bombarena/levelmap"
	"bombarena/server"
)

// Bombarena 入口：加载配置与关卡，启动 HTTP + WebSocket 服务
func main() {
	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.LogFile); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	var levelFS fs.FS = assets.FS
	if cfg.MapsDir != "" {
		levelFS = os.DirFS(cfg.MapsDir)
	}
	catalog, err := levelmap.NewCatalog(levelFS, levelmap.DefaultOptions())
	if err != nil {
		server.Log.Fatalf("level catalog: %v", err)
	}
	// 关卡文件有误属于配置错误：启动时全部校验
	if err := catalog.Validate(); err != nil {
		server.Log.Fatalf("invalid levels: %v", err)
	}

	rules := game.DefaultRules()
	rules.TickRate = cfg.TickRate
	rules.SettleDelay = cfg.SettleDelay
	rules.RoundDelay = cfg.RoundDelay

	rm := server.NewRoomManager(catalog, server.Options{
		Rules:  rules,
		Linger: cfg.RoomLinger,
		Seed:   cfg.Seed,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: server.Routes(rm, cfg.StaticDir)}

	go func() {
		server.Log.Infof("Bombarena listening on %s with %d levels", cfg.Addr, catalog.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("http shutdown: %v", err)
	}
	rm.Shutdown()
}
