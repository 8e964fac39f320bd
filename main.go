package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"starrelay/server"
)

// StarRelay 入口：启动 HTTP + WebSocket 服务，并初始化会话注册表
func main() {
	var (
		addr    string
		cfgPath string
	)
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides config)")
	flag.StringVar(&cfgPath, "config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	// 使用第三方 zap 日志库写入 app.log（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	metrics := &server.RelayMetrics{}
	registry := server.NewRegistry(server.Log, metrics)
	go registry.Run()

	gateway := server.NewGateway(cfg, registry, server.Log)
	admin := server.NewAdmin(registry, metrics)

	stats := server.NewStatsReporter(registry, metrics, server.Log, cfg.StatsInterval())
	stats.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.HandleWS)
	// 前后端分离：将 / 映射到 web 目录的静态资源（3D 客户端）
	mux.Handle("/", http.FileServer(http.Dir(cfg.WebDir)))
	// 管理与监控接口
	mux.HandleFunc("/admin/players", admin.HandlePlayers)
	mux.HandleFunc("/admin/kick", admin.HandleKick)
	mux.HandleFunc("/metrics", admin.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		server.Log.Infof("StarRelay listening on %s; open http://localhost%v/", cfg.Addr, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	stats.Stop()
	registry.Stop()
}
