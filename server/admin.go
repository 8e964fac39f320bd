package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Admin 管理与监控接口：通过注册表句柄读写，不碰包级全局
type Admin struct {
	registry *Registry
	metrics  *RelayMetrics
}

func NewAdmin(reg *Registry, metrics *RelayMetrics) *Admin {
	return &Admin{registry: reg, metrics: metrics}
}

// HandlePlayers 输出当前注册表快照
// GET /admin/players
func (a *Admin) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	players, ok := a.queryPlayers()
	if !ok {
		http.Error(w, "registry unavailable", http.StatusServiceUnavailable)
		return
	}
	payload := map[string]any{
		"count":   len(players),
		"players": players,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// HandleKick 强制断开某个连接：等价于传输层上报 disconnect，
// 注册表会删档并向剩余连接广播 playerDisconnected
// POST /admin/kick?id=<connection-id>
func (a *Admin) HandleKick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id query", http.StatusBadRequest)
		return
	}
	a.registry.Inbox <- Disconnect{ID: PlayerID(id)}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

// HandleMetrics 输出中继运行指标
// GET /metrics
func (a *Admin) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	players, _ := a.queryPlayers()
	payload := map[string]any{
		"players": len(players),
		"metrics": a.metrics.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// queryPlayers 经事件循环同步取快照；循环不在跑时超时兜底
func (a *Admin) queryPlayers() ([]PlayerState, bool) {
	reply := make(chan []PlayerState, 1)
	select {
	case a.registry.Inbox <- Query{Reply: reply}:
	case <-time.After(time.Second):
		return nil, false
	}
	select {
	case players := <-reply:
		return players, true
	case <-time.After(time.Second):
		return nil, false
	}
}
