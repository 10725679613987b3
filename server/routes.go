package server

import (
	"net/http"
	"path/filepath"

	"github.com/matryer/way"
)

// Routes 组装 HTTP 路由：WebSocket、健康检查、监控与管理接口，以及可选的前端静态资源
func Routes(m *RoomManager, staticDir string) http.Handler {
	router := way.NewRouter()
	router.HandleFunc("GET", "/ws", m.HandleWS)
	router.HandleFunc("GET", "/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET", "/metrics", m.HandleMetrics)
	router.HandleFunc("GET", "/metrics/:room", m.HandleRoomMetrics)
	router.HandleFunc("GET", "/admin/rooms", m.HandleAdminRooms)
	router.HandleFunc("POST", "/admin/rooms/:room/close", m.HandleAdminClose)

	if staticDir != "" {
		index := filepath.Join(staticDir, "index.html")
		// 前端路由：分享链接 /online/ABC123 也返回入口页
		router.HandleFunc("GET", "/online/:gameId", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, index)
		})
		router.Handle("GET", "/...", http.FileServer(http.Dir(staticDir)))
	}
	return router
}
