package server

import (
	"encoding/json"
	"net/http"

	"github.com/matryer/way"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminRooms 列出所有房间
// GET /admin/rooms
func (m *RoomManager) HandleAdminRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": m.Rooms()})
}

// HandleAdminClose 立即关闭房间，在线玩家会被断开
// POST /admin/rooms/:room/close
func (m *RoomManager) HandleAdminClose(w http.ResponseWriter, r *http.Request) {
	code := way.Param(r.Context(), "room")
	if err := m.CloseRoom(code); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleMetrics 输出所有房间的运行指标
// GET /metrics
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	payload := make(map[string]any, len(m.rooms))
	for code, room := range m.rooms {
		payload[code] = room.metrics.Snapshot()
	}
	m.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"rooms": payload})
}

// HandleRoomMetrics 输出指定房间的运行指标
// GET /metrics/:room
func (m *RoomManager) HandleRoomMetrics(w http.ResponseWriter, r *http.Request) {
	code := way.Param(r.Context(), "room")
	room := m.Room(code)
	if room == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": ErrRoomNotFound.Error()})
		return
	}
	info := room.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    code,
		"phase":   info.Phase,
		"round":   info.Round,
		"metrics": room.metrics.Snapshot(),
	})
}
