package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bombarena/protocol"
)

func newTestServer(t *testing.T) (*httptest.Server, *RoomManager) {
	t.Helper()
	m := newTestManager(t, time.Second)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>bombarena</html>"), 0o644))
	ts := httptest.NewServer(Routes(m, dir))
	t.Cleanup(ts.Close)
	return ts, m
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// readType 读取直到收到指定类型的文本帧，二进制帧跳过
func readType(t *testing.T, c *websocket.Conn, want string) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		mt, data, err := c.ReadMessage()
		require.NoError(t, err, "waiting for %s", want)
		if mt != websocket.TextMessage {
			continue
		}
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == want {
			return msg
		}
	}
}

func createRoom(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	require.NoError(t, c.WriteJSON(map[string]any{"type": "create_room", "maps": []int{0}}))
	msg := readType(t, c, protocol.TypeRoomCreated)
	assert.Equal(t, float64(1), msg["playerId"])
	return msg["roomId"].(string)
}

func TestWebSocketMatchFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	a, b := dial(t, ts, ""), dial(t, ts, "")

	code := createRoom(t, a)
	require.NoError(t, b.WriteJSON(map[string]any{"type": "join_room", "roomId": code}))

	gsA := readType(t, a, protocol.TypeGameStart)
	gsB := readType(t, b, protocol.TypeGameStart)
	assert.Equal(t, float64(1), gsA["playerId"])
	assert.Equal(t, float64(2), gsB["playerId"])
	assert.Equal(t, float64(1), gsA["totalRounds"])

	require.NoError(t, a.WriteJSON(map[string]any{"type": "input", "right": true}))
	for {
		st := readType(t, a, protocol.TypeState)
		p1 := st["players"].(map[string]any)["1"].(map[string]any)
		if p1["x"].(float64) > 16 {
			assert.Equal(t, "right", p1["dir"])
			break
		}
	}

	require.NoError(t, b.Close())
	pd := readType(t, a, protocol.TypePlayerDisconnected)
	assert.Equal(t, float64(2), pd["playerId"])
	over := readType(t, a, protocol.TypeGameOver)
	assert.Equal(t, protocol.ReasonDisconnect, over["reason"])
	assert.Equal(t, float64(1), over["winner"])
	assert.Equal(t, true, over["matchOver"])

	// 比赛结束后同一连接可以直接开新房间
	require.NoError(t, a.WriteJSON(map[string]any{"type": "create_room"}))
	next := readType(t, a, protocol.TypeRoomCreated)
	assert.NotEqual(t, code, next["roomId"])
}

func TestWebSocketIgnoresGarbage(t *testing.T) {
	ts, _ := newTestServer(t)
	a := dial(t, ts, "")

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, a.WriteJSON(map[string]any{"type": "dance"}))
	require.NoError(t, a.WriteJSON(map[string]any{"type": "input", "up": true}))
	code := createRoom(t, a)
	assert.Len(t, code, 6)
}

func TestWebSocketErrors(t *testing.T) {
	ts, _ := newTestServer(t)
	a := dial(t, ts, "")

	require.NoError(t, a.WriteJSON(map[string]any{"type": "join_room", "roomId": "ZZZZZZ"}))
	assert.Equal(t, "Room not found", readType(t, a, protocol.TypeError)["message"])

	require.NoError(t, a.WriteJSON(map[string]any{"type": "create_room", "maps": []int{0, 99}}))
	assert.Equal(t, "Invalid map selection", readType(t, a, protocol.TypeError)["message"])

	createRoom(t, a)
	require.NoError(t, a.WriteJSON(map[string]any{"type": "create_room"}))
	assert.Equal(t, "Already in a room", readType(t, a, protocol.TypeError)["message"])
}

func TestWebSocketMsgpackState(t *testing.T) {
	ts, _ := newTestServer(t)
	a, b := dial(t, ts, "?enc=msgpack"), dial(t, ts, "")

	code := createRoom(t, a)
	require.NoError(t, b.WriteJSON(map[string]any{"type": "join_room", "roomId": code}))
	readType(t, a, protocol.TypeGameStart)

	require.NoError(t, a.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		mt, data, err := a.ReadMessage()
		require.NoError(t, err)
		if mt != websocket.BinaryMessage {
			continue
		}
		var st protocol.State
		require.NoError(t, protocol.Msgpack.Unmarshal(data, &st))
		assert.Equal(t, protocol.TypeState, st.Type)
		assert.Contains(t, st.Players, "1")
		assert.Contains(t, st.Players, "2")
		break
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHTTPEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	status, body = get(t, ts.URL+"/online/ABC123")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "bombarena")

	a := dial(t, ts, "")
	code := createRoom(t, a)

	status, body = get(t, ts.URL+"/admin/rooms")
	assert.Equal(t, http.StatusOK, status)
	var rooms struct {
		Rooms []RoomInfo `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &rooms))
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, code, rooms.Rooms[0].ID)
	assert.Equal(t, "waiting", rooms.Rooms[0].Phase)

	status, body = get(t, ts.URL+"/metrics/"+code)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "tick_count")

	status, _ = get(t, ts.URL+"/metrics/NOPE00")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, code)

	resp, err := http.Post(ts.URL+"/admin/rooms/"+code+"/close", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 房间关闭后连接被服务端断开
	require.NoError(t, a.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := a.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			break
		}
	}

	resp, err = http.Post(ts.URL+"/admin/rooms/"+code+"/close", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
