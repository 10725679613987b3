package server

import (
	"net/http"

	"bombarena/game"
	"bombarena/protocol"
)

// session 是单个连接的读侧状态，只在读协程中访问
type session struct {
	m    *RoomManager
	conn Conn
	room *Room
	seat game.PlayerID
}

// HandleWS WebSocket 接入：/ws，可选 ?enc=msgpack 使 state 帧以二进制下发
func (m *RoomManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "remote", r.RemoteAddr, "err", err)
		return
	}
	codec := protocol.CodecByName(r.URL.Query().Get("enc"))
	client := NewClientConn(ws, codec)
	Log.Infow("client connected", "conn", client.ID(), "remote", r.RemoteAddr, "enc", codec.Name())

	s := &session{m: m, conn: client}
	go client.writePump()
	go func() {
		client.readPump(s.handle, s.dropped)
		s.leave()
	}()
}

func (s *session) handle(payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		s.dropped()
		Log.Debugw("dropped frame", "conn", s.conn.ID(), "err", err)
		return
	}
	switch m := msg.(type) {
	case protocol.CreateRoom:
		s.create(m)
	case protocol.JoinRoom:
		s.join(m)
	case protocol.Input:
		if s.room != nil {
			s.room.OnInput(s.seat, m)
		}
	}
}

func (s *session) create(m protocol.CreateRoom) {
	if !s.release() {
		s.fail(ErrAlreadyInRoom)
		return
	}
	room, err := s.m.CreateRoom(s.conn, m.Queue())
	if err != nil {
		s.fail(err)
		return
	}
	s.room, s.seat = room, 1
}

func (s *session) join(m protocol.JoinRoom) {
	if !s.release() {
		s.fail(ErrAlreadyInRoom)
		return
	}
	room, seat, err := s.m.JoinRoom(m.RoomID, s.conn)
	if err != nil {
		s.fail(err)
		return
	}
	s.room, s.seat = room, seat
}

// release 放开已结束（或已回收）的房间；仍在进行中则返回 false
func (s *session) release() bool {
	if s.room == nil {
		return true
	}
	if !s.room.Detach(s.seat, s.conn) {
		return false
	}
	s.room, s.seat = nil, 0
	return true
}

func (s *session) fail(err error) {
	Log.Infow("request rejected", "conn", s.conn.ID(), "err", err)
	s.conn.Send(protocol.NewError(clientMessage(err)))
}

func (s *session) dropped() {
	if s.room != nil {
		s.room.metrics.IncFrameDropped()
	}
}

// leave 读协程退出：通知房间在 Tick 线程中处理断线
func (s *session) leave() {
	Log.Infow("client disconnected", "conn", s.conn.ID())
	if s.room != nil {
		s.room.RequestLeave(s.seat)
	}
	s.conn.Close()
}
