package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"bombarena/game"
	"bombarena/protocol"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrRoomFinished  = errors.New("game already finished")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrInvalidMaps   = errors.New("invalid map selection")
)

// clientMessage 将容量类错误映射为发给客户端的 error 文案
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrRoomFinished):
		return "Game already finished"
	case errors.Is(err, ErrAlreadyInRoom):
		return "Already in a room"
	case errors.Is(err, ErrInvalidMaps):
		return "Invalid map selection"
	}
	return "Internal error"
}

// LevelCatalog 是房间可选的关卡集合
type LevelCatalog interface {
	game.LevelSource
	Len() int
}

// Options 是每个新房间共用的参数
type Options struct {
	Rules  game.Rules
	Linger time.Duration
	// Seed 为 0 时每个房间用当前时间做种子
	Seed int64
}

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	levels LevelCatalog
	opts   Options
}

func NewRoomManager(levels LevelCatalog, opts Options) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		levels: levels,
		opts:   opts,
	}
}

// CreateRoom 校验关卡队列，生成唯一房间码，creator 坐 1 号位并收到 room_created
func (m *RoomManager) CreateRoom(creator Conn, queue []int) (*Room, error) {
	if len(queue) == 0 {
		return nil, ErrInvalidMaps
	}
	for _, idx := range queue {
		if idx < 0 || idx >= m.levels.Len() {
			return nil, fmt.Errorf("%w: level %d", ErrInvalidMaps, idx)
		}
	}
	seed := m.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	code := generateCode(6)
	for m.rooms[code] != nil {
		code = generateCode(6)
	}
	r, err := newRoom(code, m.opts, m.levels, queue, seed, creator)
	if err != nil {
		Log.Errorw("room setup failed", "room", code, "levels", queue, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidMaps, err)
	}
	r.OnClose = m.removeRoom
	m.rooms[code] = r
	// 先入队 room_created，再启动房间协程，保证它是房主收到的第一条消息
	creator.Send(protocol.RoomCreated{Type: protocol.TypeRoomCreated, RoomID: code, PlayerID: 1})
	r.Start()
	Log.Infow("room created", "room", code, "conn", creator.ID(), "levels", queue, "seed", seed)
	return r, nil
}

// JoinRoom 把 conn 放进房间的 2 号位
func (m *RoomManager) JoinRoom(code string, conn Conn) (*Room, game.PlayerID, error) {
	r := m.Room(strings.ToUpper(strings.TrimSpace(code)))
	if r == nil {
		return nil, 0, ErrRoomNotFound
	}
	seat, err := r.Join(conn)
	if err != nil {
		return nil, 0, err
	}
	return r, seat, nil
}

func (m *RoomManager) Room(code string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[code]
}

// Rooms 按创建时间返回所有房间摘要
func (m *RoomManager) Rooms() []RoomInfo {
	m.mu.RLock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CloseRoom 立即关闭房间（管理操作）
func (m *RoomManager) CloseRoom(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	delete(m.rooms, code)
	r.Stop()
	Log.Infow("room closed by admin", "room", code)
	return nil
}

// Shutdown 停止所有房间
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()
	for _, r := range rooms {
		r.Stop()
	}
	for _, r := range rooms {
		<-r.Done()
	}
}

func (m *RoomManager) removeRoom(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[code]; ok {
		r.Stop()
		delete(m.rooms, code)
	}
}

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateCode(n int) string {
	b := make([]byte, n)
	n64 := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, n64)
		if err != nil {
			idx = big.NewInt(0)
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
