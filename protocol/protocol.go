// Package protocol 定义与游戏客户端交换的消息帧
package protocol

// 客户端 -> 服务端
const (
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeInput      = "input"
)

// 服务端 -> 客户端
const (
	TypeRoomCreated        = "room_created"
	TypeGameStart          = "game_start"
	TypeRoundStart         = "round_start"
	TypeState              = "state"
	TypeGameOver           = "game_over"
	TypePlayerDisconnected = "player_disconnected"
	TypeError              = "error"
)

// game_over 原因
const (
	ReasonKill       = "kill"
	ReasonDraw       = "draw"
	ReasonDisconnect = "disconnect"
)

// CreateRoom 请求新房间，按给定顺序进行各关。
// Level 是旧客户端发送的单关形式
type CreateRoom struct {
	Maps  []int `json:"maps"`
	Level *int  `json:"level,omitempty"`
}

// Queue 返回请求的关卡队列，默认第 0 关
func (c CreateRoom) Queue() []int {
	if len(c.Maps) > 0 {
		return c.Maps
	}
	if c.Level != nil {
		return []int{*c.Level}
	}
	return []int{0}
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

// Input 客户端当前完整的按键状态，不是增量
type Input struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Bomb  bool `json:"bomb"`
}

// Scores 累计比分
type Scores struct {
	P1    int `json:"1"`
	P2    int `json:"2"`
	Draws int `json:"draws"`
}

type RoomCreated struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	PlayerID int    `json:"playerId"`
}

type GameStart struct {
	Type        string            `json:"type"`
	PlayerID    int               `json:"playerId"`
	Level       int               `json:"level"`
	Bonuses     map[string]string `json:"bonuses"`
	Round       int               `json:"round"`
	TotalRounds int               `json:"totalRounds"`
}

type RoundStart struct {
	Type        string            `json:"type"`
	Level       int               `json:"level"`
	Bonuses     map[string]string `json:"bonuses"`
	Round       int               `json:"round"`
	TotalRounds int               `json:"totalRounds"`
	Scores      Scores            `json:"scores"`
}

type GameOver struct {
	Type        string `json:"type"`
	Winner      int    `json:"winner"`
	Reason      string `json:"reason"`
	Scores      Scores `json:"scores"`
	Round       int    `json:"round"`
	TotalRounds int    `json:"totalRounds"`
	MatchOver   bool   `json:"matchOver"`
}

type PlayerDisconnected struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(msg string) Error {
	return Error{Type: TypeError, Message: msg}
}
