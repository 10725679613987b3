package game

import (
	"math"

	"bombarena/protocol"
)

// Direction 朝向或移动方向
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "none"
	}
}

// fireName 是客户端选择火焰贴图用的方向标签
func (d Direction) fireName() string {
	switch d {
	case DirUp:
		return "top"
	case DirDown:
		return "bottom"
	case DirLeft, DirRight:
		return d.String()
	default:
		return "none"
	}
}

// Input 单个玩家锁存的按键状态
type Input = protocol.Input

// PlayerID 取值 1 或 2
type PlayerID int

// Opponent 返回对手座位
func (id PlayerID) Opponent() PlayerID {
	if id == 1 {
		return 2
	}
	return 1
}

// Player 棋盘上的角色，X、Y 为身体左上角的像素坐标
type Player struct {
	ID        PlayerID
	X, Y      float64
	Dir       Direction
	Alive     bool
	BombPower int
	BombsMax  int

	Input    Input
	prevBomb bool

	// Veto 下一 Tick 禁止的移动方向
	Veto Direction
	// Overlapping 身体压着的炸弹，对该玩家不算实心
	Overlapping map[BombID]struct{}
}

func newPlayer(id PlayerID, tileX, tileY int) *Player {
	return &Player{
		ID:          id,
		X:           float64(tileX * TileSize),
		Y:           float64(tileY * TileSize),
		Dir:         DirDown,
		Alive:       true,
		BombPower:   StartBombPower,
		BombsMax:    StartBombsMax,
		Overlapping: make(map[BombID]struct{}),
	}
}

func (p *Player) body() rect {
	return rect{l: p.X, t: p.Y, r: p.X + BodyW, b: p.Y + BodyH}
}

// Center 身体中心（像素）
func (p *Player) Center() (float64, float64) {
	return p.X + BodyW/2.0, p.Y + BodyH/2.0
}

// BombID 房间内炸弹编号，0 表示无
type BombID int

type Bomb struct {
	ID           BombID
	TileX, TileY int
	Owner        PlayerID
	Fuse         int // 距爆炸剩余 Tick
	Power        int // 放置时定格
	Exploded     bool
	Removed      bool
}

type FireType int

const (
	FireCenter FireType = iota
	FireLine
	FireTail
)

func (f FireType) String() string {
	switch f {
	case FireLine:
		return "line"
	case FireTail:
		return "tail"
	default:
		return "center"
	}
}

// Fire 一格火焰；Type 与 Dir 只给客户端用
type Fire struct {
	TileX, TileY int
	Life         int
	Type         FireType
	Dir          Direction
}

type BonusType int

const (
	BonusNone BonusType = iota
	BonusPower
	BonusCount
)

func (b BonusType) String() string {
	switch b {
	case BonusPower:
		return "bonus-bomb-power"
	case BonusCount:
		return "bonus-bomb-count"
	default:
		return ""
	}
}

// Bonus 已露出、躺在地面上的道具
type Bonus struct {
	TileX, TileY int
	Type         BonusType
}

type rect struct{ l, t, r, b float64 }

func (a rect) overlaps(o rect) bool {
	return a.l < o.r && a.r > o.l && a.t < o.b && a.b > o.t
}

func (a rect) shrink(m float64) rect {
	return rect{l: a.l + m, t: a.t + m, r: a.r - m, b: a.b - m}
}

func tileRect(x, y int) rect {
	l, t := float64(x*TileSize), float64(y*TileSize)
	return rect{l: l, t: t, r: l + TileSize, b: t + TileSize}
}

// tileSpan 返回 [pos, pos+size) 覆盖的首末格下标
func tileSpan(pos, size float64) (int, int) {
	return int(math.Floor(pos / TileSize)), int(math.Ceil((pos+size)/TileSize)) - 1
}

func tileOf(px float64) int { return int(math.Floor(px / TileSize)) }
