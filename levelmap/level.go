// Package levelmap 把关卡地图文件解析为格子与出生点
package levelmap

import (
	"errors"
	"fmt"
)

const (
	// TileSize 单格边长（像素）
	TileSize = 16

	DefaultWidth  = 15
	DefaultHeight = 13
)

var (
	ErrInvalidLevel = errors.New("invalid level")
	ErrUnknownLevel = errors.New("unknown level")
)

// Kind 格子类别，决定移动与爆炸行为
type Kind int

const (
	Ground Kind = iota
	Wall
	Brick
)

func (k Kind) String() string {
	switch k {
	case Wall:
		return "wall"
	case Brick:
		return "bricks"
	default:
		return "ground"
	}
}

// BlocksMovement 玩家是否与该格碰撞
func (k Kind) BlocksMovement() bool { return k != Ground }

// Destructible 火焰能否把该格炸成空地
func (k Kind) Destructible() bool { return k == Brick }

// Cell 单格的静态描述
type Cell struct {
	Kind Kind
	// Region 选择破坏动画用的图块集，模拟不关心
	Region int
}

// Spawn 具名的玩家出生点（格子坐标）
type Spawn struct {
	Name string
	X, Y int
}

// Level 解析后的不可变布局，Cells 按行存储
type Level struct {
	Key    string
	Width  int
	Height int
	Cells  []Cell
	Spawns []Spawn
}

// Cell 返回 (x, y) 处的格子，越界时 ok 为 false
func (l *Level) Cell(x, y int) (Cell, bool) {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return Cell{}, false
	}
	return l.Cells[y*l.Width+x], true
}

func invalidf(key, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidLevel, key, fmt.Sprintf(format, args...))
}
