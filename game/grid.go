package game

import "bombarena/levelmap"

// Tile 单格在本局内的可变状态。实体引用
// 存的是编号，不是指针
type Tile struct {
	X, Y   int
	Kind   levelmap.Kind
	Region int

	HiddenBonus BonusType // 藏在砖下，露出后清空
	Bonus       BonusType // 已露出的道具
	Bomb        BombID    // 空为 0
	OnFire      bool
}

// Blocks 格子本身是否阻挡移动（不看炸弹）
func (t *Tile) Blocks() bool { return t.Kind.BlocksMovement() }

// Grid 按行存储的矩形格子数组
type Grid struct {
	Width, Height int
	tiles         []Tile
}

// NewGrid 按关卡布局复制出一套新的可变格子
func NewGrid(lvl *levelmap.Level) *Grid {
	g := &Grid{Width: lvl.Width, Height: lvl.Height, tiles: make([]Tile, len(lvl.Cells))}
	for i, c := range lvl.Cells {
		g.tiles[i] = Tile{X: i % lvl.Width, Y: i / lvl.Width, Kind: c.Kind, Region: c.Region}
	}
	return g
}

// At 返回 (x, y) 处的格子，越界返回 nil。nil 格子不阻挡，
// 也不能放炸弹或道具
func (g *Grid) At(x, y int) *Tile {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return nil
	}
	return &g.tiles[y*g.Width+x]
}

// Each 按行遍历格子
func (g *Grid) Each(fn func(t *Tile)) {
	for i := range g.tiles {
		fn(&g.tiles[i])
	}
}
