package game

import (
	"math"

	"bombarena/levelmap"
)

// heading 选出本 Tick 的唯一移动方向，优先级 左 > 右 > 上 > 下；
// 被禁止的方向视为未按下
func heading(in Input, veto Direction) Direction {
	switch {
	case in.Left && veto != DirLeft:
		return DirLeft
	case in.Right && veto != DirRight:
		return DirRight
	case in.Up && veto != DirUp:
		return DirUp
	case in.Down && veto != DirDown:
		return DirDown
	}
	return DirNone
}

func (r *Round) move(p *Player) {
	if face := heading(p.Input, DirNone); face != DirNone {
		p.Dir = face
	}
	dir := heading(p.Input, p.Veto)
	p.Veto = DirNone
	if dir == DirNone {
		return
	}

	s := r.rules.step()
	switch dir {
	case DirLeft:
		r.moveX(p, -s)
	case DirRight:
		r.moveX(p, s)
	case DirUp:
		r.moveY(p, -s)
	case DirDown:
		r.moveY(p, s)
	}
}

func (r *Round) moveX(p *Player, dx float64) {
	nx := r.sweepX(p, p.X+dx)
	if nx != p.X {
		p.X = nx
		return
	}
	r.slideY(p, dx > 0)
}

func (r *Round) moveY(p *Player, dy float64) {
	ny := r.sweepY(p, p.Y+dy)
	if ny != p.Y {
		p.Y = ny
		return
	}
	r.slideX(p, dy > 0)
}

// solidFor 判断 t 是否挡住 p，越界格子不挡
func (r *Round) solidFor(p *Player, t *Tile) bool {
	if t == nil {
		return false
	}
	if t.Blocks() {
		return true
	}
	if t.Bomb == 0 {
		return false
	}
	_, standing := p.Overlapping[t.Bomb]
	return !standing
}

// sweepX 将水平移动 nx 与候选身体覆盖的每个格子逐一碰撞：前方的实心格
// 截停在其近侧边缘；已经压住的实心格只阻止继续深入，允许向外走开
func (r *Round) sweepX(p *Player, nx float64) float64 {
	r0, r1 := tileSpan(p.Y, BodyH)
	n0, n1 := tileSpan(nx, BodyW)
	for row := r0; row <= r1; row++ {
		for c := n0; c <= n1; c++ {
			if !r.solidFor(p, r.grid.At(c, row)) {
				continue
			}
			l, rt := float64(c*TileSize), float64((c+1)*TileSize)
			switch {
			case nx < p.X && l <= p.X:
				nx = math.Max(nx, math.Min(rt, p.X))
			case nx > p.X && rt >= p.X+BodyW:
				nx = math.Min(nx, math.Max(l-BodyW, p.X))
			}
		}
	}
	return nx
}

func (r *Round) sweepY(p *Player, ny float64) float64 {
	c0, c1 := tileSpan(p.X, BodyW)
	n0, n1 := tileSpan(ny, BodyH)
	for row := n0; row <= n1; row++ {
		for c := c0; c <= c1; c++ {
			if !r.solidFor(p, r.grid.At(c, row)) {
				continue
			}
			t, b := float64(row*TileSize), float64((row+1)*TileSize)
			switch {
			case ny < p.Y && t <= p.Y:
				ny = math.Max(ny, math.Min(b, p.Y))
			case ny > p.Y && b >= p.Y+BodyH:
				ny = math.Min(ny, math.Max(t-BodyH, p.Y))
			}
		}
	}
	return ny
}

// slideY 水平方向被挡时，把玩家向身体中心前方
// 通道所在的行微调
func (r *Round) slideY(p *Player, right bool) {
	ahead := tileOf(p.X - 1)
	if right {
		ahead = tileOf(p.X + BodyW)
	}
	_, cy := p.Center()
	row := tileOf(cy)
	r0, r1 := tileSpan(p.Y, BodyH)
	facing := make([]*Tile, 0, 2)
	for y := r0; y <= r1; y++ {
		facing = append(facing, r.grid.At(ahead, y))
	}
	if !corridorOpen(r.grid.At(ahead, row), facing) {
		return
	}
	if ny := approach(p.Y, float64(row*TileSize), r.rules.step()); ny != p.Y {
		p.Y = r.sweepY(p, ny)
	}
}

func (r *Round) slideX(p *Player, down bool) {
	ahead := tileOf(p.Y - 1)
	if down {
		ahead = tileOf(p.Y + BodyH)
	}
	cx, _ := p.Center()
	col := tileOf(cx)
	c0, c1 := tileSpan(p.X, BodyW)
	facing := make([]*Tile, 0, 2)
	for x := c0; x <= c1; x++ {
		facing = append(facing, r.grid.At(x, ahead))
	}
	if !corridorOpen(r.grid.At(col, ahead), facing) {
		return
	}
	if nx := approach(p.X, float64(col*TileSize), r.rules.step()); nx != p.X {
		p.X = r.sweepX(p, nx)
	}
}

// corridorOpen 要求入口是无炸弹的空地，且身体正对的格子
// 都没有炸弹
func corridorOpen(entrance *Tile, facing []*Tile) bool {
	if entrance == nil || entrance.Kind != levelmap.Ground || entrance.Bomb != 0 {
		return false
	}
	for _, t := range facing {
		if t != nil && t.Bomb != 0 {
			return false
		}
	}
	return true
}

// approach 让 cur 向 target 靠近，最多 limit
func approach(cur, target, limit float64) float64 {
	switch {
	case target-cur > limit:
		return cur + limit
	case cur-target > limit:
		return cur - limit
	}
	return target
}
