package game

import (
	"bombarena/levelmap"
	"bombarena/protocol"
)

var rays = [...]struct {
	dir    Direction
	dx, dy int
}{
	{DirUp, 0, -1},
	{DirDown, 0, 1},
	{DirLeft, -1, 0},
	{DirRight, 1, 0},
}

// explode 结算一颗炸弹，并深度优先引爆射线波及的其他炸弹。
// Exploded 标记保证环形连锁会终止
func (r *Round) explode(b *Bomb) {
	if b.Exploded {
		return
	}
	b.Exploded = true
	if t := r.grid.At(b.TileX, b.TileY); t != nil && t.Bomb == b.ID {
		t.Bomb = 0
	}
	r.sched.After(r.rules.Ticks(r.rules.FireLife), GroupRound, func() { b.Removed = true })

	r.addFire(b.TileX, b.TileY, FireCenter, DirNone)
	for _, ray := range rays {
		for i := 1; i <= b.Power; i++ {
			t := r.grid.At(b.TileX+ray.dx*i, b.TileY+ray.dy*i)
			if t == nil || t.Kind == levelmap.Wall {
				break
			}
			if t.Kind.Destructible() {
				r.destroyBrick(t)
				break
			}
			if t.Bomb != 0 {
				if next := r.byID[t.Bomb]; next != nil {
					r.explode(next)
				}
				break
			}
			if t.Bonus != BonusNone {
				r.burnBonus(t)
				break
			}
			typ := FireLine
			if i == b.Power {
				typ = FireTail
			}
			r.addFire(t.X, t.Y, typ, ray.dir)
		}
	}
}

// addFire 点燃一格；已在燃烧的格子不重复建火焰，
// 只重置其寿命
func (r *Round) addFire(x, y int, typ FireType, dir Direction) {
	t := r.grid.At(x, y)
	if t == nil {
		return
	}
	life := r.rules.Ticks(r.rules.FireLife)
	k := r.key(x, y)
	if f := r.fireAt[k]; f != nil {
		f.Life = life
		return
	}
	f := &Fire{TileX: x, TileY: y, Life: life, Type: typ, Dir: dir}
	r.fires = append(r.fires, f)
	r.fireAt[k] = f
	t.OnFire = true
}

func (r *Round) destroyBrick(t *Tile) {
	t.Kind = levelmap.Ground
	r.destroyed = append(r.destroyed, protocol.DestroyedBrick{TileX: t.X, TileY: t.Y, TileSetID: t.Region})
	if t.HiddenBonus == BonusNone {
		return
	}
	t.Bonus, t.HiddenBonus = t.HiddenBonus, BonusNone
	r.bonuses = append(r.bonuses, Bonus{TileX: t.X, TileY: t.Y, Type: t.Bonus})
}

func (r *Round) burnBonus(t *Tile) {
	t.Bonus = BonusNone
	for i, bn := range r.bonuses {
		if bn.TileX == t.X && bn.TileY == t.Y {
			r.bonuses = append(r.bonuses[:i], r.bonuses[i+1:]...)
			break
		}
	}
	r.burned = append(r.burned, protocol.ExplodedBonus{TileX: t.X, TileY: t.Y})
}
