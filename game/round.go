package game

import (
	"fmt"
	"math"
	"math/rand"

	"bombarena/levelmap"
	"bombarena/protocol"
)

// Round 正在进行的一局：格子、双方玩家、所有存活的炸弹、
// 火焰与已露出道具，以及开局以来的棋盘变化
type Round struct {
	rules Rules
	sched *Scheduler
	ids   *BombID

	Level int
	grid  *Grid
	tick  int

	players [2]*Player
	bombs   []*Bomb
	byID    map[BombID]*Bomb
	fires   []*Fire
	fireAt  map[int]*Fire
	bonuses []Bonus

	bonusMap  map[string]string
	destroyed []protocol.DestroyedBrick
	collected []protocol.CollectedBonus
	burned    []protocol.ExplodedBonus
}

// NewRound 由 lvl 布置新棋盘，在随机挑选的砖块下藏道具，
// 并把玩家放到前两个出生点
func NewRound(rules Rules, levelIndex int, lvl *levelmap.Level, rng *rand.Rand, sched *Scheduler, ids *BombID) (*Round, error) {
	if len(lvl.Spawns) < 2 {
		return nil, fmt.Errorf("%w %q: need 2 spawns", levelmap.ErrInvalidLevel, lvl.Key)
	}
	r := &Round{
		rules:    rules,
		sched:    sched,
		ids:      ids,
		Level:    levelIndex,
		grid:     NewGrid(lvl),
		byID:     make(map[BombID]*Bomb),
		fireAt:   make(map[int]*Fire),
		bonusMap: make(map[string]string),
	}
	for i := range r.players {
		s := lvl.Spawns[i]
		r.players[i] = newPlayer(PlayerID(i+1), s.X, s.Y)
	}
	r.placeBonuses(rng)
	return r, nil
}

func (r *Round) placeBonuses(rng *rand.Rand) {
	var bricks []*Tile
	r.grid.Each(func(t *Tile) {
		if t.Kind == levelmap.Brick {
			bricks = append(bricks, t)
		}
	})
	count := int(math.Round(float64(len(bricks)) / BonusBrickRatio))
	rng.Shuffle(len(bricks), func(i, j int) { bricks[i], bricks[j] = bricks[j], bricks[i] })

	idx := 0
	for _, kind := range []BonusType{BonusPower, BonusCount} {
		for i := 0; i < count && idx < len(bricks); i, idx = i+1, idx+1 {
			t := bricks[idx]
			t.HiddenBonus = kind
			r.bonusMap[fmt.Sprintf("%d,%d", t.X, t.Y)] = kind.String()
		}
	}
}

func (r *Round) Grid() *Grid { return r.grid }
func (r *Round) Tick() int   { return r.tick }

// Player 返回 id 号座位的玩家，没有则为 nil
func (r *Round) Player(id PlayerID) *Player {
	if id < 1 || int(id) > len(r.players) {
		return nil
	}
	return r.players[id-1]
}

// Bomb 按编号取存活的炸弹记录
func (r *Round) Bomb(id BombID) *Bomb { return r.byID[id] }

func (r *Round) Bombs() []*Bomb   { return r.bombs }
func (r *Round) Fires() []*Fire   { return r.fires }
func (r *Round) Bonuses() []Bonus { return r.bonuses }

// BonusMap 隐藏道具布局，键为 "x,y"
func (r *Round) BonusMap() map[string]string { return r.bonusMap }

// Alive 按座位顺序列出存活玩家
func (r *Round) Alive() []PlayerID {
	var ids []PlayerID
	for _, p := range r.players {
		if p.Alive {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// SetInput 锁存按键状态，由下一次 Step 消费
func (r *Round) SetInput(id PlayerID, in Input) {
	if p := r.Player(id); p != nil && p.Alive {
		p.Input = in
	}
}

// Step 推进一个 Tick
func (r *Round) Step() {
	r.tick++
	for _, p := range r.players {
		if p.Alive {
			r.move(p)
		}
	}
	for _, p := range r.players {
		if p.Alive {
			r.releaseOverlaps(p)
		}
	}
	for _, p := range r.players {
		if p.Alive {
			r.placeBomb(p)
		}
	}
	r.updateBombs()
	r.updateFires()
	r.checkFireKills()
	r.checkBonusPickups()
	r.checkBombBlocking()
}

// releaseOverlaps 身体离开炸弹格后，该炸弹重新变为实心
func (r *Round) releaseOverlaps(p *Player) {
	body := p.body()
	for id := range p.Overlapping {
		b := r.byID[id]
		if b == nil || b.Exploded || !body.overlaps(tileRect(b.TileX, b.TileY)) {
			delete(p.Overlapping, id)
		}
	}
}

// placeBomb 炸弹键上升沿时，在身体中心所在格放一颗炸弹
func (r *Round) placeBomb(p *Player) {
	pressed := p.Input.Bomb && !p.prevBomb
	p.prevBomb = p.Input.Bomb
	if !pressed {
		return
	}
	cx, cy := p.Center()
	t := r.grid.At(tileOf(cx), tileOf(cy))
	if t == nil || t.Bomb != 0 {
		return
	}
	if r.liveBombs(p.ID) >= p.BombsMax {
		return
	}
	*r.ids++
	b := &Bomb{
		ID:    *r.ids,
		TileX: t.X,
		TileY: t.Y,
		Owner: p.ID,
		Fuse:  r.rules.Ticks(r.rules.Fuse),
		Power: p.BombPower,
	}
	r.bombs = append(r.bombs, b)
	r.byID[b.ID] = b
	t.Bomb = b.ID
	// 所有压在该格上的玩家都可以走开，离开后炸弹才对其实心
	area := tileRect(t.X, t.Y)
	for _, q := range r.players {
		if q.Alive && q.body().overlaps(area) {
			q.Overlapping[b.ID] = struct{}{}
		}
	}
}

func (r *Round) liveBombs(owner PlayerID) int {
	n := 0
	for _, b := range r.bombs {
		if b.Owner == owner && !b.Exploded {
			n++
		}
	}
	return n
}

func (r *Round) updateBombs() {
	for _, b := range r.bombs {
		if b.Exploded {
			continue
		}
		b.Fuse--
		if b.Fuse <= 0 {
			r.explode(b)
		}
	}
	kept := r.bombs[:0]
	for _, b := range r.bombs {
		if b.Removed {
			delete(r.byID, b.ID)
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(r.bombs); i++ {
		r.bombs[i] = nil
	}
	r.bombs = kept
}

func (r *Round) updateFires() {
	kept := r.fires[:0]
	for _, f := range r.fires {
		f.Life--
		if f.Life > 0 {
			kept = append(kept, f)
			continue
		}
		delete(r.fireAt, r.key(f.TileX, f.TileY))
		if t := r.grid.At(f.TileX, f.TileY); t != nil {
			t.OnFire = false
		}
	}
	for i := len(kept); i < len(r.fires); i++ {
		r.fires[i] = nil
	}
	r.fires = kept
}

func (r *Round) checkFireKills() {
	for _, p := range r.players {
		if !p.Alive {
			continue
		}
		body := p.body().shrink(SafeOverlap)
		for _, f := range r.fires {
			if body.overlaps(tileRect(f.TileX, f.TileY)) {
				p.Alive = false
				break
			}
		}
	}
}

func (r *Round) checkBonusPickups() {
	for _, p := range r.players {
		if !p.Alive {
			continue
		}
		body := p.body().shrink(SafeOverlap)
		kept := r.bonuses[:0]
		for _, bn := range r.bonuses {
			if !body.overlaps(tileRect(bn.TileX, bn.TileY).shrink(SafeOverlap)) {
				kept = append(kept, bn)
				continue
			}
			t := r.grid.At(bn.TileX, bn.TileY)
			if t == nil || t.Bonus == BonusNone {
				continue
			}
			switch t.Bonus {
			case BonusPower:
				p.BombPower++
			case BonusCount:
				p.BombsMax++
			}
			t.Bonus = BonusNone
			r.collected = append(r.collected, protocol.CollectedBonus{TileX: bn.TileX, TileY: bn.TileY, PlayerID: int(p.ID)})
		}
		r.bonuses = kept
	}
}

// alignEpsilon 两个中心在同一轴上对齐的容差
const alignEpsilon = 0.01

// checkBombBlocking 玩家与部分压住的炸弹同轴对齐时，
// 禁止下一 Tick 继续往炸弹里走
func (r *Round) checkBombBlocking() {
	for _, p := range r.players {
		if !p.Alive {
			continue
		}
		body := p.body()
		pcx, pcy := p.Center()
		for _, b := range r.bombs {
			if b.Exploded || !body.overlaps(tileRect(b.TileX, b.TileY)) {
				continue
			}
			bx := float64(b.TileX*TileSize) + BodyW/2.0
			by := float64(b.TileY*TileSize) + BodyH/2.0
			if math.Hypot(pcx-bx, pcy-by) < BombBlockDistance {
				continue
			}
			sameCol := math.Abs(pcx-bx) < alignEpsilon
			sameRow := math.Abs(pcy-by) < alignEpsilon
			switch {
			case sameCol && !sameRow:
				if pcy > by {
					p.Veto = DirUp
				} else {
					p.Veto = DirDown
				}
			case sameRow && !sameCol:
				if pcx > bx {
					p.Veto = DirLeft
				} else {
					p.Veto = DirRight
				}
			}
		}
	}
}

func (r *Round) key(x, y int) int { return y*r.grid.Width + x }
