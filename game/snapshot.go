package game

import (
	"math"
	"strconv"

	"bombarena/protocol"
)

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Snapshot 生成本局的 state 帧。砖块与道具事件列表从开局累计，
// 这里复制一份，之后的 Tick 追加时帧内容不变。
// RevealedBonuses 只列仍在地面上的道具
func (r *Round) Snapshot() protocol.State {
	st := protocol.State{
		Type:             protocol.TypeState,
		Tick:             r.tick,
		Players:          make(map[string]protocol.PlayerState, len(r.players)),
		Bombs:            make([]protocol.BombState, 0, len(r.bombs)),
		Fires:            make([]protocol.FireState, 0, len(r.fires)),
		DestroyedBricks:  append([]protocol.DestroyedBrick{}, r.destroyed...),
		RevealedBonuses:  make([]protocol.RevealedBonus, 0, len(r.bonuses)),
		CollectedBonuses: append([]protocol.CollectedBonus{}, r.collected...),
		ExplodedBonuses:  append([]protocol.ExplodedBonus{}, r.burned...),
	}
	for _, p := range r.players {
		st.Players[strconv.Itoa(int(p.ID))] = protocol.PlayerState{
			X:         round2(p.X),
			Y:         round2(p.Y),
			Dir:       p.Dir.String(),
			Alive:     p.Alive,
			BombPower: p.BombPower,
			BombsMax:  p.BombsMax,
		}
	}
	for _, b := range r.bombs {
		if b.Removed {
			continue
		}
		st.Bombs = append(st.Bombs, protocol.BombState{
			ID:       int(b.ID),
			TileX:    b.TileX,
			TileY:    b.TileY,
			Timer:    b.Fuse,
			OwnerID:  int(b.Owner),
			Exploded: b.Exploded,
		})
	}
	for _, bn := range r.bonuses {
		st.RevealedBonuses = append(st.RevealedBonuses, protocol.RevealedBonus{TileX: bn.TileX, TileY: bn.TileY, Type: bn.Type.String()})
	}
	for _, f := range r.fires {
		st.Fires = append(st.Fires, protocol.FireState{
			TileX:    f.TileX,
			TileY:    f.TileY,
			FireType: f.Type.String(),
			FireDir:  f.Dir.fireName(),
		})
	}
	return st
}
