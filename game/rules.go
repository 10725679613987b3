// Package game 权威的竞技场模拟：格子、实体、
// 定步长的单局引擎与多局比赛状态机。
// 本包不启动协程也不读时钟，由持有者调用 Tick
package game

import (
	"math"
	"time"

	"bombarena/levelmap"
)

const (
	TileSize = levelmap.TileSize

	// 玩家身体尺寸（像素），以左上角为锚点
	BodyW = TileSize - 1
	BodyH = TileSize

	// SafeOverlap 火焰与道具判定前身体内缩的边距，
	// 只碰到相邻格边缘不算
	SafeOverlap = 6.0

	// BombBlockDistance 压着炸弹时，中心距离达到该值
	// 才开始禁止往炸弹里走
	BombBlockDistance = 8.0

	StartBombPower = 2
	StartBombsMax  = 2

	// BonusBrickRatio 每这么多块砖放一个能量道具和一个数量道具
	BonusBrickRatio = 12
)

// Rules 比赛的时间与速度参数
type Rules struct {
	TickRate    int           // 每秒 Tick 数
	PlayerSpeed float64       // 像素/秒
	Fuse        time.Duration // 放置到爆炸
	FireLife    time.Duration // 火焰寿命，也是爆炸后炸弹记录的保留时长
	SettleDelay time.Duration // 倒数第二人死亡后的等待
	RoundDelay  time.Duration // 局间停顿
}

func DefaultRules() Rules {
	return Rules{
		TickRate:    20,
		PlayerSpeed: 68,
		Fuse:        2500 * time.Millisecond,
		FireLife:    500 * time.Millisecond,
		SettleDelay: 500 * time.Millisecond,
		RoundDelay:  4000 * time.Millisecond,
	}
}

// TickInterval 一个 Tick 的真实时长
func (r Rules) TickInterval() time.Duration {
	return time.Second / time.Duration(r.TickRate)
}

// Ticks 把时长四舍五入换算成 Tick 数，
// 正时长至少为 1
func (r Rules) Ticks(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := int(math.Round(float64(d) / float64(r.TickInterval())))
	if n < 1 {
		n = 1
	}
	return n
}

func (r Rules) dt() float64 { return 1 / float64(r.TickRate) }

// step 玩家一个 Tick 移动的距离
func (r Rules) step() float64 { return r.PlayerSpeed * r.dt() }
