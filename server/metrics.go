package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount      int64 // 统计的 Tick 次数
	InputsAccepted int64 // 被接受的输入数
	InputsDropped  int64 // 因通道满被丢弃的输入数
	FramesDropped  int64 // 无法解析或未知类型的入站帧
	SendsDropped   int64 // 因连接关闭或拥塞被跳过的出站消息
	TotalTickNs    int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()     { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncInputDropped() { atomic.AddInt64(&m.InputsDropped, 1) }
func (m *RoomMetrics) IncFrameDropped() { atomic.AddInt64(&m.FramesDropped, 1) }
func (m *RoomMetrics) IncSendDropped()  { atomic.AddInt64(&m.SendsDropped, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":      tick,
		"inputs_accepted": atomic.LoadInt64(&m.InputsAccepted),
		"inputs_dropped":  atomic.LoadInt64(&m.InputsDropped),
		"frames_dropped":  atomic.LoadInt64(&m.FramesDropped),
		"sends_dropped":   atomic.LoadInt64(&m.SendsDropped),
		"avg_tick_ms":     avgMs,
	}
}
