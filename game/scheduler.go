package game

import "sort"

// Group 给延迟事件分组，便于整组取消
type Group int

const (
	GroupRound Group = iota // 炸弹移除，一局结束即丢弃
	GroupMatch              // 结算与下一局切换
	GroupRoom               // 持有者自己的事务，如回收
)

// Handle 标识一个延迟事件
type Handle uint64

type event struct {
	id    Handle
	due   uint64
	group Group
	fn    func()
}

// Scheduler 按 Tick 驱动的延迟回调队列，代替真实时钟定时器，
// 房间回收后不会再有回调触发
type Scheduler struct {
	now    uint64
	seq    Handle
	events []*event // 按 due、id 排序
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now 目前为止 Advance 的调用次数
func (s *Scheduler) Now() uint64 { return s.now }

// After 在 ticks 个 Tick 之后那一 Tick 开始时执行 fn
func (s *Scheduler) After(ticks int, g Group, fn func()) Handle {
	if ticks < 1 {
		ticks = 1
	}
	s.seq++
	ev := &event{id: s.seq, due: s.now + uint64(ticks), group: g, fn: fn}
	i := sort.Search(len(s.events), func(i int) bool {
		e := s.events[i]
		return e.due > ev.due || (e.due == ev.due && e.id > ev.id)
	})
	s.events = append(s.events, nil)
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = ev
	return ev.id
}

// Cancel 移除待执行事件，返回它是否仍在等待
func (s *Scheduler) Cancel(h Handle) bool {
	for i, e := range s.events {
		if e.id == h {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return true
		}
	}
	return false
}

// CancelGroup 丢弃 g 组的全部待执行事件
func (s *Scheduler) CancelGroup(g Group) int {
	kept := s.events[:0]
	n := 0
	for _, e := range s.events {
		if e.group == g {
			n++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.events); i++ {
		s.events[i] = nil
	}
	s.events = kept
	return n
}

// Clear 清空
func (s *Scheduler) Clear() {
	s.events = nil
}

func (s *Scheduler) Pending() int { return len(s.events) }

// Advance 进入下一 Tick 并执行到期事件
func (s *Scheduler) Advance() {
	s.now++
	for len(s.events) > 0 && s.events[0].due <= s.now {
		ev := s.events[0]
		s.events[0] = nil
		s.events = s.events[1:]
		ev.fn()
	}
}
