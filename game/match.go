package game

import (
	"errors"
	"fmt"
	"math/rand"

	"bombarena/levelmap"
	"bombarena/protocol"
)

// ErrEmptyQueue 比赛没有任何关卡
var ErrEmptyQueue = errors.New("empty level queue")

// LevelSource 按关卡下标取已解析的布局
type LevelSource interface {
	Level(index int) (*levelmap.Level, error)
}

// Broadcaster 出站消息投递，实现不得阻塞
type Broadcaster interface {
	Send(id PlayerID, msg any)
	Broadcast(msg any)
}

type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseLive
	PhaseSettling
	PhaseRoundOver
	PhaseMatchOver
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseLive:
		return "live"
	case PhaseSettling:
		return "settling"
	case PhaseRoundOver:
		return "round_over"
	case PhaseMatchOver:
		return "match_over"
	}
	return "unknown"
}

// Match 两个座位之间按队列进行多局，并累计比分
type Match struct {
	rules  Rules
	levels map[int]*levelmap.Level
	queue  []int
	rng    *rand.Rand
	out    Broadcaster
	sched  *Scheduler
	bombs  BombID

	phase    Phase
	roundIdx int
	round    *Round
	scores   protocol.Scores
}

// NewMatch 预先加载队列中的全部关卡，坏地图在建房时就失败，
// 而不是等到后面某一局；随后布置第一局
func NewMatch(rules Rules, levels LevelSource, queue []int, seed int64, out Broadcaster) (*Match, error) {
	if len(queue) == 0 {
		return nil, ErrEmptyQueue
	}
	m := &Match{
		rules:  rules,
		levels: make(map[int]*levelmap.Level, len(queue)),
		queue:  append([]int(nil), queue...),
		rng:    rand.New(rand.NewSource(seed)),
		out:    out,
		sched:  NewScheduler(),
	}
	for _, idx := range m.queue {
		if _, ok := m.levels[idx]; ok {
			continue
		}
		lvl, err := levels.Level(idx)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", idx, err)
		}
		m.levels[idx] = lvl
	}
	if err := m.newRound(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Match) newRound() error {
	idx := m.queue[m.roundIdx]
	r, err := NewRound(m.rules, idx, m.levels[idx], m.rng, m.sched, &m.bombs)
	if err != nil {
		return err
	}
	m.round = r
	return nil
}

func (m *Match) Phase() Phase                   { return m.phase }
func (m *Match) Round() *Round                  { return m.round }
func (m *Match) RoundNumber() int               { return m.roundIdx + 1 }
func (m *Match) TotalRounds() int               { return len(m.queue) }
func (m *Match) Scores() protocol.Scores        { return m.scores }
func (m *Match) Scheduler() *Scheduler          { return m.sched }
func (m *Match) Over() bool                     { return m.phase == PhaseMatchOver }
func (m *Match) Queue() []int                   { return append([]int(nil), m.queue...) }
func (m *Match) SetInput(id PlayerID, in Input) { m.round.SetInput(id, in) }

// Begin 开始第一局，并告诉每个座位自己是几号
func (m *Match) Begin() {
	if m.phase != PhaseWaiting {
		return
	}
	m.phase = PhaseLive
	for _, id := range []PlayerID{1, 2} {
		m.out.Send(id, protocol.GameStart{
			Type:        protocol.TypeGameStart,
			PlayerID:    int(id),
			Level:       m.round.Level,
			Bonuses:     m.round.BonusMap(),
			Round:       m.RoundNumber(),
			TotalRounds: m.TotalRounds(),
		})
	}
}

// Tick 推进延迟事件，对局进行中时同时推进模拟。
// 返回 false 表示之后不会再有任何变化
func (m *Match) Tick() bool {
	if m.phase == PhaseMatchOver {
		return false
	}
	m.sched.Advance()
	if m.phase != PhaseLive && m.phase != PhaseSettling {
		return m.phase != PhaseMatchOver
	}
	m.round.Step()
	if m.phase == PhaseLive && len(m.round.Alive()) <= 1 {
		m.phase = PhaseSettling
		m.sched.After(m.rules.Ticks(m.rules.SettleDelay), GroupMatch, m.resolveRound)
	}
	m.out.Broadcast(m.round.Snapshot())
	return true
}

func (m *Match) resolveRound() {
	if m.phase != PhaseSettling {
		return
	}
	alive := m.round.Alive()
	winner, reason := 0, protocol.ReasonDraw
	if len(alive) == 1 {
		winner, reason = int(alive[0]), protocol.ReasonKill
	}
	m.award(winner, 1)

	last := m.roundIdx >= len(m.queue)-1
	m.sched.CancelGroup(GroupRound)
	if last {
		m.phase = PhaseMatchOver
	} else {
		m.phase = PhaseRoundOver
		m.sched.After(m.rules.Ticks(m.rules.RoundDelay), GroupMatch, m.startNextRound)
	}
	m.out.Broadcast(protocol.GameOver{
		Type:        protocol.TypeGameOver,
		Winner:      winner,
		Reason:      reason,
		Scores:      m.scores,
		Round:       m.RoundNumber(),
		TotalRounds: m.TotalRounds(),
		MatchOver:   last,
	})
}

func (m *Match) startNextRound() {
	if m.phase != PhaseRoundOver {
		return
	}
	m.roundIdx++
	if err := m.newRound(); err != nil {
		// 关卡已在 NewMatch 中校验，这里失败按平局收尾
		m.Stop()
		return
	}
	m.phase = PhaseLive
	m.out.Broadcast(protocol.RoundStart{
		Type:        protocol.TypeRoundStart,
		Level:       m.round.Level,
		Bonuses:     m.round.BonusMap(),
		Round:       m.RoundNumber(),
		TotalRounds: m.TotalRounds(),
		Scores:      m.scores,
	})
}

func (m *Match) award(winner, n int) {
	switch winner {
	case 1:
		m.scores.P1 += n
	case 2:
		m.scores.P2 += n
	default:
		m.scores.Draws += n
	}
}

// Disconnect 因 id 离开而结束比赛，对手获得所有尚未决出的局。
// 返回是否发出了 game_over
func (m *Match) Disconnect(id PlayerID) bool {
	m.out.Broadcast(protocol.PlayerDisconnected{Type: protocol.TypePlayerDisconnected, PlayerID: int(id)})
	switch m.phase {
	case PhaseWaiting, PhaseMatchOver:
		m.Stop()
		return false
	}
	remaining := len(m.queue) - m.roundIdx
	if m.phase == PhaseRoundOver {
		remaining--
	}
	winner := id.Opponent()
	m.award(int(winner), remaining)
	m.Stop()
	m.out.Broadcast(protocol.GameOver{
		Type:        protocol.TypeGameOver,
		Winner:      int(winner),
		Reason:      protocol.ReasonDisconnect,
		Scores:      m.scores,
		Round:       m.RoundNumber(),
		TotalRounds: m.TotalRounds(),
		MatchOver:   true,
	})
	return true
}

// Stop 进入终止阶段并丢弃所有待执行回调
func (m *Match) Stop() {
	m.phase = PhaseMatchOver
	m.sched.Clear()
}
