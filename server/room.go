package server

import (
	"sync"
	"time"

	"bombarena/game"
	"bombarena/protocol"
)

type seatInput struct {
	seat game.PlayerID
	in   protocol.Input
}

type joinReq struct {
	conn  Conn
	reply chan joinResult
}

type joinResult struct {
	seat game.PlayerID
	err  error
}

type detachReq struct {
	seat  game.PlayerID
	conn  Conn
	reply chan bool
}

// RoomInfo 是房间的只读摘要，供管理接口输出
type RoomInfo struct {
	ID          string          `json:"id"`
	Phase       string          `json:"phase"`
	Round       int             `json:"round"`
	TotalRounds int             `json:"totalRounds"`
	Levels      []int           `json:"levels"`
	Players     int             `json:"players"`
	Scores      protocol.Scores `json:"scores"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Room 房间：一局两人对战。Match 只在 run 协程内读写，外部只通过通道交互
type Room struct {
	ID      string
	created time.Time

	rules  game.Rules
	linger time.Duration
	match  *game.Match
	conns  [2]Conn

	// sched 是房间自身的延迟事件（如结束后的驻留回收），与比赛内的事件分开
	sched     *game.Scheduler
	lingering bool

	inputChan chan seatInput
	leaveChan chan game.PlayerID
	joinChan  chan joinReq
	detachCh  chan detachReq
	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once

	metrics *RoomMetrics
	// OnClose 在房间回收时调用（于房间协程内）
	OnClose func(id string)

	infoMu sync.RWMutex
	info   RoomInfo
}

// newRoom 创建房间并让 creator 坐上 1 号位；地图在此全部加载，失败则房间不成立
func newRoom(id string, opts Options, levels game.LevelSource, queue []int, seed int64, creator Conn) (*Room, error) {
	r := &Room{
		ID:        id,
		created:   time.Now(),
		rules:     opts.Rules,
		linger:    opts.Linger,
		sched:     game.NewScheduler(),
		inputChan: make(chan seatInput, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		leaveChan: make(chan game.PlayerID, 4),
		joinChan:  make(chan joinReq),
		detachCh:  make(chan detachReq),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		metrics:   &RoomMetrics{},
	}
	m, err := game.NewMatch(opts.Rules, levels, queue, seed, r)
	if err != nil {
		return nil, err
	}
	r.match = m
	r.conns[0] = creator
	r.publish()
	return r, nil
}

// Send 实现 game.Broadcaster：发给单个座位，失败只计数
func (r *Room) Send(id game.PlayerID, msg any) {
	if id < 1 || int(id) > len(r.conns) {
		return
	}
	c := r.conns[id-1]
	if c == nil || !c.Send(msg) {
		r.metrics.IncSendDropped()
	}
}

// Broadcast 实现 game.Broadcaster：两个座位各发一份
func (r *Room) Broadcast(msg any) {
	for i := range r.conns {
		r.Send(game.PlayerID(i+1), msg)
	}
}

// OnInput 入站输入（不立即生效），仅替换锁存的按键状态，等下一次 Tick 处理
func (r *Room) OnInput(seat game.PlayerID, in protocol.Input) {
	select {
	case r.inputChan <- seatInput{seat: seat, in: in}:
		r.metrics.IncAccepted()
	default:
		r.metrics.IncInputDropped()
	}
}

// RequestLeave 请求在 Tick 线程中移除玩家，避免并发改动房间状态
func (r *Room) RequestLeave(seat game.PlayerID) {
	select {
	case r.leaveChan <- seat:
	case <-r.done:
	}
}

// Join 让 conn 坐上 2 号位并开始比赛
func (r *Room) Join(conn Conn) (game.PlayerID, error) {
	req := joinReq{conn: conn, reply: make(chan joinResult, 1)}
	select {
	case r.joinChan <- req:
	case <-r.done:
		return 0, ErrRoomFinished
	}
	select {
	case res := <-req.reply:
		return res.seat, res.err
	case <-r.done:
		return 0, ErrRoomFinished
	}
}

// Detach 比赛结束后解除 conn 与座位的绑定（不断开连接），便于玩家另开一局。
// 比赛未结束时返回 false；房间已回收时视为成功
func (r *Room) Detach(seat game.PlayerID, conn Conn) bool {
	req := detachReq{seat: seat, conn: conn, reply: make(chan bool, 1)}
	select {
	case r.detachCh <- req:
	case <-r.done:
		return true
	}
	select {
	case ok := <-req.reply:
		return ok
	case <-r.done:
		return true
	}
}

func (r *Room) handleDetach(req detachReq) {
	if !r.match.Over() || req.seat < 1 || int(req.seat) > len(r.conns) {
		req.reply <- false
		return
	}
	if r.conns[req.seat-1] == req.conn {
		r.conns[req.seat-1] = nil
		Log.Infow("player detached", "room", r.ID, "player", req.seat, "conn", req.conn.ID())
	}
	req.reply <- true
	r.publish()
}

func (r *Room) handleJoin(req joinReq) {
	var res joinResult
	switch {
	case r.conns[1] != nil:
		res.err = ErrRoomFull
	case r.lingering || r.match.Over():
		res.err = ErrRoomFinished
	default:
		r.conns[1] = req.conn
		r.match.Begin()
		res.seat = 2
		Log.Infow("player joined, match started", "room", r.ID, "conn", req.conn.ID(), "rounds", r.match.TotalRounds())
	}
	req.reply <- res
	r.publish()
}

// processInputs 处理当前帧的离开与输入（非阻塞 drain）
func (r *Room) processInputs() {
	for {
		select {
		case seat := <-r.leaveChan:
			r.handleLeave(seat)
		case si := <-r.inputChan:
			r.match.SetInput(si.seat, si.in)
		default:
			return
		}
	}
}

func (r *Room) handleLeave(seat game.PlayerID) {
	if seat < 1 || int(seat) > len(r.conns) || r.conns[seat-1] == nil {
		return
	}
	r.conns[seat-1].Close()
	r.conns[seat-1] = nil
	Log.Infow("player left", "room", r.ID, "player", seat, "phase", r.match.Phase())

	if r.match.Phase() == game.PhaseWaiting {
		// 无人加入前房主离开：直接关闭
		r.match.Stop()
		r.expire()
		return
	}
	if r.match.Disconnect(seat) {
		Log.Infow("match forfeited", "room", r.ID, "winner", seat.Opponent(), "scores", r.match.Scores())
	}
	r.beginLinger()
}

// beginLinger 比赛结束后房间再保留一段时间，之后回收
func (r *Room) beginLinger() {
	if r.lingering {
		return
	}
	r.lingering = true
	r.sched.After(r.rules.Ticks(r.linger), game.GroupRoom, r.expire)
}

func (r *Room) expire() {
	Log.Infow("room closed", "room", r.ID)
	r.Stop()
	if r.OnClose != nil {
		r.OnClose(r.ID)
	}
}

// Stop 通知房间协程退出；不等待，可重复调用
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Done 在房间协程退出后关闭
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Metrics() *RoomMetrics { return r.metrics }

func (r *Room) Info() RoomInfo {
	r.infoMu.RLock()
	defer r.infoMu.RUnlock()
	return r.info
}

func (r *Room) publish() {
	players := 0
	for _, c := range r.conns {
		if c != nil {
			players++
		}
	}
	info := RoomInfo{
		ID:          r.ID,
		Phase:       r.match.Phase().String(),
		Round:       r.match.RoundNumber(),
		TotalRounds: r.match.TotalRounds(),
		Levels:      r.match.Queue(),
		Players:     players,
		Scores:      r.match.Scores(),
		CreatedAt:   r.created,
	}
	r.infoMu.Lock()
	r.info = info
	r.infoMu.Unlock()
}
