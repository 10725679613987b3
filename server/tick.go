package server

import "time"

// Start 启动房间的 Tick 循环（单线程推进世界）
func (r *Room) Start() {
	go r.run()
}

func (r *Room) run() {
	ticker := time.NewTicker(r.rules.TickInterval())
	defer func() {
		ticker.Stop()
		r.teardown()
		close(r.done)
	}()
	for {
		select {
		case <-r.quit:
			return
		case req := <-r.joinChan:
			r.handleJoin(req)
		case req := <-r.detachCh:
			r.handleDetach(req)
		case <-ticker.C:
			// 核心循环：处理输入 → 推进比赛 → 房间事件 → 发布摘要
			start := time.Now()
			r.step()
			r.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}
}

func (r *Room) step() {
	r.processInputs()
	r.match.Tick()
	if r.match.Over() {
		r.beginLinger()
	}
	r.sched.Advance()
	r.publish()
}

// teardown 取消所有待执行事件并断开仍在线的连接
func (r *Room) teardown() {
	r.match.Stop()
	r.sched.Clear()
	for i, c := range r.conns {
		if c != nil {
			c.Close()
			r.conns[i] = nil
		}
	}
	r.publish()
}
