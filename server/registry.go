package server

import (
	"go.uber.org/zap"
)

// Sender 注册表眼中的连接发送端（由传输层实现，测试可用假连接替代）
type Sender interface {
	Send(b []byte) error
	Close() error
}

// 收件箱事件：由传输层投递，在注册表的单一事件循环中串行处理，
// 因此 players 映射不需要加锁
type (
	// Connect 连接建立：id 由传输层保证全新且唯一
	Connect struct {
		ID   PlayerID
		Conn Sender
	}
	// Movement 移动上报：整体替换 id 的状态并扇出给其他连接
	Movement struct {
		ID     PlayerID
		Update MovementUpdate
	}
	// Disconnect 连接断开：重复投递是幂等无操作
	Disconnect struct {
		ID PlayerID
	}
	// Query 同步读取当前注册表快照（管理接口 / 统计用）
	Query struct {
		Reply chan<- []PlayerState
	}
)

// Registry 会话注册表：权威的 连接标识→玩家状态 映射，
// 负责全部状态传播（接入快照、移动扇出、离开通知）
type Registry struct {
	Inbox chan any

	players map[PlayerID]PlayerState
	conns   map[PlayerID]Sender

	metrics *RelayMetrics
	log     *zap.SugaredLogger
	quit    chan struct{}
}

// NewRegistry 创建注册表，初始化数据结构
func NewRegistry(log *zap.SugaredLogger, metrics *RelayMetrics) *Registry {
	return &Registry{
		Inbox:   make(chan any, 256), // 足够缓冲，避免网络读阻塞影响事件循环
		players: make(map[PlayerID]PlayerState),
		conns:   make(map[PlayerID]Sender),
		metrics: metrics,
		log:     log,
		quit:    make(chan struct{}),
	}
}

// Run 事件循环：串行消费收件箱直到 Stop
func (r *Registry) Run() {
	for {
		select {
		case <-r.quit:
			return
		case ev := <-r.Inbox:
			r.dispatch(ev)
		}
	}
}

// Stop 结束事件循环
func (r *Registry) Stop() {
	close(r.quit)
}

// dispatch 按事件类型分发（测试可绕过 Run 直接调用以获得确定性时序）
func (r *Registry) dispatch(ev any) {
	switch e := ev.(type) {
	case Connect:
		r.onConnect(e.ID, e.Conn)
	case Movement:
		r.onMovement(e.ID, e.Update)
	case Disconnect:
		r.onDisconnect(e.ID)
	case Query:
		e.Reply <- r.snapshotList()
	}
}

// onConnect 建档并双向通知：新客户端收全量快照，其余连接收 newPlayer
func (r *Registry) onConnect(id PlayerID, conn Sender) {
	st := DefaultState(id)
	r.players[id] = st
	r.conns[id] = conn

	// 快照在插入之后采集：新客户端会看到自己的默认条目（刻意保留）
	r.sendTo(id, EvCurrentPlayers, r.snapshotMap())
	r.broadcastExcept(id, EvNewPlayer, st)

	r.metrics.IncConnects()
	r.log.Infof("player joined: id=%s players=%d", id, len(r.players))
}

// onMovement 整体替换存量状态（不校验、不合并），再扇出给发送者以外的连接
func (r *Registry) onMovement(id PlayerID, u MovementUpdate) {
	if _, ok := r.players[id]; !ok {
		// 传输层保证 Connect 先行，这里按无操作兜底
		r.metrics.IncUnknownIDIgnored()
		r.log.Debugf("movement for unknown id=%s ignored", id)
		return
	}
	st := PlayerState{
		ID:       id,
		Position: u.Position,
		Rotation: u.Rotation,
		Velocity: u.Velocity,
	}
	r.players[id] = st
	r.broadcastExcept(id, EvPlayerMoved, st)
	r.metrics.IncMovementUpdates()
}

// onDisconnect 删档并通知所有剩余连接；重复断开是无操作
func (r *Registry) onDisconnect(id PlayerID) {
	if conn, ok := r.conns[id]; ok {
		_ = conn.Close()
		delete(r.conns, id)
	}
	if _, ok := r.players[id]; !ok {
		r.metrics.IncDuplicateLeaves()
		return
	}
	delete(r.players, id)
	r.broadcastExcept("", EvPlayerDisconnected, id)

	r.metrics.IncDisconnects()
	r.log.Infof("player left: id=%s players=%d", id, len(r.players))
}

// sendTo 向单个连接发送一条事件消息，失败只计数不中断
func (r *Registry) sendTo(id PlayerID, event string, payload any) {
	conn, ok := r.conns[id]
	if !ok {
		return
	}
	b, err := Encode(event, payload)
	if err != nil {
		r.log.Errorf("encode %s: %v", event, err)
		return
	}
	if err := conn.Send(b); err != nil {
		r.metrics.IncSendsDropped()
		return
	}
	r.metrics.IncBroadcastsSent()
}

// broadcastExcept 向 except 以外的全部连接扇出；except 为空表示发给所有人。
// 单个连接发送失败不影响其余连接
func (r *Registry) broadcastExcept(except PlayerID, event string, payload any) {
	b, err := Encode(event, payload)
	if err != nil {
		r.log.Errorf("encode %s: %v", event, err)
		return
	}
	for id, conn := range r.conns {
		if id == except {
			continue
		}
		if err := conn.Send(b); err != nil {
			r.metrics.IncSendsDropped()
			continue
		}
		r.metrics.IncBroadcastsSent()
	}
}

// snapshotMap 全量快照（currentPlayers 载荷）
func (r *Registry) snapshotMap() map[PlayerID]PlayerState {
	out := make(map[PlayerID]PlayerState, len(r.players))
	for id, st := range r.players {
		out[id] = st
	}
	return out
}

// snapshotList 快照的列表形式（管理接口输出）
func (r *Registry) snapshotList() []PlayerState {
	out := make([]PlayerState, 0, len(r.players))
	for _, st := range r.players {
		out = append(out, st)
	}
	return out
}
