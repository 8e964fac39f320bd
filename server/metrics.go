package server

import (
	"sync/atomic"
)

// RelayMetrics 记录中继运行期的关键指标（用于监控与调试）
type RelayMetrics struct {
	Connects           int64 // 成功接入的连接数
	Disconnects        int64 // 正常移除的连接数
	MovementUpdates    int64 // 被接受并广播的移动上报数
	BroadcastsSent     int64 // 扇出的消息条数（按接收方计）
	SendsDropped       int64 // 因发送队列满被丢弃的消息数
	UnknownIDIgnored   int64 // 对未注册 id 的移动上报（按无操作处理）
	DuplicateLeaves    int64 // 重复断开（幂等无操作）
	BadMessagesIgnored int64 // 无法解析或未知事件的入站消息数
}

func (m *RelayMetrics) IncConnects()           { atomic.AddInt64(&m.Connects, 1) }
func (m *RelayMetrics) IncDisconnects()        { atomic.AddInt64(&m.Disconnects, 1) }
func (m *RelayMetrics) IncMovementUpdates()    { atomic.AddInt64(&m.MovementUpdates, 1) }
func (m *RelayMetrics) IncBroadcastsSent()     { atomic.AddInt64(&m.BroadcastsSent, 1) }
func (m *RelayMetrics) IncSendsDropped()       { atomic.AddInt64(&m.SendsDropped, 1) }
func (m *RelayMetrics) IncUnknownIDIgnored()   { atomic.AddInt64(&m.UnknownIDIgnored, 1) }
func (m *RelayMetrics) IncDuplicateLeaves()    { atomic.AddInt64(&m.DuplicateLeaves, 1) }
func (m *RelayMetrics) IncBadMessagesIgnored() { atomic.AddInt64(&m.BadMessagesIgnored, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RelayMetrics) Snapshot() map[string]any {
	return map[string]any{
		"connects":             atomic.LoadInt64(&m.Connects),
		"disconnects":          atomic.LoadInt64(&m.Disconnects),
		"movement_updates":     atomic.LoadInt64(&m.MovementUpdates),
		"broadcasts_sent":      atomic.LoadInt64(&m.BroadcastsSent),
		"sends_dropped":        atomic.LoadInt64(&m.SendsDropped),
		"unknown_id_ignored":   atomic.LoadInt64(&m.UnknownIDIgnored),
		"duplicate_leaves":     atomic.LoadInt64(&m.DuplicateLeaves),
		"bad_messages_ignored": atomic.LoadInt64(&m.BadMessagesIgnored),
	}
}
