package server

import (
	"time"

	"go.uber.org/zap"
)

// StatsReporter 周期性输出在线人数与指标摘要（中继本身无 Tick，
// 状态上报是即时扇出，这里只做运行观测）
type StatsReporter struct {
	registry *Registry
	metrics  *RelayMetrics
	log      *zap.SugaredLogger
	interval time.Duration
	quit     chan struct{}
}

func NewStatsReporter(reg *Registry, metrics *RelayMetrics, log *zap.SugaredLogger, interval time.Duration) *StatsReporter {
	return &StatsReporter{
		registry: reg,
		metrics:  metrics,
		log:      log,
		interval: interval,
		quit:     make(chan struct{}),
	}
}

// Start 启动统计协程；interval<=0 表示关闭
func (s *StatsReporter) Start() {
	if s.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				s.report()
			}
		}
	}()
}

func (s *StatsReporter) Stop() {
	close(s.quit)
}

func (s *StatsReporter) report() {
	reply := make(chan []PlayerState, 1)
	select {
	case s.registry.Inbox <- Query{Reply: reply}:
	case <-time.After(time.Second):
		return
	}
	select {
	case players := <-reply:
		snap := s.metrics.Snapshot()
		s.log.Infof("stats: players=%d updates=%v broadcasts=%v dropped=%v",
			len(players), snap["movement_updates"], snap["broadcasts_sent"], snap["sends_dropped"])
	case <-time.After(time.Second):
	}
}
