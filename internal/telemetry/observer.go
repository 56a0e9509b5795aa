package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stage names reported by the audit pipeline.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageDiff      = "diff"
	StageJudge     = "judge"
)

type StageObserver interface {
	ObserveStage(stage string, duration time.Duration)
}

type StageLogger struct {
	logger *zap.Logger
}

func NewStageLogger(logger *zap.Logger) *StageLogger {
	return &StageLogger{logger: logger}
}

func (l *StageLogger) ObserveStage(stage string, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Debug("audit_stage_latency",
		zap.String("stage", stage),
		zap.Float64("duration_ms", float64(duration.Microseconds())/1000.0))
}

// Multi fans one observation out to every non-nil observer.
type Multi []StageObserver

func (m Multi) ObserveStage(stage string, duration time.Duration) {
	for _, o := range m {
		if o != nil {
			o.ObserveStage(stage, duration)
		}
	}
}

// AsyncStageObserver hands observations to next on a single goroutine.
// Observations made while the buffer is full, or after Close, are dropped
// and counted.
type AsyncStageObserver struct {
	next    StageObserver
	events  chan stageEvent
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

type stageEvent struct {
	stage    string
	duration time.Duration
}

func NewAsyncStageObserver(next StageObserver, buffer int) *AsyncStageObserver {
	if buffer <= 0 {
		buffer = 1
	}

	o := &AsyncStageObserver{
		next:   next,
		events: make(chan stageEvent, buffer),
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for ev := range o.events {
			if o.next == nil {
				continue
			}
			o.next.ObserveStage(ev.stage, ev.duration)
		}
	}()

	return o
}

func (o *AsyncStageObserver) ObserveStage(stage string, duration time.Duration) {
	if o == nil {
		return
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.dropped.Add(1)
		return
	}
	select {
	case o.events <- stageEvent{stage: stage, duration: duration}:
	default:
		o.dropped.Add(1)
	}
}

func (o *AsyncStageObserver) Dropped() uint64 {
	if o == nil {
		return 0
	}
	return o.dropped.Load()
}

// Close drains pending observations and stops the worker. Safe to call more
// than once.
func (o *AsyncStageObserver) Close() {
	if o == nil {
		return
	}
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		close(o.events)
		o.mu.Unlock()
		o.wg.Wait()
	})
}
