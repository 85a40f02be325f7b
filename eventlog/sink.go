package eventlog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/routine"
	"github.com/dailyyoga/savekit/save"
	"go.uber.org/zap"
)

// Sink batches slot events into an Inserter.
type Sink struct {
	config   *Config
	logger   logger.Logger
	inserter Inserter

	rows    chan Row
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Int64
}

var _ save.Observer = (*Sink)(nil)

// NewSink returns a started Sink writing through ins. Close stops it and
// closes ins.
func NewSink(log logger.Logger, cfg *Config, ins Inserter) (*Sink, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if ins == nil {
		return nil, ErrInvalidConfig("inserter is required")
	}

	s := &Sink{
		config:   cfg,
		logger:   log,
		inserter: ins,
		rows:     make(chan Row, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	routine.GoNamed(log, "eventlog", s.processLoop)

	log.Info("event log sink started",
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
		zap.Int("flush_size", cfg.FlushSize),
		zap.Int("min_flush_size", cfg.MinFlushSize),
		zap.Duration("max_wait_time", cfg.MaxWaitTime),
	)
	return s, nil
}

// Observe queues ev. A full queue drops the event.
func (s *Sink) Observe(ev save.Event) {
	if err := s.Write(ev); err != nil {
		if n := s.dropped.Add(1); n == 1 || n%1000 == 0 {
			s.logger.Warn("dropping slot events", zap.Int64("dropped", n), zap.Error(err))
		}
	}
}

// Write queues ev without blocking.
func (s *Sink) Write(ev save.Event) error {
	if s.closed.Load() {
		return ErrClosed
	}
	select {
	case s.rows <- newRow(ev):
		return nil
	default:
		return ErrQueueFull
	}
}

// Dropped reports how many events were discarded.
func (s *Sink) Dropped() int64 { return s.dropped.Load() }

// Close flushes queued rows and closes the inserter.
func (s *Sink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info("event log sink shutting down")
	close(s.done)
	s.wg.Wait()
	return s.inserter.Close()
}

func (s *Sink) processLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	var (
		buffer []Row
		first  time.Time
	)
	flush := func() {
		s.flush(buffer)
		buffer = nil
		first = time.Time{}
	}

	for {
		select {
		case row := <-s.rows:
			if len(buffer) == 0 {
				first = time.Now()
			}
			buffer = append(buffer, row)
			if len(buffer) >= s.config.FlushSize {
				flush()
			}

		case <-ticker.C:
			if len(buffer) == 0 {
				continue
			}
			if s.shouldFlush(len(buffer), time.Since(first)) {
				flush()
			} else {
				s.logger.Debug("skipping flush, waiting for more events",
					zap.Int("current_rows", len(buffer)),
					zap.Int("min_flush_size", s.config.MinFlushSize),
				)
			}

		case <-s.done:
			// Write rejects new rows once closed, so the queue only shrinks
			for drained := false; !drained; {
				select {
				case row := <-s.rows:
					buffer = append(buffer, row)
				default:
					drained = true
				}
			}
			if len(buffer) > 0 {
				flush()
			}
			s.logger.Info("event log sink stopped")
			return
		}
	}
}

// shouldFlush applies the MinFlushSize and MaxWaitTime rules to a timer tick.
func (s *Sink) shouldFlush(rows int, waited time.Duration) bool {
	if s.config.MinFlushSize == 0 || rows >= s.config.MinFlushSize {
		return true
	}
	return s.config.MaxWaitTime > 0 && waited >= s.config.MaxWaitTime
}

func (s *Sink) flush(rows []Row) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.FlushInterval)
	defer cancel()

	if err := s.inserter.Insert(ctx, rows); err != nil {
		s.logger.Error("failed to insert slot events", zap.Int("rows", len(rows)), zap.Error(err))
		return
	}
	s.logger.Debug("slot events flushed", zap.Int("rows", len(rows)))
}
