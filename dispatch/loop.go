package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/routine"
	"github.com/smallnest/chanx"
	"go.uber.org/zap"
)

// Loop is an unbounded mailbox drained by one goroutine.
type Loop struct {
	config *Config
	logger logger.Logger

	queue *chanx.UnboundedChan[func()]

	// mu guards sends on queue.In against Close
	mu      sync.RWMutex
	closed  atomic.Bool
	running atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// NewLoop creates a Loop. Nothing runs until Run or RunPending is called.
func NewLoop(log logger.Logger, cfg *Config) (*Loop, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		config: cfg,
		logger: log,
		queue:  chanx.NewUnboundedChan[func()](context.Background(), cfg.QueueCapacity),
		done:   make(chan struct{}),
	}

	log.Info("dispatch loop initialized",
		zap.String("loop", cfg.Name),
		zap.Int("queue_capacity", cfg.QueueCapacity),
	)
	return l, nil
}

// Post queues fn for the owner goroutine.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed.Load() {
		return ErrClosed
	}
	l.queue.In <- fn
	return nil
}

// Do queues fn and waits until the owner goroutine has run it.
// It must not be called from the owner goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// the queue is fully drained before done closes
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the mailbox on the calling goroutine, which becomes the owner.
// It returns when ctx is cancelled or after Close once the queue is empty.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	l.logger.Info("dispatch loop started", zap.String("loop", l.config.Name))

	for {
		select {
		case fn, ok := <-l.queue.Out:
			if !ok {
				l.logger.Info("dispatch loop stopped", zap.String("loop", l.config.Name))
				l.once.Do(func() { close(l.done) })
				return nil
			}
			l.run(fn)
		case <-ctx.Done():
			l.logger.Info("dispatch loop cancelled",
				zap.String("loop", l.config.Name),
				zap.Int("pending", l.queue.Len()),
			)
			return ctx.Err()
		}
	}
}

// RunPending runs the functions queued so far without waiting for more and
// reports how many ran. It lets a caller with its own frame loop act as the
// owner goroutine.
func (l *Loop) RunPending() int {
	n := 0
	for {
		select {
		case fn, ok := <-l.queue.Out:
			if !ok {
				l.once.Do(func() { close(l.done) })
				return n
			}
			l.run(fn)
			n++
		default:
			// chanx may still hold items between In and Out
			if l.queue.Len() == 0 {
				return n
			}
		}
	}
}

// Len reports how many functions are waiting.
func (l *Loop) Len() int {
	return l.queue.Len()
}

// Close stops accepting functions. Functions already queued still run.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed.CompareAndSwap(false, true) {
		return
	}

	l.logger.Info("dispatch loop closing",
		zap.String("loop", l.config.Name),
		zap.Int("pending", l.queue.Len()),
	)
	close(l.queue.In)
}

func (l *Loop) run(fn func()) {
	defer routine.Recover(l.logger, l.config.Name)
	fn()
}
