package autosave

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/routine"
	"go.uber.org/zap"
)

// Middleware wraps a Task with extra behavior such as recovery or timeouts.
type Middleware func(Task) Task

type taskFunc struct {
	name string
	run  func(ctx context.Context) error
}

func (t taskFunc) Name() string                  { return t.name }
func (t taskFunc) Run(ctx context.Context) error { return t.run(ctx) }

// TaskFunc adapts a function to Task
func TaskFunc(name string, fn func(ctx context.Context) error) Task {
	return taskFunc{name: name, run: fn}
}

// wrap applies mws so that the first one runs outermost.
func wrap(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// recoverTask turns a panicking task into a failed one.
func recoverTask(log logger.Logger) Middleware {
	return func(next Task) Task {
		return TaskFunc(next.Name(), func(ctx context.Context) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = routine.ErrPanic(rec)
					log.Error("autosave task panicked",
						zap.String("task", next.Name()),
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
					)
				}
			}()
			return next.Run(ctx)
		})
	}
}

// logTask logs how long a task ran and whether it failed.
func logTask(log logger.Logger) Middleware {
	return func(next Task) Task {
		return TaskFunc(next.Name(), func(ctx context.Context) error {
			start := time.Now()
			err := next.Run(ctx)
			fields := []zap.Field{
				zap.String("task", next.Name()),
				zap.Duration("elapsed", time.Since(start)),
			}
			if err != nil {
				log.Error("autosave task failed", append(fields, zap.Error(err))...)
				return err
			}
			log.Debug("autosave task done", fields...)
			return nil
		})
	}
}

// TimeoutMiddleware bounds every task run by d. A zero d leaves the task alone.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(next Task) Task {
		if d <= 0 {
			return next
		}
		return TaskFunc(next.Name(), func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Run(ctx)
		})
	}
}
