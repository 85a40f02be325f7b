package autosave

import (
	"context"
	"fmt"
	"sync"

	"github.com/dailyyoga/savekit/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// chainJob represents a chain of tasks that execute sequentially
type chainJob struct {
	name   string
	tasks  []Task
	logger logger.Logger
}

// Run executes all tasks in the chain sequentially
// If any task fails, the chain is aborted and subsequent tasks are not executed
func (j *chainJob) Run() {
	_ = j.run()
}

func (j *chainJob) run() error {
	report := &Report{}
	ctx := withReport(context.Background(), report)

	j.logger.Debug("autosave chain started", zap.String("chain", j.name))
	for _, task := range j.tasks {
		if err := task.Run(ctx); err != nil {
			j.logger.Error("autosave chain aborted",
				zap.String("chain", j.name),
				zap.String("task", task.Name()),
				zap.Strings("failed_slots", report.Failed()),
				zap.Error(err),
			)
			return err
		}
	}
	j.logger.Info("autosave chain completed", zap.String("chain", j.name))
	return nil
}

// scheduler is the default implementation of the Scheduler interface
type scheduler struct {
	cron        *cron.Cron
	middlewares []Middleware
	logger      logger.Logger

	mu     sync.Mutex
	chains map[string]*chainJob
	closed bool
}

// newScheduler creates a new scheduler instance
func newScheduler(log logger.Logger, mws ...Middleware) *scheduler {
	return &scheduler{
		cron:        cron.New(cron.WithParser(parser)),
		middlewares: mws,
		logger:      log,
		chains:      make(map[string]*chainJob),
	}
}

// Start begins the scheduler
func (s *scheduler) Start() {
	s.cron.Start()
}

// Close stops the scheduler and waits for running chains to complete
func (s *scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("autosave scheduler stopped")
}

// AddTasks adds a chain of tasks to be executed according to the cron spec
// Both 5-field and 6-field (with seconds) specs are accepted, as are
// descriptors such as "@every 5m"
func (s *scheduler) AddTasks(name, spec string, tasks ...Task) error {
	if len(tasks) == 0 {
		return ErrNoTasks
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.chains[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChain, name)
	}

	// task names are prefixed with the chain name in logs only; the
	// report keys outcomes by the task's own name
	wrapped := make([]Task, len(tasks))
	for i, task := range tasks {
		wrapped[i] = wrap(TaskFunc(name+":"+task.Name(), task.Run), s.middlewares...)
	}

	job := &chainJob{
		name:   name,
		tasks:  wrapped,
		logger: s.logger,
	}

	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("%w: chain %s with spec %q: %v", ErrInvalidSpec, name, spec, err)
	}
	s.chains[name] = job

	s.logger.Info("autosave chain added",
		zap.String("chain", name),
		zap.String("spec", spec),
		zap.Int("tasks", len(tasks)),
	)

	return nil
}

// AddChain is alias for AddTasks
func (s *scheduler) AddChain(chain Chain) error {
	return s.AddTasks(chain.Name, chain.Spec, chain.Tasks...)
}

// RunNow executes a registered chain immediately
func (s *scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.chains[name]
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrChainNotFound, name)
	}
	return job.run()
}
