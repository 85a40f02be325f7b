// Package app wires savekit together from settings: logger, dispatch loop,
// blob store, storage backend, save subsystems, autosave chains, kafka
// notifications and the clickhouse event log.
//
// Every subsystem is owned by the goroutine running the dispatch loop. Code
// outside that goroutine reaches a subsystem through App.Do.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dailyyoga/savekit/autosave"
	"github.com/dailyyoga/savekit/codec"
	"github.com/dailyyoga/savekit/dispatch"
	"github.com/dailyyoga/savekit/eventlog"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/notify"
	"github.com/dailyyoga/savekit/routine"
	"github.com/dailyyoga/savekit/save"
	"github.com/dailyyoga/savekit/settings"
	"github.com/dailyyoga/savekit/storage"
	"go.uber.org/zap"
)

// Option configures an App
type Option func(*App)

// WithLogger uses log instead of building one from the logger settings.
func WithLogger(log logger.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithStore uses store instead of opening the configured driver. The App
// closes it on Close.
func WithStore(store storage.BlobStore) Option {
	return func(a *App) { a.store = store }
}

// WithProducer publishes slot events through p instead of a kafka producer.
func WithProducer(p notify.Producer) Option {
	return func(a *App) { a.producer = p }
}

// WithConsumer reads invalidations from c instead of a kafka consumer.
func WithConsumer(c notify.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

// WithInserter writes the event log through ins instead of connecting to
// clickhouse. It only takes effect when the eventlog section is enabled.
func WithInserter(ins eventlog.Inserter) Option {
	return func(a *App) { a.inserter = ins }
}

// App owns every savekit component built from one settings value.
type App struct {
	settings *settings.Settings
	log      logger.Logger
	registry *codec.Registry

	loop      *dispatch.Loop
	store     storage.BlobStore
	backend   *storage.Backend
	names     []string
	subs      map[string]*save.Subsystem
	scheduler autosave.Scheduler

	producer  notify.Producer
	consumer  notify.Consumer
	publisher *notify.Publisher
	listener  *notify.Listener

	inserter eventlog.Inserter
	sink     *eventlog.Sink

	mu       sync.Mutex
	started  bool
	closed   bool
	loopDone chan struct{}
}

// New builds every component. Nothing runs until Start.
func New(s *settings.Settings, registry *codec.Registry, opts ...Option) (*App, error) {
	if s == nil {
		s = settings.Default()
	}
	if registry == nil {
		return nil, ErrInvalidConfig("codec registry is required")
	}

	a := &App{
		settings: s,
		registry: registry,
		subs:     make(map[string]*save.Subsystem),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.build(); err != nil {
		a.release()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	var err error
	if a.log == nil {
		if a.log, err = logger.New(a.settings.Logger); err != nil {
			return ErrComponent("logger", err)
		}
	}

	if a.loop, err = dispatch.NewLoop(a.log, a.settings.Dispatch); err != nil {
		return ErrComponent("dispatch", err)
	}

	if a.store == nil {
		if a.store, err = OpenStore(a.log, a.settings.Storage); err != nil {
			return err
		}
	}
	a.backend, err = storage.NewBackend(a.log, a.store, codec.New(a.registry), a.loop, a.settings.Storage.Backend)
	if err != nil {
		return ErrComponent("storage", err)
	}

	ncfg := a.settings.Notify
	var observers save.Observers
	if ncfg.EventsTopic != "" {
		if a.producer == nil {
			if a.producer, err = notify.NewProducer(a.log, ncfg.Producer, !ncfg.SkipClusterCheck); err != nil {
				return ErrComponent("notify producer", err)
			}
		}
		if a.publisher, err = notify.NewPublisher(a.log, a.producer, ncfg.EventsTopic); err != nil {
			return ErrComponent("notify publisher", err)
		}
		observers = append(observers, a.publisher)
	}
	if ecfg := a.settings.EventLog; ecfg.Enabled() {
		if a.inserter == nil {
			if a.inserter, err = eventlog.Connect(a.log, ecfg); err != nil {
				return ErrComponent("eventlog", err)
			}
		}
		if a.sink, err = eventlog.NewSink(a.log, ecfg, a.inserter); err != nil {
			return ErrComponent("eventlog", err)
		}
		observers = append(observers, a.sink)
	}

	var opts []save.Option
	if len(observers) > 0 {
		opts = append(opts, save.WithObserver(observers))
	}

	for _, sc := range a.settings.Subsystems {
		cfg := sc.Config
		sub, err := save.New(a.log, a.backend, &cfg, opts...)
		if err != nil {
			return ErrComponent("subsystem "+sc.Name, err)
		}
		a.names = append(a.names, sub.Name())
		a.subs[sub.Name()] = sub
	}

	if err := a.buildAutosave(); err != nil {
		return err
	}

	if ncfg.InvalidationTopic != "" {
		if a.consumer == nil {
			if a.consumer, err = notify.NewConsumer(a.log, ncfg.Consumer, !ncfg.SkipClusterCheck); err != nil {
				return ErrComponent("notify consumer", err)
			}
		}
		a.listener = notify.NewListener(a.log, a.registry.Lookup)
		for _, name := range a.names {
			a.listener.Register(a.subs[name], a.loop)
		}
	}
	return nil
}

func (a *App) buildAutosave() error {
	for _, sc := range a.settings.Subsystems {
		if sc.AutoSave == nil {
			continue
		}
		if a.scheduler == nil {
			a.scheduler = autosave.NewScheduler(a.log)
		}

		sub := a.subs[sc.Name]
		timeout := autosave.TimeoutMiddleware(sc.AutoSave.Timeout)
		tasks := []autosave.Task{timeout(autosave.SaveAll(a.log, sub, a.loop))}
		if sc.AutoSave.Reload {
			tasks = append(tasks, timeout(autosave.ReloadAll(a.log, sub, a.loop, a.registry.Lookup)))
		}
		if err := a.scheduler.AddTasks(chainName(sc.Name), sc.AutoSave.Spec, tasks...); err != nil {
			return ErrComponent("autosave", err)
		}
	}
	return nil
}

func chainName(subsystem string) string {
	return "autosave:" + subsystem
}

// Start runs the dispatch loop on a new goroutine, queues the auto-load list
// of every subsystem and starts autosave and the invalidation listener.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return dispatch.ErrClosed
	}
	if a.started {
		return ErrAlreadyStarted
	}
	a.started = true

	routine.GoNamed(a.log, "dispatch", func() {
		defer close(a.loopDone)
		// the loop stops through Close, not through ctx
		_ = a.loop.Run(context.WithoutCancel(ctx))
	})

	for _, sc := range a.settings.Subsystems {
		sub := a.subs[sc.Name]
		entries := sc.AutoLoads(a.log, a.registry.Lookup)
		if err := a.loop.Post(func() { sub.Initialize(entries) }); err != nil {
			return ErrComponent("subsystem "+sc.Name, err)
		}
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}
	if a.listener != nil {
		if err := a.listener.Start(ctx, a.consumer); err != nil {
			return ErrComponent("notify listener", err)
		}
	}

	a.log.Info("savekit started",
		zap.Strings("subsystems", a.names),
		zap.String("storage", a.settings.Storage.Driver),
		zap.Bool("autosave", a.scheduler != nil),
		zap.Bool("events", a.publisher != nil),
		zap.Bool("eventlog", a.sink != nil),
		zap.Bool("invalidations", a.listener != nil),
	)
	return nil
}

// Run starts the app, blocks until ctx is done and closes it.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return errors.Join(err, a.Close())
	}
	<-ctx.Done()
	return a.Close()
}

// Do runs fn on the owner goroutine and waits for it.
func (a *App) Do(ctx context.Context, fn func()) error {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return a.loop.Do(ctx, fn)
}

// Subsystem returns the subsystem with the given name. It may only be used
// inside Do.
func (a *App) Subsystem(name string) (*save.Subsystem, error) {
	sub, ok := a.subs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubsystem, name)
	}
	return sub, nil
}

// Subsystems lists the subsystem names in settings order.
func (a *App) Subsystems() []string {
	return append([]string(nil), a.names...)
}

// Registry returns the record type registry.
func (a *App) Registry() *codec.Registry { return a.registry }

// Store returns the blob store.
func (a *App) Store() storage.BlobStore { return a.store }

// Logger returns the app logger.
func (a *App) Logger() logger.Logger { return a.log }

// Autosave runs the autosave chain of a subsystem right away.
func (a *App) Autosave(name string) error {
	if a.scheduler == nil {
		return fmt.Errorf("%w: %s has no autosave", ErrUnknownSubsystem, name)
	}
	return a.scheduler.RunNow(chainName(name))
}

// Close stops intake, lets in-flight I/O complete on the owner goroutine and
// then releases every component.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	started := a.started
	a.mu.Unlock()

	var errs []error
	if a.consumer != nil {
		errs = append(errs, a.consumer.Close())
		a.consumer = nil
	}
	if a.scheduler != nil {
		a.scheduler.Close()
	}
	errs = append(errs, a.backend.Close())

	a.loop.Close()
	if started {
		<-a.loopDone
	}
	for _, name := range a.names {
		a.subs[name].Close()
	}

	errs = append(errs, a.release())
	a.log.Info("savekit stopped")
	_ = a.log.Sync()
	return errors.Join(errs...)
}

// release closes what build may have opened before failing.
func (a *App) release() error {
	var errs []error
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	if a.consumer != nil {
		errs = append(errs, a.consumer.Close())
	}
	// the sink closes its inserter
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	} else if a.inserter != nil {
		errs = append(errs, a.inserter.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
