package storage

import (
	"context"
	"sync/atomic"

	"github.com/dailyyoga/savekit/codec"
	"github.com/dailyyoga/savekit/dispatch"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/routine"
	"github.com/dailyyoga/savekit/save"
	"go.uber.org/zap"
)

// Backend adapts a BlobStore to save.Backend.
type Backend struct {
	config     *Config
	logger     logger.Logger
	store      BlobStore
	codec      *codec.Codec
	dispatcher dispatch.Dispatcher
	runner     routine.Runner
	closed     atomic.Bool
}

var _ save.Backend = (*Backend)(nil)

// NewBackend creates a Backend. Completions of asynchronous calls are posted
// to dispatcher.
func NewBackend(log logger.Logger, store BlobStore, c *codec.Codec, dispatcher dispatch.Dispatcher, cfg *Config) (*Backend, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrInvalidConfig("store is required")
	}
	if c == nil {
		return nil, ErrInvalidConfig("codec is required")
	}
	if dispatcher == nil {
		return nil, ErrInvalidConfig("dispatcher is required")
	}

	b := &Backend{
		config:     cfg,
		logger:     log,
		store:      store,
		codec:      c,
		dispatcher: dispatcher,
		runner:     routine.New(log, routine.WithLimit(cfg.Workers)),
	}

	log.Info("storage backend initialized",
		zap.Int("workers", cfg.Workers),
		zap.Duration("io_timeout", cfg.IOTimeout),
	)
	return b, nil
}

// Store returns the underlying blob store.
func (b *Backend) Store() BlobStore { return b.store }

// Codec returns the codec records are encoded with.
func (b *Backend) Codec() *codec.Codec { return b.codec }

func (b *Backend) Exists(ctx context.Context, userIndex int, slot string) (bool, error) {
	if b.closed.Load() {
		return false, ErrClosed
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return b.store.Exists(ctx, Key{User: userIndex, Slot: slot})
}

func (b *Backend) Load(ctx context.Context, userIndex int, slot string) (any, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	return b.load(ctx, Key{User: userIndex, Slot: slot})
}

func (b *Backend) LoadAsync(userIndex int, slot string, done func(obj any, err error)) {
	key := Key{User: userIndex, Slot: slot}
	if b.closed.Load() {
		b.complete(key, func() { done(nil, ErrClosed) })
		return
	}

	b.runner.GoNamed("load "+key.String(), func() {
		var obj any
		err := b.guard(func() (err error) {
			obj, err = b.load(context.Background(), key)
			return err
		})
		b.complete(key, func() { done(obj, err) })
	})
}

func (b *Backend) Save(ctx context.Context, userIndex int, slot string, rec save.Record) error {
	if b.closed.Load() {
		return ErrClosed
	}
	key := Key{User: userIndex, Slot: slot}
	blob, err := b.codec.Encode(rec)
	if err != nil {
		return err
	}
	return b.write(ctx, key, blob)
}

// SaveAsync encodes rec on the calling goroutine, so the caller may keep
// changing it while the write is in flight.
func (b *Backend) SaveAsync(userIndex int, slot string, rec save.Record, done func(err error)) {
	key := Key{User: userIndex, Slot: slot}
	if b.closed.Load() {
		b.complete(key, func() { done(ErrClosed) })
		return
	}

	blob, err := b.codec.Encode(rec)
	if err != nil {
		b.complete(key, func() { done(err) })
		return
	}

	b.runner.GoNamed("save "+key.String(), func() {
		err := b.guard(func() error {
			return b.write(context.Background(), key, blob)
		})
		b.complete(key, func() { done(err) })
	})
}

func (b *Backend) Fabricate(t save.Type) save.Record {
	return b.codec.Fabricate(t)
}

// Close waits for in-flight reads and writes. Their completions are still
// posted to the dispatcher.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.logger.Info("storage backend shutting down", zap.Int("in_flight", b.runner.Running()))
	b.runner.Wait()
	b.logger.Info("storage backend shutdown complete")
	return nil
}

func (b *Backend) load(ctx context.Context, key Key) (any, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	blob, err := b.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	obj, err := b.codec.Decode(blob)
	if err != nil {
		return nil, ErrRead(key, err)
	}
	b.logger.Debug("blob loaded", zap.Stringer("key", key), zap.Int("size", len(blob)))
	return obj, nil
}

func (b *Backend) write(ctx context.Context, key Key, blob []byte) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.store.Write(ctx, key, blob); err != nil {
		return ErrWrite(key, err)
	}
	b.logger.Debug("blob written", zap.Stringer("key", key), zap.Int("size", len(blob)))
	return nil
}

// guard turns a panic in fn into an error so done still runs.
func (b *Backend) guard(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = routine.ErrPanic(rec)
			b.logger.Error("storage operation panicked", zap.Error(err))
		}
	}()
	return fn()
}

func (b *Backend) complete(key Key, fn func()) {
	if err := b.dispatcher.Post(fn); err != nil {
		b.logger.Warn("dropping storage completion", zap.Stringer("key", key), zap.Error(err))
	}
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.config.IOTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.config.IOTimeout)
}
