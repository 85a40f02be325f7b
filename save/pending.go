package save

import (
	"github.com/dailyyoga/savekit/logger"
	"go.uber.org/zap"
)

// pendingTracker records which slots have an asynchronous load or save in
// flight. It is bookkeeping for status queries and never blocks a request.
type pendingTracker struct {
	log       logger.Logger
	subsystem string
	loading   map[string]struct{}
	saving    map[string]struct{}
}

func newPendingTracker(log logger.Logger, subsystem string) *pendingTracker {
	return &pendingTracker{
		log:       log,
		subsystem: subsystem,
		loading:   make(map[string]struct{}),
		saving:    make(map[string]struct{}),
	}
}

func (p *pendingTracker) beginLoad(slot string) {
	p.log.Info("start loading slot", zap.String("subsystem", p.subsystem), zap.String("slot", slot))
	p.loading[slot] = struct{}{}
}

func (p *pendingTracker) endLoad(slot string) {
	p.log.Info("finish loading slot", zap.String("subsystem", p.subsystem), zap.String("slot", slot))
	delete(p.loading, slot)
}

func (p *pendingTracker) beginSave(slot string) {
	p.log.Info("start saving slot", zap.String("subsystem", p.subsystem), zap.String("slot", slot))
	p.saving[slot] = struct{}{}
}

func (p *pendingTracker) endSave(slot string) {
	p.log.Info("finish saving slot", zap.String("subsystem", p.subsystem), zap.String("slot", slot))
	delete(p.saving, slot)
}

func (p *pendingTracker) isLoading(slot string) bool {
	_, ok := p.loading[slot]
	return ok
}

func (p *pendingTracker) isSaving(slot string) bool {
	_, ok := p.saving[slot]
	return ok
}

func (p *pendingTracker) anyLoading() bool { return len(p.loading) > 0 }
func (p *pendingTracker) anySaving() bool  { return len(p.saving) > 0 }
