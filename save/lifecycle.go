package save

import (
	"github.com/dailyyoga/savekit/logger"
	"go.uber.org/zap"
)

// attach binds a record to its owner and slot without running any hook.
func attach(rec Record, t Type, owner Owner, slot string) {
	h := rec.header()
	h.owner = owner
	h.slot = slot
	if t != nil {
		h.typeName = t.Name()
	}
}

// initializeLoaded prepares a record read from storage.
func initializeLoaded(rec Record, t Type, owner Owner, slot string) {
	attach(rec, t, owner, slot)
	h := rec.header()
	h.setLoaded(h.SavedVersion)
	rec.OnPostLoad()
}

// resetToDefault prepares a freshly fabricated record.
func resetToDefault(rec Record, t Type, owner Owner, slot string) {
	attach(rec, t, owner, slot)
	h := rec.header()
	h.SavedVersion = InvalidVersion
	h.setLoaded(InvalidVersion)
	rec.OnResetToDefault()
}

// preSave stamps the latest version and opens a new save attempt.
func preSave(log logger.Logger, rec Record) {
	h := rec.header()
	h.SavedVersion = rec.LatestDataVersion()
	h.currentRequest++

	rec.OnPreSave()

	log.Info("starting to save record",
		zap.String("slot", h.slot),
		zap.Int("request", h.currentRequest),
		zap.Int("version", h.SavedVersion),
		zap.Int("user_index", h.owner.UserIndex),
	)
}

// postSave closes the current save attempt and runs the post-save hook. It
// returns an ErrCounterRegressed error when the completion does not advance
// the counter of its outcome, which overlapping saves of one record produce;
// the counter is then left untouched.
func postSave(log logger.Logger, rec Record, success bool) error {
	h := rec.header()

	var err error
	if success {
		if h.currentRequest > h.lastSuccess {
			h.lastSuccess = h.currentRequest
			log.Info("successfully saved record", saveFields(h)...)
		} else {
			err = ErrOutOfOrder("success", h.currentRequest, h.lastSuccess)
		}
	} else {
		if h.currentRequest > h.lastError {
			h.lastError = h.currentRequest
			log.Error("failed to save record", saveFields(h)...)
		} else {
			err = ErrOutOfOrder("error", h.currentRequest, h.lastError)
		}
	}

	rec.OnPostSave(success)
	return err
}

// reportOutOfOrder logs err from postSave at DPanic level. A development
// logger panics here, so callers run it after the completion is delivered.
func reportOutOfOrder(log logger.Logger, rec Record, err error) {
	if err == nil {
		return
	}
	log.DPanic("save completion out of order", append(saveFields(rec.header()), zap.Error(err))...)
}

func saveFields(h *Header) []zap.Field {
	return []zap.Field{
		zap.String("slot", h.slot),
		zap.Int("request", h.currentRequest),
		zap.Int("user_index", h.owner.UserIndex),
	}
}
