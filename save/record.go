package save

// InvalidVersion marks a record that was never loaded from storage.
const InvalidVersion = -1

// Owner identifies the context a Subsystem and its records belong to.
// Process-wide subsystems use user index 0.
type Owner struct {
	ID        string
	UserIndex int
}

// Record is a persisted entity managed by a Subsystem.
//
// Implementations embed Header, which provides the bookkeeping and no-op
// defaults for every hook. Hooks are called by the Subsystem only.
type Record interface {
	header() *Header

	// LatestDataVersion is stamped into SavedDataVersion before every save.
	LatestDataVersion() int

	// OnPostLoad runs after a record read from storage enters the cache.
	OnPostLoad()
	// OnResetToDefault runs on a freshly fabricated record.
	OnResetToDefault()
	// OnPreSave runs right before the record is handed to storage. The
	// in-flight attempt number is already visible through CurrentSaveRequest.
	OnPreSave()
	// OnPostSave runs once the storage write completed.
	OnPostSave(success bool)
}

// Header carries the versioning and save-request counters of a Record.
// Only SavedVersion is persisted; everything else lives for the session.
type Header struct {
	SavedVersion int `msgpack:"saved_data_version" json:"saved_data_version"`

	loadedVersion  int
	loadedSet      bool
	currentRequest int
	lastSuccess    int
	lastError      int
	slot           string
	typeName       string
	owner          Owner
}

func (h *Header) header() *Header { return h }

// HeaderOf exposes the bookkeeping of any record.
func HeaderOf(rec Record) *Header {
	if rec == nil {
		return nil
	}
	return rec.header()
}

func (h *Header) LatestDataVersion() int { return 0 }
func (h *Header) OnPostLoad()            {}
func (h *Header) OnResetToDefault()      {}
func (h *Header) OnPreSave()             {}
func (h *Header) OnPostSave(bool)        {}

// SavedDataVersion is the version stamped at the last save, or read from storage.
func (h *Header) SavedDataVersion() int { return h.SavedVersion }

// LoadedDataVersion is the version observed at load time. It is InvalidVersion
// for fabricated records and for records the Subsystem has not installed yet.
func (h *Header) LoadedDataVersion() int {
	if !h.loadedSet {
		return InvalidVersion
	}
	return h.loadedVersion
}

// WasLoaded reports whether the record came from an existing blob.
func (h *Header) WasLoaded() bool { return h.LoadedDataVersion() != InvalidVersion }

// CurrentSaveRequest is bumped on every save attempt.
func (h *Header) CurrentSaveRequest() int { return h.currentRequest }

// LastSuccessfulSaveRequest is the attempt number of the last successful save.
func (h *Header) LastSuccessfulSaveRequest() int { return h.lastSuccess }

// LastErrorSaveRequest is the attempt number of the last failed save.
func (h *Header) LastErrorSaveRequest() int { return h.lastError }

// IsSaveInProgress reports whether the latest attempt has not completed yet.
func (h *Header) IsSaveInProgress() bool {
	return h.currentRequest > max(h.lastSuccess, h.lastError)
}

// WasSaveRequested reports whether a save was ever attempted this session.
func (h *Header) WasSaveRequested() bool { return h.currentRequest > 0 }

// WasLastSaveSuccessful reports whether the most recent completed save succeeded.
func (h *Header) WasLastSaveSuccessful() bool {
	return h.WasSaveRequested() && h.lastSuccess > h.lastError
}

// SlotName is the resolved slot the record was loaded from and saves to.
func (h *Header) SlotName() string { return h.slot }

// TypeName is the name of the Type the record was installed with, if any.
func (h *Header) TypeName() string { return h.typeName }

// Owner is the context of the Subsystem holding the record.
func (h *Header) Owner() Owner { return h.owner }

// UserIndex is the storage user index the record saves under.
func (h *Header) UserIndex() int { return h.owner.UserIndex }

func (h *Header) setLoaded(version int) {
	h.loadedVersion = version
	h.loadedSet = true
}
