package gallery

import (
	"sync"
	"time"

	"github.com/ShussainML/schoolmealapp/pkg/pollinations"
)

// DebugEntry is one attempt's diagnostics as shown in the debug log.
type DebugEntry struct {
	Time      string             `json:"time"`
	Variation int                `json:"variation"`
	Status    string             `json:"status"`
	Elapsed   string             `json:"elapsed"`
	Debug     pollinations.Debug `json:"debug"`
}

// Session accumulates a single user session's generated images, the
// monotonic generation counter, and the diagnostic log. All methods are
// safe for concurrent use; the single generation flow and the clear action
// are the only writers in practice.
type Session struct {
	mu         sync.Mutex
	records    []*Record
	count      int
	debugLog   []DebugEntry
	lastActive time.Time

	maxRecords int
	maxDebug   int
}

func newSession(maxRecords, maxDebug int) *Session {
	return &Session{
		maxRecords: maxRecords,
		maxDebug:   maxDebug,
		lastActive: time.Now(),
	}
}

// AddBatch prepends a completed batch's records and debug entries, keeping
// newest-batch-first order and index order within the batch, and bumps the
// generation counter by the number of new records. Retention caps drop the
// oldest entries; the counter is never decremented.
func (s *Session) AddBatch(records []*Record, logs []DebugEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	s.records = append(append(make([]*Record, 0, len(records)+len(s.records)), records...), s.records...)
	if s.maxRecords > 0 && len(s.records) > s.maxRecords {
		s.records = s.records[:s.maxRecords]
	}

	s.debugLog = append(append(make([]DebugEntry, 0, len(logs)+len(s.debugLog)), logs...), s.debugLog...)
	if s.maxDebug > 0 && len(s.debugLog) > s.maxDebug {
		s.debugLog = s.debugLog[:s.maxDebug]
	}

	s.count += len(records)
}

// Clear resets records, counter, and debug log in one step.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	s.records = nil
	s.count = 0
	s.debugLog = nil
}

// Records returns the records newest-first.
func (s *Session) Records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// Record looks a record up by ID.
func (s *Session) Record(id string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// GenerationCount reports how many successful generations the session has
// accumulated since it was created or last cleared.
func (s *Session) GenerationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// DebugLog returns the diagnostic entries newest-first.
func (s *Session) DebugLog() []DebugEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DebugEntry, len(s.debugLog))
	copy(out, s.debugLog)
	return out
}

func (s *Session) idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive)
}
