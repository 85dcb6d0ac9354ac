package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/straja-ai/arrhythmia/internal/activation"
	"github.com/straja-ai/arrhythmia/internal/service"
)

const (
	statusPending   = "pending"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// requestStore keeps recent request outcomes for GET /v1/requests/{id}.
type requestStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]requestEntry
}

type requestEntry struct {
	projectID  string
	status     string
	errCode    string
	activation *activation.Event
	expiresAt  time.Time
}

func newRequestStore(ttl time.Duration) *requestStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &requestStore{ttl: ttl, now: time.Now, data: make(map[string]requestEntry)}
}

func (s *requestStore) Start(requestID, projectID string) {
	if requestID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	s.data[requestID] = requestEntry{
		projectID: projectID,
		status:    statusPending,
		expiresAt: s.now().Add(s.ttl),
	}
}

func (s *requestStore) Complete(requestID string, ev *activation.Event, err error) {
	if requestID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()

	entry := requestEntry{status: statusCompleted, activation: ev, expiresAt: s.now().Add(s.ttl)}
	if err != nil {
		entry.status = statusFailed
		entry.errCode = service.ErrorCode(err)
	}
	if existing, ok := s.data[requestID]; ok {
		entry.projectID = existing.projectID
	} else if ev != nil {
		entry.projectID = ev.Meta.ProjectID
	}
	s.data[requestID] = entry
}

func (s *requestStore) Get(requestID string) (requestEntry, bool) {
	if requestID == "" {
		return requestEntry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	entry, ok := s.data[requestID]
	return entry, ok
}

func (s *requestStore) cleanupLocked() {
	now := s.now()
	for k, v := range s.data {
		if now.After(v.expiresAt) {
			delete(s.data, k)
		}
	}
}

func newRequestID() string {
	return uuid.NewString()
}
