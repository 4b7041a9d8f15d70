package survey

import (
	"encoding/json"
	"sync"
)

// Store persists one serialized session snapshot per survey id. The
// durable implementation lives in internal/db; the in-memory one backs
// tests and single-process deployments.
type Store interface {
	// LoadSession returns the snapshot for the survey, or nil when none
	// is stored.
	LoadSession(userID, surveyID string) (*Session, error)
	// SaveSession overwrites the snapshot for the survey.
	SaveSession(userID, surveyID string, s *Session) error
	// ClearSession removes the snapshot. Clearing an absent snapshot is
	// not an error.
	ClearSession(userID, surveyID string) error
}

// EncodeSession serializes a session snapshot. Encoding is deterministic
// for a given session value so hydrating and re-saving without changes
// produces an identical blob.
func EncodeSession(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSession restores a snapshot produced by EncodeSession.
func DecodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Responses == nil {
		s.Responses = map[string]json.RawMessage{}
	}
	if s.CompletedSections == nil {
		s.CompletedSections = []int{}
	}
	if s.SubmissionStatus == "" {
		s.SubmissionStatus = SubmissionIdle
	}
	return &s, nil
}

type memoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemoryStore returns an in-memory session store.
func NewMemoryStore() Store {
	return &memoryStore{snapshots: map[string][]byte{}}
}

func sessionKey(userID, surveyID string) string { return userID + "/" + surveyID }

func (m *memoryStore) LoadSession(userID, surveyID string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.snapshots[sessionKey(userID, surveyID)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return DecodeSession(data)
}

func (m *memoryStore) SaveSession(userID, surveyID string, s *Session) error {
	data, err := EncodeSession(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.snapshots[sessionKey(userID, surveyID)] = data
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) ClearSession(userID, surveyID string) error {
	m.mu.Lock()
	delete(m.snapshots, sessionKey(userID, surveyID))
	m.mu.Unlock()
	return nil
}
