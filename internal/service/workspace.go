package service

import (
	"sync"

	"dashboard/internal/dataset"
	"dashboard/internal/models"
)

// Workspace is the per-session state between an upload and its inference decision.
// The table lives only in memory.
type Workspace struct {
	Upload    models.Upload  `json:"upload"`
	Table     *dataset.Table `json:"table"`
	Confirmed bool           `json:"confirmed"`
}

type workspaceStore struct {
	mu sync.RWMutex
	m  map[string]Workspace
}

func newWorkspaceStore() *workspaceStore {
	return &workspaceStore{m: make(map[string]Workspace)}
}

func (s *workspaceStore) get(sessionID string) (Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.m[sessionID]
	return ws, ok
}

func (s *workspaceStore) put(sessionID string, ws Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sessionID] = ws
}

// update applies fn only if the session still holds uploadID.
func (s *workspaceStore) update(sessionID, uploadID string, fn func(*Workspace)) (Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.m[sessionID]
	if !ok || ws.Upload.ID != uploadID {
		return Workspace{}, false
	}
	fn(&ws)
	s.m[sessionID] = ws
	return ws, true
}

func (s *workspaceStore) delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, sessionID)
}
