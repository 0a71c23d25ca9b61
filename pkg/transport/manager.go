package transport

import (
    "sort"
    "sync"
)

// Manager tracks live sessions by peer. A peer that connects again
// replaces its previous session, which is closed.
type Manager struct {
    mu    sync.RWMutex
    peers map[PeerID]Session
}

func NewManager() *Manager { return &Manager{peers: make(map[PeerID]Session)} }

// AddSession registers s. If the peer already had a session it is closed
// and returned.
func (m *Manager) AddSession(s Session) (old Session) {
    pid := s.Peer().ID
    m.mu.Lock()
    old = m.peers[pid]
    m.peers[pid] = s
    m.mu.Unlock()
    if old != nil && old != s { _ = old.Close() }
    return old
}

// RemoveSession forgets s if it is still the current session for its peer.
func (m *Manager) RemoveSession(s Session) {
    pid := s.Peer().ID
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.peers[pid] == s { delete(m.peers, pid) }
}

// GetSession returns the current session for a peer (if any).
func (m *Manager) GetSession(id PeerID) Session {
    m.mu.RLock()
    defer m.mu.RUnlock()
    return m.peers[id]
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
    m.mu.RLock(); defer m.mu.RUnlock()
    return len(m.peers)
}

// ListPeers returns all known peer IDs.
func (m *Manager) ListPeers() []PeerID {
    m.mu.RLock(); defer m.mu.RUnlock()
    out := make([]PeerID, 0, len(m.peers))
    for id := range m.peers { out = append(out, id) }
    sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
    return out
}

// CloseAll closes and forgets every session.
func (m *Manager) CloseAll() {
    m.mu.Lock()
    peers := m.peers
    m.peers = make(map[PeerID]Session)
    m.mu.Unlock()
    for _, s := range peers { _ = s.Close() }
}
