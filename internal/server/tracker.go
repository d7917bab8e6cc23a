package server

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// trackedConn is a connection currently being handled
type trackedConn struct {
	ID         string
	Conn       net.Conn
	RemoteAddr string
	Accepted   time.Time
}

// connTracker records in-flight connections so shutdown can force them closed
type connTracker struct {
	mu    sync.Mutex
	conns map[string]*trackedConn
}

func newConnTracker() *connTracker {
	return &connTracker{conns: make(map[string]*trackedConn)}
}

// Add registers conn and returns its ID
func (t *connTracker) Add(conn net.Conn) *trackedConn {
	tc := &trackedConn{
		ID:         uuid.NewString(),
		Conn:       conn,
		RemoteAddr: conn.RemoteAddr().String(),
		Accepted:   time.Now(),
	}

	t.mu.Lock()
	t.conns[tc.ID] = tc
	t.mu.Unlock()
	return tc
}

// Remove forgets a connection; it does not close it
func (t *connTracker) Remove(id string) {
	t.mu.Lock()
	delete(t.conns, id)
	t.mu.Unlock()
}

// CloseAll closes every tracked connection and returns how many there were
func (t *connTracker) CloseAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.conns)
	for id, tc := range t.conns {
		tc.Conn.Close()
		delete(t.conns, id)
	}
	return n
}

func (t *connTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}
