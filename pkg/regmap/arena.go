package regmap

import (
	"slices"
	"sync"
)

// Arena indexes live connections by id. Completions are routed through it
// so that a completion whose connection was removed is a no-op.
type Arena struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewArena() *Arena {
	return &Arena{
		conns: make(map[string]*Connection),
	}
}

func (a *Arena) Add(conn *Connection) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conns[conn.Id()] = conn
}

func (a *Arena) Remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.conns, id)
}

func (a *Arena) Get(id string) (*Connection, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	conn, ok := a.conns[id]
	return conn, ok
}

func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.conns)
}

func (a *Arena) Ids() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.conns))
	for id := range a.conns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Complete delivers res to the connection of req. It reports false when
// the connection is already gone.
func (a *Arena) Complete(req PendingRequest, res Result) (int, bool) {
	conn, ok := a.Get(req.ConnectionID)
	if !ok {
		return 0, false
	}
	return conn.Complete(req, res), true
}
