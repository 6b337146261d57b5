package warehouse

import (
	"context"
	"sync"
)

// Connector opens a fresh warehouse connection.
type Connector func(ctx context.Context) (Warehouse, error)

// Lazy is the single shared connection handle for one interactive session.
// The connection is established on first use, reused across calls, and only
// re-established after an explicit Reset. It is never pooled or multiplexed.
type Lazy struct {
	mu      sync.Mutex
	connect Connector
	wh      Warehouse
}

// NewLazy creates a lazy handle around the given connector.
func NewLazy(connect Connector) *Lazy {
	return &Lazy{connect: connect}
}

// Get returns the shared connection, establishing it on first use.
func (l *Lazy) Get(ctx context.Context) (Warehouse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wh != nil {
		return l.wh, nil
	}
	wh, err := l.connect(ctx)
	if err != nil {
		return nil, err
	}
	l.wh = wh
	return l.wh, nil
}

// Reset discards the cached connection so the next call connects afresh.
// Called after a connection-level failure.
func (l *Lazy) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wh != nil {
		l.wh.Close()
		l.wh = nil
	}
}

// Close releases the cached connection, ending the session.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wh == nil {
		return nil
	}
	err := l.wh.Close()
	l.wh = nil
	return err
}
