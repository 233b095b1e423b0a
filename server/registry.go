package server

import (
	"net"
	"sync"

	"go.uber.org/multierr"
)

// registry tracks the live client connections so that shutdown can
// force-close them. It is the only state shared between workers.
type registry struct {
	m     sync.Mutex
	conns map[net.Conn]struct{}
}

func (r *registry) Add(conn net.Conn) {
	r.m.Lock()
	defer r.m.Unlock()

	if r.conns == nil {
		r.conns = map[net.Conn]struct{}{}
	}

	r.conns[conn] = struct{}{}
}

func (r *registry) Remove(conn net.Conn) {
	r.m.Lock()
	defer r.m.Unlock()

	delete(r.conns, conn)
}

func (r *registry) Len() int {
	r.m.Lock()
	defer r.m.Unlock()

	return len(r.conns)
}

// CloseAll force-closes and removes every registered connection,
// unblocking any worker stuck in a read or write on it.
func (r *registry) CloseAll() error {
	r.m.Lock()
	defer r.m.Unlock()

	var err error
	for conn := range r.conns {
		err = multierr.Append(err, conn.Close())
		delete(r.conns, conn)
	}

	return err
}
