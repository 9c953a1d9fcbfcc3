package netserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/decden/hotelsync/pkg/persistence"
)

// defaultMaxConnections bounds how many sessions can be live at once;
// Accept blocks (rather than spawning unbounded goroutines) once the limit
// is reached.
const defaultMaxConnections = 256

// Server accepts TCP connections and hands each one to its own Session,
// all sharing the single backend passed to Listen (§4.9).
type Server struct {
	backend  persistence.Backend
	listener net.Listener
	log      *slog.Logger
	sem      *semaphore.Weighted

	mu       sync.Mutex
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
}

// Listen opens addr (default TCP port 8081 per §6.3) and returns a Server
// ready to Serve.
func Listen(addr string, backend persistence.Backend) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		backend:  backend,
		listener: ln,
		log:      slog.With("component", "netserver", "addr", addr),
		sem:      semaphore.NewWeighted(defaultMaxConnections),
		sessions: map[*Session]struct{}{},
	}, nil
}

// Addr returns the address the listener is bound to, useful when Listen
// was given port 0 and the OS picked one.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve accepts connections until the listener closes, refusing to start a
// new session past defaultMaxConnections concurrent ones. Call this from
// its own goroutine; it blocks until Close unblocks Accept with an error.
func (s *Server) Serve() error {
	ctx := context.Background()
	for {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		conn, err := s.listener.Accept()
		if err != nil {
			s.sem.Release(1)
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}
		s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	session := NewSession(conn, s.backend)
	s.log.Info("session accepted", "session_id", session.ID())

	s.mu.Lock()
	s.sessions[session] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		session.Serve(conn)
		s.mu.Lock()
		delete(s.sessions, session)
		s.mu.Unlock()
	}()
}

// Close stops accepting new connections and closes every active session's
// backend subscriptions. In-flight Serve calls return once their socket's
// read unblocks with an error.
func (s *Server) Close() error {
	err := s.listener.Close()

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	return err
}
