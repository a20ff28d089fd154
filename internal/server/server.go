// Package server implements the TCP line server that multiplexes clients
// onto one shared Store. Each accepted connection gets a worker goroutine
// that owns one Handle; received bytes are written through the Store, and a
// terminator byte in the received data triggers echoing the entire current
// log contents back to that client.
package server

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	aesd "github.com/ehrlich-b/go-aesd"
	"github.com/ehrlich-b/go-aesd/internal/constants"
	"github.com/ehrlich-b/go-aesd/internal/interfaces"
)

// Config holds socket server configuration.
type Config struct {
	Port           int                 // TCP port to listen on (default 9000)
	Backlog        int                 // listen(2) backlog (default 10)
	RecvBufferSize int                 // per-worker receive buffer size (default 1024)
	Store          aesd.Store          // the log engine connections are multiplexed onto
	Logger         interfaces.Logger   // may be nil
	Observer       interfaces.Observer // connection-lifecycle observer (may be nil)
}

// worker is the per-connection bookkeeping entry in the server's registry.
type worker struct {
	id   string
	conn net.Conn
}

// Server accepts TCP connections and routes their bytes through a Store.
type Server struct {
	cfg      Config
	listener net.Listener

	// Live workers, keyed by worker ID. Guarded by its own mutex,
	// disjoint from the Store's internal mutex.
	workersMu sync.Mutex
	workers   map[string]*worker
	wg        sync.WaitGroup

	// Shutdown flag with its own mutex; the accept loop checks it to
	// distinguish a deliberate listener close from an accept failure.
	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a Server from config, applying defaults for zero fields.
// Config.Store is required.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, aesd.NewError("SERVER", aesd.ErrCodeInvalidArgument, "no store configured")
	}
	if cfg.Port == 0 {
		cfg.Port = constants.DefaultPort
	}
	if cfg.Port < 0 {
		// Negative port requests an ephemeral port from the kernel;
		// tests use this to avoid colliding on the default.
		cfg.Port = 0
	}
	if cfg.Backlog == 0 {
		cfg.Backlog = constants.DefaultBacklog
	}
	if cfg.RecvBufferSize == 0 {
		cfg.RecvBufferSize = constants.DefaultRecvBufferSize
	}
	return &Server{
		cfg:     cfg,
		workers: make(map[string]*worker),
	}, nil
}

// Start binds the listening socket and begins accepting connections on a
// background goroutine. A bind or listen failure is fatal and returned here.
func (s *Server) Start() error {
	ln, err := listenTCP(s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		return err
	}
	s.listener = ln

	if s.cfg.Logger != nil {
		s.cfg.Logger.Info("listening", "addr", ln.Addr().String(), "backlog", s.cfg.Backlog)
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the listener's bound address. Useful when Port was 0 and the
// kernel picked an ephemeral port (tests do this).
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown sets the shutdown flag, closes the listening socket to break the
// accept loop, closes every live worker's connection, and joins all workers.
func (s *Server) Shutdown() {
	s.shutdownMu.Lock()
	if s.shutdown {
		s.shutdownMu.Unlock()
		return
	}
	s.shutdown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}

	// Closing a worker's connection unblocks its pending Read.
	s.workersMu.Lock()
	for _, w := range s.workers {
		w.conn.Close()
	}
	s.workersMu.Unlock()

	s.wg.Wait()

	if s.cfg.Logger != nil {
		s.cfg.Logger.Info("server stopped")
	}
}

// shuttingDown reports whether Shutdown has begun.
func (s *Server) shuttingDown() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shutdown
}

// acceptLoop accepts connections until the listener is closed by Shutdown.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.shuttingDown() || errors.Is(err, net.ErrClosed) {
				return
			}
			// EINTR and other transient accept failures: log and retry.
			if s.cfg.Logger != nil {
				s.cfg.Logger.Warn("accept failed", "error", err)
			}
			continue
		}

		if s.shuttingDown() {
			if s.cfg.Observer != nil {
				s.cfg.Observer.ObserveConnection(false)
			}
			conn.Close()
			return
		}

		w := &worker{id: uuid.New().String(), conn: conn}
		s.workersMu.Lock()
		s.workers[w.id] = w
		s.workersMu.Unlock()

		if s.cfg.Observer != nil {
			s.cfg.Observer.ObserveConnection(true)
		}
		if s.cfg.Logger != nil {
			s.cfg.Logger.Info("accepted connection",
				"worker", w.id, "peer", conn.RemoteAddr().String())
		}

		s.wg.Add(1)
		go s.serveConn(w)
	}
}

// serveConn is the per-connection worker loop: one Handle, one recv buffer,
// bytes in through Store.Write, full-log echo out on every terminator.
func (s *Server) serveConn(w *worker) {
	defer s.wg.Done()
	defer func() {
		s.workersMu.Lock()
		delete(s.workers, w.id)
		s.workersMu.Unlock()
	}()
	defer w.conn.Close()

	h := s.cfg.Store.Open()
	defer s.cfg.Store.Close(h)

	buf := GetBuffer(s.cfg.RecvBufferSize)
	defer PutBuffer(buf)

	for {
		n, err := w.conn.Read(buf)
		if n > 0 {
			if serveErr := s.serveChunk(w, h, buf[:n]); serveErr != nil {
				if s.cfg.Logger != nil {
					s.cfg.Logger.Warn("closing connection",
						"worker", w.id, "error", serveErr)
				}
				return
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) && s.cfg.Logger != nil {
				s.cfg.Logger.Warn("recv failed", "worker", w.id, "error", err)
			} else if s.cfg.Logger != nil {
				s.cfg.Logger.Debug("peer closed", "worker", w.id)
			}
			return
		}
	}
}

// serveChunk handles one recv's worth of bytes. A returned error means the
// connection should be torn down; store-level operation failures on the
// seek directive are reported and the session continues.
func (s *Server) serveChunk(w *worker, h *aesd.Handle, chunk []byte) error {
	if arg, ok := ParseSeekDirective(chunk); ok {
		// The directive is not stored in the log. On success the drain
		// starts from the cursor the control op just set; on failure the
		// session continues.
		if err := s.cfg.Store.Control(h, aesd.SeekToCommand, arg); err != nil {
			if s.cfg.Logger != nil {
				s.cfg.Logger.Warn("seek directive rejected",
					"worker", w.id, "error", err)
			}
			return nil
		}
		return s.drain(w.conn, h)
	}

	if _, err := s.cfg.Store.Write(h, chunk); err != nil {
		return aesd.WrapError("WRITE", err)
	}

	if bytes.IndexByte(chunk, constants.Terminator) < 0 {
		// Partial command; no reply until a terminator arrives.
		return nil
	}

	// Newline-triggered echo uses a fresh cursor at 0, not the worker's
	// Handle, so every completed line echoes the whole log.
	echo := s.cfg.Store.Open()
	defer s.cfg.Store.Close(echo)
	return s.drain(w.conn, echo)
}

// drain reads the Store from h's cursor to end of stream, sending each
// chunk to conn as it is read.
func (s *Server) drain(conn net.Conn, h *aesd.Handle) error {
	out := GetBuffer(size4k)
	defer PutBuffer(out)

	for {
		chunk, err := s.cfg.Store.Read(h, len(out))
		if err != nil {
			return aesd.WrapError("READ", err)
		}
		if len(chunk) == 0 {
			return nil
		}
		if _, err := writeFull(conn, chunk); err != nil {
			return aesd.WrapError("SEND", err)
		}
	}
}

// writeFull writes all of p to conn, retrying short writes.
func writeFull(conn net.Conn, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := conn.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// listenTCP builds the listening socket at the syscall level so that both
// SO_REUSEADDR and the configured backlog actually take effect; Go's
// net.Listen exposes neither. The fd is then handed to the net package for
// the usual runtime-poller integration.
func listenTCP(port, backlog int) (net.Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, aesd.WrapError("SOCKET", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, aesd.WrapError("SETSOCKOPT", err)
	}

	// All interfaces: INADDR_ANY is the zero Addr.
	sa := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, aesd.WrapError("BIND", err)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, aesd.WrapError("LISTEN", err)
	}

	f := os.NewFile(uintptr(fd), "aesdsocket-listener")
	ln, err := net.FileListener(f)
	// FileListener dups the fd; the original is closed either way.
	f.Close()
	if err != nil {
		return nil, aesd.WrapError("LISTEN", err)
	}
	return ln, nil
}
