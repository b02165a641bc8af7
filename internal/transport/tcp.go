package transport

import (
	"fmt"
	"net"

	"figgie/internal/registry"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// TCPServer accepts raw TCP connections and hands each one to a worker from
// a fixed pool, mirroring the teacher's net.Server: an accept loop plus a
// worker pool of session goroutines supervised by one tomb.
type TCPServer struct {
	address string
	port    int
	reg     *registry.Registry
	pool    *workerPool
}

const defaultTCPWorkers = 32

// NewTCPServer builds a listener bound to address:port, dispatching every
// accepted connection's session through reg.
func NewTCPServer(address string, port int, reg *registry.Registry) *TCPServer {
	return &TCPServer{
		address: address,
		port:    port,
		reg:     reg,
		pool:    newWorkerPool(defaultTCPWorkers),
	}
}

// Run accepts connections until tmb is killed.
func (s *TCPServer) Run(tmb *tomb.Tomb) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("transport: listen: %w", err)
	}
	defer listener.Close()

	tmb.Go(func() error {
		s.pool.setup(tmb, func(t *tomb.Tomb, task any) error {
			conn := task.(net.Conn)
			sess := newSession(tcpConn{conn}, s.reg)
			return sess.run(t)
		})
		return nil
	})

	tmb.Go(func() error {
		<-tmb.Dying()
		return listener.Close()
	})

	log.Info().Str("address", listener.Addr().String()).Msg("tcp transport listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-tmb.Dying():
				return nil
			default:
				log.Error().Err(err).Msg("tcp accept error")
				continue
			}
		}
		s.pool.addTask(conn)
	}
}
