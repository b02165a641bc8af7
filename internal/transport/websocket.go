package transport

import (
	"fmt"
	"net/http"

	"figgie/internal/registry"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// WebSocketServer carries the same protocol frames as TCPServer, one per
// binary websocket message, so a browser client needs no custom framing —
// the message boundary does the length-prefixing a raw TCP stream needs
// readFrame/writeFrame for.
type WebSocketServer struct {
	address  string
	port     int
	path     string
	reg      *registry.Registry
	upgrader websocket.Upgrader
}

// NewWebSocketServer builds a server bound to address:port, upgrading any
// request to path into a session.
func NewWebSocketServer(address string, port int, path string, reg *registry.Registry) *WebSocketServer {
	return &WebSocketServer{
		address: address,
		port:    port,
		path:    path,
		reg:     reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxFrameSize,
			WriteBufferSize: maxFrameSize,
			// Figgie rooms are joined by username, not browser origin;
			// cross-origin play (a client hosted elsewhere) is expected.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves HTTP/WS until tmb is killed.
func (s *WebSocketServer) Run(tmb *tomb.Tomb) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleUpgrade)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.address, s.port),
		Handler: mux,
	}

	tmb.Go(func() error {
		<-tmb.Dying()
		return srv.Close()
	})

	log.Info().Str("address", srv.Addr).Str("path", s.path).Msg("websocket transport listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("transport: websocket serve: %w", err)
	}
	return nil
}

func (s *WebSocketServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	sess := newSession(wsConn{conn}, s.reg)
	t := new(tomb.Tomb)
	t.Go(func() error { return sess.run(t) })
	_ = t.Wait()
}

// wsConn adapts a gorilla websocket.Conn to frameConn: one binary message
// equals one protocol frame, no length prefix needed.
type wsConn struct{ *websocket.Conn }

func (c wsConn) ReadFrame() ([]byte, error) {
	_, payload, err := c.Conn.ReadMessage()
	return payload, err
}

func (c wsConn) WriteFrame(payload []byte) error {
	return c.Conn.WriteMessage(websocket.BinaryMessage, payload)
}
