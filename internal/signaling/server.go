package signaling

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler answers one incoming signaling connection: given the connecting
// peer's PeerInfo, it returns this side's own PeerInfo to send back (or an
// error to reject the connection, closing it without a reply).
type Handler func(remote PeerInfo) (local PeerInfo, err error)

// Server runs a local HTTP server whose /ws endpoint exchanges PeerInfo
// with a connecting client, one exchange per websocket connection, in
// place of a full SDP offer/answer/candidate exchange.
type Server struct {
	handler Handler
	server  *http.Server
}

// NewServer constructs a Server that will listen on addr (e.g. ":8000")
// and invoke handler once per incoming connection.
func NewServer(addr string, handler Handler) *Server {
	router := http.NewServeMux()
	s := &Server{
		handler: handler,
		server:  &http.Server{Addr: addr, Handler: router},
	}
	router.HandleFunc("/ws", s.handleWebsocket)
	return s
}

// ListenAndServe blocks, accepting signaling connections until Shutdown is
// called.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer conn.Close()

	var remote PeerInfo
	if err := conn.ReadJSON(&remote); err != nil {
		log.Warn("reading remote peer info: %v", err)
		return
	}

	local, err := s.handler(remote)
	if err != nil {
		log.Warn("handler rejected %s: %v", remote.Addr, err)
		return
	}

	if err := conn.WriteJSON(local); err != nil {
		log.Warn("sending local peer info: %v", err)
	}
}
