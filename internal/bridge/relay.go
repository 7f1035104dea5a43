package bridge

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/logger"
	"github.com/reptin/rcs/internal/store"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 15 * time.Second
)

// Relay bridges catalog pages to the core. Pages connect over a websocket;
// the relay enforces the origin allow-list, narrows incoming frames to the
// bridge vocabulary, forwards recognized requests to the core and pushes
// collection changes back to every connected page.
type Relay struct {
	core     *Core
	store    *store.Store
	allowed  map[string]bool
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*pageConn]bool

	unsubscribe func()
}

// pageConn is one connected page. Writes are serialized per connection.
type pageConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (pc *pageConn) writeJSON(v any) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return pc.conn.WriteJSON(v)
}

// NewRelay creates a relay for the given core. Only the listed origins may
// connect; membership is exact, no wildcard or subdomain matching.
func NewRelay(core *Core, s *store.Store, allowedOrigins []string) *Relay {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	r := &Relay{
		core:    core,
		store:   s,
		allowed: allowed,
		conns:   make(map[*pageConn]bool),
	}
	r.upgrader = websocket.Upgrader{
		CheckOrigin: func(req *http.Request) bool {
			origin := req.Header.Get("Origin")
			if r.allowed[origin] {
				return true
			}
			logger.Debug("[Relay] Ignored bridge connection from unauthorized origin: %q", origin)
			return false
		},
	}
	return r
}

// Start subscribes the relay to store changes so every connected page
// receives an unsolicited engines update after any core-side change.
func (r *Relay) Start() {
	r.unsubscribe = r.store.Subscribe(func(engines []engine.Engine) {
		r.broadcast(EnginesUpdateMessage{
			Type:    TypeEnginesUpdate,
			Engines: engines,
		})
	})
}

// Stop detaches the relay from the store and closes every page connection.
func (r *Relay) Stop() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.mu.Lock()
	conns := make([]*pageConn, 0, len(r.conns))
	for pc := range r.conns {
		conns = append(conns, pc)
	}
	r.conns = make(map[*pageConn]bool)
	r.mu.Unlock()

	for _, pc := range conns {
		pc.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		pc.conn.Close()
	}
}

// HandleBridge is the /bridge websocket endpoint.
func (r *Relay) HandleBridge(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade already replied; unauthorized origins land here too.
		return
	}

	pc := &pageConn{conn: conn}
	r.mu.Lock()
	r.conns[pc] = true
	r.mu.Unlock()

	logger.Info("[Relay] Page connected from %s (origin %q)", req.RemoteAddr, req.Header.Get("Origin"))
	r.readLoop(pc)
}

func (r *Relay) readLoop(pc *pageConn) {
	defer func() {
		r.mu.Lock()
		delete(r.conns, pc)
		r.mu.Unlock()
		pc.conn.Close()
		logger.Info("[Relay] Page disconnected")
	}()

	pc.conn.SetPongHandler(func(string) error {
		pc.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				pc.mu.Lock()
				pc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				err := pc.conn.WriteMessage(websocket.PingMessage, nil)
				pc.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		pc.conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := pc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("[Relay] Page read error: %v", err)
			}
			return
		}
		r.dispatch(pc, data)
	}
}

// dispatch narrows one page frame and forwards it to the core. Frames the
// vocabulary does not recognize are dropped without reply.
func (r *Relay) dispatch(pc *pageConn, data []byte) {
	msg, err := ParsePageMessage(data)
	if err != nil {
		logger.Debug("[Relay] Dropping page frame: %v", err)
		return
	}

	switch m := msg.(type) {
	case HandshakeMessage:
		r.send(pc, AckMessage{Type: TypeAck, ExtVersion: r.core.Version()})

	case GetEnginesRequest:
		r.send(pc, EnginesUpdateMessage{
			Type:      TypeEnginesUpdate,
			Engines:   r.core.Engines(),
			RequestID: m.RequestID,
		})

	case AddEnginesRequest:
		res := r.core.AddEngines(m.Engines)
		r.send(pc, ResultMessage{
			Type:      TypeResult,
			RequestID: m.RequestID,
			OK:        res.OK,
			Message:   res.Message,
		})

	case RemoveEngineRequest:
		res := r.core.RemoveEngine(m.URL)
		r.send(pc, ResultMessage{
			Type:      TypeResult,
			RequestID: m.RequestID,
			OK:        res.OK,
			Message:   res.Message,
		})
	}
}

func (r *Relay) send(pc *pageConn, v any) {
	if err := pc.writeJSON(v); err != nil {
		logger.Error("[Relay] Failed to write to page: %v", err)
	}
}

func (r *Relay) broadcast(v any) {
	r.mu.Lock()
	conns := make([]*pageConn, 0, len(r.conns))
	for pc := range r.conns {
		conns = append(conns, pc)
	}
	r.mu.Unlock()

	for _, pc := range conns {
		if err := pc.writeJSON(v); err != nil {
			logger.Warn("[Relay] Dropping page after failed sync push: %v", err)
			pc.conn.Close()
		}
	}
}
