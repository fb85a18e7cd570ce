package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// handleStatsWS upgrades an admin connection to WebSocket and streams the
// aggregate statistics until the client disconnects. Browsers cannot set an
// Authorization header on WebSocket upgrades, so the token is accepted as a
// query parameter here.
func (s *Server) handleStatsWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(r)
	if !ok || !sess.IsAdmin {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("stats websocket upgrade failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()

	if s.metrics != nil {
		s.metrics.WSClients.Set(float64(count))
	}
	log.Info().Int("clients", count).Msg("stats client connected")

	// Push the current snapshot immediately so the dashboard does not
	// wait one interval for its first data.
	if err := conn.WriteJSON(s.collectStats()); err != nil {
		s.dropClient(conn)
		return
	}

	// Reader loop only to detect disconnects; inbound messages are ignored.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// statsBroadcaster periodically recomputes the aggregates and pushes them
// to every connected client.
func (s *Server) statsBroadcaster() {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.clientsMu.RLock()
			n := len(s.clients)
			s.clientsMu.RUnlock()
			if n == 0 {
				continue
			}

			stats := s.collectStats()

			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, n)
			for c := range s.clients {
				conns = append(conns, c)
			}
			s.clientsMu.RUnlock()

			for _, c := range conns {
				c.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := c.WriteJSON(stats); err != nil {
					s.dropClient(c)
				}
			}
		}
	}
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
	count := len(s.clients)
	s.clientsMu.Unlock()

	if s.metrics != nil {
		s.metrics.WSClients.Set(float64(count))
	}
}
