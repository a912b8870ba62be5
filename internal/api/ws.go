package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"kioskboard/internal/kitchen"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// kitchenSocket pushes the board view as JSON whenever it differs from the
// last one sent on this connection.
func (s *Server) kitchenSocket(w http.ResponseWriter, r *http.Request) {
	tab := kitchen.ParseTab(r.URL.Query().Get("tab"))
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.board.Subscribe()
	defer unsubscribe()

	// The board only talks; reading just notices when the browser leaves.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var last []byte
	push := func() error {
		data, err := json.Marshal(s.board.View(tab))
		if err != nil {
			return err
		}
		if bytes.Equal(data, last) {
			return nil
		}
		last = data
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := push(); err != nil {
		return
	}
	for {
		select {
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-gone:
			return
		case <-updates:
			if err := push(); err != nil {
				s.log.WithError(err).Debug("websocket push failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
