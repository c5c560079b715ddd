/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/promptparty/games"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxSocketBytes = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header and those whose
// origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// socketMessage is what the browser sends for each question.
type socketMessage struct {
	Text string `json:"text"`
}

type socketReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	*games.CharacterTurn
}

type socketClient struct {
	conn *websocket.Conn
	send chan socketReply
}

// serveCharacterSocket runs a character session over a websocket. Each
// text frame is one turn and draws from the client's rate limit; the
// connection closes when the game ends.
func serveCharacterSocket(cfg *Config, character *games.Character, limiter *rateLimiter) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := r.URL.Query().Get("sessionId")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Missing sessionId."})
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SOCKET: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		logf(cfg, "SOCKET: Character session %s opened by %s", id, realIP(r))

		client := &socketClient{
			conn: conn,
			send: make(chan socketReply, 8),
		}

		go client.writePump()
		client.readPump(r, cfg, character, limiter, id)

		logf(cfg, "SOCKET: Character session %s closed", id)
	}
}

func (c *socketClient) readPump(r *http.Request, cfg *Config, character *games.Character, limiter *rateLimiter, id string) {
	defer close(c.send)

	c.conn.SetReadLimit(maxSocketBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg socketMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if !limiter.admit(cfg, r) {
			c.send <- socketReply{Error: rateLimitReply}
			continue
		}

		turn, err := character.Turn(r.Context(), id, msg.Text)
		if err != nil {
			_, text := statusFor(err)
			c.send <- socketReply{Error: text}

			if errorEndsSocket(err) {
				return
			}
			continue
		}

		c.send <- socketReply{OK: true, CharacterTurn: turn}

		if turn.Done {
			logf(cfg, "GAMES: Character session %s finished (win=%t)", id, turn.Win)
			return
		}
	}
}

// errorEndsSocket reports whether no further turn on the socket can succeed.
func errorEndsSocket(err error) bool {
	return errors.Is(err, games.ErrSessionNotFound)
}

func (c *socketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
