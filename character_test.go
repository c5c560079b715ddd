/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialCharacter(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/character/ws?sessionId=" + id

	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = resp.Body.Close()
		_ = conn.Close()
	})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	return conn
}

func TestCharacterSocket(t *testing.T) {
	gen := &queue{}
	gen.push(
		`{"candidates": ["Ada Lovelace"]}`,
		`{"answer": "Yes, in the 1800s.", "isGuess": false, "guessedName": "", "hints": []}`,
		`{"answer": "You got it!", "isGuess": true, "guessedName": "ada lovelace", "hints": []}`,
	)

	srv := httptest.NewServer(newTestRouter(t, testConfig(), gen, nil))
	defer srv.Close()

	code, start := post(t, srv.Config.Handler, "/api/character/start", map[string]any{"topic": "Computing"})
	require.Equal(t, http.StatusOK, code, start)

	conn := dialCharacter(t, srv, start["sessionId"].(string))

	var reply map[string]any

	require.NoError(t, conn.WriteJSON(socketMessage{Text: "   "}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, false, reply["ok"])
	assert.Equal(t, "Ask a question or make a guess.", reply["error"])

	require.NoError(t, conn.WriteJSON(socketMessage{Text: "Did they live before 1900?"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, true, reply["ok"])
	assert.Equal(t, "Yes, in the 1800s.", reply["answer"])
	assert.Equal(t, 9.0, reply["roundsLeft"])

	reply = nil
	require.NoError(t, conn.WriteJSON(socketMessage{Text: "Is it Ada Lovelace?"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, true, reply["win"])
	assert.Equal(t, "Ada Lovelace", reply["name"])

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err)
}

func TestCharacterSocketUnknownSession(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, testConfig(), &queue{}, nil))
	defer srv.Close()

	conn := dialCharacter(t, srv, "missing")

	var reply map[string]any
	require.NoError(t, conn.WriteJSON(socketMessage{Text: "Hello?"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Session not found/expired.", reply["error"])

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestCharacterSocketNeedsSession(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/character/ws", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSameOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://party.example/api/character/ws", nil)
	assert.True(t, sameOrigin(req))

	req.Header.Set("Origin", "https://party.example")
	assert.True(t, sameOrigin(req))

	req.Header.Set("Origin", "https://elsewhere.example")
	assert.False(t, sameOrigin(req))
}

func TestCharacterSocketTurnsAreRateLimited(t *testing.T) {
	gen := &queue{}
	gen.push(
		`{"candidates": ["Hedy Lamarr"]}`,
		`{"answer": "Yes.", "isGuess": false}`,
		`{"answer": "Unused.", "isGuess": false}`,
	)

	srv := httptest.NewServer(newTestRouter(t, testConfig(), gen, newRateLimiter(2)))
	defer srv.Close()

	code, start := post(t, srv.Config.Handler, "/api/character/start", map[string]any{"topic": "Film"})
	require.Equal(t, http.StatusOK, code, start)

	// The upgrade and the first turn use up the socket client's bucket.
	conn := dialCharacter(t, srv, start["sessionId"].(string))

	var reply map[string]any
	require.NoError(t, conn.WriteJSON(socketMessage{Text: "Were they an actor?"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, true, reply["ok"])

	for range 3 {
		reply = nil
		require.NoError(t, conn.WriteJSON(socketMessage{Text: "Were they an inventor?"}))
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, false, reply["ok"])
		assert.Equal(t, rateLimitReply, reply["error"])
	}

	assert.Equal(t, 1, gen.left())
}
