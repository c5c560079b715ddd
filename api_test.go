/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Seednode/promptparty/games"
	"github.com/Seednode/promptparty/llm"
)

var errOffline = errors.New("generator offline")

// queue answers completions in order, then fails.
type queue struct {
	mu      sync.Mutex
	replies []string
}

func (q *queue) Complete(context.Context, []llm.Message, float32, int) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.replies) == 0 {
		return "", errOffline
	}

	r := q.replies[0]
	q.replies = q.replies[1:]

	return r, nil
}

func (q *queue) left() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.replies)
}

func (q *queue) push(replies ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.replies = append(q.replies, replies...)
}

func testConfig() *Config {
	return &Config{
		generatorTimeout: time.Second,
		port:             8080,
		log:              zap.NewNop(),
		level:            zap.NewAtomicLevel(),
	}
}

func newTestRouter(t *testing.T, cfg *Config, gen llm.Completer, limiter *rateLimiter) *httprouter.Router {
	t.Helper()

	store := games.NewMemoryStore(time.Minute)
	errs := make(chan error, 64)

	return newRouter(cfg, newArcade(store, gen, cfg.log), limiter, errs)
}

type response map[string]any

func post(t *testing.T, h http.Handler, path string, body any) (int, response) {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := response{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return rec.Code, out
}

func glamItems(n int, price float64) string {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{
			"name":        fmt.Sprintf("Velvet Cream No. %d", i+1),
			"price":       price,
			"description": "Soft finish.",
			"category":    "Moisturizer",
			"ecoFriendly": false,
			"tags":        []string{"ceramides"},
		}
	}

	b, _ := json.Marshal(map[string]any{"items": items})
	return string(b)
}

func TestGlamEndToEnd(t *testing.T) {
	gen := &queue{}
	h := newTestRouter(t, testConfig(), gen, nil)

	code, start := post(t, h, "/api/glam/start", map[string]any{"gender": "Unisex", "budgetInr": 5000})
	require.Equal(t, http.StatusOK, code, start)
	assert.Equal(t, true, start["ok"])
	assert.Equal(t, 10000.0, start["budgetInr"])
	assert.Len(t, start["items"], games.GlamCatalogSize)

	eleven := make([]int, 11)
	for i := range eleven {
		eleven[i] = i
	}

	code, scored := post(t, h, "/api/glam/score", map[string]any{"token": start["token"], "selectedIndices": eleven, "timeTaken": 42})
	require.Equal(t, http.StatusOK, code, scored)
	assert.Equal(t, false, scored["win"])
	assert.LessOrEqual(t, scored["score"].(float64), 60.0)

	// The session is single use.
	code, again := post(t, h, "/api/glam/score", map[string]any{"token": start["token"], "selectedIndices": eleven})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Session not found/expired.", again["error"])

	gen.push(glamItems(30, 2000), `{"score": 90, "positives": ["Great coverage"], "negatives": [], "summary": "Lovely."}`)

	code, start = post(t, h, "/api/glam/start", map[string]any{"gender": "Unisex", "budgetInr": 5000})
	require.Equal(t, http.StatusOK, code, start)

	code, scored = post(t, h, "/api/glam/score", map[string]any{
		"token":           start["token"],
		"selectedIndices": []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 2.5},
		"timeTaken":       200,
	})
	require.Equal(t, http.StatusOK, code, scored)
	assert.Equal(t, 77.0, scored["score"])
	assert.Equal(t, true, scored["win"])
	assert.Equal(t, true, scored["autoFinished"])
	assert.Equal(t, 24000.0, scored["totalSpend"])
	assert.Contains(t, scored["negatives"], "Total spend exceeded the budget")
}

func TestQuizEndToEnd(t *testing.T) {
	gen := &queue{}
	gen.push(`{"questions":[
		{"question":"A?","options":["1","2","3","4"],"answerIndex":1,"explanation":"a"},
		{"question":"B?","options":["1","2","3","4"],"answerIndex":2,"explanation":"b"},
		{"question":"C?","options":["1","2","3","4"],"answerIndex":3,"explanation":"c"},
		{"question":"D?","options":["1","2","3","4"],"answerIndex":4,"explanation":"d"},
		{"question":"E?","options":["1","2","3","4"],"answerIndex":1,"explanation":"e"}
	]}`)
	h := newTestRouter(t, testConfig(), gen, nil)

	code, start := post(t, h, "/api/quiz/start", map[string]any{"topic": "Letters"})
	require.Equal(t, http.StatusOK, code, start)
	assert.Equal(t, "A?", start["question"])
	assert.Equal(t, 1.0, start["idx"])

	var last response
	for _, choice := range []int{1, 2, 3, 4, 2} {
		code, last = post(t, h, "/api/quiz/answer", map[string]any{"token": start["token"], "choice": choice})
		require.Equal(t, http.StatusOK, code, last)
	}

	assert.Equal(t, true, last["done"])
	assert.Equal(t, true, last["win"])
	assert.Equal(t, 4.0, last["score"])
}

func TestRiddleHintOverHTTP(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	code, start := post(t, h, "/api/riddle/start", map[string]any{})
	require.Equal(t, http.StatusOK, code, start)

	code, hint := post(t, h, "/api/riddle/hint", map[string]any{"token": start["token"]})
	require.Equal(t, http.StatusOK, code, hint)
	assert.NotEmpty(t, hint["hint"])

	code, again := post(t, h, "/api/riddle/hint", map[string]any{"token": start["token"]})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Hint already used for this riddle.", again["error"])
}

func TestPriceGuessNeedsNumber(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	code, start := post(t, h, "/api/fpp/start", map[string]any{})
	require.Equal(t, http.StatusOK, code, start)

	answers := make([]bool, games.PriceQuestions)
	code, ack := post(t, h, "/api/fpp/answers", map[string]any{"token": start["token"], "answers": answers})
	require.Equal(t, http.StatusOK, code, ack)
	assert.Equal(t, response{"ok": true}, ack)

	for _, guess := range []any{nil, "", "lots", "NaN", "1e400", true} {
		body := map[string]any{"token": start["token"]}
		if guess != nil {
			body["guess"] = guess
		}

		code, out := post(t, h, "/api/fpp/guess", body)
		assert.Equal(t, http.StatusBadRequest, code, guess)
		assert.Equal(t, "Invalid guess.", out["error"], guess)
	}

	code, reveal := post(t, h, "/api/fpp/guess", map[string]any{"token": start["token"], "guess": " 4800 "})
	require.Equal(t, http.StatusOK, code, reveal)
	assert.Equal(t, true, reveal["win"])
	assert.Equal(t, 4800.0, reveal["playerGuess"])
}

func TestParseGuess(t *testing.T) {
	for raw, want := range map[string]float64{`4800`: 4800, `"4800"`: 4800, `"-12.5"`: -12.5, `0`: 0} {
		got, ok := parseGuess(json.RawMessage(raw))
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{``, `null`, `"Infinity"`, `"4,800"`, `[4800]`, `{}`} {
		_, ok := parseGuess(json.RawMessage(raw))
		assert.False(t, ok, raw)
	}
}

func TestGeneratorFailureSurfaces(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	code, out := post(t, h, "/api/predict-future", map[string]any{"name": "Sam"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, false, out["ok"])
	assert.Contains(t, out["error"], "generator offline")
}

func TestMalformedBody(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	code, out := post(t, h, "/api/quiz/answer", `{"token":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "Invalid JSON body")
}

func TestEmptyBodyUsesDefaults(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	code, out := post(t, h, "/api/healthy/start", "")
	require.Equal(t, http.StatusOK, code, out)
	assert.Len(t, out["questions"], 10)
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, newRateLimiter(2))

	for range 2 {
		code, _ := post(t, h, "/api/riddle/start", map[string]any{})
		require.Equal(t, http.StatusOK, code)
	}

	code, out := post(t, h, "/api/riddle/start", map[string]any{})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, false, out["ok"])
}

func postFrom(t *testing.T, h http.Handler, path, remote, forwarded string) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	req.RemoteAddr = remote
	if forwarded != "" {
		req.Header.Set("X-Real-IP", forwarded)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec.Code
}

func TestRateLimitIgnoresForwardingHeaders(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, newRateLimiter(1))

	assert.Equal(t, http.StatusOK, postFrom(t, h, "/api/healthy/start", "192.0.2.10:5555", "198.51.100.1"))

	for i := 2; i <= 5; i++ {
		forwarded := fmt.Sprintf("198.51.100.%d", i)
		assert.Equal(t, http.StatusTooManyRequests, postFrom(t, h, "/api/healthy/start", "192.0.2.10:5555", forwarded))
	}

	assert.Equal(t, http.StatusOK, postFrom(t, h, "/api/healthy/start", "192.0.2.11:5555", ""))
}

func TestRateLimitTrustsProxyWhenAsked(t *testing.T) {
	cfg := testConfig()
	cfg.trustProxy = true
	h := newTestRouter(t, cfg, &queue{}, newRateLimiter(1))

	assert.Equal(t, http.StatusOK, postFrom(t, h, "/api/healthy/start", "10.0.0.1:5555", "198.51.100.1"))
	assert.Equal(t, http.StatusOK, postFrom(t, h, "/api/healthy/start", "10.0.0.1:5555", "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(t, h, "/api/healthy/start", "10.0.0.1:5555", "198.51.100.2"))
}

func TestLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	req.Header.Set("X-Real-IP", "198.51.100.7")

	cfg := &Config{}
	assert.Equal(t, "2001:db8::1", limitKey(cfg, req))

	cfg.trustProxy = true
	assert.Equal(t, "198.51.100.7", limitKey(cfg, req))
}

func TestRateLimiterSweep(t *testing.T) {
	l := newRateLimiter(5)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	now = now.Add(visitorIdle / 2)
	assert.True(t, l.allow("b"))

	now = now.Add(visitorIdle/2 + time.Second)
	assert.Equal(t, 1, l.sweep())
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{games.ErrSessionNotFound, http.StatusBadRequest},
		{fmt.Errorf("turn: %w", games.ErrSessionBusy), http.StatusConflict},
		{&games.ValidationError{Msg: "nope"}, http.StatusBadRequest},
		{&llm.Error{StatusCode: 401, Message: "bad key"}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		code, _ := statusFor(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestHomeAndAssets(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "promptparty")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/javascript"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.svg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
}

func TestQRCode(t *testing.T) {
	h := newTestRouter(t, testConfig(), &queue{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestMetricsOnlyWhenEnabled(t *testing.T) {
	cfg := testConfig()

	rec := httptest.NewRecorder()
	newTestRouter(t, cfg, &queue{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	cfg.metrics = true

	rec = httptest.NewRecorder()
	newTestRouter(t, cfg, &queue{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "promptparty_sessions_active")
}

func TestWholeIndices(t *testing.T) {
	assert.Equal(t, []int{0, 3, -1}, wholeIndices([]float64{0, 1.5, 3, -1}))
}

func TestClientHost(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientHost(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientHost(req))
}
