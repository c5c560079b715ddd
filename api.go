/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Seednode/promptparty/games"
	"github.com/Seednode/promptparty/metrics"
)

const (
	maxBodyBytes   = 1 << 20
	visitorIdle    = 10 * time.Minute
	visitorSweeps  = time.Minute
	notFoundReply  = "Session not found/expired."
	busyReply      = "This game is still working on your previous move."
	rateLimitReply = "Too many requests. Slow down and try again shortly."
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}

// writeOK merges ok:true into the JSON object form of body.
func writeOK(w http.ResponseWriter, body any) {
	fields := map[string]any{}

	if body != nil {
		raw, err := json.Marshal(body)
		if err == nil {
			err = json.Unmarshal(raw, &fields)
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}

	fields["ok"] = true

	writeJSON(w, http.StatusOK, fields)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, games.ErrSessionNotFound):
		return http.StatusBadRequest, notFoundReply
	case errors.Is(err, games.ErrSessionBusy):
		return http.StatusConflict, busyReply
	case games.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeError(cfg *Config, w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)

	if status >= http.StatusInternalServerError && cfg.log != nil {
		cfg.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("client", realIP(r)),
			zap.Error(err))
	}

	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// decodeBody reads a JSON request body into v. An empty body leaves v at
// its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		return &games.ValidationError{Msg: "Invalid JSON body: " + err.Error()}
	}
}

// apiHandler adapts a JSON endpoint to httprouter. fn returns the payload
// to send alongside ok:true.
func apiHandler[T any](cfg *Config, name string, fn func(ctx context.Context, req T) (any, error)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		securityHeaders(cfg, w)

		var req T
		if err := decodeBody(w, r, &req); err != nil {
			writeError(cfg, w, r, err)
			return
		}

		out, err := fn(r.Context(), req)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeOK(w, out)

		logf(cfg, "SERVE: %s to %s in %s",
			name,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands out one token bucket per client address.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func (l *rateLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-visitorIdle)

	removed := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}

	return removed
}

func (l *rateLimiter) start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(visitorSweeps)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

// clientHost is realIP without the port.
func clientHost(r *http.Request) string {
	addr := realIP(r)

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}

// limitKey names the bucket a request draws from. Forwarding headers are only
// honoured with --trust-proxy, since any client can set them.
func limitKey(cfg *Config, r *http.Request) string {
	if cfg.trustProxy {
		return clientHost(r)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// admit reports whether r fits in its client's bucket, counting and logging
// rejections. A nil limiter admits everything.
func (l *rateLimiter) admit(cfg *Config, r *http.Request) bool {
	if l == nil {
		return true
	}

	if l.allow(limitKey(cfg, r)) {
		return true
	}

	metrics.RateLimited.Inc()

	logf(cfg, "LIMIT: Rejected %s from %s", r.URL.Path, realIP(r))

	return false
}

func (l *rateLimiter) wrap(cfg *Config, next httprouter.Handle) httprouter.Handle {
	if l == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if !l.admit(cfg, r) {
			securityHeaders(cfg, w)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"ok": false, "error": rateLimitReply})

			return
		}

		next(w, r, p)
	}
}
