/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/Seednode/promptparty/games"
	"github.com/Seednode/promptparty/llm"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("promptparty v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// newRouter registers every route against a.
func newRouter(cfg *Config, a *arcade, limiter *rateLimiter, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		if cfg.log != nil {
			cfg.log.Error("handler panicked",
				zap.String("path", r.URL.Path),
				zap.Any("panic", i))
		}

		securityHeaders(cfg, w)

		if strings.HasPrefix(r.URL.Path, cfg.prefix+"/api/") {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "An error has occurred. Please try again."})
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	registerHome(cfg, cfg.prefix+"/", mux, errs)

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/favicon.svg", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/qr", serveQR(cfg))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.metrics {
		registerMetricsHandler(cfg, mux)
	}

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerGames(cfg, mux, a, limiter)

	return mux
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: promptparty v%s", releaseVersion)

	if cfg.apiKey == "" {
		cfg.log.Warn("no API key configured; games will fall back to built-in content where they can")
	}

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	store := games.NewMemoryStore(cfg.sessionTimeout)
	store.StartReaper(ctx, reapInterval(cfg.sessionTimeout), func(removed int) {
		logf(cfg, "REAP: Removed %d idle sessions (%d remaining)", removed, store.Len())
	})

	gen := llm.NewClient(cfg.apiKey, cfg.apiURL, cfg.model, cfg.generatorTimeout, cfg.log.Named("llm"))

	var limiter *rateLimiter
	if cfg.rateLimit > 0 {
		limiter = newRateLimiter(cfg.rateLimit)
		limiter.start(ctx)
	}

	errs := make(chan error, 64)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				logf(cfg, "ERROR: %v", err)
			}
		}
	}()

	mux := newRouter(cfg, newArcade(store, gen, cfg.log), limiter, errs)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		// A single request may wait on two sequential completions.
		WriteTimeout: 2*cfg.generatorTimeout + timeout,
	}

	listenErr := make(chan error, 1)

	go func() {
		var err error

		logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	logf(cfg, "STOP: promptparty v%s", releaseVersion)

	return nil
}

func reapInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return max(ttl/2, time.Second)
}
