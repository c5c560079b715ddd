/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// siteURL rebuilds the public address of the app from the request,
// respecting TLS and X-Forwarded-Proto.
func siteURL(cfg *Config, r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + "/"
}

// serveQR returns a PNG QR code pointing at the app, for sharing with
// other players in the room.
func serveQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		png, err := qrcode.Encode(siteURL(cfg, r), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, _ = w.Write(png)

		logf(cfg, "SERVE: QR code (%s) to %s in %s",
			humanReadableSize(len(png)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
