/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains HTTP middleware that logs request lifecycle information
(URI, method, status, latency) with anonymized client IP addresses.
*/
package logx

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// anonymizeIP masks the given IP address string.
// IPv4 keeps the first three octets; IPv6 keeps the first half. This keeps
// approximate origin information in logs without storing full addresses.
func anonymizeIP(ipStr string) string {
	host, _, err := net.SplitHostPort(ipStr)
	if err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "unknown_ip"
	}

	if ip.IsLoopback() {
		return "127.0.0.1"
	}

	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	if v6 := ip.To16(); v6 != nil {
		masked := make(net.IP, len(v6))
		copy(masked, v6[:8])
		return masked.String()
	}

	return "unknown_ip"
}

// RequestLogger returns a chi middleware that writes one structured log entry
// per completed request.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				Logger().Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("ip", anonymizeIP(r.RemoteAddr)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
