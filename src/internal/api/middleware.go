package api

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/go-chi/chi/v5/middleware"
)

var logger = log.New("API")

// JSONContentType sets the JSON content type on every response.
func JSONContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Logger logs every request at debug level.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.Debugf("%s %s - %d, %d bytes (%v)", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start))
	})
}

// Recovery turns a handler panic into a 500 response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Errorf("Panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// PrivateSubnetOnly rejects requests unless the peer and every address named
// in X-Forwarded-For / X-Real-IP is loopback, private or link-local.
func PrivateSubnetOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, candidate := range clientAddresses(r) {
			addr, err := netip.ParseAddr(candidate)
			if err != nil {
				logger.Warnf("Invalid client address %q from %s", candidate, r.RemoteAddr)
				WriteForbidden(w, "Access denied")
				return
			}
			if !isPrivate(addr.Unmap()) {
				logger.Warnf("Access denied for %s (peer %s)", addr, r.RemoteAddr)
				WriteForbidden(w, "Access denied: only private networks are allowed")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isPrivate(addr netip.Addr) bool {
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
}

// clientAddresses returns the peer address followed by any forwarded ones.
func clientAddresses(r *http.Request) []string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}

	addrs := []string{peer}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, hop := range strings.Split(forwarded, ",") {
			addrs = append(addrs, strings.TrimSpace(hop))
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		addrs = append(addrs, strings.TrimSpace(realIP))
	}
	return addrs
}
