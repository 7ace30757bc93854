package middleware

import (
	"net"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// ClientInfo attaches the remote IP and User-Agent to the request context.
// Run it after any proxy-header middleware that rewrites RemoteAddr.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		ctx := goSession.WithClientIP(r.Context(), ip)
		ctx = goSession.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
