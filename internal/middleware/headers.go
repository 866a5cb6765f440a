package middleware

import "net/http"

var noStoreHeaders = [][2]string{
	{"Cache-Control", "no-store, no-cache, must-revalidate, max-age=0"},
	{"Pragma", "no-cache"},
	{"Expires", "0"},
}

// Kiosk pages are never framed, never leak the URL, and never use devices.
var securityHeaders = [][2]string{
	{"Referrer-Policy", "no-referrer"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "frame-ancestors 'none'"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()"},
}

// SetNoStore overwrites h's cache headers so a kiosk never shows stale survey state.
func SetNoStore(h http.Header) {
	for _, kv := range noStoreHeaders {
		h.Set(kv[0], kv[1])
	}
}

func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetNoStore(w.Header())
		next.ServeHTTP(w, r)
	})
}

func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, kv := range securityHeaders {
			w.Header().Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}
