package middleware

import (
	"net/http"
	"strings"
)

// CaseInsensitive lowercases the URL path so QR short links, which are
// encoded in upper case to stay in the compact alphanumeric QR mode,
// resolve to the lowercase routes.
func CaseInsensitive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = strings.ToLower(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
