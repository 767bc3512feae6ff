package middleware

import "net/http"

// BodyLimit caps request bodies at max bytes. Reads past the cap fail with
// *http.MaxBytesError. A non-positive max disables the cap.
func BodyLimit(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if max > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}
