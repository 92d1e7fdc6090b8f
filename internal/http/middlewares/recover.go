package middlewares

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/dresguerra/admingate/internal/observability/logger"
)

// WithRecover atrapa panics del handler y responde 500 en vez de tumbar el
// proceso. El stack queda solo en los logs.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recuperado",
						logger.Any("panic", rec),
						logger.String("stack", string(debug.Stack())),
					)
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":             "INTERNAL_ERROR",
						"error_description": "error interno",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
