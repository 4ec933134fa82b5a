package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/petalmail/apiserver/internal/db"
	"github.com/petalmail/apiserver/internal/metrics"
	"go.uber.org/zap"
)

// ConnectionScope checks out one configured connection per request, exposes
// it to the rest of the chain through the request context, and returns it to
// the pool when the chain unwinds, panics included. A request that cannot
// get a connection is answered with 503 and goes no further.
func ConnectionScope(pool db.Pool, settings []db.SessionSetting, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			conn, err := db.Acquire(r.Context(), pool, settings)
			if err != nil {
				result := "acquire_error"
				if errors.Is(err, db.ErrSession) {
					result = "session_error"
				}
				metrics.RecordDBConnAcquire(result, time.Since(start))
				logger.Error("request connection unavailable",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Error(err),
				)
				writeError(w, http.StatusServiceUnavailable, "Error connecting to database")
				return
			}
			metrics.RecordDBConnAcquire("ok", time.Since(start))

			defer func() {
				if err := conn.Close(); err != nil {
					logger.Warn("release request connection", zap.Error(err))
				}
			}()

			next.ServeHTTP(w, r.WithContext(db.WithConn(r.Context(), conn)))
		})
	}
}
