package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/securenest/authkit/pkg/logger"
)

// HealthCheckHandler serves liveness and readiness probes. With no dependency
// checks it always answers 200 "ALIVE"; with checks it answers 200 "READY"
// only when every check passes, else 500 "NOT_READY".
func HealthCheckHandler(log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	if log == nil {
		log = logger.NewDiscard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					logger.Error(err), logger.Component("httpserver"))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
