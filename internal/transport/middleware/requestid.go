package middleware

import (
	"net/http"

	"github.com/frahmantamala/identity-service/pkg/logger"

	"github.com/google/uuid"
)

// TraceHeader carries the request trace ID in both directions. A
// client-supplied value is reused so traces span service boundaries.
const TraceHeader = "X-Trace-ID"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(TraceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
