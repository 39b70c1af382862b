package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/2beens/fitlog/internal/telemetry/metrics"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// PanicRecovery answers a panicking handler with a 500, logs the stack and
// reports the panic to sentry tagged with the route and request id.
// http.ErrAbortHandler is re-panicked so the server can abort the response.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(r)
				}

				route := routeName(req)
				requestID := respWriter.Header().Get(RequestIDHeader)
				log.WithFields(log.Fields{
					"route":      route,
					"request_id": requestID,
				}).Errorf("http: panic serving %s: %v\n%s", req.URL.Path, r, debug.Stack())

				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				reportPanic(req, route, requestID, r)

				http.Error(respWriter, "internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(respWriter, req)
		})
	}
}

func reportPanic(req *http.Request, route, requestID string, recovered any) {
	hub := sentry.GetHubFromContext(req.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub = hub.Clone()
	hub.Scope().SetRequest(req)
	hub.Scope().SetTag("route", route)
	if requestID != "" {
		hub.Scope().SetTag("request_id", requestID)
	}
	hub.RecoverWithContext(req.Context(), recovered)
}
