package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	log "github.com/sirupsen/logrus"
)

// RouterArgs are the mandatory args to build the HTTP router.
type RouterArgs struct {
	// Users serves the user and auth endpoints.
	Users *UserHandler

	// Health reports whether the service can serve traffic.
	Health healthChecker
}

type healthChecker interface {
	// Check returns nil when the service is healthy.
	Check(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewRouter registers every route on a gateway ServeMux. Trailing slashes are ignored and every
// request is logged.
func NewRouter(args RouterArgs) (http.Handler, error) {
	mux := runtime.NewServeMux(runtime.WithRoutingErrorHandler(routingErrorHandler))

	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/users", args.Users.CreateUser},
		{http.MethodGet, "/users/{ref}", args.Users.GetUser},
		{http.MethodPatch, "/users/{ref}", args.Users.UpdateUser},
		{http.MethodDelete, "/users/{ref}", args.Users.DeleteUser},
		{http.MethodPost, "/auth", args.Users.Login},
		{http.MethodGet, "/healthz", healthHandler(args.Health)},
	}
	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return nil, fmt.Errorf("error registering route %s %s: %w", route.method, route.pattern, err)
		}
	}

	return logRequests(trimTrailingSlash(mux)), nil
}

func healthHandler(checker healthChecker) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		if err := checker.Check(r.Context()); err != nil {
			log.WithError(err).Warn("health check failed")
			writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// routingErrorHandler renders router-level failures (unknown path, wrong method) with the common
// error body.
func routingErrorHandler(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, httpStatus int) {
	message := http.StatusText(httpStatus)
	if httpStatus == http.StatusNotFound {
		message = msgNotFound
	}
	writeError(w, httpStatus, message)
}

func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimRight(r.URL.Path, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   recorder.status,
			"duration": time.Since(start).String(),
		}).Info("request served")
	})
}
