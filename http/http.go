package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// ListenAndServe starts the given servers and blocks until they are all
// stopped. Servers are shut down when ctx is done, each one being given
// shutdownTimeout to drain its connections.
func ListenAndServe(ctx context.Context, shutdownTimeout time.Duration, servers ...*http.Server) {
	go func() {
		<-ctx.Done()

		for _, s := range servers {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := s.Shutdown(shutdownCtx); err != nil {
				logs.Warn(errors.New("shutting down the server failed").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
			cancel()
		}
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("starting server")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed, context.Canceled:
				logs.WithTag("addr", s.Addr).Info("stopping server")

			default:
				logs.Warn(errors.New("server stopped").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}(s)
	}

	wg.Wait()
}

// MetricsPathFormatter returns the path label of a request metric. Requests
// that did not reach a handler get an empty label and debug paths are
// grouped under their prefix.
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	if strings.HasPrefix(path, "/debug/") {
		return "/debug"
	}
	return path
}
