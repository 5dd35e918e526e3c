package rest

import (
	"net/http"
	"time"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// Middleware wraps an http.RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain combines multiple middleware into a single middleware. The first
// middleware is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Logger returns a middleware that logs outgoing requests at debug level.
// Request headers are never logged.
func Logger(logger log.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			duration := time.Since(start)

			fields := []log.Field{
				log.Str("method", r.Method),
				log.Str("path", r.URL.Path),
				log.Duration("duration", duration),
			}
			if err != nil {
				logger.Debug("HTTP request failed", append(fields, log.Err(err))...)
				return nil, err
			}
			logger.Debug("HTTP request", append(fields, log.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}

// UserAgent returns a middleware that sets the User-Agent header when the
// request has none.
func UserAgent(agent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("User-Agent") != "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("User-Agent", agent)
			return next.RoundTrip(r)
		})
	}
}
