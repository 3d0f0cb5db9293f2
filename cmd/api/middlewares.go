package main

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/tracing"
)

// The authenticate middleware extracts the user name handed over by the
// fronting identity proxy and puts the resolved principal into the request
// context. The logic here is transport-specific data extraction only, the
// authorization rules are business logic and live in the service layer.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Add the "Vary: X-Forwarded-User" header to the response. This
		// indicates to any caches that the response may vary based on the
		// value of this header in the request.
		w.Header().Add("Vary", "X-Forwarded-User")

		// Retrieve the user name set by the fronting proxy. An absent or
		// empty header resolves to the anonymous principal, read-only
		// endpoints are open to it.
		userName := r.Header.Get("X-Forwarded-User")
		principal := app.auth.Resolve(userName)

		// Add the principal to the request context. This information will
		// flow into the next HTTP handlers and in each internal service
		// that will receive the context.
		r = r.WithContext(auth.ContextSetPrincipal(r.Context(), principal))

		next.ServeHTTP(w, r)
	})
}

// The tracing middleware puts a request trace into the request context. If a
// trace is already present the middleware acts as a no-op.
func (app *application) tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqTrace := tracing.TraceFromRequestCtx(r)
		if reqTrace.Start.IsZero() {
			r = tracing.NewTraceToRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

// The logging middleware is used to log incoming requests and related outgoing
// responses. Before passing the control to the next http handler the incoming
// request is logged. Another log is emitted for outgoing responses, using the
// (possibly) enriched request trace.
func (app *application) logging(next http.Handler) http.Handler {

	// Wrap the returned middleware in the tracing middleware, that is, before
	// invoking the function call the tracing function logic.
	return app.tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestTrace := tracing.TraceFromRequestCtx(r)

		if r.URL.Path == app.config.Metrics.MetricsEndpoint {
			next.ServeHTTP(w, r)
			return
		}

		ip, err := realIP(r)
		if err != nil {
			app.logger.Errorw("retrieving real IP",
				"id", requestTrace.ID,
				"err", err,
			)
		}

		app.logger.Infow("incoming request",
			"id", requestTrace.ID,
			"start_time", requestTrace.Start,
			"remote_addr", r.RemoteAddr,
			"real_ip", ip,
			"URL", r.URL,
			"method", r.Method,
		)

		next.ServeHTTP(w, r)

		// After the request handling produce another log. Note that some
		// values could be missing since it is the responsibility of other
		// http handlers to enrich the trace, even if this is not mandatory.
		// Logs are produced with different severity based on the HTTP code
		// of the response.
		end := time.Now().UTC()
		fields := []interface{}{
			"id", requestTrace.ID,
			"http_code", requestTrace.HttpStatus,
			"end_time", end,
			"duration_ms", end.Sub(requestTrace.Start).Milliseconds(),
		}
		if requestTrace.Err != nil {
			fields = append(fields, "private_err", requestTrace.Err)
		}

		switch requestTrace.HttpStatus / 100 {
		case 0, 1, 2, 3:
			app.logger.Infow("request completed", fields...)
		case 4:
			app.logger.Warnw("request completed", fields...)
		case 5:
			app.logger.Errorw("request error", fields...)
		}
	}))
}

// The metrics middleware is used to register metrics (scraped by Prometheus)
// of incoming HTTP requests: the count of the HTTP requests (divided by path
// and HTTP code) and the latency of the responses (divided by path). The
// scraping endpoint itself is not monitored.
func (app *application) metrics(next http.Handler) http.Handler {

	requestCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_http_request",
			Help: "Counter of HTTP requests.",
		},
		[]string{"path", "code"},
	)
	if err := prometheus.Register(requestCount); err != nil {
		panic(err)
	}

	requestsLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_requests_duration_milliseconds",
			Help:    "Histogram of latencies for HTTP requests",
			Buckets: []float64{0.1, 1, 10, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"path"},
	)
	if err := prometheus.Register(requestsLatency); err != nil {
		panic(err)
	}

	// Wrap the returned middleware in the tracing middleware, that is, before
	// invoking the function call the tracing function logic.
	return app.tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestTrace := tracing.TraceFromRequestCtx(r)
		next.ServeHTTP(w, r)

		path := r.URL.Path
		if path == app.config.Metrics.MetricsEndpoint {
			return
		}

		requestCount.WithLabelValues(path, fmt.Sprintf("%d", requestTrace.HttpStatus)).Inc()
		requestsLatency.WithLabelValues(path).Observe(float64(time.Since(requestTrace.Start).Milliseconds()))
	}))
}

// The recoverPanic middleware turns panics of downstream handlers into clean
// 500 responses, closing the connection after the response is sent.
func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%v", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// This middleware is a wrapper around the two possible rate-limiting
// middlewares. App configuration will dictate which strategy is applied.
// It is a no-op if rate-limiting is not enabled.
func (app *application) rateLimit(next http.Handler) http.Handler {
	if !app.config.RateLimit.Enabled {
		return next
	}

	if app.config.RateLimit.PerIp {
		return app.ipRateLimit(next)
	} else {
		return app.globalRateLimit(next)
	}
}

// The globalRateLimit middleware applies a rate limit control mechanism to
// the provided http handler. Rate-limiting could be performed globally (this
// middleware) or per-IP (take a look below).
func (app *application) globalRateLimit(next http.Handler) http.Handler {

	// Initialize a new rate limiter which allows an average of 'n' requests
	// per second, with a maximum of 'm' requests in a single burst. Then
	// return a closure that can access the limiter variable.
	limiter := rate.NewLimiter(
		rate.Limit(app.config.RateLimit.Rps),
		app.config.RateLimit.Burst,
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			app.rateLimitExceededResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Per-IP rate-limiting only makes sense if the API application is directly
// exposed to clients on a single machine. If the infrastructure is
// distributed, with the app running on multiple servers behind a load
// balancer, rate limiting should be handled there instead.
func (app *application) ipRateLimit(next http.Handler) http.Handler {

	type ipLimiter struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	// We keep in memory a map of IPs -> ipLimiters, the map must be accessed
	// with a mutex to avoid concurrency issues. Additionally, a background
	// goroutine is started, which removes old entries from the clients map
	// once every minute.
	var (
		mu      sync.Mutex
		clients = make(map[string]*ipLimiter)
	)

	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, client := range clients {
				if time.Since(client.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, err := realIP(r)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		mu.Lock()

		_, found := clients[ip]
		if !found {
			clients[ip] = &ipLimiter{
				limiter: rate.NewLimiter(
					rate.Limit(app.config.RateLimit.Rps),
					app.config.RateLimit.Burst,
				),
			}
		}
		clients[ip].lastSeen = time.Now()

		if !clients[ip].limiter.Allow() {
			mu.Unlock()
			app.rateLimitExceededResponse(w, r)
			return
		}

		// Unlock the mutex before calling the next handler in the chain.
		// Notice that we DON'T use defer, as that would mean that the mutex
		// isn't unlocked until all the handlers downstream of this
		// middleware have also returned.
		mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (app *application) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Warn any caches that the response may be different based on
		// different origins. The same is true for the requested method.
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Method")

		// CORS requests have the Origin header set. If it is not present the
		// request is not CORS so proceed normally. Note however that if the
		// request is a CORS one but the origin is not included in our trusted
		// origins list, the request will be served as usual.
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		for _, trustedOrigin := range app.config.Cors.TrustedOrigins {
			if origin != trustedOrigin {
				continue
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			// Treat OPTIONS requests carrying the requested method header as
			// CORS preflight requests and reply to them directly.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET, POST, PUT, PATCH, DELETE")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// The galleryCache middleware answers conditional requests for gallery pages
// without invoking the handler. The validators are derived from the gallery
// change marker: the ETag is the marker encoded as a Windows file time and
// Last-Modified is the marker truncated to the second, since the HTTP date
// format has no sub-second precision.
func (app *application) galleryCache(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gallery := mux.Vars(r)["gallery"]

		lastChange, err := app.galleries.LastChange(r.Context(), gallery)
		if err != nil {
			// Let the wrapped handler produce the proper error response.
			next(w, r)
			return
		}

		etag := strconv.FormatInt(fileTime(lastChange), 10)
		lastModified := lastChange.Truncate(time.Second)

		w.Header().Set("ETag", `"`+etag+`"`)
		w.Header().Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
		w.Header().Set("Cache-Control", "private, must-revalidate")

		// If-None-Match may carry a comma-separated list of validators,
		// quoted or bare.
		for _, match := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			match = strings.Trim(strings.TrimSpace(match), `"`)
			if match != "" && match == etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		if since := r.Header.Get("If-Modified-Since"); since != "" {
			sinceTime, err := http.ParseTime(since)
			if err == nil && !lastModified.After(sinceTime) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}

		next(w, r)
	}
}

// Number of 100-nanosecond intervals since January 1, 1601 UTC, the
// historical wire format of the gallery ETags.
func fileTime(t time.Time) int64 {
	const epochDelta = 11644473600
	return (t.Unix()+epochDelta)*10000000 + int64(t.Nanosecond()/100)
}

func realIP(r *http.Request) (string, error) {
	addr := r.Header.Get("X-Real-Ip")
	if addr == "" {
		addr = r.Header.Get("X-Forwarded-For")
		if addr == "" {
			addr = r.RemoteAddr
		}
	}
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	return ip, nil
}
