package tracker

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/HanTheDev/policyguard/internal/auth"
	"github.com/google/uuid"
)

type UserResolver interface {
	ResolveUser(token string) (string, bool)
}

// Interceptor feeds every request into the registry. Tracking is best-effort
// and never changes the response.
type Interceptor struct {
	registry   *Registry
	aggregator *Aggregator
	users      UserResolver
	metrics    *Metrics
}

func NewInterceptor(registry *Registry, aggregator *Aggregator, users UserResolver, metrics *Metrics) *Interceptor {
	return &Interceptor{
		registry:   registry,
		aggregator: aggregator,
		users:      users,
		metrics:    metrics,
	}
}

// Middleware wraps the whole router, so requests that match no route are
// tracked too.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		token, hasToken := auth.BearerToken(r)
		sessionID := token
		if !hasToken {
			sessionID = "temp-" + uuid.NewString()
		}
		i.registry.GetOrCreate(sessionID)

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		elapsed := time.Since(startTime)
		i.metrics.RequestDuration.WithLabelValues(strconv.Itoa(recorder.statusCode)).Observe(elapsed.Seconds())

		var userID string
		if hasToken {
			userID = i.resolveUser(token)
		}

		snap, ready := i.registry.RecordRequest(sessionID, r.URL.Path, auth.ClientIP(r), userID)
		if ready {
			i.aggregator.Flush(snap, ReasonThreshold)
		}
		i.metrics.ActiveSessions.Set(float64(i.registry.Len()))
	})
}

func (i *Interceptor) resolveUser(token string) (userID string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("User resolution panicked: %v", rec)
			userID = ""
		}
	}()

	if email, ok := i.users.ResolveUser(token); ok {
		return email
	}
	return ""
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	size          int
	headerWritten bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.headerWritten {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.headerWritten = true
	}
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.headerWritten = true
	size, err := r.ResponseWriter.Write(b)
	r.size += size
	return size, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
