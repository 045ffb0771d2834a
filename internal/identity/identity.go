// Package identity resolves the conversation thread a request belongs to.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ThreadHeaderName carries the thread id on requests and responses.
const ThreadHeaderName = "X-Thread-ID"

type contextKey int

const threadIDKey contextKey = iota

var threadIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ThreadIDFromContext extracts the thread ID from the request context.
func ThreadIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(threadIDKey).(string); ok {
		return v
	}
	return ""
}

// WithThreadID returns a context carrying threadID.
func WithThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadIDKey, threadID)
}

// NewThreadID generates a random thread id.
func NewThreadID() string {
	return uuid.NewString()
}

// SanitizeThreadID returns id trimmed, or "" when it is not an acceptable key.
func SanitizeThreadID(id string) string {
	id = strings.TrimSpace(id)
	if !threadIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func threadIDFromRequest(r *http.Request) string {
	tid := r.Header.Get(ThreadHeaderName)
	if tid == "" {
		tid = r.URL.Query().Get("thread_id")
	}
	return SanitizeThreadID(tid)
}

// Middleware injects the request's thread id, generating one when the client
// sent none, and echoes it in the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		threadID := threadIDFromRequest(r)
		if threadID == "" {
			threadID = NewThreadID()
		}
		w.Header().Set(ThreadHeaderName, threadID)
		next.ServeHTTP(w, r.WithContext(WithThreadID(r.Context(), threadID)))
	})
}

// IPFromRequest returns a normalized remote IP for rate limiting and tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
