// Package requestcontext carries per-request correlation data through
// context.Context so services and audit events can reference the originating
// request without importing transport packages.
package requestcontext

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// WithRequestID returns a context carrying the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID from the context, or "" when absent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type customerIDKey struct{}

// WithCustomerID returns a context carrying the authenticated customer ID.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, customerIDKey{}, customerID)
}

// CustomerID returns the authenticated customer ID, or "" when absent.
func CustomerID(ctx context.Context) string {
	id, _ := ctx.Value(customerIDKey{}).(string)
	return id
}

// Middleware assigns a request ID to every incoming request, honoring an
// existing X-Request-ID header so upstream correlation survives.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}
