package crossplane

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Gateway is the single point of contact with the cluster's API surface.
// It performs one request against a REST-ish path and returns the parsed
// JSON object. The gateway owns authentication/context selection; the
// tracer built on top is agnostic to how credentials are obtained.
type Gateway interface {
	Fetch(ctx context.Context, method, path string, body any) (map[string]any, error)
}

// FetchError is a typed fetch failure. StatusCode 404 is load-bearing: it is
// the sole trigger for the tracer's rescoping retries.
type FetchError struct {
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fetch failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("fetch failed: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a FetchError carrying a 404.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}
