package provider

import (
	"context"
	"errors"
	"fmt"

	"gloss-relay/internal/models"
)

// ErrUnreachable matches any failure to complete the HTTP exchange with the
// upstream: refused connections, DNS errors, timeouts and cancellation.
var ErrUnreachable = errors.New("upstream unreachable")

// ErrEmptyReply indicates the upstream answered successfully with no content.
var ErrEmptyReply = errors.New("upstream returned an empty message")

// Provider defines the behaviour required to serve chat requests.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// TransportError wraps the cause of a failed upstream round trip.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports TransportError as ErrUnreachable.
func (e *TransportError) Is(target error) bool {
	return target == ErrUnreachable
}

// StatusError reports a non-success status returned by the upstream.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}
