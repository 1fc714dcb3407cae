// Package client defines the completion backend interface shared by the
// OpenAI-compatible and Ollama clients, plus the error types callers
// branch on.
package client

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoCredential reports that no API credential was supplied for a
// backend that requires one. The UI layer redirects to credential entry
// instead of issuing the request.
var ErrNoCredential = errors.New("no API credential configured")

// ServiceError is returned when the inference service answers with a
// non-success status. Detail carries the upstream error body when one
// was available.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("inference service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("inference service returned status %d: %s", e.StatusCode, e.Detail)
}

// CompletionClient sends one image plus instructions to a multimodal
// completion backend and returns the raw text of the first completion
// choice. Parsing of that text is the normalizer's job, not the client's.
type CompletionClient interface {
	Complete(ctx context.Context, model, system, user, imageB64 string) (string, error)
}
