package kinship

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/dan-solli/kinship/pkg/command"
	"github.com/dan-solli/kinship/pkg/fetch"
	"github.com/dan-solli/kinship/pkg/graph"
)

// Error type constants for classification
const (
	ErrTypeNetwork    = "network"
	ErrTypeTimeout    = "timeout"
	ErrTypeCanceled   = "canceled"
	ErrTypeNotFound   = "not_found"
	ErrTypeValidation = "validation"
	ErrTypeCache      = "cache"
	ErrTypeUnknown    = "unknown"
)

// ErrNoTree is returned by operations that need a loaded tree.
var ErrNoTree = errors.New("no tree loaded")

// ErrSuperseded is returned when a fetch finished after a newer Load, Search
// or Clear; its result is dropped.
var ErrSuperseded = errors.New("fetch superseded by a newer tree")

// ErrCache wraps snapshot cache failures.
var ErrCache = errors.New("cache error")

// ClassifyError inspects an error and returns its type classification.
// This enables grouping errors by category in metrics and traces.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, ErrSuperseded):
		return ErrTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTypeTimeout
	case errors.Is(err, graph.ErrEmptyResult),
		errors.Is(err, graph.ErrRootNotFound),
		errors.Is(err, graph.ErrSubjectNotFound),
		errors.Is(err, ErrNoTree),
		fetch.IsNotFound(err):
		return ErrTypeNotFound
	case errors.Is(err, command.ErrValidation),
		errors.Is(err, command.ErrUnknownSubject),
		errors.Is(err, command.ErrSpouseLimit),
		errors.Is(err, command.ErrParentLimit),
		errors.Is(err, graph.ErrInvalidNode),
		errors.Is(err, fetch.ErrEmptyQuery):
		return ErrTypeValidation
	case errors.Is(err, ErrCache):
		return ErrTypeCache
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return ErrTypeNetwork
	}

	errStrLower := strings.ToLower(err.Error())

	if strings.Contains(errStrLower, "timeout") || strings.Contains(errStrLower, "deadline exceeded") {
		return ErrTypeTimeout
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "connection reset") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "network is unreachable") ||
		strings.Contains(errStrLower, "dial tcp") ||
		strings.Contains(errStrLower, "eof") {
		return ErrTypeNetwork
	}

	var apiErr *fetch.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
		return ErrTypeNetwork
	}

	if strings.Contains(errStrLower, "validation") ||
		strings.Contains(errStrLower, "invalid") ||
		strings.Contains(errStrLower, "required") ||
		strings.Contains(errStrLower, "must be") {
		return ErrTypeValidation
	}

	return ErrTypeUnknown
}
