package kinship

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/dan-solli/kinship/pkg/command"
	"github.com/dan-solli/kinship/pkg/fetch"
	"github.com/dan-solli/kinship/pkg/graph"
)

func TestClassifyError_Nil(t *testing.T) {
	if got := ClassifyError(nil); got != "" {
		t.Errorf("ClassifyError(nil) = %q, want empty", got)
	}
}

func TestClassifyError_Timeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"context deadline", context.DeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("fetch tree: %w", context.DeadlineExceeded)},
		{"string timeout", fmt.Errorf("i/o timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != ErrTypeTimeout {
				t.Errorf("ClassifyError() = %v, want %v", got, ErrTypeTimeout)
			}
		})
	}
}

func TestClassifyError_Canceled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"context canceled", context.Canceled},
		{"superseded", ErrSuperseded},
		{"wrapped superseded", fmt.Errorf("expand: %w", ErrSuperseded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != ErrTypeCanceled {
				t.Errorf("ClassifyError() = %v, want %v", got, ErrTypeCanceled)
			}
		})
	}
}

func TestClassifyError_Network(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"connection refused", fmt.Errorf("connection refused")},
		{"connection reset", fmt.Errorf("connection reset by peer")},
		{"no such host", fmt.Errorf("lookup api: no such host")},
		{"eof", fmt.Errorf("unexpected EOF")},
		{"net.OpError", &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("refused")}},
		{"server error", &fetch.APIError{StatusCode: 502, Message: "bad gateway"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != ErrTypeNetwork {
				t.Errorf("ClassifyError() = %v, want %v for error: %v", got, ErrTypeNetwork, tt.err)
			}
		})
	}
}

func TestClassifyError_NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"empty result", graph.ErrEmptyResult},
		{"root not found", graph.ErrRootNotFound},
		{"subject not found", fmt.Errorf("%w: p1", graph.ErrSubjectNotFound)},
		{"no tree", ErrNoTree},
		{"http 404", &fetch.APIError{StatusCode: 404, Message: "family not found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != ErrTypeNotFound {
				t.Errorf("ClassifyError() = %v, want %v", got, ErrTypeNotFound)
			}
		})
	}
}

func TestClassifyError_Validation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"command validation", fmt.Errorf("%w: id is required", command.ErrValidation)},
		{"spouse limit", command.ErrSpouseLimit},
		{"parent limit", command.ErrParentLimit},
		{"unknown subject", command.ErrUnknownSubject},
		{"invalid node", graph.ErrInvalidNode},
		{"empty query", fetch.ErrEmptyQuery},
		{"string invalid", errors.New("invalid pair")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != ErrTypeValidation {
				t.Errorf("ClassifyError() = %v, want %v", got, ErrTypeValidation)
			}
		})
	}
}

func TestClassifyError_Cache(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrCache, errors.New("database is locked"))
	if got := ClassifyError(err); got != ErrTypeCache {
		t.Errorf("ClassifyError() = %v, want %v", got, ErrTypeCache)
	}
}

func TestClassifyError_Unknown(t *testing.T) {
	err := &fetch.APIError{StatusCode: 409, Message: "conflict"}
	if got := ClassifyError(err); got != ErrTypeUnknown {
		t.Errorf("ClassifyError() = %v, want %v", got, ErrTypeUnknown)
	}
}
