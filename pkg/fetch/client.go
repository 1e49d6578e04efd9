// Package fetch provides the HTTP collaborator that loads person nodes from
// the family-tree API.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dan-solli/kinship/pkg/command"
	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/person"
)

// Fetcher defines the operations the tree session needs from the backend
type Fetcher interface {
	// FetchTree returns the root batch of a family.
	FetchTree(ctx context.Context, familyID string) (*TreeResult, error)

	// Search returns the batch centered on the best match for query.
	Search(ctx context.Context, query string) (*TreeResult, error)

	// FetchRelatives returns id refreshed plus its neighbors of the pair's kinds.
	FetchRelatives(ctx context.Context, id string, pair graph.ExpandPair) (*RelativesResult, error)

	// Submit sends an edit command and returns the server's view of the change.
	Submit(ctx context.Context, cmd command.Command) (*CommandResult, error)
}

// TreeResult is the response of a root or search fetch.
type TreeResult struct {
	Root  graph.Root       `json:"root"`
	Nodes []*person.Person `json:"nodes"`
}

// RelativesResult is the response of an expand fetch.
type RelativesResult struct {
	Nodes []*person.Person `json:"nodes"`
}

// CommandResult is the response of a command. Additions fill OriginID and
// Nodes; removals fill RemovedID and ReplacementNodes.
type CommandResult struct {
	OriginID         string           `json:"originId,omitempty"`
	Nodes            []*person.Person `json:"nodes,omitempty"`
	RemovedID        string           `json:"removedId,omitempty"`
	ReplacementNodes []*person.Person `json:"replacementNodes,omitempty"`
}

// IsRemoval reports whether the result describes a deletion.
func (r *CommandResult) IsRemoval() bool {
	return r.RemovedID != ""
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")
