package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dan-solli/kinship/pkg/graph"
)

// readSnapshot loads a graph from a JSON snapshot file: either a cached
// snapshot or a raw tree response, which share the {root, nodes} shape.
func readSnapshot(path string, logger *slog.Logger) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return graph.NewReconciler(logger).Replace(snap.Nodes, snap.Root)
}
