package graph

import (
	"time"

	"github.com/mvp-joe/apisummarizer/internal/decl"
)

// Node is one type in the hierarchy. External nodes are supertypes referenced
// by a summarized class but not summarized themselves.
type Node struct {
	ID       string    `json:"id"`             // Dotted binary name
	Kind     decl.Kind `json:"kind,omitempty"` // Empty for external nodes
	External bool      `json:"external,omitempty"`
}

// EdgeType represents the relationship between a type and its supertype.
type EdgeType string

const (
	EdgeExtends    EdgeType = "extends"    // Class extends class, interface extends interface
	EdgeImplements EdgeType = "implements" // Class implements interface
)

// Edge points from a subtype to one of its direct supertypes.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// GraphData is the exportable form of a hierarchy.
type GraphData struct {
	Metadata GraphMetadata `json:"_metadata"`
	Nodes    []Node        `json:"nodes"`
	Edges    []Edge        `json:"edges"`
}

// GraphMetadata contains metadata about the graph.
type GraphMetadata struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
	// SkippedEdges lists supertype edges dropped because they closed a cycle.
	SkippedEdges []Edge `json:"skipped_edges,omitempty"`
}
