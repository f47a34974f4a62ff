// Package graph builds the type hierarchy of a summary and answers
// supertype and subtype queries over it.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/apisummarizer/internal/decl"
	"github.com/sirupsen/logrus"
)

// QueryOperation represents the type of hierarchy query to perform.
type QueryOperation string

const (
	OperationSupertypes   QueryOperation = "supertypes"
	OperationSubtypes     QueryOperation = "subtypes"
	OperationImplementors QueryOperation = "implementors"
)

// Query defaults and limits
const (
	DefaultDepth      = 1
	DefaultMaxResults = 100
	MaxDepth          = 64
)

// ErrUnknownType is returned when a query targets a type not in the hierarchy.
var ErrUnknownType = errors.New("type not in hierarchy")

// QueryRequest represents a hierarchy query request.
type QueryRequest struct {
	Operation  QueryOperation // Type of query
	Target     string         // Dotted binary name
	Depth      int            // Traversal depth (default: 1, capped at MaxDepth)
	MaxResults int            // Maximum number of results (default: 100)
}

// QueryResponse represents the response to a hierarchy query.
type QueryResponse struct {
	Operation     string        `json:"operation"`
	Target        string        `json:"target"`
	Results       []QueryResult `json:"results"`
	TotalFound    int           `json:"total_found"`
	TotalReturned int           `json:"total_returned"`
	Truncated     bool          `json:"truncated"`
	Metadata      ResponseMeta  `json:"metadata"`
}

// QueryResult represents a single result from a hierarchy query.
type QueryResult struct {
	Node  *Node    `json:"node"`
	Depth int      `json:"depth"`
	Via   EdgeType `json:"via"` // Edge type of the last hop
}

// ResponseMeta contains metadata about the query execution.
type ResponseMeta struct {
	TookMs int    `json:"took_ms"`
	Source string `json:"source"` // Always "hierarchy"
}

type link struct {
	id  string
	typ EdgeType
}

// Hierarchy is the type graph of one summary. Edges run from subtype to
// supertype. It is read-only after Build.
type Hierarchy struct {
	graph   graph.Graph[string, *Node]
	supers  map[string][]link
	subs    map[string][]link
	skipped []Edge
}

// Build creates the hierarchy for every class in summary. Supertypes outside
// the summary become external nodes. An edge that would close a cycle, which
// only malformed inputs produce, is skipped and logged.
func Build(summary map[string]*decl.ClassDecl, log logrus.FieldLogger) (*Hierarchy, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Hierarchy{
		graph:  graph.New(func(n *Node) string { return n.ID }, graph.Directed(), graph.PreventCycles()),
		supers: make(map[string][]link),
		subs:   make(map[string][]link),
	}

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.graph.AddVertex(&Node{ID: name, Kind: summary[name].Kind}); err != nil {
			return nil, fmt.Errorf("failed to add node %s: %w", name, err)
		}
	}

	for _, name := range names {
		c := summary[name]
		var edges []Edge
		if c.SuperClass != "" {
			edges = append(edges, Edge{From: name, To: c.SuperClass, Type: EdgeExtends})
		}
		for _, iface := range c.Interfaces {
			typ := EdgeImplements
			if c.Kind == decl.KindInterface || c.Kind == decl.KindAnnotation {
				typ = EdgeExtends
			}
			edges = append(edges, Edge{From: name, To: iface, Type: typ})
		}

		for _, e := range edges {
			if err := h.addEdge(e); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					log.WithFields(logrus.Fields{"class": e.From, "supertype": e.To}).Warn("skipping cyclic supertype edge")
					h.skipped = append(h.skipped, e)
					continue
				}
				if errors.Is(err, graph.ErrEdgeAlreadyExists) {
					continue
				}
				return nil, err
			}
		}
	}

	for id := range h.subs {
		sortLinks(h.subs[id])
	}
	return h, nil
}

func (h *Hierarchy) addEdge(e Edge) error {
	if _, err := h.graph.Vertex(e.To); errors.Is(err, graph.ErrVertexNotFound) {
		if err := h.graph.AddVertex(&Node{ID: e.To, External: true}); err != nil {
			return fmt.Errorf("failed to add node %s: %w", e.To, err)
		}
	}
	if err := h.graph.AddEdge(e.From, e.To, graph.EdgeAttribute("type", string(e.Type))); err != nil {
		return err
	}
	h.supers[e.From] = append(h.supers[e.From], link{id: e.To, typ: e.Type})
	h.subs[e.To] = append(h.subs[e.To], link{id: e.From, typ: e.Type})
	return nil
}

func sortLinks(links []link) {
	sort.Slice(links, func(i, j int) bool { return links[i].id < links[j].id })
}

// Node returns the node for a type.
func (h *Hierarchy) Node(id string) (*Node, bool) {
	n, err := h.graph.Vertex(id)
	if err != nil {
		return nil, false
	}
	return n, true
}

// Supertypes returns every transitive supertype of id, nearest first.
// Direct supertypes keep declaration order (superclass, then interfaces).
func (h *Hierarchy) Supertypes(id string) []string {
	return ids(h.traverse(id, h.supers, MaxDepth))
}

// Subtypes returns every transitive subtype of id, nearest first and sorted
// by name within each depth.
func (h *Hierarchy) Subtypes(id string) []string {
	return ids(h.traverse(id, h.subs, MaxDepth))
}

// TopologicalOrder returns every node with supertypes before their subtypes.
func (h *Hierarchy) TopologicalOrder() ([]string, error) {
	order, err := graph.StableTopologicalSort(h.graph, func(a, b string) bool { return a > b })
	if err != nil {
		return nil, fmt.Errorf("failed to sort hierarchy: %w", err)
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

type hop struct {
	id    string
	depth int
	via   EdgeType
}

// traverse walks adjacency breadth-first up to maxDepth, visiting each type
// once at its shallowest depth.
func (h *Hierarchy) traverse(start string, adjacency map[string][]link, maxDepth int) []hop {
	var out []hop
	visited := map[string]bool{start: true}
	frontier := []string{start}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, l := range adjacency[id] {
				if visited[l.id] {
					continue
				}
				visited[l.id] = true
				out = append(out, hop{id: l.id, depth: depth, via: l.typ})
				next = append(next, l.id)
			}
		}
		frontier = next
	}
	return out
}

func ids(hops []hop) []string {
	out := make([]string, len(hops))
	for i, hp := range hops {
		out[i] = hp.id
	}
	return out
}

// Query executes a hierarchy query.
func (h *Hierarchy) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	start := time.Now()

	if req.Depth <= 0 {
		req.Depth = DefaultDepth
	}
	if req.Depth > MaxDepth {
		req.Depth = MaxDepth
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if _, ok := h.Node(req.Target); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, req.Target)
	}

	var hops []hop
	switch req.Operation {
	case OperationSupertypes:
		hops = h.traverse(req.Target, h.supers, req.Depth)
	case OperationSubtypes:
		hops = h.traverse(req.Target, h.subs, req.Depth)
	case OperationImplementors:
		// Concrete summarized types below the target, at any depth.
		for _, hp := range h.traverse(req.Target, h.subs, MaxDepth) {
			n, _ := h.Node(hp.id)
			if n.Kind == decl.KindClass || n.Kind == decl.KindEnum {
				hops = append(hops, hp)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported operation: %s", req.Operation)
	}

	results := []QueryResult{}
	for _, hp := range hops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, _ := h.Node(hp.id)
		results = append(results, QueryResult{Node: n, Depth: hp.depth, Via: hp.via})
		if len(results) >= req.MaxResults {
			break
		}
	}

	return &QueryResponse{
		Operation:     string(req.Operation),
		Target:        req.Target,
		Results:       results,
		TotalFound:    len(hops),
		TotalReturned: len(results),
		Truncated:     len(results) < len(hops),
		Metadata: ResponseMeta{
			TookMs: int(time.Since(start).Milliseconds()),
			Source: "hierarchy",
		},
	}, nil
}

// Export returns the hierarchy as nodes in topological order and edges
// sorted by source then target.
func (h *Hierarchy) Export() (*GraphData, error) {
	order, err := h.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	data := &GraphData{Nodes: make([]Node, 0, len(order))}
	for _, id := range order {
		n, _ := h.Node(id)
		data.Nodes = append(data.Nodes, *n)
	}

	froms := make([]string, 0, len(h.supers))
	for id := range h.supers {
		froms = append(froms, id)
	}
	sort.Strings(froms)
	for _, from := range froms {
		for _, l := range h.supers[from] {
			data.Edges = append(data.Edges, Edge{From: from, To: l.id, Type: l.typ})
		}
	}

	data.Metadata = GraphMetadata{
		Version:      "1.0",
		GeneratedAt:  time.Now().UTC(),
		NodeCount:    len(data.Nodes),
		EdgeCount:    len(data.Edges),
		SkippedEdges: h.skipped,
	}
	return data, nil
}
