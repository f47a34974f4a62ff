package graph

// Test Plan for Hierarchy:
// - Supertypes walks superclass then interfaces, nearest first, including external types
// - Subtypes walks down in name order per depth
// - Query honors depth, max results and truncation; unknown targets are ErrUnknownType
// - Implementors returns concrete classes below an interface at any depth
// - TopologicalOrder puts every supertype before its subtypes
// - Cyclic supertype edges are skipped and reported in the export
// - Export lists nodes and sorted edges with counts

import (
	"context"
	"testing"

	"github.com/mvp-joe/apisummarizer/internal/decl"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func class(name string, kind decl.Kind, super string, ifaces ...string) *decl.ClassDecl {
	return &decl.ClassDecl{BinaryName: name, Kind: kind, SuperClass: super, Interfaces: ifaces}
}

// sample:
//
//	java.lang.Object (external)
//	  <- com.a.Base implements com.a.Shape
//	       <- com.a.Circle
//	       <- com.a.Square implements com.a.Named
//	com.a.Shape extends com.a.Named
func sample() map[string]*decl.ClassDecl {
	return map[string]*decl.ClassDecl{
		"com.a.Named":  class("com.a.Named", decl.KindInterface, "java.lang.Object"),
		"com.a.Shape":  class("com.a.Shape", decl.KindInterface, "java.lang.Object", "com.a.Named"),
		"com.a.Base":   class("com.a.Base", decl.KindClass, "java.lang.Object", "com.a.Shape"),
		"com.a.Circle": class("com.a.Circle", decl.KindClass, "com.a.Base"),
		"com.a.Square": class("com.a.Square", decl.KindClass, "com.a.Base", "com.a.Named"),
	}
}

func build(t *testing.T, summary map[string]*decl.ClassDecl) *Hierarchy {
	t.Helper()
	log, _ := test.NewNullLogger()
	h, err := Build(summary, log)
	require.NoError(t, err)
	return h
}

func TestHierarchy_Supertypes(t *testing.T) {
	t.Parallel()

	h := build(t, sample())

	assert.Equal(t, []string{"com.a.Base", "java.lang.Object", "com.a.Shape", "com.a.Named"}, h.Supertypes("com.a.Circle"))

	obj, ok := h.Node("java.lang.Object")
	require.True(t, ok)
	assert.True(t, obj.External)
	assert.Empty(t, obj.Kind)
}

func TestHierarchy_Subtypes(t *testing.T) {
	t.Parallel()

	h := build(t, sample())

	assert.Equal(t, []string{"com.a.Shape", "com.a.Square", "com.a.Base", "com.a.Circle"}, h.Subtypes("com.a.Named"))
	assert.Empty(t, h.Subtypes("com.a.Circle"))
}

func TestHierarchy_Query(t *testing.T) {
	t.Parallel()

	h := build(t, sample())
	ctx := context.Background()

	resp, err := h.Query(ctx, &QueryRequest{Operation: OperationSubtypes, Target: "com.a.Base"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "com.a.Circle", resp.Results[0].Node.ID)
	assert.Equal(t, EdgeExtends, resp.Results[0].Via)
	assert.Equal(t, 1, resp.Results[0].Depth)
	assert.Equal(t, "hierarchy", resp.Metadata.Source)

	resp, err = h.Query(ctx, &QueryRequest{Operation: OperationSupertypes, Target: "com.a.Circle", Depth: 2, MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalFound)
	assert.Equal(t, 2, resp.TotalReturned)
	assert.True(t, resp.Truncated)

	resp, err = h.Query(ctx, &QueryRequest{Operation: OperationImplementors, Target: "com.a.Named"})
	require.NoError(t, err)
	var got []string
	for _, r := range resp.Results {
		got = append(got, r.Node.ID)
	}
	assert.Equal(t, []string{"com.a.Square", "com.a.Base", "com.a.Circle"}, got)

	_, err = h.Query(ctx, &QueryRequest{Operation: OperationSubtypes, Target: "com.a.Missing"})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = h.Query(ctx, &QueryRequest{Operation: "callers", Target: "com.a.Base"})
	assert.Error(t, err)
}

func TestHierarchy_TopologicalOrder(t *testing.T) {
	t.Parallel()

	h := build(t, sample())
	order, err := h.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 6)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for sub, c := range sample() {
		assert.Less(t, pos[c.SuperClass], pos[sub], "%s before %s", c.SuperClass, sub)
		for _, iface := range c.Interfaces {
			assert.Less(t, pos[iface], pos[sub], "%s before %s", iface, sub)
		}
	}
}

func TestHierarchy_CycleSkipped(t *testing.T) {
	t.Parallel()

	log, hook := test.NewNullLogger()
	h, err := Build(map[string]*decl.ClassDecl{
		"x.A": class("x.A", decl.KindClass, "x.B"),
		"x.B": class("x.B", decl.KindClass, "x.A"),
	}, log)
	require.NoError(t, err)

	data, err := h.Export()
	require.NoError(t, err)
	assert.Len(t, data.Edges, 1)
	require.Len(t, data.Metadata.SkippedEdges, 1)
	assert.Equal(t, Edge{From: "x.B", To: "x.A", Type: EdgeExtends}, data.Metadata.SkippedEdges[0])
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, "skipping cyclic supertype edge", hook.LastEntry().Message)
}

func TestHierarchy_Export(t *testing.T) {
	t.Parallel()

	h := build(t, sample())
	data, err := h.Export()
	require.NoError(t, err)

	assert.Equal(t, 6, data.Metadata.NodeCount)
	assert.Equal(t, 8, data.Metadata.EdgeCount)
	assert.Equal(t, Edge{From: "com.a.Base", To: "java.lang.Object", Type: EdgeExtends}, data.Edges[0])
	assert.Equal(t, Edge{From: "com.a.Base", To: "com.a.Shape", Type: EdgeImplements}, data.Edges[1])
	assert.Empty(t, data.Metadata.SkippedEdges)
}
