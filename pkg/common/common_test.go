package common

import (
	"reflect"
	"testing"
)

func TestBuildGraph(t *testing.T) {
	triples := []Triple{
		{ID: 1, Head: "松材线虫", Relation: "寄生", Tail: "松树"},
		{ID: 2, Head: "马尾松", Relation: "属于", Tail: "松树"},
		{ID: 3, Head: "马尾松", Relation: "易感", Tail: "松材线虫"},
	}

	g := BuildGraph(triples)

	wantNodes := []GraphNode{
		{ID: "松材线虫", Name: "松材线虫"},
		{ID: "松树", Name: "松树"},
		{ID: "马尾松", Name: "马尾松"},
	}
	if !reflect.DeepEqual(g.Nodes, wantNodes) {
		t.Fatalf("unexpected nodes: %+v", g.Nodes)
	}
	if len(g.Links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(g.Links))
	}
	if g.Links[2] != (GraphLink{ID: 3, Source: "马尾松", Target: "松材线虫", Value: "易感"}) {
		t.Fatalf("unexpected link: %+v", g.Links[2])
	}
}

func TestBuildGraph_Empty(t *testing.T) {
	g := BuildGraph(nil)
	if g.Nodes == nil || g.Links == nil {
		t.Fatal("expected non-nil slices so the JSON view renders [] instead of null")
	}
	if len(g.Nodes) != 0 || len(g.Links) != 0 {
		t.Fatalf("expected empty graph, got %+v", g)
	}
}
