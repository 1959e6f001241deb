package common

// Triple is a directed, labeled edge of the knowledge graph: Head --Relation--> Tail.
// ID is assigned by the store on insert; uniqueness of (Head, Relation, Tail)
// is not enforced.
type Triple struct {
	ID       int64  `json:"id"`
	Head     string `json:"head_entity"`
	Relation string `json:"relation"`
	Tail     string `json:"tail_entity"`
}

// ScoredWord pairs a word with a similarity score, conventionally in [0, 1].
type ScoredWord struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// GraphNode is an entity as rendered by graph visualisations.
// ID and Name are both the entity name.
type GraphNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GraphLink is a triple as rendered by graph visualisations.
type GraphLink struct {
	ID     int64  `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Value  string `json:"value"`
}

// Graph is the node/link view of every triple in the store.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// BuildGraph derives the node/link view from triples. Entities are implicit,
// so a node exists exactly when it is the head or tail of some triple. Nodes
// keep the order in which they first appear.
func BuildGraph(triples []Triple) Graph {
	g := Graph{
		Nodes: make([]GraphNode, 0),
		Links: make([]GraphLink, 0, len(triples)),
	}
	seen := make(map[string]struct{})
	addNode := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		g.Nodes = append(g.Nodes, GraphNode{ID: name, Name: name})
	}

	for _, t := range triples {
		addNode(t.Head)
		addNode(t.Tail)
		g.Links = append(g.Links, GraphLink{
			ID:     t.ID,
			Source: t.Head,
			Target: t.Tail,
			Value:  t.Relation,
		})
	}
	return g
}
