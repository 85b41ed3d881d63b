// Package callgraph builds the syntactic call graph of one analyzed file:
// an edge from every method to every name it invokes.
//
// Callees are matched by simple name only. A name that matches a method of
// the caller's own class links to that method; otherwise it links to every
// method of the file with that name; otherwise to a bare external vertex.
// Overloads share one vertex.
package callgraph

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/mvp-joe/jstruct/internal/extractor"
)

// VertexKind distinguishes methods of the file from names it only calls.
type VertexKind string

const (
	MethodVertex   VertexKind = "method"
	ExternalVertex VertexKind = "external"
)

// Vertex is a node of the call graph. Method vertices are identified by
// their qualified name (Outer.Inner.method), external ones by the bare
// callee name.
type Vertex struct {
	ID    string
	Kind  VertexKind
	Class string
	Name  string
}

// Graph is a directed call graph.
type Graph struct {
	g graph.Graph[string, Vertex]
}

type method struct {
	id      string
	class   string
	callees []string
}

// Build creates the call graph of result.
func Build(result *extractor.AnalysisResult) (*Graph, error) {
	g := graph.New(func(v Vertex) string { return v.ID }, graph.Directed())

	var methods []method
	byName := make(map[string][]string)
	byClassName := make(map[string]string)

	result.Walk(func(path []string, class *extractor.ClassInfo) {
		className := strings.Join(append(path[:len(path):len(path)], class.Name), ".")
		for _, m := range class.Methods {
			id := className + "." + m.Name
			methods = append(methods, method{id: id, class: className, callees: m.CalledFunctions})

			key := className + "\x00" + m.Name
			if _, seen := byClassName[key]; seen {
				continue
			}
			byClassName[key] = id
			byName[m.Name] = append(byName[m.Name], id)
		}
	})

	for _, m := range methods {
		name := m.id[len(m.class)+1:]
		err := g.AddVertex(Vertex{ID: m.id, Kind: MethodVertex, Class: m.class, Name: name},
			graph.VertexAttribute("shape", "box"))
		if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add method %s: %w", m.id, err)
		}
	}

	for _, m := range methods {
		for _, callee := range m.callees {
			targets := resolve(m.class, callee, byClassName, byName)
			if targets == nil {
				err := g.AddVertex(Vertex{ID: callee, Kind: ExternalVertex, Name: callee},
					graph.VertexAttribute("style", "dashed"))
				if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
					return nil, fmt.Errorf("failed to add callee %s: %w", callee, err)
				}
				targets = []string{callee}
			}

			for _, target := range targets {
				err := g.AddEdge(m.id, target)
				if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
					return nil, fmt.Errorf("failed to add call %s -> %s: %w", m.id, target, err)
				}
			}
		}
	}

	return &Graph{g: g}, nil
}

func resolve(class, callee string, byClassName map[string]string, byName map[string][]string) []string {
	if id, ok := byClassName[class+"\x00"+callee]; ok {
		return []string{id}
	}
	return byName[callee]
}

// Vertex returns the vertex with the given ID.
func (g *Graph) Vertex(id string) (Vertex, error) {
	return g.g.Vertex(id)
}

// Vertices returns every vertex ordered by ID.
func (g *Graph) Vertices() ([]Vertex, error) {
	adjacency, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	vertices := make([]Vertex, 0, len(adjacency))
	for id := range adjacency {
		v, err := g.g.Vertex(id)
		if err != nil {
			return nil, err
		}
		vertices = append(vertices, v)
	}
	sort.Slice(vertices, func(i, j int) bool { return vertices[i].ID < vertices[j].ID })
	return vertices, nil
}

// Callees returns the sorted IDs that id calls.
func (g *Graph) Callees(id string) ([]string, error) {
	adjacency, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	edges, ok := adjacency[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrVertexNotFound, id)
	}
	return sortedKeys(edges), nil
}

// Callers returns the sorted IDs of the methods that call id.
func (g *Graph) Callers(id string) ([]string, error) {
	predecessors, err := g.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	edges, ok := predecessors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrVertexNotFound, id)
	}
	return sortedKeys(edges), nil
}

// Recursive returns the groups of methods that can reach themselves, each
// sorted, ordered by their first member.
func (g *Graph) Recursive() ([][]string, error) {
	components, err := graph.StronglyConnectedComponents(g.g)
	if err != nil {
		return nil, err
	}

	groups := [][]string{}
	for _, component := range components {
		if len(component) == 1 {
			if _, err := g.g.Edge(component[0], component[0]); err != nil {
				continue
			}
		}
		sort.Strings(component)
		groups = append(groups, component)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups, nil
}

// Order returns the number of vertices.
func (g *Graph) Order() (int, error) {
	return g.g.Order()
}

// Size returns the number of edges.
func (g *Graph) Size() (int, error) {
	return g.g.Size()
}

// WriteDOT renders the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	return draw.DOT(g.g, w, draw.GraphAttribute("rankdir", "LR"))
}

func sortedKeys(edges map[string]graph.Edge[string]) []string {
	keys := make([]string, 0, len(edges))
	for k := range edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
