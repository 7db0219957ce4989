package pipeline

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pipewright/pipewright/pkg/engine"
)

// StageKind categorizes what a pipeline stage does.
type StageKind string

const (
	// StageCheckout fetches the repository source.
	StageCheckout StageKind = "checkout"

	// StageInstall installs project dependencies.
	StageInstall StageKind = "install"

	// StageTest runs the project's test suite.
	StageTest StageKind = "test"

	// StageBuild compiles or packages the project.
	StageBuild StageKind = "build"

	// StageDockerBuild builds a container image from the repository's Dockerfile.
	StageDockerBuild StageKind = "docker-build"

	// StageDeploy publishes build outputs.
	StageDeploy StageKind = "deploy"

	// StageCustom runs user-supplied commands.
	StageCustom StageKind = "custom"
)

// StageSpec describes a stage to add to the graph.
type StageSpec struct {
	// ID uniquely identifies the stage. Assigned when empty.
	ID string `json:"id"`

	// Name is the stage's display name.
	Name string `json:"name"`

	// Kind categorizes the stage.
	Kind StageKind `json:"kind"`

	// Commands are the shell commands the stage runs, in order.
	Commands []string `json:"commands,omitempty"`

	// Image is the container image the stage runs in, if any.
	Image string `json:"image,omitempty"`
}

// node is a stage placed in the graph.
type node struct {
	spec     StageSpec
	selected bool
}

// link is a directed ordering edge between two stages.
type link struct {
	from string
	to   string
}

// Graph is the mutable pipeline graph. All operations are safe for
// concurrent use; each operation is atomic and never blocks on I/O.
type Graph struct {
	mu    sync.Mutex
	nodes map[string]*node
	links []link
	// order preserves insertion order for deterministic serialization
	order []string
}

// NewGraph creates an empty pipeline graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
		links: make([]link, 0),
		order: make([]string, 0),
	}
}

// AddNode adds a stage to the graph and returns its ID. An ID is assigned
// when the spec does not carry one.
func (g *Graph) AddNode(spec StageSpec) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if spec.Name == "" {
		return "", engine.NewValidationError("stage name is required", nil).
			WithOperation("add_node")
	}
	if spec.Kind == "" {
		spec.Kind = StageCustom
	}
	if spec.ID == "" {
		spec.ID = uuid.New().String()
	}
	if _, exists := g.nodes[spec.ID]; exists {
		return "", engine.NewValidationError(fmt.Sprintf("duplicate stage ID: %s", spec.ID), nil).
			WithOperation("add_node")
	}

	g.nodes[spec.ID] = &node{spec: spec}
	g.order = append(g.order, spec.ID)
	return spec.ID, nil
}

// AddLink adds an ordering edge from one stage to another. Links that would
// introduce a cycle are rejected.
func (g *Graph) AddLink(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[from]; !exists {
		return engine.NewValidationError(fmt.Sprintf("link source %s does not exist", from), nil).
			WithOperation("add_link")
	}
	if _, exists := g.nodes[to]; !exists {
		return engine.NewValidationError(fmt.Sprintf("link target %s does not exist", to), nil).
			WithOperation("add_link")
	}
	if from == to {
		return engine.NewValidationError("a stage cannot depend on itself", nil).
			WithOperation("add_link")
	}
	for _, l := range g.links {
		if l.from == from && l.to == to {
			return nil
		}
	}
	if g.reachableLocked(to, from) {
		return engine.NewValidationError(
			fmt.Sprintf("link %s -> %s would create a cycle", from, to), nil).
			WithOperation("add_link")
	}

	g.links = append(g.links, link{from: from, to: to})
	return nil
}

// reachableLocked reports whether target is reachable from start by
// following links. Caller holds g.mu.
func (g *Graph) reachableLocked(start, target string) bool {
	visited := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, l := range g.links {
			if l.from == id {
				stack = append(stack, l.to)
			}
		}
	}
	return false
}

// Select marks the given stages as selected, replacing any prior selection.
// Unknown IDs are ignored.
func (g *Graph) Select(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range g.nodes {
		n.selected = false
	}
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			n.selected = true
		}
	}
}

// DeleteSelection removes all selected stages and every link touching them.
// Returns the number of stages removed.
func (g *Graph) DeleteSelection() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, n := range g.nodes {
		if !n.selected {
			continue
		}
		delete(g.nodes, id)
		removed++

		kept := g.links[:0]
		for _, l := range g.links {
			if l.from != id && l.to != id {
				kept = append(kept, l)
			}
		}
		g.links = kept
	}
	if removed > 0 {
		order := g.order[:0]
		for _, id := range g.order {
			if _, ok := g.nodes[id]; ok {
				order = append(order, id)
			}
		}
		g.order = order
	}
	return removed
}

// ClearDiagram removes every stage and link from the graph.
func (g *Graph) ClearDiagram() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked()
}

// clearLocked resets the graph. Caller holds g.mu.
func (g *Graph) clearLocked() {
	g.nodes = make(map[string]*node)
	g.links = g.links[:0]
	g.order = g.order[:0]
}

// IsEmpty reports whether the graph has no stages.
func (g *Graph) IsEmpty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes) == 0
}

// StageCount returns the number of stages in the graph.
func (g *Graph) StageCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// LinkCount returns the number of ordering links in the graph.
func (g *Graph) LinkCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.links)
}

// Stages returns the specs of all stages in insertion order.
func (g *Graph) Stages() []StageSpec {
	g.mu.Lock()
	defer g.mu.Unlock()

	specs := make([]StageSpec, 0, len(g.order))
	for _, id := range g.order {
		specs = append(specs, g.nodes[id].spec)
	}
	return specs
}
