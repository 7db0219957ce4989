package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pipewright/pipewright/pkg/engine"
)

// workflowVersion is the serialization format version.
const workflowVersion = 1

// serializedStage is the wire form of a stage inside the workflow document.
type serializedStage struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     StageKind `json:"kind"`
	Commands []string  `json:"commands,omitempty"`
	Image    string    `json:"image,omitempty"`
	Level    int       `json:"level"`
}

// serializedLink is the wire form of an ordering edge.
type serializedLink struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// workflowDocument is the serialized graph body.
type workflowDocument struct {
	Stages []serializedStage `json:"stages"`
	Links  []serializedLink  `json:"links"`
}

// Serialize converts the current graph into its wire representation. Stages
// are annotated with their topological level so downstream generation can run
// same-level stages in parallel. Returns an empty-workflow error when the
// graph has no stages or the links contain a cycle.
func (g *Graph) Serialize() (engine.WorkflowRepresentation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.nodes) == 0 {
		return engine.WorkflowRepresentation{}, engine.NewEmptyWorkflowError().
			WithOperation("serialize")
	}

	levels, err := g.computeLevelsLocked()
	if err != nil {
		return engine.WorkflowRepresentation{}, err
	}

	doc := workflowDocument{
		Stages: make([]serializedStage, 0, len(g.nodes)),
		Links:  make([]serializedLink, 0, len(g.links)),
	}
	levelOf := make(map[string]int, len(g.nodes))
	for level, ids := range levels {
		for _, id := range ids {
			levelOf[id] = level
		}
	}
	for _, id := range g.order {
		spec := g.nodes[id].spec
		doc.Stages = append(doc.Stages, serializedStage{
			ID:       spec.ID,
			Name:     spec.Name,
			Kind:     spec.Kind,
			Commands: spec.Commands,
			Image:    spec.Image,
			Level:    levelOf[id],
		})
	}
	for _, l := range g.links {
		doc.Links = append(doc.Links, serializedLink{From: l.from, To: l.to})
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return engine.WorkflowRepresentation{}, engine.NewUnknownError("failed to serialize workflow", err).
			WithOperation("serialize")
	}
	return engine.WorkflowRepresentation{Version: workflowVersion, Workflow: raw}, nil
}

// computeLevelsLocked assigns a topological level to every stage using
// Kahn's algorithm. Stages at the same level have no ordering relation.
// Caller holds g.mu.
func (g *Graph) computeLevelsLocked() ([][]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for _, l := range g.links {
		dependents[l.from] = append(dependents[l.from], l.to)
		inDegree[l.to]++
	}

	currentLevel := make([]string, 0)
	for _, id := range g.order {
		if inDegree[id] == 0 {
			currentLevel = append(currentLevel, id)
		}
	}

	levels := make([][]string, 0)
	processed := 0
	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		processed += len(currentLevel)

		nextLevel := make([]string, 0)
		for _, id := range currentLevel {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					nextLevel = append(nextLevel, dep)
				}
			}
		}
		currentLevel = nextLevel
	}

	if processed != len(g.nodes) {
		return nil, engine.NewEmptyWorkflowError().WithOperation("serialize")
	}
	return levels, nil
}

// ToDOT generates a DOT format representation of the graph for visualization.
// The output can be rendered with Graphviz tools.
func (g *Graph) ToDOT() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("digraph Pipeline {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	levels, err := g.computeLevelsLocked()
	if err != nil {
		// Fall back to a flat listing when the links are cyclic.
		levels = [][]string{g.order}
	}

	for level, ids := range levels {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_level_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"Level %d\";\n", level))
		sb.WriteString("    style=dashed;\n")
		for _, id := range ids {
			spec := g.nodes[id].spec
			sb.WriteString(fmt.Sprintf("    %q [label=%q, fillcolor=%q, style=\"filled,rounded\"];\n",
				id, spec.Name, stageColor(spec.Kind)))
		}
		sb.WriteString("  }\n\n")
	}

	for _, l := range g.links {
		sb.WriteString(fmt.Sprintf("  %q -> %q;\n", l.from, l.to))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// stageColor returns a fill color for visualizing stage kinds.
func stageColor(kind StageKind) string {
	switch kind {
	case StageCheckout:
		return "lightgray"
	case StageInstall:
		return "lightyellow"
	case StageTest:
		return "lightblue"
	case StageBuild:
		return "lightgreen"
	case StageDockerBuild:
		return "lightsalmon"
	case StageDeploy:
		return "lightcoral"
	default:
		return "white"
	}
}
