package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pipewright/pipewright/pkg/engine"
)

func TestAddNode(t *testing.T) {
	g := NewGraph()

	id, err := g.AddNode(StageSpec{Name: "Build", Kind: StageBuild})
	if err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected an assigned stage ID")
	}
	if g.StageCount() != 1 {
		t.Errorf("StageCount = %d, want 1", g.StageCount())
	}
}

func TestAddNodeValidation(t *testing.T) {
	g := NewGraph()

	if _, err := g.AddNode(StageSpec{Kind: StageBuild}); !engine.IsValidation(err) {
		t.Errorf("nameless stage should fail validation, got %v", err)
	}

	if _, err := g.AddNode(StageSpec{ID: "a", Name: "First"}); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if _, err := g.AddNode(StageSpec{ID: "a", Name: "Second"}); !engine.IsValidation(err) {
		t.Errorf("duplicate ID should fail validation, got %v", err)
	}
}

func TestAddLinkRejectsCycles(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, "a", "A")
	mustAdd(t, g, "b", "B")
	mustAdd(t, g, "c", "C")

	if err := g.AddLink("a", "b"); err != nil {
		t.Fatalf("AddLink failed: %v", err)
	}
	if err := g.AddLink("b", "c"); err != nil {
		t.Fatalf("AddLink failed: %v", err)
	}
	if err := g.AddLink("c", "a"); !engine.IsValidation(err) {
		t.Errorf("cycle-closing link should be rejected, got %v", err)
	}
	if err := g.AddLink("a", "a"); !engine.IsValidation(err) {
		t.Errorf("self-link should be rejected, got %v", err)
	}
	if err := g.AddLink("a", "missing"); !engine.IsValidation(err) {
		t.Errorf("link to unknown stage should be rejected, got %v", err)
	}
}

func TestDeleteSelection(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, "a", "A")
	mustAdd(t, g, "b", "B")
	mustAdd(t, g, "c", "C")
	if err := g.AddLink("a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddLink("b", "c"); err != nil {
		t.Fatal(err)
	}

	g.Select("b")
	if removed := g.DeleteSelection(); removed != 1 {
		t.Fatalf("DeleteSelection removed %d, want 1", removed)
	}
	if g.StageCount() != 2 {
		t.Errorf("StageCount = %d, want 2", g.StageCount())
	}
	if g.LinkCount() != 0 {
		t.Errorf("links touching a deleted stage must go, got %d remaining", g.LinkCount())
	}

	// Selection was consumed by the delete.
	if removed := g.DeleteSelection(); removed != 0 {
		t.Errorf("second DeleteSelection removed %d, want 0", removed)
	}
}

func TestClearDiagram(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, "a", "A")
	mustAdd(t, g, "b", "B")
	if err := g.AddLink("a", "b"); err != nil {
		t.Fatal(err)
	}

	g.ClearDiagram()
	if !g.IsEmpty() {
		t.Error("graph should be empty after ClearDiagram")
	}
	if g.LinkCount() != 0 {
		t.Error("links should be gone after ClearDiagram")
	}
}

func TestPopulateFromAnalysis(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, "stale", "Leftover")

	g.PopulateFromAnalysis(engine.AnalysisResult{
		RepositoryID:   "acme/widgets",
		PackageManager: "Node.js",
	})

	stages := g.Stages()
	kinds := make([]StageKind, 0, len(stages))
	for _, s := range stages {
		kinds = append(kinds, s.Kind)
	}
	want := []StageKind{StageCheckout, StageInstall, StageTest, StageBuild}
	if len(kinds) != len(want) {
		t.Fatalf("got stages %v, want kinds %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("stage %d kind = %s, want %s", i, kinds[i], want[i])
		}
	}
	// Linear chain: one link between each consecutive pair.
	if g.LinkCount() != len(want)-1 {
		t.Errorf("LinkCount = %d, want %d", g.LinkCount(), len(want)-1)
	}
}

func TestPopulateFromAnalysisDockerfile(t *testing.T) {
	g := NewGraph()
	g.PopulateFromAnalysis(engine.AnalysisResult{
		RepositoryID:   "acme/widgets",
		PackageManager: "go",
		HasDockerfile:  true,
	})

	stages := g.Stages()
	last := stages[len(stages)-1]
	if last.Kind != StageDockerBuild {
		t.Errorf("last stage kind = %s, want %s", last.Kind, StageDockerBuild)
	}
	if !strings.Contains(last.Commands[0], "widgets:latest") {
		t.Errorf("image build command %q should tag the project image", last.Commands[0])
	}
}

func TestSerializeEmptyGraph(t *testing.T) {
	g := NewGraph()
	if _, err := g.Serialize(); !engine.IsEmptyWorkflow(err) {
		t.Fatalf("empty graph should fail with an empty-workflow error, got %v", err)
	}
}

func TestSerialize(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, "a", "Checkout")
	mustAdd(t, g, "b", "Lint")
	mustAdd(t, g, "c", "Test")
	mustAdd(t, g, "d", "Build")
	for _, l := range [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}} {
		if err := g.AddLink(l[0], l[1]); err != nil {
			t.Fatal(err)
		}
	}

	rep, err := g.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if rep.Version != workflowVersion {
		t.Errorf("Version = %d, want %d", rep.Version, workflowVersion)
	}

	var doc workflowDocument
	if err := json.Unmarshal(rep.Workflow, &doc); err != nil {
		t.Fatalf("workflow body is not valid JSON: %v", err)
	}
	if len(doc.Stages) != 4 || len(doc.Links) != 4 {
		t.Fatalf("got %d stages and %d links, want 4 and 4", len(doc.Stages), len(doc.Links))
	}

	levels := make(map[string]int)
	for _, s := range doc.Stages {
		levels[s.ID] = s.Level
	}
	if levels["a"] != 0 {
		t.Errorf("root stage level = %d, want 0", levels["a"])
	}
	if levels["b"] != 1 || levels["c"] != 1 {
		t.Errorf("parallel stages should share level 1, got b=%d c=%d", levels["b"], levels["c"])
	}
	if levels["d"] != 2 {
		t.Errorf("join stage level = %d, want 2", levels["d"])
	}
}

func TestSerializeIsFreshEachCall(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, "a", "Build")

	first, err := g.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, g, "b", "Test")
	second, err := g.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if string(first.Workflow) == string(second.Workflow) {
		t.Error("serialization must reflect the current graph, not a cached copy")
	}
}

func TestToDOT(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, "a", "Checkout")
	mustAdd(t, g, "b", "Build")
	if err := g.AddLink("a", "b"); err != nil {
		t.Fatal(err)
	}

	dot := g.ToDOT()
	for _, want := range []string{"digraph Pipeline", "cluster_level_0", "cluster_level_1", `"a" -> "b"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}

func mustAdd(t *testing.T, g *Graph, id, name string) {
	t.Helper()
	if _, err := g.AddNode(StageSpec{ID: id, Name: name}); err != nil {
		t.Fatalf("AddNode(%s) failed: %v", id, err)
	}
}
