package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const regoSample = `# Requires a build stage
# for every pipeline
package pipewright.policies.sample

import rego.v1

deny contains "no build stage" if {
	not has_build
}

has_build if {
	some stage in input.workflow.stages
	stage.kind == "build"
}
`

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.rego", regoSample)
	writeFile(t, dir, "nested/other.rego", regoSample)
	writeFile(t, dir, "notes.md", "not a policy")

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("loaded %d policies, want 2", len(policies))
	}
}

func TestRegoMetadataExtraction(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sample.rego", regoSample)

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatal(err)
	}

	p := policies[0]
	if p.Name != "sample" {
		t.Errorf("name = %q, want file basename", p.Name)
	}
	if p.Description != "Requires a build stage for every pipeline" {
		t.Errorf("description = %q", p.Description)
	}
	if p.Severity != SeverityWarning {
		t.Errorf("default severity = %s, want warning", p.Severity)
	}
	if !p.Enabled {
		t.Error("loaded policies default to enabled")
	}
}

func TestLoadJSONPolicyDefaults(t *testing.T) {
	policy := Policy{
		Name: "json-policy",
		Rego: "package pipewright.policies.j\n",
	}
	data, err := json.Marshal(policy)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := writeFile(t, dir, "policy.json", string(data))

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if policies[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning default", policies[0].Severity)
	}
	if policies[0].CreatedAt.IsZero() {
		t.Error("created_at should be defaulted")
	}
}

func TestLoadBundle(t *testing.T) {
	bundle := Bundle{
		Name:    "team-policies",
		Version: "1.2.0",
		Policies: []Policy{
			{Name: "a", Rego: "package pipewright.policies.a\n"},
			{Name: "b", Rego: "package pipewright.policies.b\n"},
		},
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := writeFile(t, dir, "bundle.json", string(data))

	loader := NewLoader(zerolog.Nop())
	loaded, err := loader.LoadBundle(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadBundle failed: %v", err)
	}
	if loaded.Name != "team-policies" || len(loaded.Policies) != 2 {
		t.Errorf("bundle = %+v", loaded)
	}
}

func TestLoaderCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sample.rego", regoSample)

	loader := NewLoader(zerolog.Nop())
	first, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatal(err)
	}

	// A rewrite without cache invalidation returns the cached policy.
	writeFile(t, dir, "sample.rego", "# Changed\npackage pipewright.policies.sample\n")
	second, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if second[0].Description != first[0].Description {
		t.Error("cached policy should be returned until the cache is cleared")
	}

	loader.ClearCache()
	third, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if third[0].Description == first[0].Description {
		t.Error("cleared cache should pick up the rewritten file")
	}
}

func TestWatchReloadsPolicySet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.rego", regoSample)

	engine, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := engine.LoadPolicies(ctx, []string{dir}); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.GetPolicy("added"); err == nil {
		t.Fatal("policy present before it was written")
	}

	reloaded := make(chan int, 4)
	loader := NewLoader(zerolog.Nop())
	err = loader.Watch(ctx, []string{dir}, func(policies []Policy) error {
		if err := engine.ReplacePolicies(ctx, policies); err != nil {
			return err
		}
		reloaded <- len(policies)
		return nil
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer loader.StopWatching()

	writeFile(t, dir, "added.rego", `package pipewright.policies.added

import rego.v1

deny contains "deploy stage is forbidden" if {
	some stage in input.workflow.stages
	stage.kind == "deploy"
}
`)

	// Reloads are debounced, so allow for the settle delay.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-reloaded:
			if _, err := engine.GetPolicy("added"); err == nil {
				if n != 2 {
					t.Errorf("reload delivered %d policies, want 2", n)
				}
				return
			}
		case <-deadline:
			t.Fatal("policy set was not reloaded after a file change")
		}
	}
}
