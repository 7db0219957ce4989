package stores

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/pipewright/pipewright/pkg/engine"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "artifacts.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	artifact := engine.Artifact{
		ID:          "art-1",
		YAML:        "jobs:\n  build: {}\n",
		Provider:    engine.ProviderGitHubActions,
		ProjectName: "widgets",
		SavedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Save(ctx, artifact); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "art-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.YAML != artifact.YAML {
		t.Errorf("YAML = %q, want %q", got.YAML, artifact.YAML)
	}
	if got.Provider != engine.ProviderGitHubActions {
		t.Errorf("Provider = %s", got.Provider)
	}
	if got.ProjectName != "widgets" {
		t.Errorf("ProjectName = %q", got.ProjectName)
	}
	if got.SavedAt.IsZero() {
		t.Error("SavedAt should be set")
	}
}

func TestSaveAssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, engine.Artifact{
		YAML:        "stages: []\n",
		Provider:    engine.ProviderGitLabCI,
		ProjectName: "widgets",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.GetLatest(ctx, "widgets", engine.ProviderGitLabCI)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if got.ID == "" {
		t.Error("Save should assign an ID")
	}
	if got.SavedAt.IsZero() {
		t.Error("Save should assign a timestamp")
	}
}

func TestSaveReplacesSameProjectProvider(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := engine.Artifact{ID: "a1", YAML: "old", Provider: engine.ProviderCircleCI, ProjectName: "widgets"}
	second := engine.Artifact{ID: "a2", YAML: "new", Provider: engine.ProviderCircleCI, ProjectName: "widgets"}
	if err := store.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one row per project/provider, got %d", len(all))
	}
	if all[0].YAML != "new" || all[0].ID != "a2" {
		t.Errorf("replacement not applied: %+v", all[0])
	}
}

func TestDifferentProvidersCoexist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range engine.Providers() {
		err := store.Save(ctx, engine.Artifact{YAML: "x", Provider: p, ProjectName: "widgets"})
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(all))
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, engine.Artifact{YAML: "x", Provider: "jenkins", ProjectName: "widgets"}); err == nil {
		t.Error("unsupported provider should be rejected")
	}
	if err := store.Save(ctx, engine.Artifact{YAML: "x", Provider: engine.ProviderCircleCI}); err == nil {
		t.Error("missing project name should be rejected")
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, engine.Artifact{ID: "a1", YAML: "x", Provider: engine.ProviderCircleCI, ProjectName: "widgets"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "a1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "a1"); err == nil {
		t.Error("deleted artifact should not be retrievable")
	}
	if err := store.Delete(ctx, "a1"); err == nil {
		t.Error("deleting a missing artifact should fail")
	}
}

func TestListPage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		artifact := engine.Artifact{
			YAML:        "name: CI\n",
			Provider:    engine.ProviderGitHubActions,
			ProjectName: fmt.Sprintf("project-%d", i),
			SavedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Save(ctx, artifact); err != nil {
			t.Fatal(err)
		}
	}

	first, err := store.ListPage(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListPage failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first page has %d artifacts, want 2", len(first))
	}
	if first[0].ProjectName != "project-4" {
		t.Errorf("first page starts at %s, want the most recent", first[0].ProjectName)
	}

	second, err := store.ListPage(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 2 || second[0].ProjectName != "project-2" {
		t.Errorf("second page = %+v", second)
	}
}

func TestHealthCheck(t *testing.T) {
	store := newTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed on a live store: %v", err)
	}

	uninitialized, err := NewSQLiteStore(Config{Path: "unused.db"})
	if err != nil {
		t.Fatal(err)
	}
	if err := uninitialized.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck should fail before Init")
	}
}
