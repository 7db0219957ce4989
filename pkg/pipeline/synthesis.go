package pipeline

import (
	"fmt"
	"strings"

	"github.com/pipewright/pipewright/pkg/engine"
)

// PopulateFromAnalysis replaces the graph's contents with an initial pipeline
// synthesized from a repository analysis: checkout, dependency installation
// matched to the detected package manager, test, and build, in that order,
// plus a container-image build when the repository carries a Dockerfile.
func (g *Graph) PopulateFromAnalysis(result engine.AnalysisResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.clearLocked()

	add := func(spec StageSpec) string {
		spec.ID = fmt.Sprintf("stage-%d", len(g.order)+1)
		g.nodes[spec.ID] = &node{spec: spec}
		g.order = append(g.order, spec.ID)
		return spec.ID
	}
	chain := func(from, to string) {
		g.links = append(g.links, link{from: from, to: to})
	}

	checkout := add(StageSpec{Name: "Checkout", Kind: StageCheckout,
		Commands: []string{"git clone " + result.RepositoryID}})

	prev := checkout
	if cmds := installCommands(result.PackageManager); len(cmds) > 0 {
		install := add(StageSpec{Name: "Install Dependencies", Kind: StageInstall, Commands: cmds})
		chain(prev, install)
		prev = install
	}

	test := add(StageSpec{Name: "Test", Kind: StageTest,
		Commands: testCommands(result.PackageManager)})
	chain(prev, test)

	build := add(StageSpec{Name: "Build", Kind: StageBuild,
		Commands: buildCommands(result.PackageManager)})
	chain(test, build)

	if result.HasDockerfile {
		docker := add(StageSpec{Name: "Build Image", Kind: StageDockerBuild,
			Commands: []string{"docker build -t " + imageTag(result) + " ."}})
		chain(build, docker)
	}
}

// installCommands maps a detected package manager to its install invocation.
// Returns nil when no dedicated install stage applies.
func installCommands(pm string) []string {
	switch normalizePM(pm) {
	case "npm", "node.js", "node":
		return []string{"npm ci"}
	case "yarn":
		return []string{"yarn install --frozen-lockfile"}
	case "pnpm":
		return []string{"pnpm install --frozen-lockfile"}
	case "pip", "python":
		return []string{"pip install -r requirements.txt"}
	case "poetry":
		return []string{"poetry install"}
	case "go", "go modules":
		return []string{"go mod download"}
	case "maven":
		return []string{"mvn dependency:go-offline"}
	case "gradle":
		return []string{"gradle dependencies"}
	case "cargo":
		return nil
	case "bundler", "ruby":
		return []string{"bundle install"}
	case "composer", "php":
		return []string{"composer install"}
	default:
		return nil
	}
}

// testCommands maps a detected package manager to its test invocation.
func testCommands(pm string) []string {
	switch normalizePM(pm) {
	case "npm", "node.js", "node", "yarn", "pnpm":
		return []string{"npm test"}
	case "pip", "python", "poetry":
		return []string{"pytest"}
	case "go", "go modules":
		return []string{"go test ./..."}
	case "maven":
		return []string{"mvn test"}
	case "gradle":
		return []string{"gradle test"}
	case "cargo":
		return []string{"cargo test"}
	case "bundler", "ruby":
		return []string{"bundle exec rake test"}
	case "composer", "php":
		return []string{"composer test"}
	default:
		return []string{"make test"}
	}
}

// buildCommands maps a detected package manager to its build invocation.
func buildCommands(pm string) []string {
	switch normalizePM(pm) {
	case "npm", "node.js", "node", "yarn", "pnpm":
		return []string{"npm run build"}
	case "pip", "python", "poetry":
		return []string{"python -m build"}
	case "go", "go modules":
		return []string{"go build ./..."}
	case "maven":
		return []string{"mvn package"}
	case "gradle":
		return []string{"gradle build"}
	case "cargo":
		return []string{"cargo build --release"}
	case "bundler", "ruby":
		return []string{"bundle exec rake build"}
	default:
		return []string{"make build"}
	}
}

func normalizePM(pm string) string {
	return strings.ToLower(strings.TrimSpace(pm))
}

// imageTag derives a container image tag from the analysis.
func imageTag(result engine.AnalysisResult) string {
	name := strings.ToLower(result.DeriveProjectName())
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" || name == "." {
		name = "app"
	}
	return name + ":latest"
}
