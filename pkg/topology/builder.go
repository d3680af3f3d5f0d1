package topology

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"archguard-hq/warden/pkg/policy"
)

// Service is one merged manifest entry. Fields keeps every raw key so later
// manifests can shallow-overwrite earlier ones without the builder having to
// understand the full compose schema.
type Service struct {
	Environment map[string]*string
	Ports       []string
	DependsOn   []string
	Fields      map[string]any
}

// Topology is the merged view of all manifest files plus derived data.
type Topology struct {
	// Services holds the merged per-service manifest entries.
	Services map[string]Service

	// Matrix is the derived environment matrix, keyed by service.
	Matrix map[string]EnvEntry

	// Docs maps each docs file to its contents ("" when missing).
	Docs map[string]string

	// ManifestFiles are the resolved manifest paths in merge order.
	ManifestFiles []string
}

// EnvEntry is the environment matrix row for one service.
type EnvEntry struct {
	// Env is the resolved environment map; nil values mean the variable is
	// declared without a value.
	Env map[string]*string `json:"env"`

	// BlockedPresent lists declared variables the policy blocks for this
	// service, sorted.
	BlockedPresent []string `json:"blocked_present"`

	Ports     []string `json:"ports"`
	DependsOn []string `json:"depends_on"`
}

// Builder discovers and merges manifests under a repository root.
type Builder struct {
	root   string
	logger *slog.Logger
}

// NewBuilder creates a Builder rooted at the repository directory all
// policy-relative paths resolve against.
func NewBuilder(root string) *Builder {
	return &Builder{
		root:   root,
		logger: slog.Default().With("component", "topology"),
	}
}

// Build merges the policy's manifest files into a fresh Topology.
//
// A manifest that is missing or fails to parse contributes nothing; it never
// stops the remaining files from merging. Discovery deglobs, deduplicates and
// sorts so the merge order is deterministic for a given file set.
func (b *Builder) Build(pol *policy.Policy) *Topology {
	topo := &Topology{
		Services: map[string]Service{},
		Docs:     map[string]string{},
	}

	topo.ManifestFiles = b.ResolveManifests(pol.ComposeFiles)
	for _, rel := range topo.ManifestFiles {
		doc := b.loadManifest(rel)
		mergeServices(topo.Services, doc)
	}

	for _, rel := range pol.DocsFiles {
		data, err := os.ReadFile(filepath.Join(b.root, rel))
		if err != nil {
			topo.Docs[rel] = ""
			continue
		}
		topo.Docs[rel] = string(data)
	}

	topo.Matrix = buildMatrix(pol, topo.Services)
	return topo
}

// ResolveManifests expands glob patterns against the repo root and returns
// the deduplicated, lexicographically sorted relative paths.
func (b *Builder) ResolveManifests(specs []string) []string {
	var expanded []string
	for _, spec := range specs {
		if !strings.ContainsAny(spec, "*?[") {
			expanded = append(expanded, spec)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(b.root, spec))
		if err != nil {
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if rel, err := filepath.Rel(b.root, m); err == nil {
				expanded = append(expanded, filepath.ToSlash(rel))
			}
		}
	}

	sort.Strings(expanded)
	seen := make(map[string]bool, len(expanded))
	ordered := expanded[:0]
	for _, rel := range expanded {
		if seen[rel] {
			continue
		}
		seen[rel] = true
		ordered = append(ordered, rel)
	}
	return ordered
}

// loadManifest reads one manifest into a generic document, degrading to nil
// on any failure.
func (b *Builder) loadManifest(rel string) map[string]any {
	data, err := os.ReadFile(filepath.Join(b.root, rel))
	if err != nil {
		if !os.IsNotExist(err) {
			b.logger.Warn("manifest unreadable, skipping", "path", rel, "error", err)
		}
		return nil
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		b.logger.Warn("manifest failed to parse, skipping", "path", rel, "error", err)
		return nil
	}
	return doc
}

// mergeServices folds one manifest document into the accumulated service
// map. The overwrite is shallow: a service redefined by a later file replaces
// fields wholesale, it does not deep-merge them.
func mergeServices(acc map[string]Service, doc map[string]any) {
	services, _ := doc["services"].(map[string]any)
	for name, raw := range services {
		svcDoc, _ := raw.(map[string]any)
		existing, ok := acc[name]
		if !ok {
			existing = Service{Fields: map[string]any{}}
		}
		for k, v := range svcDoc {
			existing.Fields[k] = v
		}
		existing.Environment = extractEnv(existing.Fields["environment"])
		existing.Ports = stringList(existing.Fields["ports"])
		existing.DependsOn = dependsOnList(existing.Fields["depends_on"])
		acc[name] = existing
	}
}

// buildMatrix derives the environment matrix from the merged services and
// the policy's blocked-variable sets.
func buildMatrix(pol *policy.Policy, services map[string]Service) map[string]EnvEntry {
	matrix := make(map[string]EnvEntry, len(services))
	for name, svc := range services {
		blocked := map[string]bool{}
		if rule, ok := pol.Service(name); ok {
			for _, v := range rule.BlockedEnvVars {
				blocked[v] = true
			}
		}

		var present []string
		for key := range svc.Environment {
			if blocked[key] {
				present = append(present, key)
			}
		}
		sort.Strings(present)

		matrix[name] = EnvEntry{
			Env:            svc.Environment,
			BlockedPresent: present,
			Ports:          svc.Ports,
			DependsOn:      svc.DependsOn,
		}
	}
	return matrix
}
