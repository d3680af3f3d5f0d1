// Package topology builds the merged service topology from the manifest
// files the policy names.
//
// Manifests are discovered (globs expanded), deduplicated and merged in
// lexicographic order; later files override earlier ones per service with a
// shallow field overwrite. From the merged topology and the policy the
// package derives the per-service environment matrix consumed by the rule
// battery and the introspection endpoints. A Topology is built fresh on
// every refresh and never partially updated.
package topology
