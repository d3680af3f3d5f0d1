package engine

import (
	"time"

	"archguard-hq/warden/pkg/policy"
	"archguard-hq/warden/pkg/rules"
	"archguard-hq/warden/pkg/topology"
)

// Snapshot is one immutable, internally consistent view of the project: the
// parsed policy, the merged manifest topology, and the rule battery compiled
// from that exact policy. Snapshots are never mutated after construction;
// the engine replaces the whole pointer on refresh.
type Snapshot struct {
	Policy    *policy.Policy
	Topology  *topology.Topology
	Validator *rules.Validator

	// BuiltAt is when this snapshot finished building.
	BuiltAt time.Time

	// Digest identifies the watched-file contents this snapshot was built
	// from. Two snapshots built from identical inputs share a digest.
	Digest string
}
