// Package engine ties policy, topology and rules together behind an
// atomically swapped snapshot. Requests always read a consistent snapshot;
// rebuilds happen off to the side and are published in one pointer store, so
// a slow or failed rebuild never degrades in-flight validations.
//
// Rebuilds and validations run under hard deadlines. Work that outlives its
// deadline is abandoned: its result is discarded and the previous snapshot
// stays live.
package engine
