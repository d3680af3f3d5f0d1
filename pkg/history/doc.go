// Package history provides optional persistence of validation runs to a
// local SQLite database. It is off by default: the engine itself holds no
// durable state, and enabling history only adds an audit trail, never a
// behavioral dependency.
package history
