// Package server exposes the guardrail engine over HTTP. All endpoints read
// from the engine's live snapshot; the only mutating operation is a snapshot
// refresh, which the engine publishes atomically.
//
// Routes:
//
//	GET  /health                          liveness and snapshot metadata
//	POST /api/refresh                     rebuild the snapshot
//	POST /api/validate_diff               validate a unified diff
//	GET  /api/system_overview             merged topology summary
//	GET  /api/service_contract/{service}  one service's policy contract
//	GET  /api/env_matrix                  per-service environment matrix
//	GET  /api/service_urls                derived smoke-test URLs
//	POST /api/plan_change                 guardrails relevant to a planned change
//	GET  /metrics                         Prometheus metrics (when enabled)
package server
