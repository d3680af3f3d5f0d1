package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"archguard-hq/warden/pkg/history"
	"archguard-hq/warden/pkg/policy"
)

// writeJSON serializes v with a status code. Encoding errors at this point
// cannot be reported to the client and are dropped.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":            "ok",
		"service":           "warden",
		"snapshot_built_at": snap.BuiltAt.UTC().Format(time.RFC3339),
		"digest":            snap.Digest,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res := s.engine.Refresh(r.Context())
	writeJSON(w, http.StatusOK, res)
}

// validateDiffRequest is the JSON form of the validation request. A raw
// text/plain body is also accepted and treated as the diff itself.
type validateDiffRequest struct {
	Diff string `json:"diff"`
}

func (s *Server) handleValidateDiff(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "diff payload too large")
		return
	}

	diffText := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req validateDiffRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		diffText = req.Diff
	}

	res := s.engine.ValidateDiff(r.Context(), diffText)

	if s.recorder != nil {
		if err := s.recorder.RecordValidation(r.Context(), res); err != nil {
			s.logger.Warn("failed to record validation", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSystemOverview(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()

	services := make([]string, 0, len(snap.Topology.Services))
	for name := range snap.Topology.Services {
		services = append(services, name)
	}
	sort.Strings(services)

	writeJSON(w, http.StatusOK, map[string]any{
		"docs":             snap.Topology.Docs,
		"compose_services": services,
	})
}

func (s *Server) handleServiceContract(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("service")
	snap := s.engine.Snapshot()

	rule, ok := snap.Policy.Service(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown service: "+name)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleEnvMatrix(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot().Topology.Matrix)
}

func (s *Server) handleServiceURLs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"services": s.engine.Snapshot().Topology.ServiceURLs(),
	})
}

// handleHistory serves recent validation runs from the history store. The
// route only exists when recording is enabled with a queryable store.
func (s *Server) handleHistory(reader HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		records, err := reader.Recent(r.Context(), limit)
		if err != nil {
			s.logger.Error("failed to query validation history", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to query validation history")
			return
		}
		if records == nil {
			records = []history.Record{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"validations": records})
	}
}

// planChangeRequest describes a change someone intends to make.
type planChangeRequest struct {
	Requirement string `json:"requirement"`
}

// handlePlanChange is a lightweight planner: it matches the requirement text
// against rule areas and returns guidance plus every service contract, so
// the caller sees the constraints before writing any code.
func (s *Server) handlePlanChange(w http.ResponseWriter, r *http.Request) {
	var req planChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pol := s.engine.Snapshot().Policy

	writeJSON(w, http.StatusOK, map[string]any{
		"requirement":       req.Requirement,
		"guidance":          PlanGuidance(pol, req.Requirement),
		"service_contracts": pol.Services,
	})
}

// PlanGuidance builds human-readable guardrail reminders relevant to a
// described change by matching its text against rule areas. The stdio tool
// binding shares it so both surfaces give the same advice.
func PlanGuidance(pol *policy.Policy, requirement string) []string {
	low := strings.ToLower(requirement)
	guidance := []string{}

	if containsAnyKeyword(low, "database", "postgres", "schema", "migration", "alembic", "sql") {
		if owners := dbOwners(pol); len(owners) > 0 {
			guidance = append(guidance, "Database access and migrations belong to: "+strings.Join(owners, ", ")+". Other services must go through their APIs.")
		}
	}
	if gw := pol.Validator.GatewayService; gw != "" && containsAnyKeyword(low, "llm", "openai", "langchain", "embedding", "model") {
		guidance = append(guidance, "LLM client usage is blocked in the gateway service ("+gw+").")
	}
	if containsAnyKeyword(low, "redis", "cache", "ttl") {
		guidance = append(guidance, "Cache writes outside DB-owning services need a TTL, namespaced keys, and invalidation after DB writes.")
	}
	if len(pol.MultiTenant.ForbiddenPatterns) > 0 {
		guidance = append(guidance, "Multi-tenancy applies: never reference the public schema; use tenant-specific schemas.")
	}

	return guidance
}

func containsAnyKeyword(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func dbOwners(pol *policy.Policy) []string {
	var owners []string
	for name, rule := range pol.Services {
		if rule.AllowedDBAccess {
			owners = append(owners, name)
		}
	}
	sort.Strings(owners)
	return owners
}
