package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"archguard-hq/warden/pkg/engine"
	"archguard-hq/warden/pkg/server"
)

// toolRequest is one newline-delimited request on stdin.
type toolRequest struct {
	ID   string          `json:"id"`
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// toolResponse is the reply for one request, written as a single line.
type toolResponse struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Speak the stdio tool protocol",
	Long: `Run warden as a stdio tool server.

Requests are newline-delimited JSON objects {"id", "tool", "args"} on stdin;
each gets one JSON response line on stdout. The tool set mirrors the HTTP
API: refresh, validate_diff, system_overview, service_contract, env_matrix,
service_urls, plan_change, health.

A malformed request line yields an error response and the loop continues;
the process exits on EOF.`,
	RunE: runTool,
}

func init() {
	rootCmd.AddCommand(toolCmd)
}

func runTool(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng := engine.New(cfg.Engine, nil)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), int(cfg.Server.MaxBodyBytes))
	out := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req toolRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			_ = out.Encode(toolResponse{OK: false, Error: "invalid request: " + err.Error()})
			continue
		}

		result, err := dispatchTool(cmd.Context(), eng, req)
		if err != nil {
			_ = out.Encode(toolResponse{ID: req.ID, OK: false, Error: err.Error()})
			continue
		}
		_ = out.Encode(toolResponse{ID: req.ID, OK: true, Result: result})
	}
	return scanner.Err()
}

func dispatchTool(ctx context.Context, eng *engine.Engine, req toolRequest) (any, error) {
	snap := eng.Snapshot()

	switch req.Tool {
	case "health":
		return map[string]string{
			"status":            "ok",
			"service":           "warden",
			"snapshot_built_at": snap.BuiltAt.UTC().Format(time.RFC3339),
			"digest":            snap.Digest,
		}, nil

	case "refresh":
		return eng.Refresh(ctx), nil

	case "validate_diff":
		var args struct {
			Diff string `json:"diff"`
		}
		if err := unmarshalArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return eng.ValidateDiff(ctx, args.Diff), nil

	case "system_overview":
		services := make([]string, 0, len(snap.Topology.Services))
		for name := range snap.Topology.Services {
			services = append(services, name)
		}
		sort.Strings(services)
		return map[string]any{
			"docs":             snap.Topology.Docs,
			"compose_services": services,
		}, nil

	case "service_contract":
		var args struct {
			Service string `json:"service"`
		}
		if err := unmarshalArgs(req.Args, &args); err != nil {
			return nil, err
		}
		rule, ok := snap.Policy.Service(args.Service)
		if !ok {
			return nil, fmt.Errorf("unknown service: %s", args.Service)
		}
		return rule, nil

	case "env_matrix":
		return snap.Topology.Matrix, nil

	case "service_urls":
		return map[string]any{"services": snap.Topology.ServiceURLs()}, nil

	case "plan_change":
		var args struct {
			Requirement string `json:"requirement"`
		}
		if err := unmarshalArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return map[string]any{
			"requirement":       args.Requirement,
			"guidance":          server.PlanGuidance(snap.Policy, args.Requirement),
			"service_contracts": snap.Policy.Services,
		}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Tool)
	}
}

func unmarshalArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	return nil
}
