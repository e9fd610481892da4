// Package mcp exposes extraction and normalization as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"incident_extract/extract"
	"incident_extract/keywords"
	"incident_extract/mapper"
	"incident_extract/metrics"
)

// ServerConfig holds what the tools need.
type ServerConfig struct {
	Service *extract.Service
	Metrics *metrics.Metrics
	Version string
}

// NewServer creates an MCP server with the extraction tools registered.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	svc := cfg.Service
	if svc == nil {
		svc = extract.NewService(nil, nil, cfg.Metrics)
	}

	s := server.NewMCPServer("incident-extract", ver, server.WithToolCapabilities(false))
	registerExtractTool(s, svc)
	registerNormalizeRecordTool(s, cfg.Metrics)
	registerNormalizeTranscriptTool(s, svc, cfg.Metrics)
	return s
}

// ServeStdio blocks serving s on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerExtractTool(s *server.MCPServer, svc *extract.Service) {
	tool := mcp.NewTool("extract_keywords",
		mcp.WithDescription("Extract incident attributes (location, structure, hazards, weather, flags) from a 119 call transcript."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Call transcript"),
		),
		mcp.WithString("mode",
			mcp.Description("facts keeps only literal mentions, insights keeps inferences, both returns the two (default: insights)"),
			mcp.Enum("facts", "insights", "both"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}
		modeStr, _ := req.RequireString("mode")

		var out any
		if modeStr == "both" {
			out, err = svc.ExtractBoth(ctx, text)
		} else {
			mode, perr := extract.ParseMode(modeStr)
			if perr != nil {
				return mcp.NewToolResultError(perr.Error()), nil
			}
			out, err = svc.Extract(ctx, text, mode)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerNormalizeRecordTool(s *server.MCPServer, m *metrics.Metrics) {
	tool := mcp.NewTool("normalize_record",
		mcp.WithDescription("Map a raw administrative fire record (flat source columns) to the nested numeric/info form."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithObject("record",
			mcp.Required(),
			mcp.Description("Raw record keyed by source column name"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, ok := req.GetArguments()["record"].(map[string]any)
		if !ok {
			return mcp.NewToolResultError("record must be an object"), nil
		}
		n, err := mapper.Normalize(raw)
		m.RecordNormalized(err, errors.Is(err, keywords.ErrSchemaViolation))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("normalize error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(n, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerNormalizeTranscriptTool(s *server.MCPServer, svc *extract.Service, m *metrics.Metrics) {
	tool := mcp.NewTool("normalize_transcript",
		mcp.WithDescription("Build the nested record directly from a call transcript."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Call transcript"),
		),
		mcp.WithNumber("fire_data_pk",
			mcp.Description("Record key to attach"),
		),
		mcp.WithString("report_datetime",
			mcp.Description("Report time, e.g. 2024-05-01 10:00:00 (default: now)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil || text == "" {
			return mcp.NewToolResultError("text is required"), nil
		}
		opts := mapper.TranscriptOptions{}
		if pk, err := req.RequireFloat("fire_data_pk"); err == nil {
			v := int(pk)
			opts.FireDataPK = &v
		}
		if dt, err := req.RequireString("report_datetime"); err == nil {
			opts.ReportDatetime = dt
		}
		n, err := mapper.FromTranscript(text, svc.Rules(), opts)
		m.RecordNormalized(err, errors.Is(err, keywords.ErrSchemaViolation))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("normalize error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(n, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
