// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/animebridge/internal/adapters/server/common"
	"github.com/hylla/animebridge/internal/render"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the bridge tools.
func NewHandler(cfg Config, service common.BridgeService) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("bridge service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReportTools(mcpSrv, service)
	registerPromptTools(mcpSrv, service)
	registerStatusTools(mcpSrv, service)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "animebridge"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerReportTools registers the pending-report lifecycle tools.
func registerReportTools(srv *mcpserver.MCPServer, service common.BridgeService) {
	srv.AddTool(
		mcp.NewTool(
			"animebridge.pending_report",
			mcp.WithDescription("Return the pending watchlist change report, if one is waiting to be consumed."),
			mcp.WithString("locale", mcp.Description("Display locale: "+strings.Join(render.Locales(), ", ")+". Defaults to the report locale; unsupported values fall back to English.")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			pending, err := service.PendingReport(ctx, req.GetString("locale", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(pending)
			if err != nil {
				return nil, fmt.Errorf("encode pending_report result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"animebridge.sync",
			mcp.WithDescription("Fetch the watchlist, diff it against the committed snapshot, and store a pending report on changes."),
			mcp.WithBoolean("force", mcp.Description("Bypass the sync cooldown")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res, err := service.Sync(ctx, common.SyncRequest{Force: req.GetBool("force", false)})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(res)
			if err != nil {
				return nil, fmt.Errorf("encode sync result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"animebridge.consume_report",
			mcp.WithDescription("Render the pending report into a context prompt and commit it as the new baseline."),
			mcp.WithString("report_id", mcp.Required(), mcp.Description("Pending report id returned by pending_report")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			reportID, err := req.RequireString("report_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			res, err := service.ConsumeReport(ctx, common.ConsumeRequest{ReportID: reportID})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(res)
			if err != nil {
				return nil, fmt.Errorf("encode consume_report result: %w", err)
			}
			return result, nil
		},
	)
}

// registerPromptTools registers the context-prompt tools.
func registerPromptTools(srv *mcpserver.MCPServer, service common.BridgeService) {
	srv.AddTool(
		mcp.NewTool(
			"animebridge.context_prompt",
			mcp.WithDescription("Return the full profile context prompt built from the stored lists."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res, err := service.ContextPrompt(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(res)
			if err != nil {
				return nil, fmt.Errorf("encode context_prompt result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"animebridge.plan_to_watch",
			mcp.WithDescription("Return the plan-to-watch prompt, highest community score first."),
			mcp.WithNumber("limit", mcp.Description("Maximum entries (defaults to the configured limit)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res, err := service.PlanToWatchPrompt(ctx, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(res)
			if err != nil {
				return nil, fmt.Errorf("encode plan_to_watch result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"animebridge.respond",
			mcp.WithDescription("Resolve a chat message: expand #plan2w and #anime commands, or attach and commit the pending report."),
			mcp.WithString("message", mcp.Required(), mcp.Description("Chat message text")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			message, err := req.RequireString("message")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			res, err := service.Respond(ctx, message)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(res)
			if err != nil {
				return nil, fmt.Errorf("encode respond result: %w", err)
			}
			return result, nil
		},
	)
}

// registerStatusTools registers read-only bookkeeping tools.
func registerStatusTools(srv *mcpserver.MCPServer, service common.BridgeService) {
	srv.AddTool(
		mcp.NewTool(
			"animebridge.status",
			mcp.WithDescription("Return the dirty badge and sync bookkeeping."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			st, err := service.Status(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(st)
			if err != nil {
				return nil, fmt.Errorf("encode status result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"animebridge.history",
			mcp.WithDescription("List consumed reports, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum rows")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := service.History(ctx, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"reports": rows,
			})
			if err != nil {
				return nil, fmt.Errorf("encode history result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("report_mismatch: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrNotConfigured):
		return mcp.NewToolResultError("not_configured: " + err.Error())
	case errors.Is(err, common.ErrUpstreamAuth):
		return mcp.NewToolResultError("upstream_auth: " + err.Error())
	case errors.Is(err, common.ErrUpstream):
		return mcp.NewToolResultError("upstream_error: " + err.Error())
	case errors.Is(err, common.ErrUnavailable):
		return mcp.NewToolResultError("service_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
