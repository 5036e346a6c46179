// Package mcpserver exposes the meetings to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"meetnote/internal/model"
	"meetnote/internal/service"
	"meetnote/internal/version"
)

// Meetings is the read side of the meeting service.
type Meetings interface {
	List(ctx context.Context) ([]model.Meeting, error)
	Get(ctx context.Context, id string) (*model.Meeting, error)
}

// New builds an MCP server with the list_meetings and get_meeting tools.
func New(meetings Meetings) *server.MCPServer {
	s := server.NewMCPServer("meetnote", version.Version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_meetings",
		mcp.WithDescription("List recorded meetings, newest first, with status and summary."),
	), listMeetings(meetings))

	s.AddTool(mcp.NewTool("get_meeting",
		mcp.WithDescription("Get one meeting including its transcript and summary."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Meeting ID as returned by list_meetings")),
	), getMeeting(meetings))

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(meetings Meetings) error {
	return server.ServeStdio(New(meetings))
}

func listMeetings(meetings Meetings) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		items, err := meetings.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(items)
	}
}

func getMeeting(meetings Meetings) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		m, err := meetings.Get(ctx, id)
		if errors.Is(err, service.ErrNotFound) {
			return mcp.NewToolResultError("Meeting not found"), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(m)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
