package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/jobpilot/internal/ingest"
	"github.com/kalambet/jobpilot/internal/session"
	"github.com/kalambet/jobpilot/internal/supervisor"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Sessions Sessions
	Router   Router
	Queue    ingest.Queue // optional; if nil, upload_resume is not registered
}

// NewMCPServer creates an MCP server exposing the chat assistant as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"jobpilot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("jobpilot: job search, resume feedback, cover letters and company research in one chat."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("create_session",
			mcp.WithDescription("Start a new chat session and return its id."),
		),
		mcpCreateSession(deps),
	)

	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Send a message to the assistant. Returns the response envelope as JSON."),
			mcp.WithString("session_id", mcp.Description("Session id from create_session"), mcp.Required()),
			mcp.WithString("message", mcp.Description("The user's message"), mcp.Required()),
		),
		mcpChat(deps),
	)

	s.AddTool(
		mcp.NewTool("resume_insights",
			mcp.WithDescription("Return the analysed resume insights for a session as JSON."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpResumeInsights(deps),
	)

	if deps.Queue != nil {
		s.AddTool(
			mcp.NewTool("upload_resume",
				mcp.WithDescription("Queue plain resume text for analysis in a session."),
				mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
				mcp.WithString("text", mcp.Description("Resume text"), mcp.Required()),
				mcp.WithString("filename", mcp.Description("Optional original file name")),
			),
			mcpUploadResume(deps),
		)
	}

	return s
}

func mcpCreateSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, err := deps.Sessions.Create()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to create session: %v", err)), nil
		}
		return mcpText(sess.ID()), nil
	}
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpSessionError(err), nil
		}

		var env supervisor.Envelope
		if err := sess.Do(ctx, func(turnCtx context.Context) {
			env = deps.Router.Route(turnCtx, message, sess)
		}); err != nil {
			return mcpSessionError(err), nil
		}

		b, err := json.Marshal(env)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		if !env.OK() {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(b)}},
				IsError: true,
			}, nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResumeInsights(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpSessionError(err), nil
		}

		in := sess.ResumeInsights()
		if in == nil {
			return mcpError("no resume has been analysed for this session"), nil
		}

		b, err := json.Marshal(in)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal insights: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpUploadResume(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		filename := req.GetString("filename", "resume.txt")

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpSessionError(err), nil
		}

		sub, err := ingest.Submit(deps.Queue, sess.ID(), filename, text)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to queue resume: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Queued resume %s for analysis (job %s)", sub.ResumeID, sub.JobID)), nil
	}
}

func mcpSessionError(err error) *mcp.CallToolResult {
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrClosed) {
		return mcpError("session not found")
	}
	return mcpError(fmt.Sprintf("session error: %v", err))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
