// Package mcptool exposes the blueprint pipeline as an MCP tool.
package mcptool

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rahul/blueprint/internal/agent"
	"github.com/rahul/blueprint/internal/governance"
)

// ToolName is the name the tool is registered under.
const ToolName = "generate_blueprint"

// BlueprintTool runs the full pipeline for a product idea and returns the
// record as markdown.
type BlueprintTool struct {
	executor *agent.Executor
	policy   governance.PolicyEngine
}

func NewBlueprintTool(executor *agent.Executor, policy governance.PolicyEngine) *BlueprintTool {
	return &BlueprintTool{executor: executor, policy: policy}
}

func (t *BlueprintTool) Definition() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Generate a software blueprint for a product idea: research summary, features, architecture plan, tech stack and security recommendations."),
		mcp.WithString("product_idea",
			mcp.Required(),
			mcp.Description("A short description of the product to design"),
		),
	)
}

func (t *BlueprintTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idea := req.GetString("product_idea", "")

	res, err := t.policy.Evaluate(ctx, governance.Request{Idea: idea, UserID: "mcp"})
	if err != nil {
		return nil, err
	}
	if res.Effect != governance.EffectAllow {
		return mcp.NewToolResultError(res.Reason), nil
	}

	rec := t.executor.Run(ctx, res.Idea)
	if rec.Failed() {
		// partial sections are still useful to the caller
		return mcp.NewToolResultError(rec.Markdown(res.Idea)), nil
	}
	return mcp.NewToolResultText(rec.Markdown(res.Idea)), nil
}

// NewServer builds an MCP server with the blueprint tool registered.
func NewServer(version string, tool *BlueprintTool) *server.MCPServer {
	s := server.NewMCPServer("blueprint", version, server.WithToolCapabilities(true))
	s.AddTool(tool.Definition(), tool.Handle)
	return s
}
