package mcpadapter

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// askCodebaseTool returns the tool definition for ask_codebase
func askCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask_codebase",
		Description: "Answer a natural-language question about the indexed codebase, with retrieval, self-grading and source strategy",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer, e.g. 'What does the processPayment function do?'",
				},
			},
			Required: []string{"question"},
		},
	}
}
