package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dfedorov/codequery/internal/core/ports"
)

const (
	// ServerName is the MCP server name
	ServerName = "codequery"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602
	ErrorCodeInternalError = -32603
	ErrorCodeEmptyQuestion = -32001
)

// Server exposes the question-answering pipeline as an MCP tool over stdio.
type Server struct {
	mcp      *server.MCPServer
	answerer ports.QuestionAnswerer
}

func NewServer(answerer ports.QuestionAnswerer) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		answerer: answerer,
	}
	s.mcp.AddTool(askCodebaseTool(), s.handleAskCodebase)
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(_ context.Context) error {
	return server.ServeStdio(s.mcp)
}

// handleAskCodebase handles the ask_codebase tool invocation
func (s *Server) handleAskCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, ok := args["question"].(string)
	if !ok || strings.TrimSpace(question) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuestion, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	result, err := s.answerer.Ask(ctx, question)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "answering failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"answer":   result.Answer,
		"strategy": string(result.Strategy),
		"attempts": result.Attempts,
	}
	if result.Score != nil {
		response["score"] = *result.Score
	}
	if result.Grounded != nil {
		response["grounded"] = *result.Grounded
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func formatJSON(v interface{}) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
