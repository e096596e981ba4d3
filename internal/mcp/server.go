// Package mcp exposes the similarity scorer and the generation history as
// Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"query-evolver/internal/repository"
	"query-evolver/internal/similarity"
	"query-evolver/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	store     repository.GenerationStore
}

func NewServer(store repository.GenerationStore, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Query Evolver",
			version,
			server.WithToolCapabilities(true),
		),
		store: store,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"compare_datasets",
			mcp.WithDescription("Score the similarity of two query result sets between 0 and 1"),
			mcp.WithObject("left", mcp.Required(), mcp.Description(`Result set {"query": string, "rows": [object]}`)),
			mcp.WithObject("right", mcp.Required(), mcp.Description(`Result set {"query": string, "rows": [object]}`)),
		),
		s.handleCompareDatasets,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"string_similarity",
			mcp.WithDescription("Jaro-Winkler similarity of two strings"),
			mcp.WithString("a", mcp.Required(), mcp.Description("First string")),
			mcp.WithString("b", mcp.Required(), mcp.Description("Second string")),
		),
		s.handleStringSimilarity,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"latest_generation",
			mcp.WithDescription("Return the most recent persisted generation with its workflow"),
		),
		s.handleLatestGeneration,
	)
}

func (s *Server) handleCompareDatasets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	left, err := resultSetArg(args, "left")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	right, err := resultSetArg(args, "right")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(models.DatasetComparisonResponse{
		Score:          similarity.ComparePair(left, right),
		OrderSensitive: similarity.IsOrderSensitive(left.Query, right.Query),
	})
}

func resultSetArg(args map[string]any, name string) (models.ResultSet, error) {
	var rs models.ResultSet
	raw, ok := args[name]
	if !ok || raw == nil {
		return rs, fmt.Errorf("missing required parameter: %s", name)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return rs, fmt.Errorf("invalid parameter %s: %v", name, err)
	}
	if err := json.Unmarshal(data, &rs); err != nil {
		return rs, fmt.Errorf("invalid parameter %s: %v", name, err)
	}
	return rs, nil
}

func (s *Server) handleStringSimilarity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	a, ok := args["a"].(string)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: a"), nil
	}
	b, ok := args["b"].(string)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: b"), nil
	}

	return jsonResult(models.StringComparisonResponse{Score: similarity.StringSimilarity(a, b)})
}

func (s *Server) handleLatestGeneration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.store.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return mcp.NewToolResultError("No generation has been persisted yet"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load latest generation: %v", err)), nil
	}
	return jsonResult(rec)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
