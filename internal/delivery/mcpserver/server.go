// Package mcpserver exposes product lookup, allergen analysis and the ingredient
// reasoning tool to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/allergenscan/backend/internal/usecase"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "AllergenScan MCP Server"
	serverVersion = "1.0.0"
)

// LookupProductResponse represents the response from lookup_product
type LookupProductResponse struct {
	Found   bool                  `json:"found"`
	Product *domain.ProductRecord `json:"product,omitempty"`
	Warning string                `json:"warning,omitempty"`
}

// IngredientLookupResponse represents the response from lookup_ingredient_allergens
type IngredientLookupResponse struct {
	Matches []domain.IngredientMatch `json:"matches"`
}

// Server wraps the mark3labs MCP server
type Server struct {
	mcpServer *server.MCPServer
	lookup    *usecase.LookupService
	scan      *usecase.ScanService
	tool      *usecase.IngredientTool
	log       *slog.Logger
}

// NewServer creates a new MCP server with the mark3labs SDK
func NewServer(
	lookup *usecase.LookupService,
	scan *usecase.ScanService,
	tool *usecase.IngredientTool,
	logger *slog.Logger,
) *Server {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false), // Tools don't change dynamically
		server.WithRecovery(),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		lookup:    lookup,
		scan:      scan,
		tool:      tool,
		log:       logger,
	}

	s.addTools()

	return s
}

func (s *Server) addTools() {
	lookupTool := mcp.NewTool("lookup_product",
		mcp.WithDescription("Look up a packaged food product by its barcode (UPC/EAN) in Open Food Facts. "+
			"Returns the product name, ingredient text, description and image."),
		mcp.WithString("barcode",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("The barcode (UPC/EAN) to look up"),
		),
		mcp.WithOutputSchema[LookupProductResponse](),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(lookupTool, s.handleLookupProduct)

	analyzeTool := mcp.NewTool("analyze_product",
		mcp.WithDescription("Look up a product by barcode and analyze its ingredients for allergens, "+
			"matched against the locally stored allergen profile."),
		mcp.WithString("barcode",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("The barcode (UPC/EAN) of the product to analyze"),
		),
		mcp.WithOutputSchema[domain.ScanReport](),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.mcpServer.AddTool(analyzeTool, s.handleAnalyzeProduct)

	s.mcpServer.AddTool(s.tool.Definition(), s.handleIngredientLookup)
}

func (s *Server) handleLookupProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.log.Debug("handleLookupProduct: Starting tool call", "arguments", request.GetArguments())

	barcode, err := request.RequireString("barcode")
	if err != nil {
		s.log.Warn("handleLookupProduct: Missing 'barcode' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'barcode': %v", err)), nil
	}

	result, err := s.lookup.Lookup(ctx, barcode)
	if errors.Is(err, domain.ErrProductNotFound) {
		return structuredResult(LookupProductResponse{Found: false})
	}
	if err != nil {
		s.log.Error("Product lookup failed", "barcode", barcode, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Product lookup failed: %v", err)), nil
	}

	return structuredResult(LookupProductResponse{
		Found:   true,
		Product: result.Product,
		Warning: result.Warning,
	})
}

func (s *Server) handleAnalyzeProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.log.Debug("handleAnalyzeProduct: Starting tool call", "arguments", request.GetArguments())

	barcode, err := request.RequireString("barcode")
	if err != nil {
		s.log.Warn("handleAnalyzeProduct: Missing 'barcode' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'barcode': %v", err)), nil
	}

	report, err := s.scan.Scan(ctx, barcode)
	if err != nil {
		s.log.Error("Product analysis failed", "barcode", barcode, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Product analysis failed: %v", err)), nil
	}

	return structuredResult(report)
}

func (s *Server) handleIngredientLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.log.Debug("handleIngredientLookup: Starting tool call", "arguments", request.GetArguments())

	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	out := s.tool.Execute(domain.ToolCall{ID: request.Params.Name, Name: usecase.IngredientToolName, Input: raw})
	if out.IsError {
		s.log.Warn("handleIngredientLookup: Rejected input", "error", out.Content)
		return mcp.NewToolResultError(out.Content), nil
	}

	var matches []domain.IngredientMatch
	if err := json.Unmarshal([]byte(out.Content), &matches); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to decode matches: %v", err)), nil
	}

	return structuredResult(IngredientLookupResponse{Matches: matches})
}

// structuredResult returns structured content with a JSON text fallback
func structuredResult(response any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultStructured(response, string(responseJSON)), nil
}

// ServeStdio serves the MCP server over stdio
func (s *Server) ServeStdio() error {
	s.log.Info("Starting MCP server in stdio mode")
	return server.ServeStdio(s.mcpServer)
}
