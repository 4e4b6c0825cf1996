package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes extraction and reconstruction as MCP tools over stdio.
type MCPServer struct {
	inner *Server
	mcp   *mcpserver.MCPServer
}

// NewMCPServer wraps the service layer behind MCP tool handlers.
func NewMCPServer(inner *Server) *MCPServer {
	srv := mcpserver.NewMCPServer(
		inner.config.ServerName,
		inner.config.Version,
		mcpserver.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &MCPServer{inner: inner, mcp: srv}
	s.registerTools()
	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	extractTool := mcp.NewTool(
		"pdf_extract_markup",
		mcp.WithDescription("Extract a PDF file into structural XML markup with positioned text blocks"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcp.AddTool(extractTool, s.handleExtractMarkup)

	reconstructTool := mcp.NewTool(
		"markup_reconstruct",
		mcp.WithDescription("Reconstruct a PDF from structural XML markup and write it to a file"),
		mcp.WithString("markup",
			mcp.Required(),
			mcp.Description("XML markup content to reconstruct from"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Path to write the reconstructed PDF to"),
		),
	)
	s.mcp.AddTool(reconstructTool, s.handleReconstruct)
}

// Handler functions
func (s *MCPServer) handleExtractMarkup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read file: %v", err)), nil
	}

	doc, err := s.inner.extractor.Extract(ctx, pdfBytes, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.inner.serializer.SerializeDocument(doc)), nil
}

func (s *MCPServer) handleReconstruct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markupContent, err := request.RequireString("markup")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, recErr := s.inner.reconstructs.FromMarkup(ctx, markupContent, outputPath)
	if recErr != nil && result == nil {
		return mcp.NewToolResultError(recErr.Error()), nil
	}

	if err := os.WriteFile(outputPath, result.Data, 0o600); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write output: %v", err)), nil
	}

	responseText := fmt.Sprintf("Reconstructed %s\n", outputPath)
	responseText += fmt.Sprintf("Size: %d bytes\n", len(result.Data))
	responseText += fmt.Sprintf("Conversion Method: %s\n", result.Method)
	if recErr != nil {
		responseText += fmt.Sprintf("Note: PDF synthesis unavailable, wrote markup instead (%v)\n", recErr)
	}
	responseText += fmt.Sprintf("Base64 preview: %s...\n", truncateBase64(result.Data, 32))

	return mcp.NewToolResultText(responseText), nil
}

func truncateBase64(data []byte, n int) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	if len(encoded) > n {
		return encoded[:n]
	}
	return encoded
}

// Run serves MCP over stdio until the parent closes the transport.
func (s *MCPServer) Run(_ context.Context) error {
	if s.inner.config.IsDebug() {
		log.Printf("Starting markup MCP server in stdio mode")
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := mcpserver.ServeStdio(s.mcp); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
