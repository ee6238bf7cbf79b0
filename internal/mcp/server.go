package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/meshtrust/internal/scoring"
	"github.com/ziadkadry99/meshtrust/internal/trust"
	"github.com/ziadkadry99/meshtrust/internal/verification"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the trust engine as tools.
type Server struct {
	trust         *trust.Store
	verifications *verification.Store
	scorer        *scoring.Scorer
	mcp           *server.MCPServer
}

// NewServer creates a new MCP server over the given stores.
func NewServer(ts *trust.Store, vs *verification.Store, scorer *scoring.Scorer) *Server {
	s := &Server{
		trust:         ts,
		verifications: vs,
		scorer:        scorer,
	}

	s.mcp = server.NewMCPServer(
		"meshtrust",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(evaluateMessageTool, s.handleEvaluateMessage)
	s.mcp.AddTool(setTrustLevelTool, s.handleSetTrustLevel)
	s.mcp.AddTool(getTrustLevelTool, s.handleGetTrustLevel)
	s.mcp.AddTool(addVerificationTool, s.handleAddVerification)
	s.mcp.AddTool(verificationStatsTool, s.handleVerificationStats)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
