package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
	"github.com/hanviet/hvsearch/internal/search"
	"github.com/hanviet/hvsearch/pkg/version"
)

// ServerName is the implementation name announced to clients.
const ServerName = "hvsearch"

// Engine is the part of the search engine the server needs.
type Engine interface {
	Search(ctx context.Context, query string, topK int) ([]search.Result, error)
	Status() search.Status
}

// Server serves translate and index_status over MCP.
type Server struct {
	mcp    *mcp.Server
	engine Engine
	logger *slog.Logger
}

// NewServer creates a new MCP server backed by engine.
func NewServer(engine Engine, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{engine: engine, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: version.Version},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-like arguments, bypassing the
// transport.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolTranslate:
		var in TranslateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.translate(ctx, in)
	case ToolIndexStatus:
		return s.engine.Status(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return NewInvalidParamsError(err.Error())
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpTranslateHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpIndexStatusHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpTranslateHandler(ctx context.Context, _ *mcp.CallToolRequest, input TranslateInput) (
	*mcp.CallToolResult,
	TranslateOutput,
	error,
) {
	out, err := s.translate(ctx, input)
	if err != nil {
		return nil, TranslateOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	search.Status,
	error,
) {
	return nil, s.engine.Status(), nil
}

func (s *Server) translate(ctx context.Context, in TranslateInput) (TranslateOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return TranslateOutput{}, NewInvalidParamsError(hverrors.UserMessage(hverrors.OutcomeInvalidInput))
	}
	if in.TopK < 0 {
		return TranslateOutput{}, NewInvalidParamsError("top_k must not be negative")
	}

	requestID := generateRequestID()
	results, err := s.engine.Search(ctx, in.Query, in.TopK)
	if err != nil {
		s.logger.Warn("translate_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return TranslateOutput{}, MapError(err)
	}

	out := TranslateOutput{Results: make([]search.Result, len(results))}
	for i, r := range results {
		out.Results[i] = r.Rounded()
	}
	if len(out.Results) == 0 {
		out.Message = hverrors.UserMessage(hverrors.OutcomeNoResults)
	}
	s.logger.Info("translate_completed",
		slog.String("request_id", requestID),
		slog.Int("top_k", in.TopK),
		slog.Int("results", len(out.Results)))
	return out, nil
}

// Serve runs the server on the named transport until ctx is canceled or the
// client disconnects. Only stdio is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
