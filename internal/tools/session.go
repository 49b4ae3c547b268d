// Package tools connects to the MCP server that provides the raw `search`
// and `scrape` tools used by the legacy pipeline, and wraps calls in a
// resilient invoker.
package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolSearch = "search"
	ToolScrape = "scrape"
)

type Config struct {
	// Endpoint selects the streamable HTTP transport; Command falls back to
	// a stdio subprocess transport.
	Endpoint  string
	Command   string
	AuthToken string
}

// Session is a live MCP client session. It satisfies Transport so the
// invoker can rebind it after a connection loss.
type Session struct {
	cfg     Config
	client  *mcp.Client
	session *mcp.ClientSession
}

func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Endpoint == "" && cfg.Command == "" {
		return nil, errors.New("tools: either an MCP endpoint or command is required")
	}
	s := &Session{
		cfg:    cfg,
		client: mcp.NewClient(&mcp.Implementation{Name: "wander", Version: "0.1.0"}, nil),
	}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) connect(ctx context.Context) error {
	transport, err := buildTransport(s.cfg)
	if err != nil {
		return err
	}
	session, err := s.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect MCP client: %w", err)
	}
	s.session = session
	return nil
}

// CallTool invokes one tool and concatenates the text content of the result.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if s.session == nil {
		return "", errors.New("no active transport")
	}
	if args == nil {
		args = map[string]any{}
	}
	result, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}

	var b strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("tool %s reported an error: %s", name, b.String())
	}
	return b.String(), nil
}

// Reconnect tears down the old session and performs a fresh handshake,
// rebinding the tool handle for the retry.
func (s *Session) Reconnect(ctx context.Context) error {
	if s.session != nil {
		_ = s.session.Close()
		s.session = nil
	}
	return s.connect(ctx)
}

func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}

func buildTransport(cfg Config) (mcp.Transport, error) {
	if cfg.Endpoint != "" {
		transport := &mcp.StreamableClientTransport{Endpoint: cfg.Endpoint}
		if token := strings.TrimSpace(cfg.AuthToken); token != "" {
			transport.HTTPClient = &http.Client{Transport: &authHeaderRoundTripper{
				base:  http.DefaultTransport,
				value: ensureBearerPrefix(token),
			}}
		}
		return transport, nil
	}
	parts := strings.Fields(cfg.Command)
	cmd := exec.Command(parts[0], parts[1:]...)
	return &mcp.CommandTransport{Command: cmd}, nil
}

// authHeaderRoundTripper injects an Authorization header; the Go MCP SDK does
// not expose a bearer-token helper on the streamable HTTP client.
type authHeaderRoundTripper struct {
	base  http.RoundTripper
	value string
}

func (rt *authHeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", rt.value)
	return rt.base.RoundTrip(clone)
}

func ensureBearerPrefix(token string) string {
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return token
	}
	return "Bearer " + token
}
