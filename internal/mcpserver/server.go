package mcpserver

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/eunhhu/carf-sub000/internal/broker"
	"github.com/eunhhu/carf-sub000/internal/lifecycle"
)

// Server adapts a lifecycle.Owner and its broker.Broker to the MCP tool
// surface. It never manages the session itself: the session must already
// be attached (carfctl mcp attaches before calling Run) before a tool
// call can succeed.
type Server struct {
	owner  *lifecycle.Owner
	broker *broker.Broker
}

// NewServer returns a Server that dispatches tool calls against the
// currently attached session owned by owner.
func NewServer(owner *lifecycle.Owner, b *broker.Broker) *Server {
	return &Server{owner: owner, broker: b}
}

// currentTarget resolves the session/script the next agent method call
// should target, failing with a tool-shaped error if nothing is attached.
func (s *Server) currentTarget() (sessionID, scriptID uint32, err error) {
	sess := s.owner.Session()
	script := s.owner.Script()
	if sess == nil || script == nil {
		return 0, 0, fmt.Errorf("no attached session")
	}
	return sess.SessionID, script.ScriptID, nil
}

// Run starts the MCP stdio server, blocking until stdin closes or ctx is
// cancelled. stdout must carry nothing but the JSON-RPC stream; all
// server-side diagnostics go to stderr.
func Run(ctx context.Context, owner *lifecycle.Owner, b *broker.Broker, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	s := NewServer(owner, b)

	mcpServer := server.NewMCPServer(
		"carfd",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTools(s.tools()...)

	stdioSrv := server.NewStdioServer(mcpServer)
	stdioSrv.SetErrorLogger(log.New(stderr, "[mcp] ", log.LstdFlags))

	return stdioSrv.Listen(ctx, stdin, stdout)
}
