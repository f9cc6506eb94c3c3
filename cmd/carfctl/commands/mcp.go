package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eunhhu/carf-sub000/internal/backend"
	"github.com/eunhhu/carf-sub000/internal/broker"
	"github.com/eunhhu/carf-sub000/internal/config"
	"github.com/eunhhu/carf-sub000/internal/lifecycle"
	"github.com/eunhhu/carf-sub000/internal/mcpserver"
	"github.com/spf13/cobra"
)

var (
	mcpDevice string
	mcpPID    uint32
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Attach and serve the agent method dispatcher as an MCP tool surface over stdio",
	Long: `Attach to a device/pid, load the default script, and speak the MCP
stdio protocol on stdin/stdout, exposing the loaded script's methods
(ping, read_memory, enumerate_modules, interceptor_attach, ...) as MCP
tools backed by the same dispatcher carfd's HTTP clients drive.

Examples:
  carfctl mcp --device local --pid 4242
  carfctl mcp --sim --pid 4242`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpDevice, "device", "local", "Device ID to attach on")
	mcpCmd.Flags().Uint32Var(&mcpPID, "pid", 0, "Process ID to attach to")
}

func runMCP(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir("")
	if err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	facade := newFacade()
	b := broker.New(backend.Poster{Facade: facade}, appConfig.RequestTimeout())
	owner := lifecycle.New(facade, b)

	session, err := owner.Attach(ctx, mcpDevice, mcpPID)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer func() { _ = owner.Detach(context.Background()) }()

	fmt.Fprintf(os.Stderr, "attached: session=%d device=%s pid=%d\n", session.SessionID, session.DeviceID, session.PID)

	return mcpserver.Run(ctx, owner, b, os.Stdin, os.Stdout, os.Stderr)
}
