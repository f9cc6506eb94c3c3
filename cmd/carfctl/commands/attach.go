package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/eunhhu/carf-sub000/internal/backend"
	"github.com/eunhhu/carf-sub000/internal/broker"
	"github.com/eunhhu/carf-sub000/internal/config"
	"github.com/eunhhu/carf-sub000/internal/lifecycle"
	"github.com/spf13/cobra"
)

var (
	attachDevice string
	attachPID    uint32
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach to a process and start an interactive method REPL",
	Long: `Attach to a device/pid, load the default script, and read
"method {json params}" lines from stdin, printing each response.

Examples:
  carfctl attach --device local --pid 4242
  carfctl attach --sim --pid 4242`,
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachDevice, "device", "local", "Device ID to attach on")
	attachCmd.Flags().Uint32Var(&attachPID, "pid", 0, "Process ID to attach to")
}

func runAttach(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir("")
	if err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	facade := newFacade()
	b := broker.New(backend.Poster{Facade: facade}, appConfig.RequestTimeout())
	owner := lifecycle.New(facade, b)

	session, err := owner.Attach(ctx, attachDevice, attachPID)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer func() { _ = owner.Detach(ctx) }()

	script := owner.Script()
	if script == nil {
		return fmt.Errorf("attach succeeded but no script loaded")
	}

	fmt.Printf("attached: session=%d device=%s pid=%d script=%d\n", session.SessionID, session.DeviceID, session.PID, script.ScriptID)
	fmt.Println(`type a method name and optional JSON params, e.g.: ping {}`)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		method, params := splitMethodLine(line)

		result, err := b.Request(ctx, session.SessionID, script.ScriptID, method, params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(string(result))
	}

	return scanner.Err()
}

// splitMethodLine splits "method {json}" into a method name and a
// json.RawMessage, defaulting to "{}" when no params are given.
func splitMethodLine(line string) (string, json.RawMessage) {
	parts := strings.SplitN(line, " ", 2)
	method := parts[0]
	if len(parts) == 1 {
		return method, json.RawMessage("{}")
	}
	return method, json.RawMessage(strings.TrimSpace(parts[1]))
}
