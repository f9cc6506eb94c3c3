// Package backend provides the typed command surface over the native
// instrumentation library (spec component A). It performs marshalling
// only: no interpretation of results, no state of its own beyond what a
// given implementation needs to hand back values.
//
// Two implementations are provided. NullFacade is the non-hosted
// (browser-only) default: every call succeeds with a neutral zero value so
// the rest of the control plane is fully exercisable without a real
// backend. SimFacade hosts an in-process fixture agent (internal/agentrt)
// over an in-memory duplex transport, standing in for a real
// instrumentation binding in tests and local development.
package backend

import (
	"context"
	"encoding/json"

	"github.com/eunhhu/carf-sub000/internal/wire"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

// Facade is the typed surface the lifecycle and broker drive. Every method
// returns a value or a transport-or-backend error; it never interprets the
// result.
type Facade interface {
	Version(ctx context.Context) (string, error)
	ListDevices(ctx context.Context) ([]types.Device, error)
	ListProcesses(ctx context.Context, deviceID string) ([]types.Process, error)
	Attach(ctx context.Context, deviceID string, pid uint32) (*types.Session, error)
	Detach(ctx context.Context, sessionID uint32) error
	Spawn(ctx context.Context, deviceID, program string, argv []string) (uint32, error)
	Resume(ctx context.Context, pid uint32) error
	Kill(ctx context.Context, pid uint32) error
	LoadDefaultScript(ctx context.Context, sessionID uint32) (*types.Script, error)
	UnloadScript(ctx context.Context, scriptID uint32) error
	ScriptPost(ctx context.Context, scriptID uint32, message json.RawMessage, data []byte) error

	// Events returns the single named stream the backend delivers script
	// messages on. The same channel is returned on every call; it is
	// closed when the facade is closed.
	Events() <-chan wire.ScriptMessage
}

// Poster adapts a Facade's ScriptPost into the broker.Poster interface,
// so the broker never needs to know about devices, sessions, or any of
// the rest of the command surface — only "post this to that script."
type Poster struct {
	Facade Facade
}

// PostToScript marshals a carf:request envelope and posts it to the
// script via the facade. The session id is not part of the backend's
// script_post signature (a script is only ever reachable through one
// session), so it is accepted for interface symmetry and otherwise
// unused.
func (p Poster) PostToScript(ctx context.Context, _, scriptID uint32, envelope wire.RequestEnvelope) error {
	message, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return p.Facade.ScriptPost(ctx, scriptID, message, nil)
}
