package backend

import (
	"context"
	"encoding/json"

	"github.com/eunhhu/carf-sub000/internal/wire"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

// NullFacade is the non-hosted implementation: every call returns the
// documented neutral default and never an error, so the lifecycle, action
// router, library, and console remain fully usable with no real backend
// attached.
type NullFacade struct {
	events chan wire.ScriptMessage
}

// NewNullFacade returns a ready-to-use NullFacade.
func NewNullFacade() *NullFacade {
	return &NullFacade{events: make(chan wire.ScriptMessage)}
}

func (f *NullFacade) Version(ctx context.Context) (string, error) { return "N/A", nil }

func (f *NullFacade) ListDevices(ctx context.Context) ([]types.Device, error) {
	return []types.Device{}, nil
}

func (f *NullFacade) ListProcesses(ctx context.Context, deviceID string) ([]types.Process, error) {
	return []types.Process{}, nil
}

func (f *NullFacade) Attach(ctx context.Context, deviceID string, pid uint32) (*types.Session, error) {
	return &types.Session{DeviceID: deviceID, PID: pid, State: types.SessionDead}, nil
}

func (f *NullFacade) Detach(ctx context.Context, sessionID uint32) error { return nil }

func (f *NullFacade) Spawn(ctx context.Context, deviceID, program string, argv []string) (uint32, error) {
	return 0, nil
}

func (f *NullFacade) Resume(ctx context.Context, pid uint32) error { return nil }

func (f *NullFacade) Kill(ctx context.Context, pid uint32) error { return nil }

func (f *NullFacade) LoadDefaultScript(ctx context.Context, sessionID uint32) (*types.Script, error) {
	return &types.Script{SessionID: sessionID, State: types.ScriptDead}, nil
}

func (f *NullFacade) UnloadScript(ctx context.Context, scriptID uint32) error { return nil }

func (f *NullFacade) ScriptPost(ctx context.Context, scriptID uint32, message json.RawMessage, data []byte) error {
	return nil
}

func (f *NullFacade) Events() <-chan wire.ScriptMessage { return f.events }
