package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"

	"github.com/eunhhu/carf-sub000/internal/agentrt"
	"github.com/eunhhu/carf-sub000/internal/wire"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

// SimFacade hosts an in-process fixture agent (internal/agentrt.Runtime)
// and speaks the same Facade surface a real instrumentation binding
// would, over an in-memory duplex channel instead of a real device
// connection. It exists so the rest of the control plane — and this
// repository's end-to-end tests — can exercise a believable backend
// without a real target process.
type SimFacade struct {
	mu       sync.Mutex
	sessions map[uint32]*types.Session
	scripts  map[uint32]*types.Script
	nextID   atomic.Uint32

	ranges        []agentrt.Range
	runtime       *agentrt.Runtime
	fixtureMemory *agentrt.FixtureMemory
	events        chan wire.ScriptMessage

	attachFailures int // number of Attach calls to fail before succeeding, for retry tests
}

// simEmitter adapts SimFacade's event channel to agentrt.Emitter, tagging
// every outgoing message with the owning session/script ids the way a
// real backend's single event stream does.
type simEmitter struct {
	sessionID uint32
	scriptID  uint32
	events    chan wire.ScriptMessage
}

func (e *simEmitter) Emit(raw json.RawMessage) {
	e.events <- wire.ScriptMessage{SessionID: e.sessionID, ScriptID: e.scriptID, Message: raw}
}

// NewSimFacade returns a SimFacade with a fixture memory space covering
// the given ranges (falling back to defaultFixtureRanges when nil).
// attachFailures, if positive, makes that many Attach calls fail
// transiently before one succeeds, to exercise backoff retry.
func NewSimFacade(ranges []agentrt.Range, attachFailures int) *SimFacade {
	return &SimFacade{
		sessions:       make(map[uint32]*types.Session),
		scripts:        make(map[uint32]*types.Script),
		events:         make(chan wire.ScriptMessage, 64),
		ranges:         ranges,
		attachFailures: attachFailures,
	}
}

// Memory exposes the fixture agent's simulated address space so tests can
// seed values before driving a scan/watch through the real Facade API.
// Only valid after the first successful Attach/LoadDefaultScript.
func (f *SimFacade) Memory() *agentrt.FixtureMemory {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runtime == nil {
		return nil
	}
	return f.fixtureMemory
}

func (f *SimFacade) Version(ctx context.Context) (string, error) {
	return "carf-sim-1.0", nil
}

func (f *SimFacade) ListDevices(ctx context.Context) ([]types.Device, error) {
	return []types.Device{{ID: "sim-device", Name: "Fixture Device", Type: types.DeviceLocal}}, nil
}

func (f *SimFacade) ListProcesses(ctx context.Context, deviceID string) ([]types.Process, error) {
	return []types.Process{{PID: 4242, Name: "fixture-target"}}, nil
}

// Attach simulates a device/process attachment, retrying transient
// failures with exponential backoff the way a real transport connection
// would need to. After attachFailures calls have failed, it succeeds and
// creates the session.
func (f *SimFacade) Attach(ctx context.Context, deviceID string, pid uint32) (*types.Session, error) {
	operation := func() error {
		f.mu.Lock()
		fail := f.attachFailures > 0
		if fail {
			f.attachFailures--
		}
		f.mu.Unlock()
		if fail {
			return fmt.Errorf("transient attach failure")
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("attach failed after retries: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	sessionID := f.nextID.Add(1)
	session := &types.Session{SessionID: sessionID, DeviceID: deviceID, PID: pid, State: types.SessionAttached}
	f.sessions[sessionID] = session
	return session, nil
}

func (f *SimFacade) Detach(ctx context.Context, sessionID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return fmt.Errorf("no such session %d", sessionID)
	}
	session.State = types.SessionDead
	delete(f.sessions, sessionID)
	return nil
}

func (f *SimFacade) Spawn(ctx context.Context, deviceID, program string, argv []string) (uint32, error) {
	return f.nextID.Add(1), nil
}

func (f *SimFacade) Resume(ctx context.Context, pid uint32) error { return nil }

func (f *SimFacade) Kill(ctx context.Context, pid uint32) error { return nil }

// defaultFixtureRanges is the single readable range a SimFacade built
// with nil ranges exposes. Its memory starts zeroed; tests seed values
// through Memory().
var defaultFixtureRanges = []agentrt.Range{{Base: 0x100000, Size: 0x1000, Protection: "rw-"}}

// LoadDefaultScript spins up the fixture agentrt.Runtime for the session,
// wired to this facade's event stream, over a fresh zeroed fixture memory.
func (f *SimFacade) LoadDefaultScript(ctx context.Context, sessionID uint32) (*types.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("no such session %d", sessionID)
	}

	ranges := f.ranges
	if ranges == nil {
		ranges = defaultFixtureRanges
	}

	scriptID := f.nextID.Add(1)
	mem := agentrt.NewFixtureMemory(ranges)
	f.fixtureMemory = mem
	f.runtime = agentrt.New(&simEmitter{sessionID: sessionID, scriptID: scriptID, events: f.events}, mem, 10)

	script := &types.Script{ScriptID: scriptID, SessionID: sessionID, State: types.ScriptLoaded}
	f.scripts[scriptID] = script
	return script, nil
}

func (f *SimFacade) UnloadScript(ctx context.Context, scriptID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	script, ok := f.scripts[scriptID]
	if !ok {
		return fmt.Errorf("no such script %d", scriptID)
	}
	script.State = types.ScriptDead
	delete(f.scripts, scriptID)
	f.runtime = nil
	f.fixtureMemory = nil
	return nil
}

// ScriptPost delivers a carf:request to the fixture runtime. The runtime
// dispatches it on its own goroutine, matching the non-blocking contract
// a real backend's post would have.
func (f *SimFacade) ScriptPost(ctx context.Context, scriptID uint32, message json.RawMessage, data []byte) error {
	f.mu.Lock()
	rt := f.runtime
	f.mu.Unlock()
	if rt == nil {
		return fmt.Errorf("no script loaded")
	}

	var env wire.RequestEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return fmt.Errorf("invalid request envelope: %w", err)
	}

	go rt.HandleRequest(context.Background(), env.Payload)
	return nil
}

func (f *SimFacade) Events() <-chan wire.ScriptMessage { return f.events }
