package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/backend"
	"github.com/eunhhu/carf-sub000/internal/broker"
	"github.com/eunhhu/carf-sub000/internal/event"
)

func TestOwner_AttachLoadsScriptAndReachesScriptLoaded(t *testing.T) {
	event.Reset()
	defer event.Reset()

	sim := backend.NewSimFacade(nil, 0)
	b := broker.New(backend.Poster{Facade: sim}, time.Second)
	owner := New(sim, b)

	session, err := owner.Attach(context.Background(), "sim-device", 4242)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, ScriptLoaded, owner.State())
	require.NotNil(t, owner.Script())
}

func TestOwner_SecondAttachRejected(t *testing.T) {
	event.Reset()
	defer event.Reset()

	sim := backend.NewSimFacade(nil, 0)
	b := broker.New(backend.Poster{Facade: sim}, time.Second)
	owner := New(sim, b)

	_, err := owner.Attach(context.Background(), "sim-device", 4242)
	require.NoError(t, err)

	_, err = owner.Attach(context.Background(), "sim-device", 4343)
	require.Error(t, err)
}

func TestOwner_DetachReturnsToIdle(t *testing.T) {
	event.Reset()
	defer event.Reset()

	sim := backend.NewSimFacade(nil, 0)
	b := broker.New(backend.Poster{Facade: sim}, time.Second)
	owner := New(sim, b)

	_, err := owner.Attach(context.Background(), "sim-device", 4242)
	require.NoError(t, err)

	require.NoError(t, owner.Detach(context.Background()))
	require.Equal(t, Idle, owner.State())
	require.Nil(t, owner.Session())

	// Detach while already idle is a no-op, not an error.
	require.NoError(t, owner.Detach(context.Background()))
}

func TestOwner_RequestsThroughBrokerAfterAttach(t *testing.T) {
	event.Reset()
	defer event.Reset()

	sim := backend.NewSimFacade(nil, 0)
	b := broker.New(backend.Poster{Facade: sim}, time.Second)
	owner := New(sim, b)

	session, err := owner.Attach(context.Background(), "sim-device", 4242)
	require.NoError(t, err)
	script := owner.Script()
	require.NotNil(t, script)

	returns, err := b.Request(context.Background(), session.SessionID, script.ScriptID, "ping", nil)
	require.NoError(t, err)
	require.Contains(t, string(returns), "pong")
}
