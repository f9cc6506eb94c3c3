package action

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/event"
)

func TestRouter_QueueAndConsumeSingleSlot(t *testing.T) {
	var switchedTo []string
	r := New(func(tab string) { switchedTo = append(switchedTo, tab) })

	r.QueueAction(Action{Type: TypeReadMemory, Target: Target{Address: "0x1000"}})
	r.QueueAction(Action{Type: TypeHookFunction, Target: Target{Name: "malloc"}})

	a, ok := r.ConsumePendingAction()
	require.True(t, ok)
	require.Equal(t, TypeHookFunction, a.Type)
	require.Equal(t, "malloc", a.Target.Name)

	_, ok = r.ConsumePendingAction()
	require.False(t, ok)

	require.Equal(t, []string{"memory", "interceptor"}, switchedTo)
}

func TestRouter_RecentDedupesByTypeAndTarget(t *testing.T) {
	r := New(nil)

	r.QueueAction(Action{Type: TypeReadMemory, Target: Target{Address: "0x1000"}})
	r.QueueAction(Action{Type: TypeReadMemory, Target: Target{Address: "0x2000"}})
	r.QueueAction(Action{Type: TypeReadMemory, Target: Target{Address: "0x1000"}})

	recent := r.Recent()
	require.Len(t, recent, 2)
	require.Equal(t, "0x1000", recent[0].Target.Address)
	require.Equal(t, "0x2000", recent[1].Target.Address)
}

func TestRouter_RecentCapsAtTwenty(t *testing.T) {
	r := New(nil)
	for i := 0; i < 25; i++ {
		r.QueueAction(Action{Type: TypeReadMemory, Target: Target{Address: string(rune('a' + i))}})
	}
	require.Len(t, r.Recent(), recentCapacity)
}

func TestRouter_QueueActionStampsTimestampWhenZero(t *testing.T) {
	r := New(nil)
	r.QueueAction(Action{Type: TypeReadMemory, Target: Target{Address: "0x1000"}})

	a, ok := r.ConsumePendingAction()
	require.True(t, ok)
	require.NotZero(t, a.Timestamp)
}

func TestRouter_QueueActionPublishesEvent(t *testing.T) {
	event.Reset()
	defer event.Reset()

	received := make(chan event.ActionQueuedData, 1)
	unsub := event.Subscribe(event.ActionQueued, func(e event.Event) {
		received <- e.Data.(event.ActionQueuedData)
	})
	defer unsub()

	r := New(nil)
	r.QueueAction(Action{Type: TypeViewClass, Target: Target{Name: "entry-1"}})

	select {
	case data := <-received:
		require.Equal(t, string(TypeViewClass), data.Type)
		require.Equal(t, Target{Name: "entry-1"}, data.Target)
	default:
		t.Fatal("expected action.queued to publish synchronously")
	}
}
