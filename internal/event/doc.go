/*
Package event provides a type-safe pub/sub event system for the control
plane.

It decouples the broker, lifecycle state machine, library store, and
console log store from whatever is watching them (an HTTP/SSE client, a
test, the CLI) by letting publishers emit events and subscribers react
without a direct dependency between the two sides.

# Architecture

Delivery is direct: Publish/PublishSync call subscriber functions in-process,
so subscribers receive typed Data payloads instead of having to re-decode
JSON. There is no message broker underneath — PublishSync's contract (every
subscriber has returned before the call returns) depends on that directness,
and several callers rely on it: the library store and lifecycle state
machine publish synchronously so an SSE subscriber observes the mutation
before the HTTP handler that triggered it responds.

# Event Types

  - session.attached / session.detached: attach lifecycle transitions
  - script.loaded / script.unloaded: script lifecycle transitions
  - agent.event: a demultiplexed agent-originated event fanned out after
    classification
  - library.changed: a library store mutation occurred
  - console.log: a console log entry was appended
  - action.queued: the action router accepted a new pending action

# Basic Usage

Publishing events:

	// Asynchronous publishing (non-blocking)
	event.Publish(event.Event{
		Type: event.SessionAttached,
		Data: event.SessionAttachedData{Session: sess},
	})

	// Synchronous publishing (blocking until all subscribers complete)
	event.PublishSync(event.Event{
		Type: event.ScriptLoaded,
		Data: event.ScriptLoadedData{Script: script},
	})

Subscribing to specific events:

	unsubscribe := event.Subscribe(event.SessionAttached, func(e event.Event) {
		data := e.Data.(event.SessionAttachedData)
		log.Info().Str("device", data.Session.DeviceID).Msg("session attached")
	})
	defer unsubscribe()

Subscribing to all events:

	unsubscribe := event.SubscribeAll(func(e event.Event) {
		log.Debug().Str("type", string(e.Type)).Msg("event received")
	})
	defer unsubscribe()

# Re-entrant publishing

PublishSync copies its subscriber list out from under the read lock before
invoking any of them, so a subscriber is free to call Subscribe, Publish, or
PublishSync again from within its own callback without deadlocking against
the publisher. This matters for the broker: a handler reacting to one
agent.event is allowed to issue a new request of its own, which in turn may
publish further events before the original PublishSync call returns.

Subscribers should still avoid long-running work in a PublishSync callback,
since the publisher blocks until every subscriber returns. Use a
non-blocking send to a buffered channel, or switch to async Publish, when a
subscriber needs to do real work:

	event.SubscribeAll(func(e event.Event) {
	    select {
	    case eventChan <- e:
	    default:
	        log.Warn().Str("type", string(e.Type)).Msg("event dropped, channel full")
	    }
	})

# Custom Event Bus

For testing or isolation, create a standalone bus instance:

	bus := event.NewBus()
	defer bus.Close()

	unsubscribe := bus.Subscribe(event.SessionAttached, handler)
	bus.PublishSync(event.Event{Type: event.SessionAttached, Data: data})

# Testing

	// Reset global bus state (use in test cleanup)
	event.Reset()

# Thread Safety

The event bus is safe for concurrent use. Both publishing and subscribing
are protected by internal synchronization.
*/
package event