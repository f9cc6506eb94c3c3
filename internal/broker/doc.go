// Package broker implements the request/response correlation layer that
// sits between the control plane and a single attached script. It posts a
// carf:request over the script's transport, correlates the eventual
// carf:response by id, and fans out carf:event messages to subscribers.
//
// The design follows two teacher patterns: the pending-map-plus-timer
// bookkeeping of a client-tool execution registry, and the read-loop of a
// stdio JSON-RPC transport that resolves pending channels as responses
// arrive. Unlike either of those, a Broker's requests are framed as script
// messages (internal/wire) rather than JSON-RPC, and its event fan-out
// must tolerate a handler posting a new request of its own without
// deadlocking — see the re-entrancy guarantee documented on
// internal/event's PublishSync.
package broker
