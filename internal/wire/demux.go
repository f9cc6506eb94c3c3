package wire

import (
	"encoding/json"

	"github.com/eunhhu/carf-sub000/internal/logging"
)

// Kind is the classification a raw script message decodes to.
type Kind int

const (
	KindUnknown Kind = iota
	KindResponse
	KindEvent
	KindRaw
)

// Classified is the result of demultiplexing one raw script message.
type Classified struct {
	Kind     Kind
	Response *ResponsePayload
	Event    *EventPayload
	Raw      json.RawMessage
}

// envelope is a minimal, permissive shape used only to decide which of
// ResponsePayload/EventPayload the message actually is.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type payloadProbe struct {
	Type   string `json:"type"`
	ID     *uint64 `json:"id"`
	Result *Result `json:"result"`
	Event  *string `json:"event"`
}

// Classify decides whether a raw script message is a carf:response, a
// carf:event, or an opaque log line. It never returns an error:
// unrecognized shapes classify as KindRaw, never raised to the caller;
// unparseable JSON and malformed carf payloads are also logged at debug
// level.
func Classify(raw json.RawMessage) Classified {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logging.Logger.Debug().Err(err).Msg("wire: unparseable script message")
		return Classified{Kind: KindRaw, Raw: raw}
	}

	if env.Type != "send" || len(env.Payload) == 0 {
		return Classified{Kind: KindRaw, Raw: raw}
	}

	var probe payloadProbe
	if err := json.Unmarshal(env.Payload, &probe); err != nil {
		logging.Logger.Debug().Err(err).Msg("wire: unparseable send payload")
		return Classified{Kind: KindRaw, Raw: raw}
	}

	switch probe.Type {
	case "carf:response":
		if probe.ID == nil || probe.Result == nil {
			logging.Logger.Debug().Msg("wire: malformed carf:response, missing id/result")
			return Classified{Kind: KindRaw, Raw: raw}
		}
		var resp ResponsePayload
		if err := json.Unmarshal(env.Payload, &resp); err != nil {
			logging.Logger.Debug().Err(err).Msg("wire: malformed carf:response body")
			return Classified{Kind: KindRaw, Raw: raw}
		}
		return Classified{Kind: KindResponse, Response: &resp}

	case "carf:event":
		if probe.Event == nil || *probe.Event == "" {
			logging.Logger.Debug().Msg("wire: malformed carf:event, missing event name")
			return Classified{Kind: KindRaw, Raw: raw}
		}
		ev := EventPayload{Type: probe.Type, Event: *probe.Event, Raw: env.Payload}
		return Classified{Kind: KindEvent, Event: &ev}

	default:
		return Classified{Kind: KindRaw, Raw: raw}
	}
}
