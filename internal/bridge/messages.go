package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/reptin/rcs/internal/engine"
)

// ProtocolVersion is the bridge protocol revision spoken by both sides.
const ProtocolVersion = 1

// Wire message tags. The vocabulary is closed: anything else is rejected at
// the boundary.
const (
	TypeHandshake     = "RCS_BRIDGE_HANDSHAKE"
	TypeAck           = "RCS_BRIDGE_ACK"
	TypeGetEngines    = "RCS_GET_ENGINES"
	TypeAddEngines    = "RCS_ADD_ENGINES"
	TypeRemoveEngine  = "RCS_REMOVE_ENGINE"
	TypeResult        = "RCS_RESULT"
	TypeEnginesUpdate = "RCS_ENGINES_UPDATE"
)

// EngineInput is an engine proposal as sent by the catalog page. It carries
// no id; ids are assigned by the core after validation.
type EngineInput struct {
	Title    string           `json:"title"`
	URL      string           `json:"url"`
	Contexts []engine.Context `json:"contexts"`
	Icon     string           `json:"icon,omitempty"`
	Tags     []string         `json:"tags,omitempty"`
	Source   string           `json:"source,omitempty"`
}

// Page -> Relay messages.

// HandshakeMessage probes for a live extension.
type HandshakeMessage struct {
	Type    string `json:"type"`
	Origin  string `json:"origin"`
	Version int    `json:"version"`
}

// GetEnginesRequest asks for the current collection.
type GetEnginesRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
}

// AddEnginesRequest proposes a bulk add.
type AddEnginesRequest struct {
	Type      string        `json:"type"`
	Engines   []EngineInput `json:"engines"`
	RequestID string        `json:"requestId"`
}

// RemoveEngineRequest proposes a removal by url template.
type RemoveEngineRequest struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	RequestID string `json:"requestId"`
}

// Relay -> Page messages.

// AckMessage confirms the extension is present.
type AckMessage struct {
	Type       string `json:"type"`
	ExtVersion string `json:"extVersion"`
}

// ResultMessage reports the outcome of a mutating request.
type ResultMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
}

// EnginesUpdateMessage carries the current collection, either as the reply
// to a GetEnginesRequest (RequestID set) or as an unsolicited sync after a
// core-side change (RequestID empty).
type EnginesUpdateMessage struct {
	Type      string          `json:"type"`
	Engines   []engine.Engine `json:"engines"`
	RequestID string          `json:"requestId,omitempty"`
}

// ErrUnknownType marks a message whose tag is outside the bridge
// vocabulary.
type ErrUnknownType struct {
	Tag string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unrecognized bridge message type %q", e.Tag)
}

// ParsePageMessage narrows a raw page frame to one of the recognized
// Page->Relay shapes. Returns *ErrUnknownType for tags outside the
// vocabulary so callers can drop them silently.
func ParsePageMessage(data []byte) (any, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed bridge frame: %w", err)
	}

	switch env.Type {
	case TypeHandshake:
		var msg HandshakeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s: %w", env.Type, err)
		}
		return msg, nil
	case TypeGetEngines:
		var msg GetEnginesRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s: %w", env.Type, err)
		}
		return msg, nil
	case TypeAddEngines:
		var msg AddEnginesRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s: %w", env.Type, err)
		}
		return msg, nil
	case TypeRemoveEngine:
		var msg RemoveEngineRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s: %w", env.Type, err)
		}
		return msg, nil
	default:
		return nil, &ErrUnknownType{Tag: env.Type}
	}
}
