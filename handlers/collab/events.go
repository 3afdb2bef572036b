package collab

import (
	"collabsync/core"

	"github.com/mitchellh/mapstructure"
)

// Wire event names. The two client-originated events plus the two
// server-originated ones; disconnect is a transport-level signal.
const (
	EventClientHandshake = "CLIENT_HANDSHAKE"
	EventEditDocument    = "EDIT_DOCUMENT"
	EventServerHandshake = "SERVER_HANDSHAKE"
	EventServerError     = "SERVER_ERROR"
)

type (
	// ClientHandshake is the payload of a CLIENT_HANDSHAKE event. The
	// document field is the client's proposed initial state and stays
	// opaque to the protocol core.
	ClientHandshake struct {
		SessionID  string `mapstructure:"sessionID" json:"sessionID"`
		DocumentID string `mapstructure:"documentID" json:"documentID"`
		Document   any    `mapstructure:"document" json:"document"`
	}

	// ServerHandshake is sent to the requesting connection only and
	// carries the document's live state.
	ServerHandshake struct {
		Document any `json:"document"`
	}

	// EditEvent is the validated envelope of an EDIT_DOCUMENT payload.
	// Raw holds the original payload, rebroadcast verbatim; Type is the
	// discriminator the schema requires, everything else is opaque.
	EditEvent struct {
		Type string
		Raw  any
	}

	editEnvelope struct {
		Type string `mapstructure:"type"`
	}
)

// DecodeHandshake validates a raw CLIENT_HANDSHAKE payload. Invalid
// shapes yield INVALID_DATA before any registry is touched.
func DecodeHandshake(payload any) (*ClientHandshake, *core.ProtocolError) {
	if payload == nil {
		return nil, core.NewProtocolError(core.ErrorInvalidData, "missing handshake payload")
	}
	var hs ClientHandshake
	if err := mapstructure.Decode(payload, &hs); err != nil {
		return nil, core.NewProtocolError(core.ErrorInvalidData, err.Error())
	}
	if hs.SessionID == "" {
		return nil, core.NewProtocolError(core.ErrorInvalidData, "sessionID is required")
	}
	if hs.DocumentID == "" {
		return nil, core.NewProtocolError(core.ErrorInvalidData, "documentID is required")
	}
	return &hs, nil
}

// DecodeEdit validates a raw EDIT_DOCUMENT payload. The payload must
// be an object with a non-empty type discriminator; its content is
// otherwise opaque to the core.
func DecodeEdit(payload any) (*EditEvent, *core.ProtocolError) {
	if payload == nil {
		return nil, core.NewProtocolError(core.ErrorInvalidData, "missing edit payload")
	}
	var env editEnvelope
	if err := mapstructure.Decode(payload, &env); err != nil {
		return nil, core.NewProtocolError(core.ErrorInvalidData, err.Error())
	}
	if env.Type == "" {
		return nil, core.NewProtocolError(core.ErrorInvalidData, "edit type is required")
	}
	return &EditEvent{Type: env.Type, Raw: payload}, nil
}
