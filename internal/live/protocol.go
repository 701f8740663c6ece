package live

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Client commands.
const (
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
	CommandMessage     = "message"
)

// Server frame types. Content frames carry no type, only identifier+message.
const (
	TypeWelcome    = "welcome"
	TypePing       = "ping"
	TypeConfirm    = "confirm_subscription"
	TypeReject     = "reject_subscription"
	TypeDisconnect = "disconnect"
)

// ActionRedraw asks the server to recompute and push a widget's content.
const ActionRedraw = "redraw"

// Command is a client -> server frame.
type Command struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
	Data       string `json:"data,omitempty"`
}

// Frame is a server -> client frame.
type Frame struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// Identifier names one subscription: a channel parameterized by widget.
type Identifier struct {
	Channel  string    `json:"channel"`
	WidgetID uuid.UUID `json:"widget_id"`
}

// String returns the canonical wire form used as subscription key.
func (id Identifier) String() string {
	b, _ := json.Marshal(id) //nolint:errchkjson // fixed struct of string fields
	return string(b)
}

// ParseIdentifier decodes the wire form of an identifier.
func ParseIdentifier(s string) (Identifier, error) {
	var id Identifier
	if err := json.Unmarshal([]byte(s), &id); err != nil {
		return Identifier{}, fmt.Errorf("live.ParseIdentifier: %w", err)
	}
	if id.Channel == "" || id.WidgetID == uuid.Nil {
		return Identifier{}, fmt.Errorf("live.ParseIdentifier: incomplete identifier %q", s)
	}
	return id, nil
}

// ActionData is the decoded data of a message command.
type ActionData struct {
	Action   string    `json:"action"`
	WidgetID uuid.UUID `json:"widget_id"`
}

// encodeAction merges payload's fields with the action name, the way the
// server expects message data.
func encodeAction(action string, payload any) (string, error) {
	fields := map[string]any{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("encode %s payload: %w", action, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return "", fmt.Errorf("encode %s payload: not an object: %w", action, err)
		}
	}
	fields["action"] = action
	out, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", action, err)
	}
	return string(out), nil
}
