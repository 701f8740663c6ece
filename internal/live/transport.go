package live

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrDisconnected is returned by Perform while the transport is down.
var ErrDisconnected = errors.New("live: transport disconnected")

// Params parameterize a subscription.
type Params struct {
	WidgetID uuid.UUID
}

// Handlers receive subscription events. Nil handlers are skipped. They may be
// called from the transport's own goroutine.
type Handlers struct {
	Connected    func()
	Disconnected func()
	Rejected     func()
	Received     func(payload json.RawMessage)
}

// Transport opens subscriptions on a shared persistent connection.
type Transport interface {
	Subscribe(channel string, params Params, handlers Handlers) (Subscription, error)
}

// Subscription is one live subscription.
type Subscription interface {
	// Perform sends an action with payload; fire-and-forget.
	Perform(action string, payload any) error
	// Unsubscribe removes the subscription. Calling it twice is harmless.
	Unsubscribe() error
}
