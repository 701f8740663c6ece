package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gosuda/widgetboard/internal/domain"
)

// ErrNotConnected is returned by Redraw when the request is dropped because the
// channel is not connected. Dropped redraws are not queued.
var ErrNotConnected = errors.New("live: channel not connected")

// State is the lifecycle of a widget channel.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
	StateRejected
	StateUnsubscribed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateRejected:
		return "rejected"
	case StateUnsubscribed:
		return "unsubscribed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// terminal states ignore every further transport event.
func (s State) terminal() bool {
	return s == StateRejected || s == StateUnsubscribed
}

// ChannelOptions configure Open.
type ChannelOptions struct {
	Logger zerolog.Logger
	// OnReceive gets every content payload, in receipt order.
	OnReceive func(payload json.RawMessage)
	// OnState observes state transitions.
	OnState func(State)
}

// Channel is the single live subscription of one mounted widget.
type Channel struct {
	name     string
	widgetID uuid.UUID
	opts     ChannelOptions

	mu    sync.Mutex
	state State
	sub   Subscription

	// deliver serializes payload delivery with Close.
	deliver sync.Mutex
}

// Open subscribes to the channel that feeds kind, parameterized by widgetID.
func Open(t Transport, kind domain.WidgetKind, widgetID uuid.UUID, opts ChannelOptions) (*Channel, error) {
	name, err := ChannelFor(kind)
	if err != nil {
		return nil, err
	}

	c := &Channel{
		name:     name,
		widgetID: widgetID,
		opts:     opts,
		state:    StateConnecting,
	}

	sub, err := t.Subscribe(name, Params{WidgetID: widgetID}, Handlers{
		Connected:    c.connected,
		Disconnected: c.disconnected,
		Rejected:     c.rejected,
		Received:     c.received,
	})
	if err != nil {
		return nil, fmt.Errorf("live.Open %s: %w", name, err)
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	return c, nil
}

// Name returns the channel identifier.
func (c *Channel) Name() string { return c.name }

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Redraw asks the server to recompute this widget's content. The answer, if
// any, arrives as a later payload. While not connected the request is dropped.
func (c *Channel) Redraw() error {
	c.mu.Lock()
	state, sub := c.state, c.sub
	c.mu.Unlock()

	if state != StateConnected || sub == nil {
		c.opts.Logger.Debug().Str("channel", c.name).Stringer("state", state).Msg("redraw dropped")
		return ErrNotConnected
	}
	if err := sub.Perform(ActionRedraw, map[string]string{"widget_id": c.widgetID.String()}); err != nil {
		return fmt.Errorf("live.Channel.Redraw: %w", err)
	}
	return nil
}

// Close removes the subscription. It is synchronous and idempotent; no payload
// is delivered after it returns. It must not be called from OnReceive.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.state == StateUnsubscribed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateUnsubscribed
	sub := c.sub
	c.mu.Unlock()

	// Wait out a delivery that began before the state flipped.
	c.deliver.Lock()
	c.deliver.Unlock() //nolint:staticcheck // barrier

	c.notify(StateUnsubscribed)

	if sub == nil {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("live.Channel.Close: %w", err)
	}
	return nil
}

func (c *Channel) transition(to State, from ...State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.terminal() {
		return false
	}
	if len(from) > 0 {
		ok := false
		for _, f := range from {
			if c.state == f {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	c.state = to
	return true
}

func (c *Channel) connected() {
	if c.transition(StateConnected, StateConnecting, StateDisconnected) {
		c.opts.Logger.Debug().Str("channel", c.name).Msg("channel connected")
		c.notify(StateConnected)
	}
}

func (c *Channel) disconnected() {
	if c.transition(StateDisconnected, StateConnecting, StateConnected) {
		c.opts.Logger.Debug().Str("channel", c.name).Msg("channel disconnected")
		c.notify(StateDisconnected)
	}
}

func (c *Channel) rejected() {
	if c.transition(StateRejected) {
		c.opts.Logger.Warn().Str("channel", c.name).Str("widget_id", c.widgetID.String()).Msg("subscription rejected")
		c.notify(StateRejected)
	}
}

func (c *Channel) received(payload json.RawMessage) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state.terminal() || c.opts.OnReceive == nil {
		return
	}
	c.opts.OnReceive(payload)
}

func (c *Channel) notify(s State) {
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}
