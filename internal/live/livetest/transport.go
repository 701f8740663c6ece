// Package livetest provides an in-memory live.Transport whose subscription
// events are driven by the test.
package livetest

import (
	"encoding/json"
	"sync"

	"github.com/gosuda/widgetboard/internal/live"
)

// Performed is one recorded Perform call.
type Performed struct {
	Action  string
	Payload any
}

// Transport records every subscription it opens.
type Transport struct {
	// SubscribeErr, when set, fails every Subscribe.
	SubscribeErr error

	mu   sync.Mutex
	subs []*Subscription
}

var _ live.Transport = (*Transport)(nil)

func (t *Transport) Subscribe(channel string, params live.Params, h live.Handlers) (live.Subscription, error) {
	if t.SubscribeErr != nil {
		return nil, t.SubscribeErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := &Subscription{Channel: channel, Params: params, handlers: h}
	t.subs = append(t.subs, sub)
	return sub, nil
}

// Subscriptions returns every subscription opened so far.
func (t *Transport) Subscriptions() []*Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Subscription(nil), t.subs...)
}

// Last returns the most recent subscription or nil.
func (t *Transport) Last() *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.subs) == 0 {
		return nil
	}
	return t.subs[len(t.subs)-1]
}

// Active counts subscriptions not yet unsubscribed.
func (t *Transport) Active() int {
	n := 0
	for _, s := range t.Subscriptions() {
		if !s.Unsubscribed() {
			n++
		}
	}
	return n
}

// Subscription is a recorded subscription.
type Subscription struct {
	Channel string
	Params  live.Params

	handlers     live.Handlers
	mu           sync.Mutex
	performed    []Performed
	unsubscribed bool
}

func (s *Subscription) Perform(action string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.performed = append(s.performed, Performed{Action: action, Payload: payload})
	return nil
}

func (s *Subscription) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = true
	return nil
}

// Performed returns the recorded Perform calls.
func (s *Subscription) Performed() []Performed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Performed(nil), s.performed...)
}

func (s *Subscription) Unsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

func (s *Subscription) Connect()    { call(s.handlers.Connected) }
func (s *Subscription) Disconnect() { call(s.handlers.Disconnected) }
func (s *Subscription) Reject()     { call(s.handlers.Rejected) }

// Push delivers a content payload.
func (s *Subscription) Push(payload string) {
	if s.handlers.Received != nil {
		s.handlers.Received(json.RawMessage(payload))
	}
}

func call(f func()) {
	if f != nil {
		f()
	}
}
