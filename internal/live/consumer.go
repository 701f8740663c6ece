package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

// Sentinel errors for the consumer.
var (
	ErrConsumerClosed        = errors.New("live: consumer closed")
	ErrDuplicateSubscription = errors.New("live: duplicate subscription")
	ErrNotSubscribed         = errors.New("live: not subscribed")
)

const (
	defaultMinBackoff   = 500 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 5 * time.Second
	dialTimeout         = 15 * time.Second
)

// Consumer is a Transport over one websocket connection to the cable
// endpoint. It reconnects with exponential backoff and resubscribes every
// live subscription after each reconnect.
type Consumer struct {
	url          string
	header       http.Header
	log          zerolog.Logger
	minBackoff   time.Duration
	maxBackoff   time.Duration
	pingInterval time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[string]*consumerSub
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithHeader sets headers sent on every dial (e.g. Authorization).
func WithHeader(h http.Header) ConsumerOption {
	return func(c *Consumer) { c.header = h.Clone() }
}

// WithLogger sets the consumer logger.
func WithLogger(l zerolog.Logger) ConsumerOption {
	return func(c *Consumer) { c.log = l }
}

// WithBackoff bounds the reconnect delay.
func WithBackoff(minDelay, maxDelay time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.minBackoff = minDelay
		c.maxBackoff = maxDelay
	}
}

// WithPingInterval sets the keepalive ping period.
func WithPingInterval(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.pingInterval = d }
}

// NewConsumer creates a consumer for the cable endpoint at rawURL. Call Start
// to connect.
func NewConsumer(rawURL string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		url:          rawURL,
		header:       http.Header{},
		log:          zerolog.Nop(),
		minBackoff:   defaultMinBackoff,
		maxBackoff:   defaultMaxBackoff,
		pingInterval: defaultPingInterval,
		subs:         make(map[string]*consumerSub),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs the connection loop until ctx is cancelled or Close is called.
func (c *Consumer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(ctx)
	}()
}

// Close stops the connection loop and forgets every subscription.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn, cancel, done := c.conn, c.cancel, c.done
	c.subs = make(map[string]*consumerSub)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "consumer closed")
	}
	if done != nil {
		<-done
	}
	return nil
}

// Subscribe registers a subscription. It is sent immediately when connected
// and on every reconnect otherwise.
func (c *Consumer) Subscribe(channel string, params Params, handlers Handlers) (Subscription, error) {
	id := Identifier{Channel: channel, WidgetID: params.WidgetID}.String()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConsumerClosed
	}
	if _, dup := c.subs[id]; dup {
		c.mu.Unlock()
		return nil, fmt.Errorf("live.Consumer.Subscribe %s: %w", id, ErrDuplicateSubscription)
	}
	sub := &consumerSub{consumer: c, identifier: id, handlers: handlers}
	c.subs[id] = sub
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		if err := c.send(conn, Command{Command: CommandSubscribe, Identifier: id}); err != nil {
			c.log.Debug().Err(err).Str("identifier", id).Msg("subscribe deferred to reconnect")
		}
	}
	return sub, nil
}

// Active returns the number of registered subscriptions.
func (c *Consumer) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Consumer) send(conn *websocket.Conn, cmd Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, cmd); err != nil {
		return fmt.Errorf("live.Consumer.send %s: %w", cmd.Command, err)
	}
	return nil
}

func (c *Consumer) run(ctx context.Context) {
	backoff := c.minBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{HTTPHeader: c.header}) //nolint:bodyclose // coder/websocket closes the handshake body
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("cable connect failed")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}

		backoff = c.minBackoff
		err = c.serve(ctx, conn)
		c.dropped(conn)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("cable disconnected")
		if !sleep(ctx, backoff) {
			return
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// serve owns conn until it fails.
func (c *Consumer) serve(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(4 << 20)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	c.conn = conn
	ids := make([]string, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		if err := c.send(conn, Command{Command: CommandSubscribe, Identifier: id}); err != nil {
			return err
		}
	}

	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.keepalive(ctx, conn, pingDone)

	for {
		var f Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("live.Consumer.serve: read: %w", err)
		}
		if stop := c.dispatch(f); stop {
			return fmt.Errorf("live.Consumer.serve: server disconnect: %s", f.Reason)
		}
	}
}

func (c *Consumer) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				// The read loop notices the dead connection.
				return
			}
		}
	}
}

func (c *Consumer) dispatch(f Frame) bool {
	switch f.Type {
	case TypeWelcome, TypePing:
		return false
	case TypeDisconnect:
		return true
	case TypeConfirm:
		if sub := c.lookup(f.Identifier, false); sub != nil && sub.handlers.Connected != nil {
			sub.handlers.Connected()
		}
	case TypeReject:
		if sub := c.lookup(f.Identifier, true); sub != nil && sub.handlers.Rejected != nil {
			sub.handlers.Rejected()
		}
	case "":
		if f.Identifier == "" || len(f.Message) == 0 {
			return false
		}
		if sub := c.lookup(f.Identifier, false); sub != nil && sub.handlers.Received != nil {
			sub.handlers.Received(f.Message)
		}
	default:
		c.log.Debug().Str("type", f.Type).Msg("ignoring unknown cable frame")
	}
	return false
}

func (c *Consumer) lookup(id string, remove bool) *consumerSub {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subs[id]
	if !ok {
		return nil
	}
	if remove {
		delete(c.subs, id)
	}
	return sub
}

func (c *Consumer) dropped(conn *websocket.Conn) {
	conn.CloseNow() //nolint:errcheck // connection already failed

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	subs := make([]*consumerSub, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		if sub.handlers.Disconnected != nil {
			sub.handlers.Disconnected()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type consumerSub struct {
	consumer   *Consumer
	identifier string
	handlers   Handlers
}

func (s *consumerSub) Perform(action string, payload any) error {
	data, err := encodeAction(action, payload)
	if err != nil {
		return fmt.Errorf("live.Subscription.Perform: %w", err)
	}

	c := s.consumer
	c.mu.Lock()
	current, active := c.subs[s.identifier]
	conn := c.conn
	c.mu.Unlock()

	if !active || current != s {
		return fmt.Errorf("live.Subscription.Perform %s: %w", action, ErrNotSubscribed)
	}
	if conn == nil {
		return fmt.Errorf("live.Subscription.Perform %s: %w", action, ErrDisconnected)
	}
	return c.send(conn, Command{Command: CommandMessage, Identifier: s.identifier, Data: data})
}

func (s *consumerSub) Unsubscribe() error {
	c := s.consumer
	c.mu.Lock()
	current, active := c.subs[s.identifier]
	if !active || current != s {
		c.mu.Unlock()
		return nil
	}
	delete(c.subs, s.identifier)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.send(conn, Command{Command: CommandUnsubscribe, Identifier: s.identifier})
}
