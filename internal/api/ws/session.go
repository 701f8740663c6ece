package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live"
	redisstore "github.com/gosuda/widgetboard/internal/store/redis"
)

const writeTimeout = 5 * time.Second

// session is one cable connection. Every write goes through out so that a
// single goroutine owns the socket's write side.
type session struct {
	hub       *Hub
	conn      *websocket.Conn
	companyID uuid.UUID
	out       chan live.Frame
	log       zerolog.Logger

	g   *errgroup.Group
	ctx context.Context

	mu   sync.Mutex
	subs map[string]*subscription
}

// subscription is one confirmed identifier. Each carries its own redraw
// throttle; a throttled redraw is deferred, and further requests while one
// is deferred fold into it.
type subscription struct {
	ctx     context.Context
	cancel  context.CancelFunc
	limiter *rate.Limiter
	pending bool
}

func (s *session) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	s.g, s.ctx = g, gctx

	if err := s.write(gctx, live.Frame{Type: live.TypeWelcome}); err != nil {
		return err
	}

	g.Go(s.writer)
	g.Go(s.pinger)
	g.Go(s.reader)

	return g.Wait()
}

func (s *session) write(ctx context.Context, f live.Frame) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, s.conn, f)
}

func (s *session) writer() error {
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case f := <-s.out:
			if err := s.write(s.ctx, f); err != nil {
				return err
			}
		}
	}
}

func (s *session) pinger() error {
	ticker := time.NewTicker(s.hub.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case t := <-ticker.C:
			s.send(live.Frame{Type: live.TypePing, Message: json.RawMessage(strconv.FormatInt(t.Unix(), 10))})
		}
	}
}

func (s *session) reader() error {
	for {
		var cmd live.Command
		if err := wsjson.Read(s.ctx, s.conn, &cmd); err != nil {
			return err
		}

		switch cmd.Command {
		case live.CommandSubscribe:
			s.subscribe(cmd.Identifier)
		case live.CommandUnsubscribe:
			s.unsubscribe(cmd.Identifier)
		case live.CommandMessage:
			s.message(cmd.Identifier, cmd.Data)
		default:
			s.log.Debug().Str("command", cmd.Command).Msg("cable: unknown command")
		}
	}
}

// send queues f for the writer. It gives up once the connection is closing.
func (s *session) send(f live.Frame) {
	select {
	case s.out <- f:
	case <-s.ctx.Done():
	}
}

func (s *session) reject(identifier, reason string) {
	metricRejected.WithLabelValues(reason).Inc()
	s.send(live.Frame{Type: live.TypeReject, Identifier: identifier})
}

func (s *session) subscribe(identifier string) {
	id, err := live.ParseIdentifier(identifier)
	if err != nil {
		s.reject(identifier, "malformed")
		return
	}

	s.mu.Lock()
	_, dup := s.subs[identifier]
	s.mu.Unlock()
	if dup {
		return
	}

	kind, err := live.KindForChannel(id.Channel)
	if err != nil {
		s.reject(identifier, "unknown_channel")
		return
	}

	d, w, err := s.hub.load(s.ctx, s.companyID, id.WidgetID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error().Err(err).Str("widget_id", id.WidgetID.String()).Msg("cable: load widget")
		}
		s.reject(identifier, "not_found")
		return
	}
	if w.Kind != kind {
		s.reject(identifier, "kind_mismatch")
		return
	}

	subCtx, cancel := context.WithCancel(s.ctx)
	messages, cleanup, err := s.hub.broker.Subscribe(subCtx, redisstore.WidgetChannel(w.ID))
	if err != nil {
		cancel()
		s.log.Error().Err(err).Str("widget_id", w.ID.String()).Msg("cable: broker subscribe")
		s.reject(identifier, "broker")
		return
	}

	s.mu.Lock()
	s.subs[identifier] = &subscription{
		ctx:     subCtx,
		cancel:  cancel,
		limiter: rate.NewLimiter(rate.Limit(s.hub.opts.RedrawRate), s.hub.opts.RedrawBurst),
	}
	s.mu.Unlock()
	metricSubscriptions.Inc()

	s.send(live.Frame{Type: live.TypeConfirm, Identifier: identifier})

	s.g.Go(func() error {
		defer metricSubscriptions.Dec()
		defer cleanup()
		s.forward(subCtx, identifier, messages)
		return nil
	})

	s.g.Go(func() error {
		payload, err := s.hub.renderer.Render(subCtx, d, w)
		if err != nil {
			s.log.Warn().Err(err).Str("widget_id", w.ID.String()).Msg("cable: initial render")
			return nil
		}
		s.send(live.Frame{Identifier: identifier, Message: payload})
		return nil
	})
}

func (s *session) forward(ctx context.Context, identifier string, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			s.send(live.Frame{Identifier: identifier, Message: msg})
		}
	}
}

func (s *session) unsubscribe(identifier string) {
	s.mu.Lock()
	sub, ok := s.subs[identifier]
	delete(s.subs, identifier)
	s.mu.Unlock()
	if ok {
		sub.cancel()
	}
}

func (s *session) message(identifier, data string) {
	var action live.ActionData
	if err := json.Unmarshal([]byte(data), &action); err != nil {
		s.log.Debug().Err(err).Msg("cable: malformed message data")
		return
	}
	if action.Action != live.ActionRedraw {
		s.log.Debug().Str("action", action.Action).Msg("cable: unknown action")
		return
	}

	id, err := live.ParseIdentifier(identifier)
	if err != nil {
		return
	}

	s.mu.Lock()
	sub, ok := s.subs[identifier]
	if !ok {
		s.mu.Unlock()
		return
	}
	if sub.limiter.Allow() {
		s.mu.Unlock()
		s.g.Go(func() error {
			s.redraw(id.WidgetID)
			return nil
		})
		return
	}
	if sub.pending {
		s.mu.Unlock()
		metricRedraws.WithLabelValues("coalesced").Inc()
		return
	}
	sub.pending = true
	s.mu.Unlock()

	metricRedraws.WithLabelValues("deferred").Inc()
	s.g.Go(func() error {
		err := sub.limiter.Wait(sub.ctx)

		s.mu.Lock()
		sub.pending = false
		s.mu.Unlock()

		if err == nil {
			s.redraw(id.WidgetID)
		}
		return nil
	})
}

func (s *session) redraw(widgetID uuid.UUID) {
	d, w, err := s.hub.load(s.ctx, s.companyID, widgetID)
	if err != nil {
		metricRedraws.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("widget_id", widgetID.String()).Msg("cable: redraw load")
		return
	}

	payload, err := s.hub.renderer.Refresh(s.ctx, d, w)
	if err != nil {
		metricRedraws.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("widget_id", widgetID.String()).Msg("cable: redraw render")
		return
	}

	if err := s.hub.Publish(s.ctx, widgetID, payload); err != nil {
		metricRedraws.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("widget_id", widgetID.String()).Msg("cable: redraw publish")
		return
	}
	metricRedraws.WithLabelValues("ok").Inc()
}
