package live_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live"
	"github.com/gosuda/widgetboard/internal/live/livetest"
)

func openChannel(t *testing.T, ft *livetest.Transport, received *[]string, states *[]live.State) *live.Channel {
	t.Helper()

	ch, err := live.Open(ft, domain.WidgetKindChart, uuid.New(), live.ChannelOptions{
		OnReceive: func(p json.RawMessage) {
			if received != nil {
				*received = append(*received, string(p))
			}
		},
		OnState: func(s live.State) {
			if states != nil {
				*states = append(*states, s)
			}
		},
	})
	require.NoError(t, err)
	return ch
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("subscribes to the kind's channel with widget identity", func(t *testing.T) {
		t.Parallel()

		ft := &livetest.Transport{}
		id := uuid.New()
		ch, err := live.Open(ft, domain.WidgetKindMap, id, live.ChannelOptions{})
		require.NoError(t, err)

		sub := ft.Last()
		assert.Equal(t, "MapWidgetChannel", sub.Channel)
		assert.Equal(t, id, sub.Params.WidgetID)
		assert.Equal(t, live.StateConnecting, ch.State())
		assert.Equal(t, "MapWidgetChannel", ch.Name())
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()

		_, err := live.Open(&livetest.Transport{}, domain.WidgetKind("gauge"), uuid.New(), live.ChannelOptions{})
		require.ErrorIs(t, err, live.ErrUnknownKind)
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		_, err := live.Open(&livetest.Transport{SubscribeErr: boom}, domain.WidgetKindChart, uuid.New(), live.ChannelOptions{})
		require.ErrorIs(t, err, boom)
	})
}

func TestChannel_Lifecycle(t *testing.T) {
	t.Parallel()

	ft := &livetest.Transport{}
	var states []live.State
	ch := openChannel(t, ft, nil, &states)
	sub := ft.Last()

	sub.Connect()
	assert.Equal(t, live.StateConnected, ch.State())

	sub.Disconnect()
	assert.Equal(t, live.StateDisconnected, ch.State())

	sub.Connect()
	assert.Equal(t, live.StateConnected, ch.State())

	require.NoError(t, ch.Close())
	assert.Equal(t, live.StateUnsubscribed, ch.State())
	assert.True(t, sub.Unsubscribed())

	assert.Equal(t, []live.State{
		live.StateConnected,
		live.StateDisconnected,
		live.StateConnected,
		live.StateUnsubscribed,
	}, states)
}

func TestChannel_RejectedIsTerminal(t *testing.T) {
	t.Parallel()

	ft := &livetest.Transport{}
	var received []string
	ch := openChannel(t, ft, &received, nil)
	sub := ft.Last()

	sub.Reject()
	assert.Equal(t, live.StateRejected, ch.State())

	sub.Connect()
	sub.Push(`{"late":true}`)
	assert.Equal(t, live.StateRejected, ch.State())
	assert.Empty(t, received)

	require.ErrorIs(t, ch.Redraw(), live.ErrNotConnected)

	require.NoError(t, ch.Close())
	assert.Equal(t, live.StateUnsubscribed, ch.State())
}

func TestChannel_Redraw(t *testing.T) {
	t.Parallel()

	t.Run("performs while connected", func(t *testing.T) {
		t.Parallel()

		ft := &livetest.Transport{}
		ch := openChannel(t, ft, nil, nil)
		sub := ft.Last()
		sub.Connect()

		require.NoError(t, ch.Redraw())
		require.Equal(t, 1, len(sub.Performed()))
		assert.Equal(t, live.ActionRedraw, sub.Performed()[0].Action)
		assert.Equal(t, map[string]string{"widget_id": sub.Params.WidgetID.String()}, sub.Performed()[0].Payload)
	})

	t.Run("dropped while connecting", func(t *testing.T) {
		t.Parallel()

		ft := &livetest.Transport{}
		ch := openChannel(t, ft, nil, nil)

		require.ErrorIs(t, ch.Redraw(), live.ErrNotConnected)
		assert.Zero(t, len(ft.Last().Performed()))
	})

	t.Run("dropped while disconnected and not replayed", func(t *testing.T) {
		t.Parallel()

		ft := &livetest.Transport{}
		ch := openChannel(t, ft, nil, nil)
		sub := ft.Last()
		sub.Connect()
		sub.Disconnect()

		require.ErrorIs(t, ch.Redraw(), live.ErrNotConnected)
		sub.Connect()
		assert.Zero(t, len(sub.Performed()))
	})
}

func TestChannel_ReceiveAndClose(t *testing.T) {
	t.Parallel()

	ft := &livetest.Transport{}
	var received []string
	ch := openChannel(t, ft, &received, nil)
	sub := ft.Last()
	sub.Connect()

	sub.Push(`{"n":1}`)
	sub.Push(`{"n":2}`)
	require.NoError(t, ch.Close())
	sub.Push(`{"n":3}`)

	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, received)

	require.NoError(t, ch.Close())
	assert.Zero(t, ft.Active())
}
