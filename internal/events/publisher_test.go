package events

import (
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/equityfunk/internal/strategy"
)

func startEmbeddedNATS(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}
	ns, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		t.Fatal("NATS server did not start in time")
	}
	t.Cleanup(ns.Shutdown)

	return ns
}

func TestPublisherSignalRoundTrip(t *testing.T) {
	ns := startEmbeddedNATS(t)

	publisher, err := Connect(ns.ClientURL())
	require.NoError(t, err)
	defer publisher.Close()

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	received := make(chan *nats.Msg, 1)
	_, err = nc.ChanSubscribe("equityfunk.signals.nuclear", received)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	signal := &strategy.Signal{
		Strategy:   "nuclear",
		TargetName: "UVXY",
		Action:     strategy.ActionBuy,
		Reason:     "SPY extremely overbought",
		Timestamp:  time.Now().UTC(),
	}
	publisher.PublishSignal(signal, map[string]float64{"UVXY": 1.0})

	select {
	case msg := <-received:
		var event SignalEvent
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, "nuclear", event.Strategy)
		assert.Equal(t, "UVXY", event.Target)
		assert.Equal(t, "BUY", event.Action)
		assert.InDelta(t, 1.0, event.Weights["UVXY"], 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("signal event not received")
	}
}

func TestPublisherTickRoundTrip(t *testing.T) {
	ns := startEmbeddedNATS(t)

	publisher, err := Connect(ns.ClientURL())
	require.NoError(t, err)
	defer publisher.Close()

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	received := make(chan *nats.Msg, 1)
	_, err = nc.ChanSubscribe("equityfunk.ticks", received)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	publisher.PublishTick(TickEvent{
		Success:        true,
		Portfolio:      map[string]float64{"BIL": 1.0},
		OrdersExecuted: 2,
		AccountValue:   1000,
	})

	select {
	case msg := <-received:
		var event TickEvent
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.True(t, event.Success)
		assert.Equal(t, 2, event.OrdersExecuted)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("tick event not received")
	}
}

func TestPublisherDisabled(t *testing.T) {
	publisher, err := Connect("")
	require.NoError(t, err)
	assert.Nil(t, publisher)

	// Nil publisher drops events without panicking
	publisher.PublishTick(TickEvent{Success: true})
	publisher.PublishSignal(&strategy.Signal{Strategy: "nuclear"}, nil)
	publisher.Close()
}
