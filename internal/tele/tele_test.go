package tele

import (
	"context"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/battwatch/log2"
	"github.com/temoto/spq"
)

func testConfig() Config {
	return Config{
		Enabled:     true,
		DeviceId:    "test1",
		MqttBroker:  "tcp://mock:1883",
		PersistPath: spq.OnlyForTesting,
	}
}

func testTele(t testing.TB, tr Transporter) *Tele {
	tele := &Tele{transport: tr, retryDelay: time.Millisecond}
	require.NoError(t, tele.Init(context.Background(), log2.NewTest(t, log2.LDebug), testConfig()))
	return tele
}

func receiveEvent(t testing.TB, ch <-chan []byte) *Event {
	select {
	case b := <-ch:
		e := &Event{}
		require.NoError(t, proto.Unmarshal(b, e))
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return nil
}

func TestEventDelivery(t *testing.T) {
	t.Parallel()
	tr := newTransportMock(t)
	tele := testTele(t, tr)
	defer tele.Close()

	assert.Equal(t, []byte{byte(State_Boot)}, <-tr.outState)

	tele.Event(&Event{Kind: Event_Raise, Voltage: 4.8, Message: "ALERT: low"})
	tele.Event(&Event{Kind: Event_Dispatch, Success: true, Attempts: 1})
	e1 := receiveEvent(t, tr.outEvent)
	assert.Equal(t, Event_Raise, e1.Kind)
	assert.Equal(t, 4.8, e1.Voltage)
	assert.Equal(t, "ALERT: low", e1.Message)
	assert.Equal(t, "test1", e1.DeviceId)
	assert.NotZero(t, e1.Time)
	e2 := receiveEvent(t, tr.outEvent)
	assert.Equal(t, Event_Dispatch, e2.Kind)
	assert.True(t, e2.Success)
	assert.Equal(t, uint32(1), e2.Attempts)

	tele.State(State_Running)
	assert.Equal(t, []byte{byte(State_Running)}, <-tr.outState)
}

// Undelivered event is requeued and delivered on next attempt.
func TestEventRetry(t *testing.T) {
	t.Parallel()
	tr := newTransportMock(t)
	tr.networkTimeout = 5 * time.Millisecond
	tele := testTele(t, tr)
	defer tele.Close()

	tele.Error(errors.New("journal disk full"))
	time.Sleep(30 * time.Millisecond)
	e := receiveEvent(t, tr.outEvent)
	assert.Equal(t, Event_Error, e.Kind)
	assert.Equal(t, "journal disk full", e.Error)
}

func TestInitInvalid(t *testing.T) {
	t.Parallel()
	c := testConfig()
	c.DeviceId = ""
	err := (&Tele{transport: newTransportMock(t)}).Init(context.Background(), log2.NewTest(t, log2.LDebug), c)
	assert.True(t, errors.IsNotValid(err))
}

func TestNewDisabled(t *testing.T) {
	t.Parallel()
	tele, err := New(context.Background(), log2.NewTest(t, log2.LDebug), Config{})
	require.NoError(t, err)
	assert.Equal(t, NewStub(), tele)
	tele.Event(&Event{Kind: Event_Raise})
	tele.State(State_Running)
	tele.Close()
}

func TestTransportMqtt(t *testing.T) {
	// mqtt.ERROR and friends are package globals
	broker := newMqttMock()
	tr := &transportMqtt{newClient: broker.new}
	c := testConfig()
	c.TopicPrefix = "site/pump"
	require.NoError(t, tr.Init(context.Background(), log2.NewTest(t, log2.LDebug), c, []byte{byte(State_Disconnected)}))
	defer tr.Close()

	assert.Equal(t, []string{"tcp://mock:1883"}, []string{broker.opt.Servers[0].String()})
	assert.Equal(t, "test1", broker.opt.ClientID)
	assert.Equal(t, "site/pump/state", broker.opt.WillTopic)
	assert.Equal(t, []byte{byte(State_Disconnected)}, broker.opt.WillPayload)
	assert.True(t, broker.opt.WillRetained)

	assert.True(t, tr.SendEvent([]byte{1, 2}))
	msg := <-broker.pub
	assert.Equal(t, "site/pump/event", msg.topic)
	assert.False(t, msg.retained)
	assert.Equal(t, []byte{1, 2}, msg.payload)

	assert.True(t, tr.SendState([]byte{byte(State_Running)}))
	msg = <-broker.pub
	assert.Equal(t, "site/pump/state", msg.topic)
	assert.True(t, msg.retained)

	broker.mu.Lock()
	broker.pubErr = errors.Timeoutf("publish")
	broker.mu.Unlock()
	assert.False(t, tr.SendEvent([]byte{3}))
	broker.mu.Lock()
	broker.pubErr = errors.New("connection lost")
	broker.mu.Unlock()
	assert.False(t, tr.SendEvent([]byte{4}))
}

func TestTransportMqttInvalid(t *testing.T) {
	c := testConfig()
	c.MqttBroker = ""
	tr := &transportMqtt{newClient: newMqttMock().new}
	err := tr.Init(context.Background(), log2.NewTest(t, log2.LDebug), c, nil)
	assert.True(t, errors.IsNotValid(err))
}

func TestTopicPrefix(t *testing.T) {
	t.Parallel()
	c := Config{DeviceId: "x"}
	assert.Equal(t, "battwatch/x", c.topicPrefix())
	c.TopicPrefix = "a/b"
	assert.Equal(t, "a/b", c.topicPrefix())
}

func TestStrings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Boot", State_Boot.String())
	assert.Equal(t, "99", State(99).String())
	assert.Equal(t, "Raise", Event_Raise.String())
	assert.Equal(t, "42", Event_Kind(42).String())
	assert.Equal(t, "tele.Event.Kind", string(Event_Dispatch.Descriptor().FullName()))
}
