package tele

import (
	"context"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/battwatch/log2"
)

type transportMock struct {
	t              testing.TB
	networkTimeout time.Duration
	outEvent       chan []byte
	outState       chan []byte
	closed         chan struct{}
}

func newTransportMock(t testing.TB) *transportMock {
	return &transportMock{
		t:              t,
		networkTimeout: 1 * time.Second,
		outEvent:       make(chan []byte),
		outState:       make(chan []byte, 16),
		closed:         make(chan struct{}),
	}
}

func (self *transportMock) Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error {
	return nil
}

func (self *transportMock) SendEvent(payload []byte) bool {
	select {
	case self.outEvent <- payload:
		self.t.Logf("mock delivered event=%x", payload)
	case <-time.After(self.networkTimeout):
		self.t.Logf("mock network timeout")
		return false
	}
	return true
}

func (self *transportMock) SendState(payload []byte) bool {
	select {
	case self.outState <- append([]byte(nil), payload...):
	case <-time.After(self.networkTimeout):
		return false
	}
	return true
}

func (self *transportMock) Close() { close(self.closed) }

type mqttMock struct {
	mu        sync.Mutex
	opt       *mqtt.ClientOptions
	connected bool
	connects  int
	pub       chan mockMsg
	pubErr    error
}

type mockMsg struct {
	topic    string
	retained bool
	payload  []byte
}

func newMqttMock() *mqttMock {
	return &mqttMock{pub: make(chan mockMsg, 32)}
}

func (self *mqttMock) new(opt *mqtt.ClientOptions) mqtt.Client {
	self.opt = opt
	return self
}

func (self *mqttMock) Disconnect(uint) {
	self.mu.Lock()
	self.connected = false
	self.mu.Unlock()
}
func (self *mqttMock) IsConnected() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.connected
}
func (self *mqttMock) IsConnectionOpen() bool { return self.IsConnected() }

func (self *mqttMock) Connect() mqtt.Token {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.connects++
	self.connected = true
	return mockToken{nil}
}

func (self *mqttMock) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	self.mu.Lock()
	err := self.pubErr
	self.mu.Unlock()
	if err != nil {
		return mockToken{err}
	}
	self.pub <- mockMsg{topic: topic, retained: retained, payload: payload.([]byte)}
	return mockToken{nil}
}

func (self *mqttMock) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	panic("not implemented")
}
func (self *mqttMock) AddRoute(string, mqtt.MessageHandler) { panic("not implemented") }
func (self *mqttMock) OptionsReader() mqtt.ClientOptionsReader {
	panic("not implemented")
}
func (self *mqttMock) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	panic("not implemented")
}
func (self *mqttMock) Unsubscribe(...string) mqtt.Token { panic("not implemented") }

type mockToken struct{ error }

func (tok mockToken) Error() error { return tok.error }
func (tok mockToken) Wait() bool   { return !errors.IsTimeout(tok.error) }
func (tok mockToken) WaitTimeout(time.Duration) bool {
	return !errors.IsTimeout(tok.error)
}
