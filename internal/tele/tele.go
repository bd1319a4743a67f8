// Package tele reports alert events to remote MQTT broker.
//
// Tele contract:
//   - Init fails only with invalid config, network issues ignored
//   - Event/Error/State calls block at most for disk write,
//     network may be slow or absent, events are delivered in background
//   - events are delivered at least once, state messages may be lost
package tele

//go:generate protoc --go_out=paths=source_relative:./ tele.proto

import (
	"context"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/log2"
	"github.com/temoto/spq"
)

const (
	defaultStateInterval  = 5 * time.Minute
	defaultNetworkTimeout = 30 * time.Second
	defaultRetryDelayMax  = time.Minute
)

// denote value type in persistent queue bytes form
const (
	qEvent byte = 1
)

type Teler interface {
	Init(context.Context, *log2.Log, Config) error
	State(State)
	Event(*Event)
	Error(error)
	Close()
}

type Tele struct { //nolint:maligned
	log           *log2.Log
	transport     Transporter
	q             *spq.Queue
	stateCh       chan State
	stopCh        chan struct{}
	doneCh        chan struct{}
	deviceId      string
	stateInterval time.Duration
	retryDelay    time.Duration
	backoff       helpers.Backoff
}

// New returns stub when tele is disabled.
func New(ctx context.Context, log *log2.Log, c Config) (Teler, error) {
	if !c.Enabled {
		return NewStub(), nil
	}
	t := &Tele{}
	if err := t.Init(ctx, log, c); err != nil {
		return nil, errors.Trace(err)
	}
	return t, nil
}

func (self *Tele) Init(ctx context.Context, log *log2.Log, teleConfig Config) error {
	self.log = log.Clone(log2.LInfo)
	if teleConfig.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	if teleConfig.DeviceId == "" {
		return errors.NotValidf("tele.device_id=empty")
	}
	if teleConfig.PersistPath == "" {
		panic("code error must set teleConfig.PersistPath")
	}

	self.stopCh = make(chan struct{})
	self.doneCh = make(chan struct{})
	self.stateCh = make(chan State, 1)
	self.deviceId = teleConfig.DeviceId
	self.stateInterval = helpers.IntSecondDefault(teleConfig.StateIntervalSec, defaultStateInterval)
	if self.retryDelay == 0 {
		self.retryDelay = 1 * time.Second
	}
	self.backoff = helpers.Backoff{Min: self.retryDelay, Max: defaultRetryDelayMax, K: 2}

	var err error
	self.q, err = spq.Open(teleConfig.PersistPath)
	if err != nil {
		return errors.Annotate(err, "tele queue")
	}

	willPayload := []byte{byte(State_Disconnected)}
	// test code sets .transport
	if self.transport == nil { // production path
		self.transport = &transportMqtt{}
	}
	if err := self.transport.Init(ctx, self.log, teleConfig, willPayload); err != nil {
		self.q.Close()
		return errors.Annotate(err, "tele transport")
	}

	go self.qworker()
	go self.stateWorker()
	self.stateCh <- State_Boot
	return nil
}

// Close stops background workers. Undelivered events stay in queue for next start.
func (self *Tele) Close() {
	close(self.stopCh)
	self.q.Close()
	<-self.doneCh
	self.transport.Close()
}

func (self *Tele) State(s State) {
	self.log.Infof("tele state=%s", s)
	select {
	case self.stateCh <- s:
	case <-self.stopCh:
	}
}

func (self *Tele) Event(e *Event) {
	if e.DeviceId == "" {
		e.DeviceId = self.deviceId
	}
	if e.Time == 0 {
		e.Time = time.Now().UnixNano()
	}
	if err := self.qpushTagProto(qEvent, e); err != nil {
		self.log.Errorf("CRITICAL tele event=%s err=%v", e.String(), err)
	}
}

func (self *Tele) Error(err error) {
	self.Event(&Event{Kind: Event_Error, Error: err.Error()})
}

func (self *Tele) stateWorker() {
	const retryInterval = 17 * time.Second
	var b [1]byte
	var sent bool
	tmrRegular := time.NewTicker(self.stateInterval)
	defer tmrRegular.Stop()
	tmrRetry := time.NewTicker(retryInterval)
	defer tmrRetry.Stop()
	for {
		select {
		case next := <-self.stateCh:
			if next != State(b[0]) {
				b[0] = byte(next)
				sent = self.transport.SendState(b[:])
			}

		case <-tmrRegular.C:
			sent = self.transport.SendState(b[:])

		case <-tmrRetry.C:
			if !sent {
				sent = self.transport.SendState(b[:])
			}

		case <-self.stopCh:
			return
		}
	}
}

func (self *Tele) qworker() {
	defer close(self.doneCh)
	for {
		box, err := self.q.Peek()
		switch err {
		case nil:
			b := box.Bytes()
			del, err := self.qhandle(b)
			if err != nil {
				self.log.Errorf("tele qhandle b=%x err=%v", b, err)
			}
			if del {
				err = self.q.Delete(box)
				self.backoff.Reset()
			} else {
				err = self.q.DeletePush(box)
				select {
				case <-time.After(self.backoff.DelayAfter(false)):
				case <-self.stopCh:
				}
			}
			if err != nil && err != spq.ErrClosed {
				self.log.Errorf("tele queue update b=%x err=%v", b, err)
			}

		case spq.ErrClosed:
			select {
			case <-self.stopCh: // success path
			default:
				self.log.Errorf("CRITICAL tele spq closed unexpectedly")
			}
			return

		default:
			self.log.Errorf("CRITICAL tele spq err=%v", err)
			select {
			case <-time.After(self.retryDelay):
			case <-self.stopCh:
				return
			}
		}
	}
}

// qhandle returns true when item should be removed from queue.
func (self *Tele) qhandle(b []byte) (bool, error) {
	if len(b) == 0 {
		return true, errors.New("tele spq peek=empty")
	}

	switch b[0] {
	case qEvent:
		var e Event
		if err := proto.Unmarshal(b[1:], &e); err != nil {
			return true, err
		}
		payload, err := proto.Marshal(&e)
		if err != nil {
			// retry will not help
			return true, errors.Annotatef(err, "event Marshal e=%s", e.String())
		}
		return self.transport.SendEvent(payload), nil

	default:
		return true, errors.Errorf("unknown kind=%d", b[0])
	}
}

func (self *Tele) qpushTagProto(tag byte, pb proto.Message) error {
	b, err := proto.Marshal(pb)
	if err != nil {
		return errors.Trace(err)
	}
	return self.q.Push(append([]byte{tag}, b...))
}

type stub struct{}

func (stub) Init(context.Context, *log2.Log, Config) error { return nil }
func (stub) State(State)                                   {}
func (stub) Event(*Event)                                  {}
func (stub) Error(error)                                   {}
func (stub) Close()                                        {}

func NewStub() Teler { return stub{} }
