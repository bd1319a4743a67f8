// Package watch is the ingestion loop: radio -> journal -> voltage -> alert -> notify.
// One goroutine owns everything, notification is delivered before next packet is polled.
package watch

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/internal/alert"
	"github.com/temoto/battwatch/internal/metrics"
	"github.com/temoto/battwatch/internal/notify"
	"github.com/temoto/battwatch/internal/tele"
	"github.com/temoto/battwatch/internal/telemetry"
	"github.com/temoto/battwatch/log2"
)

const DefaultPollDelay = 100 * time.Millisecond

type Radio interface {
	TryReceive() ([]byte, error)
	LastRSSI() int
}

type Sink interface {
	Append(telemetry.Reading) error
}

type Notifier interface {
	Dispatch(context.Context, alert.Intent) notify.Outcome
}

type Loop struct {
	Log      *log2.Log
	Radio    Radio
	Sink     Sink
	Machine  *alert.Machine
	Notifier Notifier
	Metrics  *metrics.Metrics
	Tele     tele.Teler

	PollDelay time.Duration
	// Now is replaced in tests
	Now func() time.Time
}

func (l *Loop) check() error {
	if l.Radio == nil || l.Sink == nil || l.Machine == nil || l.Notifier == nil {
		return errors.New("code error watch.Loop requires Radio, Sink, Machine, Notifier")
	}
	if l.Tele == nil {
		l.Tele = tele.NewStub()
	}
	if l.Now == nil {
		l.Now = time.Now
	}
	if l.PollDelay == 0 {
		l.PollDelay = DefaultPollDelay
	}
	return nil
}

// Run polls radio until ctx is done. Cancellation is not an error.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.check(); err != nil {
		return err
	}
	l.Metrics.SetAlerted(l.Machine.State() == alert.StateAlerted)
	l.Log.Infof("watch started threshold=%v state=%s", l.Machine.Config().Threshold, l.Machine.State())
	for {
		if ctx.Err() != nil {
			return nil
		}
		l.Step(ctx)
		select {
		case <-time.After(l.PollDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

// Step performs one poll and fully handles received packet, if any.
// Returns true when packet was received.
func (l *Loop) Step(ctx context.Context) bool {
	if err := l.check(); err != nil {
		panic(err)
	}
	raw, err := l.Radio.TryReceive()
	if err != nil {
		l.Metrics.RadioError()
		l.Log.Error(errors.Annotate(err, "radio receive"))
		return false
	}
	if raw == nil {
		return false
	}

	r := telemetry.Decode(raw, l.Radio.LastRSSI(), l.Now())
	l.Metrics.Packet(r.Decoded, r.RSSI)
	if err := l.Sink.Append(r); err != nil {
		l.Metrics.JournalError()
		l.Log.Error(errors.Annotate(err, "journal"))
	}
	if !r.Decoded {
		l.Log.Infof("received undecodable packet raw=%x rssi=%d", r.Raw, r.RSSI)
		return true
	}
	l.Log.Infof("received message=%q rssi=%d", r.Text, r.RSSI)

	sample, ok := telemetry.ParseVoltage(r.Text, r.Time)
	if !ok {
		l.Log.Debugf("no voltage in message=%q", r.Text)
		return true
	}
	l.Metrics.Sample(sample.Voltage)

	intent, ok := l.Machine.Feed(sample)
	if !ok {
		return true
	}
	l.Metrics.Intent(intent.Kind.String(), intent.Kind == alert.KindRaise)
	l.Tele.Event(&tele.Event{
		Kind:    teleKind(intent.Kind),
		Time:    intent.Time.UnixNano(),
		Voltage: intent.Voltage,
		Message: intent.Message,
	})

	tbegin := time.Now()
	out := l.Notifier.Dispatch(ctx, intent)
	l.Metrics.Dispatch(out.Success, time.Since(tbegin))
	e := &tele.Event{
		Kind:     tele.Event_Dispatch,
		Time:     l.Now().UnixNano(),
		Voltage:  intent.Voltage,
		Message:  intent.Message,
		Success:  out.Success,
		Attempts: uint32(out.Attempts),
	}
	if out.Err != nil {
		e.Error = out.Err.Error()
	}
	l.Tele.Event(e)
	return true
}

func teleKind(k alert.Kind) tele.Event_Kind {
	switch k {
	case alert.KindRaise:
		return tele.Event_Raise
	case alert.KindClear:
		return tele.Event_Clear
	}
	return tele.Event_Invalid
}
