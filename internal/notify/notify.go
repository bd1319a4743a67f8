// Package notify delivers alert intents as SMS through modem.
// Dispatch never touches alert state, failure is only reported.
package notify

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/hardware/modem"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/internal/alert"
	"github.com/temoto/battwatch/log2"
)

const (
	DefaultRetryDelay    = 1 * time.Second
	DefaultRetryDelayMax = 30 * time.Second
)

type Sender interface {
	SendSMS(ctx context.Context, number, text string) (modem.Response, error)
}

type Outcome struct {
	Success  bool
	Raw      string
	Attempts int
	Err      error
}

type Dispatcher struct {
	Log *log2.Log

	sender      Sender
	destination string
	retryMax    int
	delayMin    time.Duration
	delayMax    time.Duration
}

func NewDispatcher(sender Sender, c alert.Config, log *log2.Log) (*Dispatcher, error) {
	if c.Destination == "" {
		return nil, errors.NotValidf("alert.destination=empty")
	}
	if c.RetryMax < 0 {
		return nil, errors.NotValidf("alert.retry_max=%d", c.RetryMax)
	}
	return &Dispatcher{
		Log:         log,
		sender:      sender,
		destination: c.Destination,
		retryMax:    c.RetryMax,
		delayMin:    helpers.IntMillisecondDefault(c.RetryDelayMs, DefaultRetryDelay),
		delayMax:    helpers.IntMillisecondDefault(c.RetryMaxMs, DefaultRetryDelayMax),
	}, nil
}

func (d *Dispatcher) Destination() string { return d.destination }

// Dispatch makes 1+retry_max attempts at most, stops early on success or context cancel.
func (d *Dispatcher) Dispatch(ctx context.Context, intent alert.Intent) Outcome {
	backoff := helpers.Backoff{Min: d.delayMin, Max: d.delayMax, K: 2}
	out := Outcome{}
	for {
		out.Attempts++
		r, err := d.sender.SendSMS(ctx, d.destination, intent.Message)
		out.Raw = r.String()
		out.Err = err
		out.Success = err == nil && r.OK
		if out.Success {
			d.Log.Infof("notify %s delivered to=%s attempts=%d", intent.Kind, d.destination, out.Attempts)
			return out
		}
		if out.Err == nil {
			out.Err = errors.Errorf("no acknowledgement response=%q", out.Raw)
		}
		d.Log.Errorf("notify %s delivery failed to=%s attempt=%d err=%v", intent.Kind, d.destination, out.Attempts, out.Err)

		if out.Attempts > d.retryMax {
			return out
		}
		delay := backoff.Next()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			out.Err = errors.Annotate(ctx.Err(), "notify retry")
			return out
		}
	}
}
