package state

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/hardware/modem"
	"github.com/temoto/battwatch/hardware/rfm9x"
	"github.com/temoto/battwatch/internal/alert"
	"github.com/temoto/battwatch/internal/journal"
	"github.com/temoto/battwatch/internal/notify"
	"github.com/temoto/battwatch/internal/watch"
	"github.com/temoto/battwatch/log2"
)

type RadioDevice interface {
	watch.Radio
	Close() error
}

type ModemDevice interface {
	notify.Sender
	Command(cmd string) (modem.Response, error)
	Close() error
}

type hardware struct {
	Radio struct {
		once
		Device RadioDevice
	}
	Modem struct {
		once
		Device ModemDevice
	}
	journal struct {
		once
		j *journal.Journal
	}
}

// Radio opens receiver on first call.
// Preset Hardware.Radio.Device is used as is, that is test mode.
func (g *Global) Radio() (RadioDevice, error) {
	x := &g.Hardware.Radio // short alias
	_ = x.do(func() error {
		if x.Device != nil {
			return nil
		}
		cfg := &g.Config.Radio
		log := g.Log.Clone(log2.LInfo)
		if cfg.LogDebug {
			log.SetLevel(log2.LDebug)
		}
		r, err := rfm9x.Open(cfg, log)
		if err != nil {
			return errors.Annotate(err, "radio")
		}
		x.Device = r
		return nil
	})
	return x.Device, x.err
}

// Modem opens and checks GSM modem on first call, which may take boot delay.
func (g *Global) Modem(ctx context.Context) (ModemDevice, error) {
	x := &g.Hardware.Modem // short alias
	_ = x.do(func() error {
		if x.Device != nil {
			return nil
		}
		cfg := &g.Config.Modem
		log := g.Log.Clone(log2.LInfo)
		if cfg.LogDebug {
			log.SetLevel(log2.LDebug)
		}
		m, err := modem.Open(ctx, cfg, log)
		if err != nil {
			return errors.Annotate(err, "modem")
		}
		x.Device = m
		return nil
	})
	return x.Device, x.err
}

func (g *Global) Journal() (*journal.Journal, error) {
	x := &g.Hardware.journal // short alias
	_ = x.do(func() error {
		x.j, x.err = journal.Open(g.Config.Journal, g.Log)
		return x.err
	})
	return x.j, x.err
}

// Watch assembles receive loop from configured parts.
// Startup is fatal on any missing part, there is no degraded mode.
func (g *Global) Watch(ctx context.Context) (*watch.Loop, error) {
	radio, err := g.Radio()
	if err != nil {
		return nil, errors.Trace(err)
	}
	m, err := g.Modem(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	j, err := g.Journal()
	if err != nil {
		return nil, errors.Trace(err)
	}
	machine, err := alert.NewMachine(g.Config.Alert, g.Config.Persist.Root, g.Log)
	if err != nil {
		return nil, errors.Trace(err)
	}
	dispatcher, err := notify.NewDispatcher(m, g.Config.Alert, g.Log)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &watch.Loop{
		Log:       g.Log,
		Radio:     radio,
		Sink:      j,
		Machine:   machine,
		Notifier:  dispatcher,
		Metrics:   g.Metrics,
		Tele:      g.Tele,
		PollDelay: g.Config.Radio.PollDelay(),
	}, nil
}

func (h *hardware) close() []error {
	errs := make([]error, 0, 3)
	if h.journal.done() && h.journal.j != nil {
		errs = append(errs, errors.Annotate(h.journal.j.Close(), "journal close"))
	}
	if h.Modem.done() && h.Modem.Device != nil {
		errs = append(errs, errors.Annotate(h.Modem.Device.Close(), "modem close"))
	}
	if h.Radio.done() && h.Radio.Device != nil {
		errs = append(errs, errors.Annotate(h.Radio.Device.Close(), "radio close"))
	}
	return errs
}

type once struct {
	sync.Mutex
	called uint32
	err    error
}

func (o *once) done() bool { return atomic.LoadUint32(&o.called) == 1 }

func (o *once) do(f func() error) error {
	if atomic.LoadUint32(&o.called) == 1 {
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.called == 0 {
		o.err = f()
		atomic.StoreUint32(&o.called, 1)
	}
	return o.err
}
