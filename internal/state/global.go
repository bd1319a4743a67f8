package state

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/temoto/alive/v2"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/internal/metrics"
	"github.com/temoto/battwatch/internal/tele"
	"github.com/temoto/battwatch/log2"
)

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *Config
	Hardware     hardware // hardware.go
	Log          *log2.Log
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	Tele         tele.Teler

	_copy_guard sync.Mutex //nolint:unused
}

const ContextKey = "run/state-global"

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Log.Infof("build version=%s", g.BuildVersion)
	if g.Config.LogDebug {
		g.Log.SetLevel(log2.LDebug)
	}

	if err := g.Config.Validate(); err != nil {
		return errors.Trace(err)
	}
	g.Log.Debugf("config: persist.root=%s journal.path=%s", g.Config.Persist.Root, g.Config.Journal.Path)

	if g.Registry == nil {
		g.Registry = prometheus.NewRegistry()
	}
	if g.Metrics == nil {
		m, err := metrics.New(g.Registry)
		if err != nil {
			return errors.Annotate(err, "metrics init")
		}
		g.Metrics = m
	}

	// Since tele is remote error reporting mechanism, it must be inited before anything else.
	// Tele gets g.Log clone before SetErrorFunc, so tele errors do not recurse on itself.
	if g.Tele == nil {
		t, err := tele.New(ctx, g.Log.Clone(log2.LInfo), g.Config.Tele)
		if err != nil {
			g.Tele = tele.NewStub()
			return errors.Annotate(err, "tele init")
		}
		g.Tele = t
	}
	g.Log.SetErrorFunc(func(err error) {
		g.Metrics.Error(err)
		g.Tele.Error(err)
	})

	if g.BuildVersion == "unknown" {
		g.Log.Debugf("build version is not set, please use script/build")
	} else if strings.HasSuffix(g.BuildVersion, "-dirty") {
		g.Log.Errorf("running development build with uncommited changes")
	}
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(err)
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Log.Fatal(errors.ErrorStack(err))
		os.Exit(1)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close releases hardware and flushes journal. Tele is closed last
// so that shutdown errors still get reported.
func (g *Global) Close() error {
	errs := g.Hardware.close()
	if g.Tele != nil {
		g.Tele.State(tele.State_Stopped)
		g.Tele.Close()
	}
	return helpers.FoldErrors(errs)
}
