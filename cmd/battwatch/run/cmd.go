// Package run is the main service: receive telemetry, keep journal, send SMS alerts.
package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/battwatch/cmd/battwatch/subcmd"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/internal/metrics"
	"github.com/temoto/battwatch/internal/state"
	"github.com/temoto/battwatch/internal/tele"
)

var Mod = subcmd.Mod{Name: "run", Usage: "receive telemetry and send alerts (default)", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.Log.Debugf("config=%+v", g.Config)

	loop, err := g.Watch(ctx)
	if err != nil {
		err = errors.Annotate(err, "startup")
		g.Error(err)
		_ = g.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-g.Alive.StopChan()
		cancel()
	}()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		g.Log.Infof("signal=%v stopping", s)
		g.Stop()
	}()

	if listen := g.Config.Metrics.Listen; listen != "" && g.Alive.Add(1) {
		go func() {
			defer g.Alive.Done()
			if err := metrics.Serve(runCtx, listen, g.Registry, g.Log); err != nil {
				g.Error(err)
				g.Stop()
			}
		}()
	}

	g.Tele.State(tele.State_Running)
	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Infof("battwatch init complete, running")

	if g.Alive.Add(1) {
		err = loop.Run(runCtx)
		g.Alive.Done()
	}
	g.Stop()
	g.Alive.Wait()
	subcmd.SdNotify(daemon.SdNotifyStopping)

	return helpers.FoldErrors([]error{err, g.Close()})
}
