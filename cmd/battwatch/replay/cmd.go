// Package replay feeds recorded journal through voltage parser and alert machine
// and prints intents that would be sent. Modem is not touched.
package replay

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/cmd/battwatch/subcmd"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/internal/alert"
	"github.com/temoto/battwatch/internal/journal"
	"github.com/temoto/battwatch/internal/state"
	"github.com/temoto/battwatch/internal/telemetry"
	"github.com/temoto/battwatch/log2"
)

var Mod = subcmd.Mod{Name: "replay", Usage: "replay <csv>  print alerts for recorded journal", Main: Main}

type Stat struct {
	Records int
	Samples int
	Intents int
}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	path := config.Journal.Path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = journal.DefaultPath
	}
	if err := config.Alert.Validate(); err != nil {
		return errors.Annotate(err, "replay")
	}
	s, err := Replay(path, config.Alert, os.Stdout, g.Log)
	if err != nil {
		return errors.Annotatef(err, "replay path=%s", path)
	}
	g.Log.Infof("replay records=%d samples=%d intents=%d threshold=%v recover_at=%v",
		s.Records, s.Samples, s.Intents, config.Alert.Threshold, config.Alert.RecoverAt())
	return nil
}

// Replay always starts from normal state, persisted state is ignored.
func Replay(path string, c alert.Config, w io.Writer, log *log2.Log) (Stat, error) {
	s := Stat{}
	c.Persist = false
	m, err := alert.NewMachine(c, "", log)
	if err != nil {
		return s, errors.Trace(err)
	}
	err = journal.ReadFile(path, func(r journal.Record) error {
		s.Records++
		sample, ok := telemetry.ParseVoltage(r.Message, r.Time)
		if !ok {
			return nil
		}
		s.Samples++
		intent, ok := m.Feed(sample)
		if !ok {
			return nil
		}
		s.Intents++
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\n", r.Time.Format(helpers.TimeFormat), intent.Kind, intent.Message)
		return err
	})
	return s, err
}
