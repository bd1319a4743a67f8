// Package modem is interactive console to GSM modem, useful to check SIM,
// signal and SMS delivery before running the service.
package modem

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/battwatch/cmd/battwatch/subcmd"
	"github.com/temoto/battwatch/helpers/cli"
	"github.com/temoto/battwatch/internal/state"
)

const modName = "modem"

const usage = `syntax:
- AT...       send raw command, print response
- sms TEXT    send TEXT to alert.destination
- help
`

var Mod = subcmd.Mod{Name: modName, Usage: "interactive AT console", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

	dev, err := g.Modem(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	g.Log.Debugf("modem init complete, running")

	cli.MainLoop(modName, newExecutor(ctx, dev, config.Alert.Destination, os.Stdout), newCompleter(), func() { _ = g.Close() })
	return g.Close()
}

var suggests = []prompt.Suggest{
	{Text: "AT", Description: "check modem responds"},
	{Text: "AT+CSQ", Description: "signal quality"},
	{Text: "AT+CREG?", Description: "network registration"},
	{Text: "AT+COPS?", Description: "operator"},
	{Text: "AT+CPIN?", Description: "SIM status"},
	{Text: "sms", Description: "send test SMS to alert.destination"},
	{Text: "help"},
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context, dev state.ModemDevice, destination string, w io.Writer) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case line == "":
		case lower == "help":
			fmt.Fprint(w, usage)
		case lower == "sms" || strings.HasPrefix(lower, "sms "):
			if destination == "" {
				g.Log.Errorf("alert.destination=empty")
				return
			}
			text := strings.TrimSpace(line[len("sms"):])
			if text == "" {
				text = "battwatch test message"
			}
			r, err := dev.SendSMS(ctx, destination, text)
			if err != nil {
				g.Log.Errorf("sms destination=%s err=%v", destination, err)
				return
			}
			fmt.Fprintf(w, "%s\n", r.String())
		case strings.HasPrefix(lower, "at"):
			r, err := dev.Command(line)
			if err != nil {
				g.Log.Errorf("command=%s err=%v", line, err)
				return
			}
			fmt.Fprintf(w, "%s\n", r.String())
		default:
			g.Log.Errorf("unknown command=%s, try help", line)
		}
	}
}
