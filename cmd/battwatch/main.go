package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/cmd/battwatch/modem"
	"github.com/temoto/battwatch/cmd/battwatch/replay"
	"github.com/temoto/battwatch/cmd/battwatch/run"
	"github.com/temoto/battwatch/cmd/battwatch/subcmd"
	"github.com/temoto/battwatch/internal/state"
	state_new "github.com/temoto/battwatch/internal/state/new"
	"github.com/temoto/battwatch/log2"
)

var BuildVersion string = "unknown" // set by ldflags -X

var log = log2.NewStderr(log2.LDebug)

var modules = []subcmd.Mod{
	run.Mod,
	modem.Mod,
	replay.Mod,
}

func main() {
	flagConfig := flag.String("config", "battwatch.hcl", "path to HCL config")
	flagVersion := flag.Bool("version", false, "print build version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [command]\ncommands:\n", os.Args[0])
		for _, m := range modules {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-8s %s\n", m.Name, m.Usage)
		}
		flag.PrintDefaults()
	}
	flag.Parse()
	if *flagVersion {
		fmt.Println(BuildVersion)
		return
	}

	command := flag.Arg(0)
	if command == "" {
		command = run.Mod.Name
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	if subcmd.SdNotify("start") {
		// under systemd, assume journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	log.Infof("battwatch version=%s command=%s", BuildVersion, mod.Name)

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	ctx, g := state_new.NewContext(log, nil)
	g.BuildVersion = BuildVersion

	var args []string
	if flag.NArg() > 1 {
		args = flag.Args()[1:]
	}
	if err := mod.Main(ctx, config, args); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
