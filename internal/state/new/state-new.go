// Sorry, workaround to import cycles.
package state_new

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/temoto/alive/v2"
	"github.com/temoto/battwatch/internal/state"
	"github.com/temoto/battwatch/internal/tele"
	"github.com/temoto/battwatch/log2"
)

func NewContext(log *log2.Log, teler tele.Teler) (context.Context, *state.Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &state.Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Tele:  teler,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, state.ContextKey, g)

	return ctx, g
}

// NewTestContext reads config from confString, persist root and journal go to t.TempDir().
func NewTestContext(t testing.TB, buildVersion string, confString string) (context.Context, *state.Global) {
	fs := state.NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	var log *log2.Log
	if os.Getenv("battwatch_test_log_stderr") == "1" {
		log = log2.NewStderr(log2.LDebug) // useful with panics
	} else {
		log = log2.NewTest(t, log2.LDebug)
	}
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log, tele.NewStub())
	g.BuildVersion = buildVersion
	config := state.MustReadConfig(log, fs, "test-inline")
	dir := t.TempDir()
	if config.Persist.Root == "" {
		config.Persist.Root = dir
	}
	if config.Journal.Path == "" {
		config.Journal.Path = filepath.Join(dir, "lora_log.csv")
	}
	g.MustInit(ctx, config)
	return ctx, g
}
